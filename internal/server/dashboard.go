package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// queryInt reads an integer query parameter, returning def when absent.
func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return n, nil
}

func (s *Server) monthlyStats(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	now := s.cfg.Now().In(s.cfg.Location)
	year, err := queryInt(c, "year", now.Year())
	if err != nil {
		return err
	}
	month, err := queryInt(c, "month", int(now.Month()))
	if err != nil {
		return err
	}

	stats, err := s.deps.Dashboard.Monthly(c.UserContext(), owner, year, month)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (s *Server) yearlyStats(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	year, err := queryInt(c, "year", s.cfg.Now().In(s.cfg.Location).Year())
	if err != nil {
		return err
	}

	stats, err := s.deps.Dashboard.Yearly(c.UserContext(), owner, year)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
