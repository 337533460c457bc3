package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ArionMiles/spendwise/pkg/api"
)

type ruleBody struct {
	Pattern  string `json:"pattern"`
	Category string `json:"category"`
}

func (s *Server) listRules(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	rules, err := s.deps.Rules.List(c.UserContext(), owner)
	if err != nil {
		return err
	}
	if rules == nil {
		rules = []api.CategoryRule{}
	}
	return c.JSON(rules)
}

func (s *Server) createRule(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	var body ruleBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}

	rule, err := s.deps.Rules.Create(c.UserContext(), owner, body.Pattern, body.Category)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(rule)
}

func (s *Server) deleteRule(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid rule id")
	}

	if err := s.deps.Rules.Delete(c.UserContext(), owner, int64(id)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
