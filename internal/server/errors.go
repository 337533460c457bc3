package server

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, api.ErrOwnerNotFound), errors.Is(err, api.ErrRuleNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, api.ErrDuplicateRule), errors.Is(err, api.ErrDuplicateOwner):
		return fiber.StatusConflict
	case errors.Is(err, api.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, api.ErrInvalidRequest),
		errors.Is(err, api.ErrMissingField),
		errors.Is(err, api.ErrUnparseableSMS),
		errors.Is(err, api.ErrEmptyBatch),
		errors.Is(err, api.ErrBatchTooLarge):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusFor(err)
		message := err.Error()

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			message = fiberErr.Message
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
				"error", err,
			)
			message = "internal server error"
		}
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}
