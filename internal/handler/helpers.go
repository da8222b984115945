package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portalis-api/internal/middleware"
	"github.com/noah-isme/portalis-api/internal/service"
	"github.com/noah-isme/portalis-api/internal/utils"
)

const serviceUnavailableMessage = "service temporarily unavailable, please try again"

func studentIDFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		switch id := v.(type) {
		case string:
			return strings.TrimSpace(id)
		case fmt.Stringer:
			return strings.TrimSpace(id.String())
		}
	}
	return ""
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// sendServiceError maps service failures onto the response taxonomy: stale
// sessions re-authenticate, missing entities 404, invalid input 400, and
// every backend failure collapses into one generic retryable message so raw
// gateway detail never reaches the client.
func sendServiceError(c *fiber.Ctx, logger *zerolog.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrStudentRequired):
		return utils.SendError(c, fiber.StatusUnauthorized, "please log in to continue")
	case errors.Is(err, service.ErrNotificationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "notification not found")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request parameters")
	default:
		logger.Error().Err(err).Msg("request failed")
		return utils.SendError(c, fiber.StatusServiceUnavailable, serviceUnavailableMessage)
	}
}
