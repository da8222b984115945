package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portalis-api/internal/middleware"
	"github.com/noah-isme/portalis-api/internal/service"
	"github.com/noah-isme/portalis-api/internal/utils"
)

// ChatHandler serves message unread counters for the portal badge.
type ChatHandler struct {
	service service.ChatService
	logger  zerolog.Logger
}

// NewChatHandler constructs a handler instance.
func NewChatHandler(service service.ChatService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds the message routes.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Get("/unread-count", h.unreadCount)
}

func (h *ChatHandler) unreadCount(c *fiber.Ctx) error {
	userID := studentIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "please log in to continue")
	}

	response, err := h.service.UnreadSummary(h.requestContext(c), userID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "unread messages", response)
}

func (h *ChatHandler) requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}
