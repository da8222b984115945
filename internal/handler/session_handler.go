package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portalis-api/internal/service"
	"github.com/noah-isme/portalis-api/internal/utils"
)

// SessionHandler handles logout. Tokens are stateless; the only
// server-side work is dropping the student's notification store.
type SessionHandler struct {
	notifications service.NotificationService
	logger        zerolog.Logger
}

// NewSessionHandler constructs a handler instance.
func NewSessionHandler(notifications service.NotificationService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		notifications: notifications,
		logger:        logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register binds the session routes.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Delete("/", h.end)
}

func (h *SessionHandler) end(c *fiber.Ctx) error {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "please log in to continue")
	}

	h.notifications.Teardown(studentID)
	requestLogger(h.logger, c).Info().Str("student_id", studentID).Msg("session ended")

	return utils.SendSuccess(c, "session ended", nil)
}
