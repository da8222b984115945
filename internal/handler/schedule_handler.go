package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portalis-api/internal/dto"
	"github.com/noah-isme/portalis-api/internal/middleware"
	"github.com/noah-isme/portalis-api/internal/service"
	"github.com/noah-isme/portalis-api/internal/utils"
)

// ScheduleHandler serves the weekly timetable view.
type ScheduleHandler struct {
	service service.ScheduleService
	logger  zerolog.Logger
}

// NewScheduleHandler constructs a handler instance.
func NewScheduleHandler(service service.ScheduleService, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: service,
		logger:  logger.With().Str("component", "schedule_handler").Logger(),
	}
}

// Register binds the schedule routes.
func (h *ScheduleHandler) Register(router fiber.Router) {
	router.Get("/", h.weekly)
}

func (h *ScheduleHandler) weekly(c *fiber.Ctx) error {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "please log in to continue")
	}

	query := dto.ActivityQuery{
		AcademicYear: c.Query("academic_year"),
		Semester:     c.Query("semester"),
	}

	response, err := h.service.WeeklySchedule(h.requestContext(c), studentID, query)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "weekly schedule", response)
}

func (h *ScheduleHandler) requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}
