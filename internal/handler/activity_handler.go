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

// ActivityHandler serves the reconciled activity views.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs a handler instance.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register binds the activity routes.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/grouped", h.grouped)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "please log in to continue")
	}

	query := dto.ActivityQuery{
		AcademicYear: c.Query("academic_year"),
		Semester:     c.Query("semester"),
	}

	response, err := h.service.Aggregate(h.requestContext(c), studentID, query)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "activities", response)
}

func (h *ActivityHandler) grouped(c *fiber.Ctx) error {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "please log in to continue")
	}

	query := dto.ActivityQuery{
		AcademicYear: c.Query("academic_year"),
		Semester:     c.Query("semester"),
	}

	groups, err := h.service.GroupedByDueDate(h.requestContext(c), studentID, query)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "activities grouped by due date", groups)
}

func (h *ActivityHandler) requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}
