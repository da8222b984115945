package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portalis-api/internal/middleware"
	"github.com/noah-isme/portalis-api/internal/service"
	"github.com/noah-isme/portalis-api/internal/utils"
)

// NotificationHandler exposes the notification store: grouped reads,
// read-marking, refresh, and the SSE/websocket change streams.
type NotificationHandler struct {
	service   service.NotificationService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger, keepAlive time.Duration) *NotificationHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}

	return &NotificationHandler{
		service:   service,
		logger:    logger.With().Str("component", "notification_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/", h.state)
	router.Post("/refresh", h.refresh)
	router.Get("/stream", h.stream)
	router.Patch("/:id/read", h.markRead)
	router.Post("/read-all", h.markAllRead)
}

func (h *NotificationHandler) state(c *fiber.Ctx) error {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "please log in to continue")
	}

	response, err := h.service.State(h.requestContext(c), studentID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "notifications", response)
}

func (h *NotificationHandler) refresh(c *fiber.Ctx) error {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "please log in to continue")
	}

	response, err := h.service.Refresh(h.requestContext(c), studentID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "notifications refreshed", response)
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "please log in to continue")
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	response, err := h.service.MarkRead(h.requestContext(c), studentID, id)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "notification marked read", response)
}

func (h *NotificationHandler) markAllRead(c *fiber.Ctx) error {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "please log in to continue")
	}

	response, err := h.service.MarkAllRead(h.requestContext(c), studentID)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "all notifications marked read", response)
}

func (h *NotificationHandler) stream(c *fiber.Ctx) error {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "please log in to continue")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(h.requestContext(c))

	events, cleanup := h.service.Subscribe(studentID)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
		}()

		ticker := time.NewTicker(h.keepAlive / 2)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := writeStreamEvent(w, event); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write notification event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write notification keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

// Socket streams store change events over a websocket connection. The
// client only reads; inbound frames are drained to detect disconnects.
func (h *NotificationHandler) Socket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		studentID := ""
		if v := conn.Locals("user_id"); v != nil {
			if id, ok := v.(string); ok {
				studentID = id
			}
		}
		if studentID == "" {
			_ = conn.Close()
			return
		}

		events, cleanup := h.service.Subscribe(studentID)
		defer cleanup()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					h.logger.Debug().Err(err).Msg("notification socket write failed")
					return
				}
			case <-time.After(h.keepAlive):
				if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
					h.logger.Debug().Err(err).Msg("notification socket ping failed")
					return
				}
			case <-closed:
				return
			}
		}
	})
}

func (h *NotificationHandler) requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func writeStreamEvent(w *bufio.Writer, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: notification\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
