package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/noah-isme/portalis-api/internal/config"
	"github.com/noah-isme/portalis-api/internal/handler"
	"github.com/noah-isme/portalis-api/internal/middleware"
	"github.com/noah-isme/portalis-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ActivityHandler     *handler.ActivityHandler
	NotificationHandler *handler.NotificationHandler
	ScheduleHandler     *handler.ScheduleHandler
	ChatHandler         *handler.ChatHandler
	SessionHandler      *handler.SessionHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ActivityHandler != nil {
		activities := api.Group("/activities", jwtMiddleware)
		deps.ActivityHandler.Register(activities)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware,
			middleware.RateLimit("notifications", 60, time.Minute))
		deps.NotificationHandler.Register(notifications)

		// Websocket upgrade is negotiated before the handler runs.
		app.Use("/ws/notifications", jwtMiddleware, func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/notifications", deps.NotificationHandler.Socket())
	}

	if deps.ScheduleHandler != nil {
		schedule := api.Group("/schedule", jwtMiddleware)
		deps.ScheduleHandler.Register(schedule)
	}

	if deps.ChatHandler != nil {
		messages := api.Group("/messages", jwtMiddleware)
		deps.ChatHandler.Register(messages)
	}

	if deps.SessionHandler != nil {
		session := api.Group("/session", jwtMiddleware)
		deps.SessionHandler.Register(session)
	}
}
