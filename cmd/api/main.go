package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portalis-api/internal/config"
	"github.com/noah-isme/portalis-api/internal/database"
	"github.com/noah-isme/portalis-api/internal/handler"
	"github.com/noah-isme/portalis-api/internal/lms"
	"github.com/noah-isme/portalis-api/internal/middleware"
	"github.com/noah-isme/portalis-api/internal/models"
	"github.com/noah-isme/portalis-api/internal/repository"
	"github.com/noah-isme/portalis-api/internal/router"
	"github.com/noah-isme/portalis-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Conversation{}, &models.ChatMessage{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		// NATS is the optional second fan-out path; redis pub/sub covers
		// cross-node signaling on its own.
		logger.Warn().Err(err).Msg("nats unavailable, continuing with redis signaling only")
		natsConn = nil
	} else {
		defer natsConn.Close()
	}

	gateway, err := lms.NewClient(lms.ClientConfig{
		BaseURL:  cfg.GatewayBaseURL,
		APIKey:   cfg.GatewayAPIKey,
		Timeout:  cfg.GatewayTimeout,
		Location: cfg.Timezone,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create gateway client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	chatRepo := repository.NewChatRepository(db)

	activityService := service.NewActivityService(gateway, redisClient, cfg.AggregationCacheTTL, cfg.Timezone, validate, logger)
	notificationService := service.NewNotificationService(gateway, redisClient, cfg.EventChannelBase, natsConn, cfg.Timezone, logger)
	scheduleService := service.NewScheduleService(gateway, validate, logger)
	chatService := service.NewChatService(chatRepo, logger)

	serviceCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()
	notificationService.Start(serviceCtx)

	activityHandler := handler.NewActivityHandler(activityService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, cfg.StreamKeepAlive)
	scheduleHandler := handler.NewScheduleHandler(scheduleService, logger)
	chatHandler := handler.NewChatHandler(chatService, logger)
	sessionHandler := handler.NewSessionHandler(notificationService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ActivityHandler:     activityHandler,
		NotificationHandler: notificationHandler,
		ScheduleHandler:     scheduleHandler,
		ChatHandler:         chatHandler,
		SessionHandler:      sessionHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopServices)
}

func waitForShutdown(app *fiber.App, stopServices context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	stopServices()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
