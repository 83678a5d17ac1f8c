package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/personahub/persona-backend/internal/ai/gemini"
	"github.com/personahub/persona-backend/internal/api"
	"github.com/personahub/persona-backend/internal/billing"
	"github.com/personahub/persona-backend/internal/cache/redis"
	"github.com/personahub/persona-backend/internal/config"
	"github.com/personahub/persona-backend/internal/imagesearch"
	"github.com/personahub/persona-backend/internal/service"
	"github.com/personahub/persona-backend/internal/service/admin"
	"github.com/personahub/persona-backend/internal/service/catalog"
	"github.com/personahub/persona-backend/internal/service/chat"
	"github.com/personahub/persona-backend/internal/service/lookup"
	"github.com/personahub/persona-backend/internal/service/quota"
	"github.com/personahub/persona-backend/internal/storage/postgres"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	// Configure log format
	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	logger.Info("starting persona-backend server")

	// Connect to database
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis client
	redisClient, err := redis.New(cfg.Redis.URI)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()

	// Initialize upstream clients
	geminiClient := gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model)
	imageClient := imagesearch.NewClient(cfg.ImageSearch.BaseURL, cfg.ImageSearch.APIKey)
	imageChecker := imagesearch.NewHeadChecker()
	billingClient := billing.NewClient(cfg.Billing.BaseURL, cfg.Billing.KeyID, cfg.Billing.KeySecret, cfg.Billing.PlanID)

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db.Pool())
	personaRepo := postgres.NewPersonaRepository(db.Pool())
	sessionRepo := postgres.NewSessionRepository(db.Pool())

	// Initialize services
	authService := service.NewAuthService(cfg.Server.JWTSecret, userRepo)
	quotaGuard := quota.NewGuard(userRepo, logger)
	catalogService := catalog.NewService(personaRepo, userRepo, imageChecker, logger)
	chatService := chat.NewService(quotaGuard, personaRepo, sessionRepo, geminiClient, logger)
	lookupService := lookup.NewService(geminiClient, imageClient, redisClient, logger)
	adminService := admin.NewService(userRepo, sessionRepo, personaRepo, logger)

	// Initialize API server
	server := api.NewServer(authService, catalogService, chatService, quotaGuard,
		lookupService, adminService, billingClient, userRepo, redisClient,
		cfg.Billing.WebhookSecret, logger)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Add middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}).Info("request")
			return nil
		},
	}))

	server.RegisterRoutes(e)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	go func() {
		logger.WithField("addr", addr).Info("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown error")
	}

	logger.Info("server stopped")
}
