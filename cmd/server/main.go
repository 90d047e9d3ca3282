package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/recon-api/internal/alerting"
	"github.com/ksred/recon-api/internal/auth"
	"github.com/ksred/recon-api/internal/config"
	"github.com/ksred/recon-api/internal/database"
	"github.com/ksred/recon-api/internal/ingest"
	"github.com/ksred/recon-api/internal/reconciliation"
	"github.com/ksred/recon-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the reconciliation API server with graceful
// shutdown support.
func main() {
	cfg := config.Load()

	// Initialize database
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			zlog.Error().Err(err).Msg("Failed to close database")
		}
	}()

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	authService.RegisterAPICredentials(cfg.APIKey, cfg.APISecret)

	ingestService, err := ingest.NewService(db, cfg.Ingest)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize ingest service")
	}
	ingestHandlers := ingest.NewGinHandlers(ingestService)

	var notifier alerting.Notifier
	if cfg.Email.Enabled {
		notifier = alerting.NewEmailNotifier(cfg.Email)
	}
	dispatcher := alerting.NewDispatcher(notifier)

	reconService := reconciliation.NewService(db, cfg.Alerting.Threshold, dispatcher)
	reconHandlers := reconciliation.NewGinHandlers(reconService)

	// Start the scheduled reconciliation processor when configured
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	if cfg.Processor.IntervalMinutes > 0 {
		interval := time.Duration(cfg.Processor.IntervalMinutes) * time.Minute
		processor := reconciliation.NewProcessor(reconService, interval)
		go processor.Start(processorCtx)
	}

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg, authHandlers, reconHandlers, ingestHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers:
// - Auth routes: Public endpoints for authentication
// - Reconciliation routes: Protected by JWT authentication
// - Internal routes: Protected by internal network authentication
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandlers *auth.GinHandlers,
	reconHandlers *reconciliation.GinHandlers,
	ingestHandlers *ingest.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Reconciliation routes
		recon := v1.Group("/reconciliation")
		recon.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			recon.GET("/report", reconHandlers.ReportHandler())
			recon.GET("/alerts", reconHandlers.AlertsHandler())
		}

		// Internal routes (should also be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(cfg.JWTSecret))
		{
			internal.POST("/ingest", ingestHandlers.IngestHandler())
		}
	}
}
