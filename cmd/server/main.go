// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stocklens/analytics-go/internal/api"
	"github.com/stocklens/analytics-go/internal/cache"
	"github.com/stocklens/analytics-go/internal/config"
	"github.com/stocklens/analytics-go/internal/repository/postgres"
	"github.com/stocklens/analytics-go/internal/service"
	"github.com/stocklens/analytics-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize repositories and caches
	usageRepo := postgres.NewUsageRepository(db)
	statsCache, err := cache.NewStatsCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Stats cache unavailable, continuing without caching")
		statsCache = cache.NewNoopStatsCache()
	}

	// Initialize services
	breaker := service.NewCircuitBreaker(
		"usage_calculation",
		cfg.Analytics.BreakerFailureThreshold,
		time.Duration(cfg.Analytics.BreakerRecoverySeconds)*time.Second,
	)
	usageService := service.NewUsageService(usageRepo, statsCache, breaker, cfg.Analytics)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{UsageService: usageService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
