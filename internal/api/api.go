// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stocklens/analytics-go/internal/api/handlers"
	"github.com/stocklens/analytics-go/internal/api/middleware"
	"github.com/stocklens/analytics-go/internal/service"
)

type Services struct {
	UsageService *service.UsageService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	apiGroup := router.Group("/api/v1")

	if services != nil && services.UsageService != nil {
		healthHandler := handlers.NewHealthHandler(services.UsageService)
		router.GET("/health", healthHandler.Check)

		usageHandler := handlers.NewUsageHandler(services.UsageService)
		usageGroup := apiGroup.Group("/analytics/usage")
		{
			usageGroup.GET("/stats", usageHandler.GetStats)
			usageGroup.POST("/calculate", usageHandler.Calculate)
			usageGroup.POST("/client/:client_id", usageHandler.RecalculateClient)
		}
	}

	forecastHandler := handlers.NewForecastHandler()
	forecastGroup := apiGroup.Group("/analytics/forecast")
	{
		forecastGroup.POST("/select", forecastHandler.SelectAlgorithm)
	}

	reconcileHandler := handlers.NewReconcileHandler()
	reconcileGroup := apiGroup.Group("/reconcile")
	{
		reconcileGroup.POST("/fuzzy", reconcileHandler.FuzzyMatch)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
