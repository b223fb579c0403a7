package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/stocklens/analytics-go/internal/service"
)

type UsageHandler struct {
	service *service.UsageService
}

func NewUsageHandler(service *service.UsageService) *UsageHandler {
	return &UsageHandler{service: service}
}

type calculateRequest struct {
	ClientID   string   `json:"client_id" binding:"required"`
	ProductIDs []string `json:"product_ids" binding:"required"`
}

// Calculate runs the usage pipeline for an explicit list of products and
// returns the per-product reports synchronously.
func (h *UsageHandler) Calculate(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id and product_ids are required", "details": err.Error()})
		return
	}

	if len(req.ProductIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_ids must not be empty"})
		return
	}

	reports, err := h.service.CalculateForProducts(c.Request.Context(), req.ClientID, req.ProductIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to calculate usage", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": reports,
		"count":   len(reports),
	})
}

// RecalculateClient kicks off a full recalculation of every active product
// for a client. The batch runs in the background; the response only confirms
// that it started.
func (h *UsageHandler) RecalculateClient(c *gin.Context) {
	clientID := strings.TrimSpace(c.Param("client_id"))
	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id is required"})
		return
	}

	exists, err := h.service.ClientExists(c.Request.Context(), clientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify client", "details": err.Error()})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		result, err := h.service.RecalculateClient(ctx, clientID)
		if err != nil {
			log.Error().Err(err).Str("client_id", clientID).Msg("Background recalculation failed")
			return
		}
		log.Info().
			Str("client_id", clientID).
			Int("processed", result.ProductsProcessed).
			Int("failed", result.ProductsFailed).
			Bool("aborted", result.Aborted).
			Msg("Background recalculation finished")
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"status":    "started",
		"client_id": clientID,
	})
}

// GetStats returns aggregate usage-calculation statistics across products.
func (h *UsageHandler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch usage stats", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
