package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocklens/analytics-go/internal/service"
)

type HealthHandler struct {
	service *service.UsageService
}

func NewHealthHandler(service *service.UsageService) *HealthHandler {
	return &HealthHandler{service: service}
}

// Check reports database connectivity and circuit breaker state. Unhealthy
// responses use 503 so load balancers can act on them.
func (h *HealthHandler) Check(c *gin.Context) {
	status := h.service.Health(c.Request.Context())

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, status)
}
