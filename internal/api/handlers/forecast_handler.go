package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocklens/analytics-go/internal/forecast"
)

type ForecastHandler struct{}

func NewForecastHandler() *ForecastHandler {
	return &ForecastHandler{}
}

// SelectAlgorithm recommends a forecasting algorithm for the described
// series. This is a pure decision endpoint; it never touches storage.
func (h *ForecastHandler) SelectAlgorithm(c *gin.Context) {
	var series forecast.Series
	if err := c.ShouldBindJSON(&series); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid series description", "details": err.Error()})
		return
	}

	if series.DataPoints < 0 || series.ZerosPercentage < 0 || series.ZerosPercentage > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data_points must be >= 0 and zeros_percentage within 0-100"})
		return
	}

	c.JSON(http.StatusOK, forecast.Select(series))
}
