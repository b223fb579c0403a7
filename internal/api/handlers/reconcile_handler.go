package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocklens/analytics-go/internal/reconcile"
)

type ReconcileHandler struct {
	matcher reconcile.Matcher
}

func NewReconcileHandler() *ReconcileHandler {
	return &ReconcileHandler{}
}

type fuzzyMatchRequest struct {
	Orphan     reconcile.ProductRef   `json:"orphan"`
	Candidates []reconcile.ProductRef `json:"candidates"`
	MaxResults int                    `json:"max_results"`
}

// FuzzyMatch scores an orphan product against the supplied candidates and
// returns the best matches above the minimum confidence threshold.
func (h *ReconcileHandler) FuzzyMatch(c *gin.Context) {
	var req fuzzyMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match request", "details": err.Error()})
		return
	}

	if req.Orphan.ProductID == "" && req.Orphan.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orphan must have a product_id or name"})
		return
	}
	if len(req.Candidates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "candidates must not be empty"})
		return
	}

	matches := h.matcher.MatchProduct(req.Orphan, req.Candidates, req.MaxResults)
	if matches == nil {
		matches = []reconcile.Match{}
	}

	c.JSON(http.StatusOK, gin.H{
		"orphan_id":   req.Orphan.ID,
		"matches":     matches,
		"match_count": len(matches),
	})
}
