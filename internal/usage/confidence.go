// internal/usage/confidence.go
package usage

import (
	"math"

	"github.com/stocklens/analytics-go/internal/domain"
)

// Factor weights for the multi-factor confidence score.
const (
	weightDataPoints      = 0.30
	weightConsistency     = 0.25
	weightRecency         = 0.20
	weightMethod          = 0.15
	weightCrossValidation = 0.10
)

// methodReliability ranks calculation methods by how trustworthy their source
// data is. Unknown methods score a neutral 0.5.
var methodReliability = map[domain.CalculationMethod]float64{
	domain.MethodSnapshotDelta:    0.9,
	domain.MethodOrderFulfillment: 0.85,
	domain.MethodHybrid:           0.95,
	domain.MethodStockMovement:    0.8,
	domain.MethodEstimated:        0.3,
}

// ConfidenceInput carries the factors behind a confidence score.
type ConfidenceInput struct {
	DataPoints        int
	CV                float64
	DaysSinceLastData int
	Method            domain.CalculationMethod

	// CrossValidation is an optional agreement score between independent
	// estimators; nil means not performed and scores a neutral 0.5.
	CrossValidation *float64
}

// ConfidenceCalculator scores usage estimates from data quantity,
// consistency, recency, method reliability and cross-validation.
type ConfidenceCalculator struct{}

// Score returns the weighted confidence in [0, 1], rounded to 2 decimals.
func (ConfidenceCalculator) Score(in ConfidenceInput) float64 {
	methodScore, ok := methodReliability[in.Method]
	if !ok {
		methodScore = 0.5
	}

	crossScore := 0.5
	if in.CrossValidation != nil {
		crossScore = *in.CrossValidation
	}

	confidence := weightDataPoints*scoreDataPoints(in.DataPoints) +
		weightConsistency*scoreConsistency(in.CV) +
		weightRecency*scoreRecency(in.DaysSinceLastData) +
		weightMethod*methodScore +
		weightCrossValidation*crossScore

	return math.Round(confidence*100) / 100
}

// Level converts a numeric score to its categorical band.
func (ConfidenceCalculator) Level(score float64) domain.ConfidenceLevel {
	switch {
	case score >= 0.75:
		return domain.ConfidenceHigh
	case score >= 0.50:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// Tier labels how much history backed an estimate.
func (ConfidenceCalculator) Tier(dataMonths int) domain.CalculationTier {
	switch {
	case dataMonths >= 12:
		return domain.Tier12Month
	case dataMonths >= 6:
		return domain.Tier6Month
	case dataMonths >= 3:
		return domain.Tier3Month
	default:
		return domain.TierWeekly
	}
}

func scoreDataPoints(n int) float64 {
	switch {
	case n >= 12:
		return 1.0
	case n >= 6:
		return 0.75
	case n >= 3:
		return 0.5
	default:
		return 0.25
	}
}

// scoreConsistency rewards low relative variance. A NaN CV (single data
// point) fails every comparison and lands on the lowest band.
func scoreConsistency(cv float64) float64 {
	switch {
	case cv < 0.2:
		return 1.0
	case cv < 0.5:
		return 0.7
	case cv < 1.0:
		return 0.4
	default:
		return 0.2
	}
}

func scoreRecency(days int) float64 {
	switch {
	case days <= 30:
		return 1.0
	case days <= 60:
		return 0.8
	case days <= 90:
		return 0.6
	default:
		return 0.4
	}
}
