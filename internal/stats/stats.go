// internal/stats/stats.go
package stats

import (
	"math"
	"sort"

	"github.com/stocklens/analytics-go/internal/domain"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Conversion constants used consistently across the system to move between
// monthly, weekly and daily rates.
const (
	WeeksPerMonth = 4.33
	DaysPerMonth  = 30.44
)

// DefaultRecentWeight is the multiplier applied to the most recent three
// periods when building time weights.
const DefaultRecentWeight = 1.5

// WeeksRemaining converts available stock and a monthly consumption rate into
// weeks of supply, rounded to 2 decimals. Returns nil when the rate is not
// positive.
func WeeksRemaining(availableQuantity, monthlyUsage float64) *float64 {
	if monthlyUsage <= 0 {
		return nil
	}

	weeklyUsage := monthlyUsage / WeeksPerMonth
	weeks := math.Round(availableQuantity/weeklyUsage*100) / 100

	return &weeks
}

// ClassifyStockStatus maps weeks of remaining supply onto a stock health
// label. Boundaries are inclusive on the lower tier: exactly 2 weeks is
// critical, exactly 4 is low, exactly 8 is watch.
func ClassifyStockStatus(weeksRemaining *float64) domain.StockStatus {
	if weeksRemaining == nil {
		return domain.StockUnknown
	}

	switch {
	case *weeksRemaining <= 2:
		return domain.StockCritical
	case *weeksRemaining <= 4:
		return domain.StockLow
	case *weeksRemaining <= 8:
		return domain.StockWatch
	default:
		return domain.StockHealthy
	}
}

// OutlierResult describes the points outside the Tukey fences.
type OutlierResult struct {
	Count      int
	Indices    []int
	Values     []float64
	LowerBound float64
	UpperBound float64
}

// DetectOutliersIQR flags values outside Q1-1.5*IQR and Q3+1.5*IQR.
func DetectOutliersIQR(values []float64) OutlierResult {
	if len(values) == 0 {
		return OutlierResult{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	iqr := q3 - q1

	result := OutlierResult{
		LowerBound: q1 - 1.5*iqr,
		UpperBound: q3 + 1.5*iqr,
	}

	for i, v := range values {
		if v < result.LowerBound || v > result.UpperBound {
			result.Count++
			result.Indices = append(result.Indices, i)
			result.Values = append(result.Values, v)
		}
	}

	return result
}

// CoefficientOfVariation returns stddev/mean. A zero mean yields +Inf, a
// divide-by-zero sentinel rather than an error.
func CoefficientOfVariation(values []float64) float64 {
	mean := stat.Mean(values, nil)
	if mean == 0 {
		return math.Inf(1)
	}

	return stat.StdDev(values, nil) / mean
}

// Variance returns the sample variance of values.
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.Variance(values, nil)
}

// TrendResult holds the outcome of the usage velocity regression.
type TrendResult struct {
	Trend             domain.TrendDirection
	Slope             float64
	RSquared          float64
	PValue            float64
	MonthlyChangeRate float64
}

// UsageVelocityTrend fits an OLS line through the monthly usage history and
// classifies the direction. A slope smaller than 5% of the mean is treated as
// stable; that threshold filters regression noise from real drift.
func UsageVelocityTrend(history []float64) TrendResult {
	if len(history) < 3 {
		return TrendResult{Trend: domain.TrendUnknown, PValue: 1}
	}

	n := len(history)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	intercept, slope := stat.LinearRegression(xs, history, nil, false)
	rSquared := stat.RSquared(xs, history, nil, intercept, slope)
	mean := stat.Mean(history, nil)

	trend := domain.TrendStable
	if math.Abs(slope) >= 0.05*mean {
		if slope > 0 {
			trend = domain.TrendIncreasing
		} else {
			trend = domain.TrendDecreasing
		}
	}

	changeRate := 0.0
	if mean > 0 {
		changeRate = slope / mean
	}

	return TrendResult{
		Trend:             trend,
		Slope:             slope,
		RSquared:          rSquared,
		PValue:            regressionPValue(rSquared, n),
		MonthlyChangeRate: changeRate,
	}
}

// regressionPValue derives the two-sided p-value for the slope from R² via
// the t statistic with n-2 degrees of freedom.
func regressionPValue(rSquared float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	if rSquared >= 1 {
		return 0
	}
	if rSquared <= 0 || math.IsNaN(rSquared) {
		return 1
	}

	t := math.Sqrt(rSquared * float64(n-2) / (1 - rSquared))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}

	return 2 * (1 - dist.CDF(t))
}

// TimeWeights builds normalized averaging weights that bias toward recency:
// uniform 1.0 except the most recent three periods, which get recentWeight.
func TimeWeights(nPeriods int, recentWeight float64) []float64 {
	if nPeriods <= 0 {
		return nil
	}

	weights := make([]float64, nPeriods)
	total := 0.0
	for i := range weights {
		weights[i] = 1.0
		if nPeriods >= 3 && i >= nPeriods-3 {
			weights[i] = recentWeight
		}
		total += weights[i]
	}

	for i := range weights {
		weights[i] /= total
	}

	return weights
}

// WeightedMean computes the weighted average of values; weights are assumed
// normalized (TimeWeights output).
func WeightedMean(values, weights []float64) float64 {
	return stat.Mean(values, weights)
}
