// internal/stats/projection.go
package stats

import (
	"math"
	"time"
)

// StockoutProjection carries a predicted stockout date with its uncertainty.
// All pointer fields are nil when no prediction can be made.
type StockoutProjection struct {
	PredictedDate     *time.Time
	DaysUntilStockout *int
	ConfidenceScore   float64
	EarliestDate      *time.Time
	LatestDate        *time.Time
}

// PredictStockoutDate projects when stock reaches zero at the given daily
// consumption rate. When usage variance is available the confidence interval
// widens with the horizon: margin = 1.96 * (sigma/rate) * sqrt(days). Without
// variance the score defaults to 0.5 and the interval collapses onto the
// predicted date.
func PredictStockoutDate(now time.Time, currentStock, dailyUsageRate, usageVariance float64) StockoutProjection {
	if dailyUsageRate <= 0 || currentStock <= 0 {
		return StockoutProjection{}
	}

	days := currentStock / dailyUsageRate
	predicted := now.AddDate(0, 0, int(days))
	daysInt := int(days)

	proj := StockoutProjection{
		PredictedDate:     &predicted,
		DaysUntilStockout: &daysInt,
		ConfidenceScore:   0.5,
	}

	if usageVariance > 0 {
		sigma := math.Sqrt(usageVariance)
		margin := 1.96 * (sigma / dailyUsageRate) * math.Sqrt(days)

		earliest := now.AddDate(0, 0, int(math.Max(0, days-margin)))
		latest := now.AddDate(0, 0, int(days+margin))
		proj.EarliestDate = &earliest
		proj.LatestDate = &latest
		proj.ConfidenceScore = 1 / (1 + margin/days)
	}

	return proj
}

// ReorderPlan is the outcome of a reorder point calculation, in packs.
type ReorderPlan struct {
	SuggestedQuantityPacks int
	SuggestedQuantityUnits int
	ReorderPointPacks      int
	SafetyStockPacks       int
	LeadTimeDemandPacks    int
}

// ReorderQuantity derives how many packs to order so that stock covers lead
// time demand plus a safety buffer. Quantities round up to whole packs and
// then up to the supplier order multiple.
func ReorderQuantity(monthlyUsage float64, leadTimeDays, safetyStockWeeks int, currentStock float64, packSize, orderMultiple int) ReorderPlan {
	dailyUsage := monthlyUsage / DaysPerMonth

	leadDemand := dailyUsage * float64(leadTimeDays)
	safetyStock := dailyUsage * 7 * float64(safetyStockWeeks)
	reorderPoint := leadDemand + safetyStock

	suggested := math.Max(0, reorderPoint-currentStock)

	suggestedPacks := toPacks(suggested, packSize)
	if orderMultiple > 0 && suggestedPacks > 0 {
		suggestedPacks = int(math.Ceil(float64(suggestedPacks)/float64(orderMultiple))) * orderMultiple
	}

	units := suggestedPacks
	if packSize > 0 {
		units = suggestedPacks * packSize
	}

	return ReorderPlan{
		SuggestedQuantityPacks: suggestedPacks,
		SuggestedQuantityUnits: units,
		ReorderPointPacks:      toPacks(reorderPoint, packSize),
		SafetyStockPacks:       toPacks(safetyStock, packSize),
		LeadTimeDemandPacks:    toPacks(leadDemand, packSize),
	}
}

func toPacks(units float64, packSize int) int {
	if packSize <= 0 {
		return int(units)
	}
	return int(math.Ceil(units / float64(packSize)))
}
