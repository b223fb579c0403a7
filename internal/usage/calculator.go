// internal/usage/calculator.go
package usage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/stocklens/analytics-go/internal/domain"
	"github.com/stocklens/analytics-go/internal/stats"
	"gonum.org/v1/gonum/stat"
)

// Store is the data access surface the calculator needs. Lookups return
// (nil, nil) when the entity does not exist; the calculator treats absence as
// "this estimator has nothing to work with", not as an error.
type Store interface {
	// MonthlyOrderTotals returns completed-order history aggregated per
	// calendar month over the trailing window, ascending by month.
	MonthlyOrderTotals(ctx context.Context, productID string, months int) ([]domain.MonthlyOrderTotal, error)

	// StockSnapshots returns point-in-time stock records over the trailing
	// window, ascending by recorded_at.
	StockSnapshots(ctx context.Context, productID string, months int) ([]domain.StockSnapshot, error)

	ProductByID(ctx context.Context, productID string) (*domain.Product, error)
	ClientConfiguration(ctx context.Context, clientID string) (*domain.ClientConfiguration, error)
}

// Options tunes the fallback estimator defaults.
type Options struct {
	DefaultLeadTimeDays     int
	DefaultSafetyStockWeeks int
}

// Calculator derives monthly usage through several independent estimators
// and keeps the most confident result.
type Calculator struct {
	store      Store
	confidence ConfidenceCalculator
	opts       Options
	now        func() time.Time
}

// NewCalculator builds a usage calculator over the given store.
func NewCalculator(store Store, opts Options) *Calculator {
	if opts.DefaultLeadTimeDays <= 0 {
		opts.DefaultLeadTimeDays = 14
	}
	if opts.DefaultSafetyStockWeeks <= 0 {
		opts.DefaultSafetyStockWeeks = 2
	}

	return &Calculator{
		store: store,
		opts:  opts,
		now:   time.Now,
	}
}

// CalculateMonthlyUsage runs every estimator, picks the most confident
// result and enriches it with trend and seasonality analysis. When no
// estimator produces anything it returns the zero-usage no_data estimate
// rather than an error.
func (c *Calculator) CalculateMonthlyUsage(ctx context.Context, productID, clientID string) (domain.UsageEstimate, error) {
	orderEst, err := c.fromOrders(ctx, productID)
	if err != nil {
		return domain.UsageEstimate{}, fmt.Errorf("order estimator: %w", err)
	}

	snapshotEst, err := c.fromSnapshots(ctx, productID)
	if err != nil {
		return domain.UsageEstimate{}, fmt.Errorf("snapshot estimator: %w", err)
	}

	hybridEst := c.combine(orderEst, snapshotEst)

	estimatedEst, err := c.fromNotificationPoint(ctx, productID, clientID)
	if err != nil {
		return domain.UsageEstimate{}, fmt.Errorf("notification estimator: %w", err)
	}

	candidates := make([]*domain.UsageEstimate, 0, 4)
	for _, e := range []*domain.UsageEstimate{hybridEst, orderEst, snapshotEst, estimatedEst} {
		if e != nil {
			candidates = append(candidates, e)
		}
	}

	if len(candidates) == 0 {
		return domain.UsageEstimate{
			ProductID:         productID,
			ConfidenceLevel:   domain.ConfidenceLow,
			CalculationMethod: domain.MethodNoData,
			CalculationTier:   domain.TierNoData,
			TrendDirection:    domain.TrendUnknown,
		}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ConfidenceScore > candidates[j].ConfidenceScore
	})

	best := *candidates[0]
	if err := c.enrich(ctx, productID, &best); err != nil {
		return domain.UsageEstimate{}, fmt.Errorf("pattern enrichment: %w", err)
	}

	return best, nil
}

// fromOrders estimates usage from the monthly completed-order history with a
// recency-weighted average.
func (c *Calculator) fromOrders(ctx context.Context, productID string) (*domain.UsageEstimate, error) {
	rows, err := c.store.MonthlyOrderTotals(ctx, productID, 12)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	units := make([]float64, len(rows))
	packs := make([]float64, len(rows))
	for i, r := range rows {
		units[i] = r.TotalUnits
		packs[i] = r.TotalPacks
	}

	weights := stats.TimeWeights(len(rows), stats.DefaultRecentWeight)
	avgUnits := stats.WeightedMean(units, weights)
	avgPacks := stats.WeightedMean(packs, weights)

	cv := stats.CoefficientOfVariation(units)
	daysSinceLast := daysBetween(rows[len(rows)-1].Month, c.now())
	dataMonths := len(rows)

	score := c.confidence.Score(ConfidenceInput{
		DataPoints:        dataMonths,
		CV:                cv,
		DaysSinceLastData: daysSinceLast,
		Method:            domain.MethodOrderFulfillment,
	})

	return &domain.UsageEstimate{
		ProductID:         productID,
		MonthlyUsageUnits: avgUnits,
		MonthlyUsagePacks: avgPacks,
		CalculationMethod: domain.MethodOrderFulfillment,
		ConfidenceScore:   score,
		ConfidenceLevel:   c.confidence.Level(score),
		DataMonths:        dataMonths,
		CalculationTier:   c.confidence.Tier(dataMonths),
		TrendDirection:    domain.TrendUnknown,
		OutliersDetected:  stats.DetectOutliersIQR(units).Count,
		Variance:          stats.Variance(units),
		CV:                finite(cv),
		DaysSinceLastData: daysSinceLast,
	}, nil
}

// fromSnapshots infers consumption from negative deltas between consecutive
// stock snapshots. Daily rates at or above the 95th percentile are treated
// as import corrections rather than consumption and dropped.
func (c *Calculator) fromSnapshots(ctx context.Context, productID string) (*domain.UsageEstimate, error) {
	snaps, err := c.store.StockSnapshots(ctx, productID, 12)
	if err != nil {
		return nil, err
	}
	if len(snaps) < 2 {
		return nil, nil
	}

	var rates []float64
	for i := 1; i < len(snaps); i++ {
		delta := snaps[i].TotalUnits - snaps[i-1].TotalUnits
		if delta >= 0 {
			continue
		}
		days := daysBetween(snaps[i-1].RecordedAt, snaps[i].RecordedAt)
		if days <= 0 {
			continue
		}
		rates = append(rates, -delta/float64(days))
	}
	if len(rates) == 0 {
		return nil, nil
	}

	sorted := append([]float64(nil), rates...)
	sort.Float64s(sorted)
	q95 := stat.Quantile(0.95, stat.LinInterp, sorted, nil)

	kept := rates[:0]
	for _, r := range rates {
		if r < q95 {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}

	monthlyUnits := stat.Mean(kept, nil) * stats.DaysPerMonth

	packSize := 1
	product, err := c.store.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product != nil && product.PackSize > 0 {
		packSize = product.PackSize
	}

	monthlyEquiv := make([]float64, len(kept))
	for i, r := range kept {
		monthlyEquiv[i] = r * stats.DaysPerMonth
	}

	cv := stats.CoefficientOfVariation(monthlyEquiv)
	daysSinceLast := daysBetween(snaps[len(snaps)-1].RecordedAt, c.now())
	dataMonths := int(float64(daysBetween(snaps[0].RecordedAt, snaps[len(snaps)-1].RecordedAt)) / stats.DaysPerMonth)

	score := c.confidence.Score(ConfidenceInput{
		DataPoints:        len(kept),
		CV:                cv,
		DaysSinceLastData: daysSinceLast,
		Method:            domain.MethodSnapshotDelta,
	})

	return &domain.UsageEstimate{
		ProductID:         productID,
		MonthlyUsageUnits: monthlyUnits,
		MonthlyUsagePacks: monthlyUnits / float64(packSize),
		CalculationMethod: domain.MethodSnapshotDelta,
		ConfidenceScore:   score,
		ConfidenceLevel:   c.confidence.Level(score),
		DataMonths:        dataMonths,
		CalculationTier:   c.confidence.Tier(dataMonths),
		TrendDirection:    domain.TrendUnknown,
		OutliersDetected:  stats.DetectOutliersIQR(monthlyEquiv).Count,
		Variance:          stats.Variance(monthlyEquiv),
		CV:                finite(cv),
		DaysSinceLastData: daysSinceLast,
	}, nil
}

// combine blends the order and snapshot estimates, weighting by confidence.
// Two agreeing sources beat either alone, so the combined confidence is
// (a+b)/1.5 capped at 1.0.
func (c *Calculator) combine(orderEst, snapshotEst *domain.UsageEstimate) *domain.UsageEstimate {
	if orderEst == nil && snapshotEst == nil {
		return nil
	}
	if orderEst == nil {
		return snapshotEst
	}
	if snapshotEst == nil {
		return orderEst
	}

	totalConfidence := orderEst.ConfidenceScore + snapshotEst.ConfidenceScore
	if totalConfidence == 0 {
		return orderEst
	}

	orderWeight := orderEst.ConfidenceScore / totalConfidence
	snapshotWeight := snapshotEst.ConfidenceScore / totalConfidence

	score := math.Min(totalConfidence/1.5, 1.0)
	dataMonths := orderEst.DataMonths
	if snapshotEst.DataMonths > dataMonths {
		dataMonths = snapshotEst.DataMonths
	}
	daysSinceLast := orderEst.DaysSinceLastData
	if snapshotEst.DaysSinceLastData < daysSinceLast {
		daysSinceLast = snapshotEst.DaysSinceLastData
	}

	return &domain.UsageEstimate{
		ProductID:         orderEst.ProductID,
		MonthlyUsageUnits: orderEst.MonthlyUsageUnits*orderWeight + snapshotEst.MonthlyUsageUnits*snapshotWeight,
		MonthlyUsagePacks: orderEst.MonthlyUsagePacks*orderWeight + snapshotEst.MonthlyUsagePacks*snapshotWeight,
		CalculationMethod: domain.MethodHybrid,
		ConfidenceScore:   score,
		ConfidenceLevel:   c.confidence.Level(score),
		DataMonths:        dataMonths,
		CalculationTier:   c.confidence.Tier(dataMonths),
		TrendDirection:    domain.TrendUnknown,
		OutliersDetected:  orderEst.OutliersDetected + snapshotEst.OutliersDetected,
		Variance:          (orderEst.Variance + snapshotEst.Variance) / 2,
		CV:                (orderEst.CV + snapshotEst.CV) / 2,
		DaysSinceLastData: daysSinceLast,
	}
}

// fromNotificationPoint is the last-resort estimator: the notification point
// is assumed to cover lead time plus the safety buffer, which implies a
// weekly consumption rate.
func (c *Calculator) fromNotificationPoint(ctx context.Context, productID, clientID string) (*domain.UsageEstimate, error) {
	product, err := c.store.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || product.NotificationPoint == nil || *product.NotificationPoint == 0 {
		return nil, nil
	}

	cfg, err := c.store.ClientConfiguration(ctx, clientID)
	if err != nil {
		return nil, err
	}

	leadDays := c.opts.DefaultLeadTimeDays
	safetyWeeks := c.opts.DefaultSafetyStockWeeks
	if cfg != nil {
		leadDays = cfg.ReorderLeadDays
		safetyWeeks = cfg.SafetyStockWeeks
	}

	notificationPoint := float64(*product.NotificationPoint)
	totalWeeks := float64(leadDays)/7 + float64(safetyWeeks)

	weeklyPacks := notificationPoint / 3
	if totalWeeks > 0 {
		weeklyPacks = notificationPoint / totalWeeks
	}

	monthlyPacks := weeklyPacks * stats.WeeksPerMonth

	return &domain.UsageEstimate{
		ProductID:         productID,
		MonthlyUsageUnits: monthlyPacks * float64(product.PackSize),
		MonthlyUsagePacks: monthlyPacks,
		CalculationMethod: domain.MethodEstimated,
		ConfidenceScore:   0.3,
		ConfidenceLevel:   domain.ConfidenceLow,
		CalculationTier:   domain.TierEstimated,
		TrendDirection:    domain.TrendUnknown,
	}, nil
}

// enrich overlays trend and seasonality from the monthly order history onto
// the selected estimate. Fewer than 3 months of history leaves both unknown.
func (c *Calculator) enrich(ctx context.Context, productID string, est *domain.UsageEstimate) error {
	rows, err := c.store.MonthlyOrderTotals(ctx, productID, 12)
	if err != nil {
		return err
	}
	if len(rows) < 3 {
		return nil
	}

	units := make([]float64, len(rows))
	for i, r := range rows {
		units[i] = r.TotalUnits
	}

	est.TrendDirection = stats.UsageVelocityTrend(units).Trend
	est.SeasonalityDetected = stats.DetectSeasonality(units).Seasonal

	return nil
}

// daysBetween returns whole days from a to b, truncating partial days.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// finite guards struct fields that must survive JSON encoding; NaN (single
// data point) and Inf (zero mean) collapse to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
