// internal/usage/calculator_test.go
package usage

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/stocklens/analytics-go/internal/domain"
)

type fakeStore struct {
	orders  []domain.MonthlyOrderTotal
	snaps   []domain.StockSnapshot
	product *domain.Product
	config  *domain.ClientConfiguration
}

func (f *fakeStore) MonthlyOrderTotals(_ context.Context, _ string, _ int) ([]domain.MonthlyOrderTotal, error) {
	return f.orders, nil
}

func (f *fakeStore) StockSnapshots(_ context.Context, _ string, _ int) ([]domain.StockSnapshot, error) {
	return f.snaps, nil
}

func (f *fakeStore) ProductByID(_ context.Context, _ string) (*domain.Product, error) {
	return f.product, nil
}

func (f *fakeStore) ClientConfiguration(_ context.Context, _ string) (*domain.ClientConfiguration, error) {
	return f.config, nil
}

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestCalculator(store Store) *Calculator {
	c := NewCalculator(store, Options{})
	c.now = func() time.Time { return testNow }
	return c
}

func TestCalculateNoData(t *testing.T) {
	c := newTestCalculator(&fakeStore{})

	est, err := c.CalculateMonthlyUsage(context.Background(), "p1", "c1")
	if err != nil {
		t.Fatal(err)
	}

	if est.CalculationMethod != domain.MethodNoData {
		t.Errorf("method = %s, want no_data", est.CalculationMethod)
	}
	if est.CalculationTier != domain.TierNoData {
		t.Errorf("tier = %s, want no_data", est.CalculationTier)
	}
	if est.MonthlyUsageUnits != 0 || est.ConfidenceScore != 0 {
		t.Errorf("no_data estimate should be zeroed, got %+v", est)
	}
	if est.ConfidenceLevel != domain.ConfidenceLow {
		t.Errorf("level = %s, want low", est.ConfidenceLevel)
	}
	if est.TrendDirection != domain.TrendUnknown {
		t.Errorf("trend = %s, want unknown", est.TrendDirection)
	}
}

func TestCalculateFromOrders(t *testing.T) {
	orders := make([]domain.MonthlyOrderTotal, 12)
	for i := range orders {
		orders[i] = domain.MonthlyOrderTotal{
			Month:      testNow.AddDate(0, i-11, 0),
			TotalUnits: 100,
			TotalPacks: 10,
		}
	}

	c := newTestCalculator(&fakeStore{orders: orders})

	est, err := c.CalculateMonthlyUsage(context.Background(), "p1", "c1")
	if err != nil {
		t.Fatal(err)
	}

	if est.CalculationMethod != domain.MethodOrderFulfillment {
		t.Fatalf("method = %s, want order_fulfillment", est.CalculationMethod)
	}
	if math.Abs(est.MonthlyUsageUnits-100) > 1e-9 {
		t.Errorf("units = %v, want 100", est.MonthlyUsageUnits)
	}
	if math.Abs(est.MonthlyUsagePacks-10) > 1e-9 {
		t.Errorf("packs = %v, want 10", est.MonthlyUsagePacks)
	}

	// 12 points, zero CV, fresh data, order method:
	// 0.30 + 0.25 + 0.20 + 0.15*0.85 + 0.10*0.5 = 0.9275
	if est.ConfidenceScore != 0.93 {
		t.Errorf("confidence = %v, want 0.93", est.ConfidenceScore)
	}
	if est.ConfidenceLevel != domain.ConfidenceHigh {
		t.Errorf("level = %s, want high", est.ConfidenceLevel)
	}
	if est.CalculationTier != domain.Tier12Month {
		t.Errorf("tier = %s, want 12_month", est.CalculationTier)
	}
	if est.DataMonths != 12 {
		t.Errorf("data months = %d, want 12", est.DataMonths)
	}

	// Flat history enriches to a stable trend with no seasonality.
	if est.TrendDirection != domain.TrendStable {
		t.Errorf("trend = %s, want stable", est.TrendDirection)
	}
	if est.SeasonalityDetected {
		t.Error("flat history should not be seasonal")
	}
	if est.OutliersDetected != 0 {
		t.Errorf("outliers = %d, want 0", est.OutliersDetected)
	}
}

func TestCalculateRecencyWeighting(t *testing.T) {
	// Three flat months then three busier months: the recency bias pulls the
	// weighted average above the plain mean of 150.
	orders := make([]domain.MonthlyOrderTotal, 6)
	for i := range orders {
		units := 100.0
		if i >= 3 {
			units = 200.0
		}
		orders[i] = domain.MonthlyOrderTotal{
			Month:      testNow.AddDate(0, i-5, 0),
			TotalUnits: units,
			TotalPacks: units / 10,
		}
	}

	c := newTestCalculator(&fakeStore{orders: orders})

	est, err := c.CalculateMonthlyUsage(context.Background(), "p1", "c1")
	if err != nil {
		t.Fatal(err)
	}

	// weights 1,1,1,1.5,1.5,1.5 / 7.5 -> (300 + 900) / 7.5 = 160
	if math.Abs(est.MonthlyUsageUnits-160) > 1e-9 {
		t.Errorf("units = %v, want 160", est.MonthlyUsageUnits)
	}
}

func TestCalculateFromSnapshots(t *testing.T) {
	// Declines at daily rates 1,2,3,4,10 over 10-day gaps. The 95th
	// percentile filter drops the rate-10 event as an import correction.
	levels := []float64{1000, 990, 970, 940, 900, 800}
	snaps := make([]domain.StockSnapshot, len(levels))
	for i, u := range levels {
		snaps[i] = domain.StockSnapshot{
			RecordedAt: testNow.AddDate(0, 0, (i-5)*10),
			TotalUnits: u,
		}
	}

	c := newTestCalculator(&fakeStore{
		snaps:   snaps,
		product: &domain.Product{ID: "p1", PackSize: 5},
	})

	est, err := c.CalculateMonthlyUsage(context.Background(), "p1", "c1")
	if err != nil {
		t.Fatal(err)
	}

	if est.CalculationMethod != domain.MethodSnapshotDelta {
		t.Fatalf("method = %s, want snapshot_delta", est.CalculationMethod)
	}

	// kept rates 1,2,3,4 -> mean 2.5/day -> 76.1/month
	if math.Abs(est.MonthlyUsageUnits-76.1) > 1e-9 {
		t.Errorf("units = %v, want 76.1", est.MonthlyUsageUnits)
	}
	if math.Abs(est.MonthlyUsagePacks-76.1/5) > 1e-9 {
		t.Errorf("packs = %v, want %v", est.MonthlyUsagePacks, 76.1/5)
	}

	// 50-day observed range ~ 1 month of data
	if est.DataMonths != 1 {
		t.Errorf("data months = %d, want 1", est.DataMonths)
	}
	if est.CalculationTier != domain.TierWeekly {
		t.Errorf("tier = %s, want weekly", est.CalculationTier)
	}
}

func TestCalculateHybrid(t *testing.T) {
	orders := make([]domain.MonthlyOrderTotal, 12)
	for i := range orders {
		orders[i] = domain.MonthlyOrderTotal{
			Month:      testNow.AddDate(0, i-11, 0),
			TotalUnits: 100,
			TotalPacks: 10,
		}
	}

	levels := []float64{1000, 990, 970, 940, 900, 800}
	snaps := make([]domain.StockSnapshot, len(levels))
	for i, u := range levels {
		snaps[i] = domain.StockSnapshot{
			RecordedAt: testNow.AddDate(0, 0, (i-5)*10),
			TotalUnits: u,
		}
	}

	c := newTestCalculator(&fakeStore{
		orders:  orders,
		snaps:   snaps,
		product: &domain.Product{ID: "p1", PackSize: 10},
	})

	est, err := c.CalculateMonthlyUsage(context.Background(), "p1", "c1")
	if err != nil {
		t.Fatal(err)
	}

	if est.CalculationMethod != domain.MethodHybrid {
		t.Fatalf("method = %s, want hybrid", est.CalculationMethod)
	}

	// The blend lands between the two source estimates.
	if est.MonthlyUsageUnits <= 76.1 || est.MonthlyUsageUnits >= 100 {
		t.Errorf("hybrid units = %v, want between 76.1 and 100", est.MonthlyUsageUnits)
	}

	// Corroborating sources: hybrid confidence beats either input.
	if est.ConfidenceScore < 0.93 {
		t.Errorf("hybrid confidence = %v, want >= best input", est.ConfidenceScore)
	}
	if est.DataMonths != 12 {
		t.Errorf("data months = %d, want max of inputs (12)", est.DataMonths)
	}
}

func TestCalculateHybridLosesToStrongerSource(t *testing.T) {
	// A weak second source dilutes the blend instead of corroborating it:
	// (0.93 + 0.39) / 1.5 = 0.88, below the order estimate's own 0.93, so
	// selection keeps the order estimate.
	orders := make([]domain.MonthlyOrderTotal, 12)
	for i := range orders {
		orders[i] = domain.MonthlyOrderTotal{
			Month:      testNow.AddDate(0, i-11, 0),
			TotalUnits: 100,
			TotalPacks: 10,
		}
	}

	// Three depletion rates 1, 8, 20/day; the 95th percentile filter drops
	// the 20, leaving two erratic events that ended over 90 days ago.
	levels := []float64{1000, 990, 910, 710}
	snaps := make([]domain.StockSnapshot, len(levels))
	for i, u := range levels {
		snaps[i] = domain.StockSnapshot{
			RecordedAt: testNow.AddDate(0, 0, -130+i*10),
			TotalUnits: u,
		}
	}

	c := newTestCalculator(&fakeStore{
		orders:  orders,
		snaps:   snaps,
		product: &domain.Product{ID: "p1", PackSize: 10},
	})

	est, err := c.CalculateMonthlyUsage(context.Background(), "p1", "c1")
	if err != nil {
		t.Fatal(err)
	}

	if est.CalculationMethod != domain.MethodOrderFulfillment {
		t.Fatalf("method = %s, want order_fulfillment over the diluted hybrid", est.CalculationMethod)
	}
	if est.ConfidenceScore != 0.93 {
		t.Errorf("confidence = %v, want the order estimate's 0.93", est.ConfidenceScore)
	}
	if math.Abs(est.MonthlyUsageUnits-100) > 1e-9 {
		t.Errorf("units = %v, want the unblended 100", est.MonthlyUsageUnits)
	}
}

func TestCalculateIsIdempotent(t *testing.T) {
	orders := make([]domain.MonthlyOrderTotal, 12)
	for i := range orders {
		orders[i] = domain.MonthlyOrderTotal{
			Month:      testNow.AddDate(0, i-11, 0),
			TotalUnits: 100 + float64(i%3)*20,
			TotalPacks: 10 + float64(i%3)*2,
		}
	}
	levels := []float64{1000, 990, 970, 940, 900, 800}
	snaps := make([]domain.StockSnapshot, len(levels))
	for i, u := range levels {
		snaps[i] = domain.StockSnapshot{
			RecordedAt: testNow.AddDate(0, 0, (i-5)*10),
			TotalUnits: u,
		}
	}

	c := newTestCalculator(&fakeStore{
		orders:  orders,
		snaps:   snaps,
		product: &domain.Product{ID: "p1", PackSize: 10},
	})

	first, err := c.CalculateMonthlyUsage(context.Background(), "p1", "c1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.CalculateMonthlyUsage(context.Background(), "p1", "c1")
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated calculation over identical data diverged:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestCalculateNotificationFallback(t *testing.T) {
	np := 30
	c := newTestCalculator(&fakeStore{
		product: &domain.Product{ID: "p1", PackSize: 5, NotificationPoint: &np},
		config:  &domain.ClientConfiguration{ClientID: "c1", ReorderLeadDays: 14, SafetyStockWeeks: 2},
	})

	est, err := c.CalculateMonthlyUsage(context.Background(), "p1", "c1")
	if err != nil {
		t.Fatal(err)
	}

	if est.CalculationMethod != domain.MethodEstimated {
		t.Fatalf("method = %s, want estimated", est.CalculationMethod)
	}

	// 14/7 + 2 = 4 covered weeks -> 7.5 packs/week -> 32.475 packs/month
	if math.Abs(est.MonthlyUsagePacks-32.475) > 1e-9 {
		t.Errorf("packs = %v, want 32.475", est.MonthlyUsagePacks)
	}
	if math.Abs(est.MonthlyUsageUnits-32.475*5) > 1e-9 {
		t.Errorf("units = %v, want %v", est.MonthlyUsageUnits, 32.475*5)
	}
	if est.ConfidenceScore != 0.3 {
		t.Errorf("confidence = %v, want fixed 0.3", est.ConfidenceScore)
	}
	if est.CalculationTier != domain.TierEstimated {
		t.Errorf("tier = %s, want estimated", est.CalculationTier)
	}
	if est.DataMonths != 0 {
		t.Errorf("data months = %d, want 0", est.DataMonths)
	}
}

func TestNotificationFallbackRequiresPoint(t *testing.T) {
	// Product exists but has no notification point: nothing to estimate from.
	c := newTestCalculator(&fakeStore{
		product: &domain.Product{ID: "p1", PackSize: 5},
	})

	est, err := c.CalculateMonthlyUsage(context.Background(), "p1", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if est.CalculationMethod != domain.MethodNoData {
		t.Errorf("method = %s, want no_data", est.CalculationMethod)
	}
}
