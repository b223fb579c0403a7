// internal/service/usage_service.go

// Package service orchestrates the usage analytics pipeline: estimation,
// derived metrics, validation, financials and the write-back onto products.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stocklens/analytics-go/internal/cache"
	"github.com/stocklens/analytics-go/internal/config"
	"github.com/stocklens/analytics-go/internal/domain"
	"github.com/stocklens/analytics-go/internal/repository"
	"github.com/stocklens/analytics-go/internal/stats"
	"github.com/stocklens/analytics-go/internal/usage"
)

// Lead time source labels for reorder suggestions.
const (
	LeadTimeSourceProduct = "product"
	LeadTimeSourceClient  = "client_config"
	LeadTimeSourceDefault = "default"
)

// HealthStatus is the service health report.
type HealthStatus struct {
	Status            string        `json:"status"`
	DatabaseConnected bool          `json:"database_connected"`
	DatabaseLatencyMS *float64      `json:"database_latency_ms"`
	CircuitBreaker    BreakerStatus `json:"circuit_breaker"`
	Version           string        `json:"version"`
	Timestamp         time.Time     `json:"timestamp"`
}

// UsageService runs usage calculations end to end for single products,
// request batches and whole clients.
type UsageService struct {
	repo       repository.UsageRepository
	calculator *usage.Calculator
	validator  usage.Validator
	financial  usage.FinancialCalculator
	statsCache cache.StatsCache
	breaker    *CircuitBreaker
	cfg        config.AnalyticsConfig
	now        func() time.Time
}

func NewUsageService(repo repository.UsageRepository, statsCache cache.StatsCache, breaker *CircuitBreaker, cfg config.AnalyticsConfig) *UsageService {
	calculator := usage.NewCalculator(usageStore{repo}, usage.Options{
		DefaultLeadTimeDays:     cfg.DefaultLeadTimeDays,
		DefaultSafetyStockWeeks: cfg.DefaultSafetyStockWeeks,
	})

	return &UsageService{
		repo:       repo,
		calculator: calculator,
		statsCache: statsCache,
		breaker:    breaker,
		cfg:        cfg,
		now:        time.Now,
	}
}

// usageStore narrows the repository to the calculator's data needs.
type usageStore struct {
	repo repository.UsageRepository
}

func (s usageStore) MonthlyOrderTotals(ctx context.Context, productID string, months int) ([]domain.MonthlyOrderTotal, error) {
	return s.repo.MonthlyOrderTotals(ctx, productID, months)
}

func (s usageStore) StockSnapshots(ctx context.Context, productID string, months int) ([]domain.StockSnapshot, error) {
	return s.repo.StockSnapshots(ctx, productID, months)
}

func (s usageStore) ProductByID(ctx context.Context, productID string) (*domain.Product, error) {
	return s.repo.ProductByID(ctx, productID)
}

func (s usageStore) ClientConfiguration(ctx context.Context, clientID string) (*domain.ClientConfiguration, error) {
	return s.repo.ClientConfiguration(ctx, clientID)
}

// CalculateForProducts computes and persists usage for each requested
// product. Unknown products are skipped, and a failure on one product never
// blocks the rest of the batch.
func (s *UsageService) CalculateForProducts(ctx context.Context, clientID string, productIDs []string) ([]domain.UsageReport, error) {
	log.Info().
		Str("client_id", clientID).
		Int("product_count", len(productIDs)).
		Msg("usage calculation batch started")

	clientCfg, err := s.repo.ClientConfiguration(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load client configuration: %w", err)
	}

	reports := make([]domain.UsageReport, 0, len(productIDs))
	for _, productID := range productIDs {
		product, err := s.repo.ProductByID(ctx, productID)
		if err != nil {
			log.Error().Err(err).Str("product_id", productID).Msg("product lookup failed")
			continue
		}
		if product == nil {
			log.Warn().Str("product_id", productID).Msg("product not found")
			continue
		}

		report, err := s.calculateOne(ctx, clientID, *product, clientCfg)
		if err != nil {
			log.Error().Err(err).Str("product_id", productID).Msg("usage calculation failed")
			continue
		}

		reports = append(reports, report)

		log.Info().
			Str("product_id", productID).
			Str("method", string(report.CalculationMethod)).
			Float64("confidence", report.ConfidenceScore).
			Msg("usage calculated")
	}

	if len(reports) > 0 {
		if err := s.statsCache.InvalidateStats(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to invalidate stats cache")
		}
	}

	log.Info().
		Str("client_id", clientID).
		Int("products_calculated", len(reports)).
		Msg("usage calculation batch completed")

	return reports, nil
}

// calculateOne runs the full pipeline for a single product and persists the
// derived fields.
func (s *UsageService) calculateOne(ctx context.Context, clientID string, product domain.Product, clientCfg *domain.ClientConfiguration) (domain.UsageReport, error) {
	est, err := s.calculator.CalculateMonthlyUsage(ctx, product.ID, clientID)
	if err != nil {
		return domain.UsageReport{}, err
	}

	now := s.now()

	weeksRemaining := stats.WeeksRemaining(float64(product.CurrentStockPacks), est.MonthlyUsagePacks)
	stockStatus := stats.ClassifyStockStatus(weeksRemaining)

	var stockout *domain.StockoutPrediction
	if est.MonthlyUsageUnits > 0 {
		dailyUsage := est.MonthlyUsageUnits / stats.DaysPerMonth
		proj := stats.PredictStockoutDate(now, float64(product.CurrentStockUnits), dailyUsage, est.Variance)
		if proj.PredictedDate != nil {
			stockout = &domain.StockoutPrediction{
				PredictedDate:     proj.PredictedDate,
				DaysUntilStockout: proj.DaysUntilStockout,
				ConfidenceScore:   proj.ConfidenceScore,
			}
			if proj.EarliestDate != nil && proj.LatestDate != nil {
				stockout.ConfidenceInterval = &domain.ConfidenceInterval{
					Earliest: *proj.EarliestDate,
					Latest:   *proj.LatestDate,
				}
			}
		}
	}

	leadTimeDays, leadTimeSource := s.effectiveLeadTime(product, clientCfg)

	var reorder *domain.ReorderSuggestion
	if est.MonthlyUsageUnits > 0 {
		safetyWeeks := s.cfg.DefaultSafetyStockWeeks
		if clientCfg != nil {
			safetyWeeks = clientCfg.SafetyStockWeeks
		}

		packSize := product.PackSize
		if packSize <= 0 {
			packSize = 1
		}

		plan := stats.ReorderQuantity(est.MonthlyUsageUnits, leadTimeDays, safetyWeeks,
			float64(product.CurrentStockPacks), packSize, 0)

		reorder = &domain.ReorderSuggestion{
			SuggestedQuantityPacks: plan.SuggestedQuantityPacks,
			SuggestedQuantityUnits: plan.SuggestedQuantityUnits,
			ReorderPointPacks:      plan.ReorderPointPacks,
			SafetyStockPacks:       plan.SafetyStockPacks,
			LeadTimeDemandPacks:    plan.LeadTimeDemandPacks,
			LeadTimeDays:           leadTimeDays,
			LeadTimeSource:         leadTimeSource,
		}
	}

	validationMsgs := s.validator.ValidateEstimate(est, product)

	var financial *domain.FinancialMetrics
	if product.UnitCost != nil && *product.UnitCost > 0 {
		dailyUsage := 0.0
		if est.MonthlyUsageUnits > 0 {
			dailyUsage = est.MonthlyUsageUnits / stats.DaysPerMonth
		}

		var daysUntil *int
		if stockout != nil {
			daysUntil = stockout.DaysUntilStockout
		}

		m := s.financial.FullMetrics(product, daysUntil, dailyUsage, leadTimeDays)
		financial = &m
	}

	update := domain.ProductUsageUpdate{
		ProductID:              product.ID,
		MonthlyUsageUnits:      est.MonthlyUsageUnits,
		MonthlyUsagePacks:      est.MonthlyUsagePacks,
		UsageDataMonths:        est.DataMonths,
		UsageCalculationTier:   est.CalculationTier,
		UsageConfidence:        est.ConfidenceLevel,
		UsageLastCalculated:    now,
		UsageCalculationMethod: est.CalculationMethod,
		UsageTrend:             est.TrendDirection,
		SeasonalityDetected:    est.SeasonalityDetected,
		WeeksRemaining:         weeksRemaining,
		StockStatus:            stockStatus,
		ReorderQtyLastUpdated:  now,
	}
	if stockout != nil {
		update.ProjectedStockoutDate = stockout.PredictedDate
		conf := stockout.ConfidenceScore
		update.StockoutConfidence = &conf
	}
	if reorder != nil {
		qty := reorder.SuggestedQuantityPacks
		update.SuggestedReorderQty = &qty
	}

	if err := s.repo.ApplyUsageUpdate(ctx, update); err != nil {
		return domain.UsageReport{}, err
	}

	return domain.UsageReport{
		ProductID:           product.ID,
		ProductName:         product.Name,
		MonthlyUsageUnits:   est.MonthlyUsageUnits,
		MonthlyUsagePacks:   est.MonthlyUsagePacks,
		WeeksRemaining:      weeksRemaining,
		StockStatus:         stockStatus,
		CalculationMethod:   est.CalculationMethod,
		ConfidenceScore:     est.ConfidenceScore,
		ConfidenceLevel:     est.ConfidenceLevel,
		DataMonths:          est.DataMonths,
		CalculationTier:     est.CalculationTier,
		Trend:               est.TrendDirection,
		SeasonalityDetected: est.SeasonalityDetected,
		OutliersDetected:    est.OutliersDetected,
		PredictedStockout:   stockout,
		ReorderSuggestion:   reorder,
		FinancialMetrics:    financial,
		ValidationMessages:  validationMsgs,
		CalculatedAt:        now,
	}, nil
}

// effectiveLeadTime resolves lead time with the fallback hierarchy:
// product-specific, then client configuration, then the service default.
func (s *UsageService) effectiveLeadTime(product domain.Product, clientCfg *domain.ClientConfiguration) (int, string) {
	if product.TotalLeadDays != nil && *product.TotalLeadDays > 0 {
		return *product.TotalLeadDays, LeadTimeSourceProduct
	}

	if clientCfg != nil && clientCfg.ReorderLeadDays > 0 {
		return clientCfg.ReorderLeadDays, LeadTimeSourceClient
	}

	return s.cfg.DefaultLeadTimeDays, LeadTimeSourceDefault
}

// RecalculateClient recomputes usage for every active product of a client,
// sequentially. Too many consecutive failures abort the run and trip the
// circuit breaker; each product commits independently so a late abort keeps
// earlier progress.
func (s *UsageService) RecalculateClient(ctx context.Context, clientID string) (*domain.BatchResult, error) {
	if !s.breaker.CanExecute() {
		log.Warn().
			Str("client_id", clientID).
			Interface("circuit_status", s.breaker.Status()).
			Msg("client recalculation skipped, circuit open")
		return nil, fmt.Errorf("circuit breaker open")
	}

	started := s.now()
	log.Info().Str("client_id", clientID).Msg("client recalculation started")

	productIDs, err := s.repo.ActiveProductIDs(ctx, clientID)
	if err != nil {
		s.breaker.RecordFailure()
		return nil, fmt.Errorf("list active products: %w", err)
	}

	clientCfg, err := s.repo.ClientConfiguration(ctx, clientID)
	if err != nil {
		s.breaker.RecordFailure()
		return nil, fmt.Errorf("load client configuration: %w", err)
	}

	result := &domain.BatchResult{
		ClientID:  clientID,
		StartedAt: started,
	}

	maxFailures := s.cfg.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}

	consecutive := 0
	for _, productID := range productIDs {
		if consecutive >= maxFailures {
			result.Aborted = true
			result.AbortReason = "too_many_consecutive_failures"
			s.breaker.RecordFailure()
			log.Error().
				Str("client_id", clientID).
				Int("consecutive_failures", consecutive).
				Msg("client recalculation aborted")
			break
		}

		product, err := s.repo.ProductByID(ctx, productID)
		if err != nil || product == nil {
			consecutive++
			result.ProductsFailed++
			if consecutive > result.ConsecutiveFailMax {
				result.ConsecutiveFailMax = consecutive
			}
			log.Error().Err(err).Str("product_id", productID).Msg("product calculation failed")
			continue
		}

		if _, err := s.calculateOne(ctx, clientID, *product, clientCfg); err != nil {
			consecutive++
			result.ProductsFailed++
			if consecutive > result.ConsecutiveFailMax {
				result.ConsecutiveFailMax = consecutive
			}
			log.Error().Err(err).
				Str("product_id", productID).
				Int("consecutive_failures", consecutive).
				Msg("product calculation failed")
			continue
		}

		consecutive = 0
		result.ProductsProcessed++
		s.breaker.RecordSuccess()
	}

	result.CompletedAt = s.now()

	if err := s.statsCache.InvalidateStats(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate stats cache")
	}

	log.Info().
		Str("client_id", clientID).
		Int("products_processed", result.ProductsProcessed).
		Int("products_failed", result.ProductsFailed).
		Bool("aborted", result.Aborted).
		Msg("client recalculation completed")

	return result, nil
}

// ClientExists reports whether a client is known.
func (s *UsageService) ClientExists(ctx context.Context, clientID string) (bool, error) {
	return s.repo.ClientExists(ctx, clientID)
}

// Stats returns catalog-wide usage statistics, served from cache when warm.
func (s *UsageService) Stats(ctx context.Context) (*domain.UsageStats, error) {
	if cached, ok, err := s.statsCache.GetStats(ctx); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("stats cache read failed")
	}

	usageStats, err := s.repo.UsageStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load usage stats: %w", err)
	}

	if err := s.statsCache.SetStats(ctx, usageStats); err != nil {
		log.Warn().Err(err).Msg("stats cache write failed")
	}

	return usageStats, nil
}

// Health checks database connectivity and folds in the breaker state.
func (s *UsageService) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Version:   "1.0.0",
		Timestamp: s.now(),
	}

	start := time.Now()
	if err := s.repo.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("database connection failed")
		s.breaker.RecordFailure()
	} else {
		latency := float64(time.Since(start).Microseconds()) / 1000
		status.DatabaseConnected = true
		status.DatabaseLatencyMS = &latency
		s.breaker.RecordSuccess()
	}

	status.CircuitBreaker = s.breaker.Status()

	if status.DatabaseConnected && status.CircuitBreaker.State != BreakerOpen {
		status.Status = "healthy"
	} else {
		status.Status = "unhealthy"
	}

	return status
}
