// internal/repository/postgres/usage_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/stocklens/analytics-go/internal/domain"
	"github.com/stocklens/analytics-go/internal/repository"
)

// UsageRepository is the sqlx-backed implementation of
// repository.UsageRepository.
type UsageRepository struct {
	db *DB
}

var _ repository.UsageRepository = (*UsageRepository)(nil)

func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) MonthlyOrderTotals(ctx context.Context, productID string, months int) ([]domain.MonthlyOrderTotal, error) {
	query := `
		SELECT
			DATE_TRUNC('month', date_submitted) AS month,
			SUM(quantity_units) AS total_units,
			SUM(quantity_packs) AS total_packs,
			COUNT(*) AS transaction_count
		FROM transactions
		WHERE product_id = $1
		  AND date_submitted >= NOW() - ($2 * INTERVAL '1 month')
		  AND LOWER(order_status) = 'completed'
		GROUP BY DATE_TRUNC('month', date_submitted)
		ORDER BY month ASC`

	var rows []domain.MonthlyOrderTotal
	if err := r.db.SelectContext(ctx, &rows, query, productID, months); err != nil {
		return nil, fmt.Errorf("failed to query monthly order totals: %w", err)
	}

	return rows, nil
}

func (r *UsageRepository) StockSnapshots(ctx context.Context, productID string, months int) ([]domain.StockSnapshot, error) {
	query := `
		SELECT recorded_at, packs_available, total_units, source
		FROM stock_history
		WHERE product_id = $1
		  AND recorded_at >= NOW() - ($2 * INTERVAL '1 month')
		ORDER BY recorded_at ASC`

	var rows []domain.StockSnapshot
	if err := r.db.SelectContext(ctx, &rows, query, productID, months); err != nil {
		return nil, fmt.Errorf("failed to query stock snapshots: %w", err)
	}

	return rows, nil
}

func (r *UsageRepository) ProductByID(ctx context.Context, productID string) (*domain.Product, error) {
	query := `
		SELECT id, client_id, product_id, name, pack_size,
		       current_stock_packs, current_stock_units, notification_point,
		       item_type, is_active, unit_cost, unit_price,
		       holding_cost_rate, reorder_cost, total_lead_days
		FROM products
		WHERE id = $1`

	var p domain.Product
	if err := r.db.GetContext(ctx, &p, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

func (r *UsageRepository) ClientConfiguration(ctx context.Context, clientID string) (*domain.ClientConfiguration, error) {
	query := `
		SELECT client_id, reorder_lead_days, safety_stock_weeks,
		       critical_weeks, low_weeks, watch_weeks
		FROM client_configurations
		WHERE client_id = $1`

	var cfg domain.ClientConfiguration
	if err := r.db.GetContext(ctx, &cfg, query, clientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query client configuration: %w", err)
	}

	return &cfg, nil
}

func (r *UsageRepository) ClientExists(ctx context.Context, clientID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM clients WHERE id = $1)`, clientID); err != nil {
		return false, fmt.Errorf("failed to check client: %w", err)
	}
	return exists, nil
}

func (r *UsageRepository) ActiveProductIDs(ctx context.Context, clientID string) ([]string, error) {
	var ids []string
	query := `SELECT id FROM products WHERE client_id = $1 AND is_active = true ORDER BY id`
	if err := r.db.SelectContext(ctx, &ids, query, clientID); err != nil {
		return nil, fmt.Errorf("failed to query active products: %w", err)
	}
	return ids, nil
}

func (r *UsageRepository) ApplyUsageUpdate(ctx context.Context, u domain.ProductUsageUpdate) error {
	query := `
		UPDATE products SET
			monthly_usage_units = $2,
			monthly_usage_packs = $3,
			usage_data_months = $4,
			usage_calculation_tier = $5,
			usage_confidence = $6,
			usage_last_calculated = $7,
			usage_calculation_method = $8,
			usage_trend = $9,
			seasonality_detected = $10,
			weeks_remaining = $11,
			stock_status = $12,
			projected_stockout_date = $13,
			stockout_confidence = $14,
			suggested_reorder_qty = $15,
			reorder_qty_last_updated = $16
		WHERE id = $1`

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			u.ProductID,
			u.MonthlyUsageUnits,
			u.MonthlyUsagePacks,
			u.UsageDataMonths,
			u.UsageCalculationTier,
			u.UsageConfidence,
			u.UsageLastCalculated,
			u.UsageCalculationMethod,
			u.UsageTrend,
			u.SeasonalityDetected,
			u.WeeksRemaining,
			u.StockStatus,
			u.ProjectedStockoutDate,
			u.StockoutConfidence,
			u.SuggestedReorderQty,
			u.ReorderQtyLastUpdated,
		)
		if err != nil {
			return fmt.Errorf("failed to apply usage update: %w", err)
		}

		affected, err := result.RowsAffected()
		if err == nil && affected == 0 {
			return fmt.Errorf("product %s not found", u.ProductID)
		}

		return nil
	})
}

func (r *UsageRepository) UsageStats(ctx context.Context) (*domain.UsageStats, error) {
	var counts struct {
		Total            int     `db:"total"`
		WithUsage        int     `db:"with_usage"`
		HighConfidence   int     `db:"high_confidence"`
		MediumConfidence int     `db:"medium_confidence"`
		LowConfidence    int     `db:"low_confidence"`
		AvgConfidence    float64 `db:"avg_confidence"`
	}

	// Confidence levels map back to representative scores so the average is
	// comparable with per-product scores.
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE monthly_usage_units IS NOT NULL AND monthly_usage_units > 0) AS with_usage,
			COUNT(*) FILTER (WHERE usage_confidence = 'high') AS high_confidence,
			COUNT(*) FILTER (WHERE usage_confidence = 'medium') AS medium_confidence,
			COUNT(*) FILTER (WHERE usage_confidence = 'low') AS low_confidence,
			COALESCE(AVG(
				CASE usage_confidence
					WHEN 'high' THEN 0.85
					WHEN 'medium' THEN 0.65
					WHEN 'low' THEN 0.35
				END
			), 0) AS avg_confidence
		FROM products`

	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("failed to query usage stats: %w", err)
	}

	methodRows := []struct {
		Method string `db:"usage_calculation_method"`
		Count  int    `db:"count"`
	}{}
	methodQuery := `
		SELECT usage_calculation_method, COUNT(*) AS count
		FROM products
		WHERE usage_calculation_method IS NOT NULL
		GROUP BY usage_calculation_method`

	if err := r.db.SelectContext(ctx, &methodRows, methodQuery); err != nil {
		return nil, fmt.Errorf("failed to query calculation methods: %w", err)
	}

	methods := make(map[string]int, len(methodRows))
	for _, m := range methodRows {
		methods[m.Method] = m.Count
	}

	return &domain.UsageStats{
		TotalProducts:              counts.Total,
		ProductsWithUsage:          counts.WithUsage,
		ProductsNeedingCalculation: counts.Total - counts.WithUsage,
		AvgConfidenceScore:         math.Round(counts.AvgConfidence*100) / 100,
		HighConfidenceCount:        counts.HighConfidence,
		MediumConfidenceCount:      counts.MediumConfidence,
		LowConfidenceCount:         counts.LowConfidence,
		CalculationMethods:         methods,
	}, nil
}

func (r *UsageRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
