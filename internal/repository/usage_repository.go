// internal/repository/usage_repository.go
package repository

import (
	"context"

	"github.com/stocklens/analytics-go/internal/domain"
)

// UsageRepository is the persistence surface for the usage analytics engine.
// Single-entity lookups return (nil, nil) when the row does not exist.
type UsageRepository interface {
	// MonthlyOrderTotals aggregates completed orders per calendar month over
	// the trailing window, ascending by month.
	MonthlyOrderTotals(ctx context.Context, productID string, months int) ([]domain.MonthlyOrderTotal, error)

	// StockSnapshots returns stock history rows over the trailing window,
	// ascending by recorded_at.
	StockSnapshots(ctx context.Context, productID string, months int) ([]domain.StockSnapshot, error)

	ProductByID(ctx context.Context, productID string) (*domain.Product, error)
	ClientConfiguration(ctx context.Context, clientID string) (*domain.ClientConfiguration, error)
	ClientExists(ctx context.Context, clientID string) (bool, error)

	// ActiveProductIDs lists the active catalog for a client-wide
	// recalculation.
	ActiveProductIDs(ctx context.Context, clientID string) ([]string, error)

	// ApplyUsageUpdate writes the derived usage fields back onto a product.
	ApplyUsageUpdate(ctx context.Context, update domain.ProductUsageUpdate) error

	// UsageStats aggregates calculation coverage across the catalog.
	UsageStats(ctx context.Context) (*domain.UsageStats, error)

	Ping(ctx context.Context) error
}
