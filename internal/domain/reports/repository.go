package reports

import (
	"context"
	"time"

	"tillpoint/internal/core/id"
)

// Repository defines report data access. Implementations never write.
type Repository interface {
	// LowStock returns products with a threshold whose summed batch quantity is at or below it.
	LowStock(ctx context.Context) ([]LowStockItem, error)

	// ExpiringBatches returns batches with quantity > 0 expiring on or before cutoff, soonest first.
	ExpiringBatches(ctx context.Context, cutoff time.Time) ([]ExpiringBatch, error)

	// StockValuation values current stock per product, optionally for one product.
	StockValuation(ctx context.Context, productID *id.ID) ([]ValuationItem, error)

	// DailySales aggregates sales and returns per UTC day, ascending.
	DailySales(ctx context.Context, filter DailySalesFilter) ([]DailySalesRow, error)
}
