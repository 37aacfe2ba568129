package batch

import (
	"context"
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/catalog"
)

// Repository persists batches. Only Service writes quantity.
type Repository interface {
	Create(ctx context.Context, b *Batch) error

	// GetByID returns BATCH_NOT_FOUND when missing.
	GetByID(ctx context.Context, batchID id.ID) (*Batch, error)

	// LockForUpdate row-locks every batch in ascending id order and returns them by id.
	// Any missing id fails with BATCH_NOT_FOUND. Requires a transaction.
	LockForUpdate(ctx context.Context, batchIDs []id.ID) (map[id.ID]*Batch, error)

	UpdateQuantity(ctx context.Context, batchID id.ID, quantity types.Quantity, now time.Time) error
	UpdatePricing(ctx context.Context, b *Batch) error

	ListByProduct(ctx context.Context, productID id.ID) ([]*Batch, error)
	CodeExists(ctx context.Context, productID id.ID, code string) (bool, error)
	CountByProduct(ctx context.Context, productID id.ID) (int, error)
}

// ProductReader is the catalog view the batch store needs.
type ProductReader interface {
	// GetForUpdate locks the product row, serializing batch creation per product.
	GetForUpdate(ctx context.Context, productID id.ID) (*catalog.Product, error)
}
