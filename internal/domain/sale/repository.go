package sale

import (
	"context"
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
)

// Repository persists sales and their lines.
type Repository interface {
	// Create inserts the sale and all its items.
	Create(ctx context.Context, s *Sale) error

	// GetByID returns the sale with items ordered by line, or SALE_NOT_FOUND.
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// LockItems row-locks the sale's items in id order. Fails with SALE_NOT_FOUND.
	LockItems(ctx context.Context, saleID id.ID) ([]*Item, error)

	// AddReturned increments an item's returned quantity.
	AddReturned(ctx context.Context, itemID id.ID, quantity types.Quantity) error

	// List returns sale headers without items, newest first.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)
}

// ListFilter narrows sale listings to [From, To).
type ListFilter struct {
	domain.ListFilter

	From time.Time
	To   time.Time
}
