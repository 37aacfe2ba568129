package refund

import (
	"context"

	"tillpoint/internal/core/id"
)

// Repository persists return records. Quantities live on the sale lines.
type Repository interface {
	Create(ctx context.Context, r *Return) error

	// ListBySale returns a sale's returns oldest first.
	ListBySale(ctx context.Context, saleID id.ID) ([]*Return, error)
}
