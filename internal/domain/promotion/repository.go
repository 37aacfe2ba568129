package promotion

import (
	"context"
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/domain"
)

// Repository persists promotions with their items.
type Repository interface {
	Create(ctx context.Context, p *Promotion) error

	// GetByID returns NOT_FOUND when missing.
	GetByID(ctx context.Context, promotionID id.ID) (*Promotion, error)

	SetActive(ctx context.Context, promotionID id.ID, active bool, now time.Time) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Promotion], error)

	// FindCovering returns active promotions covering day that list the product,
	// newest first.
	FindCovering(ctx context.Context, productID id.ID, day time.Time) ([]*Promotion, error)
}

// ListFilter narrows promotion listings.
type ListFilter struct {
	domain.ListFilter

	ActiveOnly bool
	// On keeps promotions whose range includes this date.
	On *time.Time
}
