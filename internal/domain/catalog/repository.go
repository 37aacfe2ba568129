package catalog

import (
	"context"

	"tillpoint/internal/core/id"
	"tillpoint/internal/domain"
)

// Repository persists products.
type Repository interface {
	Create(ctx context.Context, p *Product) error

	// GetByID returns PRODUCT_NOT_FOUND when missing.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetByBarcode looks up a normalized barcode.
	GetByBarcode(ctx context.Context, barcode string) (*Product, error)

	// ExistingBarcodes returns which of the normalized barcodes are already taken.
	ExistingBarcodes(ctx context.Context, barcodes []string) ([]string, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Product], error)
}

// ListFilter narrows product listings.
type ListFilter struct {
	domain.ListFilter

	// Search matches name substrings case-insensitively.
	Search string
	// CategoryPrefix matches the category path and everything below it.
	CategoryPrefix string
}
