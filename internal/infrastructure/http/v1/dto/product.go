package dto

import (
	"time"

	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/catalog"
)

// CreateProductRequest is the body of POST /products.
type CreateProductRequest struct {
	Name                 string          `json:"name" binding:"required"`
	Category             *string         `json:"category"`
	Barcodes             []string        `json:"barcodes" binding:"required,min=1"`
	BatchTrackingEnabled *bool           `json:"batchTrackingEnabled" binding:"required"`
	LowStockThreshold    *types.Quantity `json:"lowStockThreshold" binding:"omitempty,max=1000000000000"`
}

// ToInput converts to the service input.
func (r *CreateProductRequest) ToInput() catalog.CreateProductInput {
	return catalog.CreateProductInput{
		Name:                 r.Name,
		Category:             r.Category,
		Barcodes:             r.Barcodes,
		BatchTrackingEnabled: *r.BatchTrackingEnabled,
		LowStockThreshold:    r.LowStockThreshold,
	}
}

// ProductListQuery is the query of GET /products.
type ProductListQuery struct {
	PaginationRequest
	Search   string `form:"search"`
	Category string `form:"category"`
}

// ToFilter converts to the service filter.
func (q ProductListQuery) ToFilter() catalog.ListFilter {
	return catalog.ListFilter{
		ListFilter:     q.PaginationRequest.ToFilter(),
		Search:         q.Search,
		CategoryPrefix: q.Category,
	}
}

// ProductResponse is a product in API responses.
type ProductResponse struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Category             *string         `json:"category,omitempty"`
	Barcodes             []string        `json:"barcodes"`
	BatchTrackingEnabled bool            `json:"batchTrackingEnabled"`
	LowStockThreshold    *types.Quantity `json:"lowStockThreshold,omitempty"`
	Version              int             `json:"version"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// FromProduct converts a product to its response.
func FromProduct(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:                   p.ID.String(),
		Name:                 p.Name,
		Category:             p.Category,
		Barcodes:             p.Barcodes,
		BatchTrackingEnabled: p.BatchTrackingEnabled,
		LowStockThreshold:    p.LowStockThreshold,
		Version:              p.Version,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}
