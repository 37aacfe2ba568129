// Package catalog holds products: the items batches belong to.
package catalog

import (
	"context"
	"slices"
	"strings"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/entity"
	"tillpoint/internal/core/types"
)

// Product is a sellable item. Every product owns at least one batch;
// products without batch tracking own exactly one.
type Product struct {
	entity.BaseEntity

	Name                 string          `db:"name" json:"name"`
	Category             *string         `db:"category" json:"category,omitempty"`
	Barcodes             []string        `db:"barcodes" json:"barcodes"`
	BatchTrackingEnabled bool            `db:"batch_tracking_enabled" json:"batchTrackingEnabled"`
	LowStockThreshold    *types.Quantity `db:"low_stock_threshold" json:"lowStockThreshold,omitempty"`
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if len(p.Barcodes) == 0 {
		return apperror.NewValidation("at least one barcode is required").WithDetail("field", "barcodes")
	}
	for i, b := range p.Barcodes {
		if b == "" {
			return apperror.NewValidation("barcode must not be empty").WithDetail("index", i)
		}
	}
	sorted := slices.Clone(p.Barcodes)
	slices.Sort(sorted)
	if len(slices.Compact(sorted)) != len(p.Barcodes) {
		return apperror.NewValidation("barcodes must be distinct").WithDetail("field", "barcodes")
	}
	if p.LowStockThreshold != nil && p.LowStockThreshold.IsNegative() {
		return apperror.NewBusinessRule(apperror.CodeNegativeValue, "lowStockThreshold must not be negative").
			WithDetail("field", "lowStockThreshold")
	}
	return nil
}

// NormalizeBarcode trims and lowercases. Barcodes compare case-insensitively.
func NormalizeBarcode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// NormalizeCategory cleans a slash-delimited path: "/Food//Dairy/ " -> "Food/Dairy".
// Returns nil for an empty path.
func NormalizeCategory(path *string) *string {
	if path == nil {
		return nil
	}
	var parts []string
	for _, seg := range strings.Split(*path, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			parts = append(parts, seg)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	out := strings.Join(parts, "/")
	return &out
}
