// Package batch owns per-batch stock: quantity, pricing, expiry and wholesale terms.
// Quantity changes only through Service.AdjustQuantity, which writes the matching movement.
package batch

import (
	"time"

	"tillpoint/internal/core/entity"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/pricing"
)

// Batch is one stock lot of a product.
type Batch struct {
	entity.BaseEntity

	ProductID id.ID  `db:"product_id" json:"productId"`
	Code      string `db:"code" json:"code"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`
	// InitialQuantity is the quantity at creation. Creation writes no movement,
	// so all-time ledger net equals Quantity - InitialQuantity.
	InitialQuantity types.Quantity `db:"initial_quantity" json:"initialQuantity"`

	CostPrice    types.Money `db:"cost_price" json:"costPrice"`
	SellingPrice types.Money `db:"selling_price" json:"sellingPrice"`
	MRP          types.Money `db:"mrp" json:"mrp"`

	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	WholesalePrice       *types.Money    `db:"wholesale_price" json:"-"`
	WholesaleMinQuantity *types.Quantity `db:"wholesale_min_quantity" json:"-"`
}

// Terms returns the price triple.
func (b *Batch) Terms() pricing.Terms {
	return pricing.Terms{CostPrice: b.CostPrice, SellingPrice: b.SellingPrice, MRP: b.MRP}
}

// Wholesale returns wholesale terms, or nil when not enabled.
func (b *Batch) Wholesale() *pricing.Wholesale {
	if b.WholesalePrice == nil || b.WholesaleMinQuantity == nil {
		return nil
	}
	return &pricing.Wholesale{Price: *b.WholesalePrice, MinQuantity: *b.WholesaleMinQuantity}
}

// SetWholesale stores or clears wholesale terms.
func (b *Batch) SetWholesale(w *pricing.Wholesale) {
	if w == nil {
		b.WholesalePrice, b.WholesaleMinQuantity = nil, nil
		return
	}
	price, minQty := w.Price, w.MinQuantity
	b.WholesalePrice, b.WholesaleMinQuantity = &price, &minQty
}

// IsExpired reports whether the batch expiry date is before day.
func (b *Batch) IsExpired(day time.Time) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(day)
}

// pricingSnapshot is the audited view of a batch's prices.
func (b *Batch) pricingSnapshot() map[string]any {
	return map[string]any{
		"costPrice":    b.CostPrice.String(),
		"sellingPrice": b.SellingPrice.String(),
		"mrp":          b.MRP.String(),
	}
}
