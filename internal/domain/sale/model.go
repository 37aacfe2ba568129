// Package sale records sales against pre-existing batches.
// A sale commits all its lines or none.
package sale

import (
	"time"

	"tillpoint/internal/core/entity"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
)

// PriceSource tells which rule set a line's selling price.
type PriceSource string

const (
	PriceFromPromotion PriceSource = "promotion"
	PriceFromOverride  PriceSource = "override"
	PriceFromWholesale PriceSource = "wholesale"
	PriceFromBatch     PriceSource = "batch"
)

// Sale is a completed till transaction.
type Sale struct {
	entity.BaseEntity

	Number   string      `db:"number" json:"number"`
	SoldAt   time.Time   `db:"sold_at" json:"soldAt"`
	Subtotal types.Money `db:"subtotal" json:"subtotal"`
	Discount types.Money `db:"discount" json:"discount"`
	Total    types.Money `db:"total" json:"total"`
	// GrossProfit is the sum of line profits before discount.
	GrossProfit types.Money `db:"gross_profit" json:"grossProfit"`
	OperatorID  *string     `db:"operator_id" json:"operatorId,omitempty"`

	Items []*Item `db:"-" json:"items"`
}

// Item is one sale line. Prices are snapshots taken at sale time.
type Item struct {
	ID               id.ID          `db:"id" json:"id"`
	SaleID           id.ID          `db:"sale_id" json:"saleId"`
	LineNo           int            `db:"line_no" json:"lineNo"`
	BatchID          id.ID          `db:"batch_id" json:"batchId"`
	ProductID        id.ID          `db:"product_id" json:"productId"`
	Quantity         types.Quantity `db:"quantity" json:"quantity"`
	ReturnedQuantity types.Quantity `db:"returned_quantity" json:"returnedQuantity"`
	CostPrice        types.Money    `db:"cost_price" json:"costPrice"`
	SellingPrice     types.Money    `db:"selling_price" json:"sellingPrice"`
	MRP              types.Money    `db:"mrp" json:"mrp"`
	PriceSource      PriceSource    `db:"price_source" json:"priceSource"`
	PromotionID      *id.ID         `db:"promotion_id" json:"promotionId,omitempty"`
	LineTotal        types.Money    `db:"line_total" json:"lineTotal"`
	Profit           types.Money    `db:"profit" json:"profit"`
}

// NetQuantity is sold minus returned.
func (i *Item) NetQuantity() types.Quantity {
	return i.Quantity - i.ReturnedQuantity
}

// Remaining is how many units can still be returned.
func (i *Item) Remaining() types.Quantity {
	return i.NetQuantity()
}

// NetProfit is the profit on units not returned.
func (i *Item) NetProfit() types.Money {
	return i.SellingPrice.Sub(i.CostPrice).Mul(i.NetQuantity().Money())
}

// Item returns the line with the given id.
func (s *Sale) Item(itemID id.ID) (*Item, bool) {
	for _, it := range s.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return nil, false
}
