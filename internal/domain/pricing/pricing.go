// Package pricing enforces batch price ordering: cost <= selling <= MRP.
// All checks are pure and run before any write.
package pricing

import (
	"fmt"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/types"
)

// Terms is a batch price triple.
type Terms struct {
	CostPrice    types.Money `json:"costPrice"`
	SellingPrice types.Money `json:"sellingPrice"`
	MRP          types.Money `json:"mrp"`
}

// Wholesale is an alternate price applied when a sale line reaches MinQuantity.
// It is not bound by the cost/MRP ordering.
type Wholesale struct {
	Price       types.Money    `json:"price"`
	MinQuantity types.Quantity `json:"minQuantity"`
}

// Applies reports whether a line of qty units earns the wholesale price.
func (w *Wholesale) Applies(qty types.Quantity) bool {
	return w != nil && qty >= w.MinQuantity
}

// Validate checks prices and quantity. First failure wins:
// negative value, then selling below cost, then selling above MRP.
func Validate(cost, selling, mrp types.Money, quantity types.Quantity) error {
	switch {
	case cost.IsNegative():
		return negative("costPrice", cost.String())
	case selling.IsNegative():
		return negative("sellingPrice", selling.String())
	case mrp.IsNegative():
		return negative("mrp", mrp.String())
	case quantity.IsNegative():
		return negative("quantity", quantity.String())
	case quantity > types.MaxQuantity:
		return apperror.NewQuantityTooLarge("quantity", quantity.Int64(), types.MaxQuantity.Int64())
	}

	if selling.LessThan(cost) {
		return apperror.NewBusinessRule(apperror.CodeSellingBelowCost, "Selling price is below cost price").
			WithDetail("costPrice", cost.String()).
			WithDetail("sellingPrice", selling.String())
	}
	if selling.GreaterThan(mrp) {
		return apperror.NewBusinessRule(apperror.CodeSellingAboveMrp, "Selling price exceeds MRP").
			WithDetail("sellingPrice", selling.String()).
			WithDetail("mrp", mrp.String())
	}
	return nil
}

// ValidateTerms is Validate over a Terms value.
func ValidateTerms(t Terms, quantity types.Quantity) error {
	return Validate(t.CostPrice, t.SellingPrice, t.MRP, quantity)
}

// ValidateWholesale checks wholesale terms when present.
func ValidateWholesale(w *Wholesale) error {
	if w == nil {
		return nil
	}
	if w.Price.IsNegative() {
		return negative("wholesale.price", w.Price.String())
	}
	if w.MinQuantity < 1 {
		return apperror.NewValidation("wholesale minimum quantity must be at least 1").
			WithDetail("minQuantity", w.MinQuantity.Int64())
	}
	if w.MinQuantity > types.MaxQuantity {
		return apperror.NewQuantityTooLarge("wholesale.minQuantity", w.MinQuantity.Int64(), types.MaxQuantity.Int64())
	}
	return nil
}

// ValidateOverride checks a manual unit price entered at the till.
// Overrides may go below cost but never above MRP.
func ValidateOverride(price, mrp types.Money) error {
	if price.IsNegative() {
		return negative("unitPriceOverride", price.String())
	}
	if price.GreaterThan(mrp) {
		return apperror.NewBusinessRule(apperror.CodeSellingAboveMrp, "Price override exceeds MRP").
			WithDetail("unitPriceOverride", price.String()).
			WithDetail("mrp", mrp.String())
	}
	return nil
}

func negative(field, value string) *apperror.AppError {
	return apperror.NewBusinessRule(apperror.CodeNegativeValue, fmt.Sprintf("%s must not be negative", field)).
		WithDetail("field", field).
		WithDetail("value", value)
}
