// Package promotion provides time-boxed per-product price overrides.
// Promotions replace the selling price at sale time and never touch batch pricing.
package promotion

import (
	"context"
	"strings"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/entity"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
)

// Promotion covers a calendar date range, both ends inclusive.
type Promotion struct {
	entity.BaseEntity

	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"startDate"`
	EndDate   time.Time `db:"end_date" json:"endDate"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	Items     []Item    `db:"-" json:"items"`
}

// Item is a promo price for one product.
type Item struct {
	PromotionID id.ID       `db:"promotion_id" json:"-"`
	ProductID   id.ID       `db:"product_id" json:"productId"`
	PromoPrice  types.Money `db:"promo_price" json:"promoPrice"`
}

// Covers reports whether the promotion applies to day (a DateOnly value).
func (p *Promotion) Covers(day time.Time) bool {
	return p.IsActive && !day.Before(p.StartDate) && !day.After(p.EndDate)
}

// PriceFor returns the promo price for a product, if listed.
func (p *Promotion) PriceFor(productID id.ID) (types.Money, bool) {
	for _, it := range p.Items {
		if it.ProductID == productID {
			return it.PromoPrice, true
		}
	}
	return types.Zero(), false
}

// Validate implements entity.Validatable.
func (p *Promotion) Validate(ctx context.Context) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if p.EndDate.Before(p.StartDate) {
		return apperror.NewValidation("endDate is before startDate").
			WithDetail("startDate", p.StartDate.Format(time.DateOnly)).
			WithDetail("endDate", p.EndDate.Format(time.DateOnly))
	}
	if len(p.Items) == 0 {
		return apperror.NewValidation("promotion must list at least one product").WithDetail("field", "items")
	}
	seen := make(map[id.ID]struct{}, len(p.Items))
	for i, it := range p.Items {
		if id.IsNil(it.ProductID) {
			return apperror.NewValidation("productId is required").WithDetail("index", i)
		}
		if it.PromoPrice.IsNegative() {
			return apperror.NewBusinessRule(apperror.CodeNegativeValue, "promoPrice must not be negative").
				WithDetail("index", i)
		}
		if _, dup := seen[it.ProductID]; dup {
			return apperror.NewValidation("product listed twice in one promotion").
				WithDetail("product_id", it.ProductID.String())
		}
		seen[it.ProductID] = struct{}{}
	}
	return nil
}

// Resolution is the promo price that applies to a sale line.
type Resolution struct {
	PromotionID id.ID       `json:"promotionId"`
	Name        string      `json:"name"`
	Price       types.Money `json:"price"`
}
