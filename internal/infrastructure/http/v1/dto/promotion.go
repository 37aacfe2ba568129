package dto

import (
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/promotion"
)

// PromotionItemRequest is one product price of a promotion.
type PromotionItemRequest struct {
	ProductID  id.ID        `json:"productId" binding:"required"`
	PromoPrice *types.Money `json:"promoPrice" binding:"required"`
}

// CreatePromotionRequest is the body of POST /promotions.
type CreatePromotionRequest struct {
	Name      string                 `json:"name" binding:"required"`
	StartDate *Date                  `json:"startDate" binding:"required"`
	EndDate   *Date                  `json:"endDate" binding:"required"`
	IsActive  *bool                  `json:"isActive"`
	Items     []PromotionItemRequest `json:"items" binding:"required,dive"`
}

// ToInput converts to the service input. Promotions start active unless told otherwise.
func (r *CreatePromotionRequest) ToInput() promotion.CreateInput {
	in := promotion.CreateInput{
		Name:      r.Name,
		StartDate: r.StartDate.Time,
		EndDate:   r.EndDate.Time,
		IsActive:  r.IsActive == nil || *r.IsActive,
		Items:     make([]promotion.ItemInput, len(r.Items)),
	}
	for i, it := range r.Items {
		in.Items[i] = promotion.ItemInput{ProductID: it.ProductID, PromoPrice: *it.PromoPrice}
	}
	return in
}

// SetActiveRequest is the body of PATCH /promotions/:id/active.
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// PromotionListQuery is the query of GET /promotions.
type PromotionListQuery struct {
	PaginationRequest
	ActiveOnly bool   `form:"activeOnly"`
	On         string `form:"on"`
}

// ResolvePriceQuery is the query of GET /promotions/resolve.
type ResolvePriceQuery struct {
	ProductID string `form:"productId" binding:"required"`
	Date      string `form:"date"`
}

// PromotionItemResponse is one product price in responses.
type PromotionItemResponse struct {
	ProductID  string      `json:"productId"`
	PromoPrice types.Money `json:"promoPrice"`
}

// PromotionResponse is a promotion in responses.
type PromotionResponse struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	StartDate Date                    `json:"startDate"`
	EndDate   Date                    `json:"endDate"`
	IsActive  bool                    `json:"isActive"`
	Items     []PromotionItemResponse `json:"items"`
	Version   int                     `json:"version"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// FromPromotion converts a promotion.
func FromPromotion(p *promotion.Promotion) PromotionResponse {
	resp := PromotionResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		StartDate: Date{Time: p.StartDate},
		EndDate:   Date{Time: p.EndDate},
		IsActive:  p.IsActive,
		Items:     make([]PromotionItemResponse, len(p.Items)),
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	for i, it := range p.Items {
		resp.Items[i] = PromotionItemResponse{ProductID: it.ProductID.String(), PromoPrice: it.PromoPrice}
	}
	return resp
}

// ResolvedPriceResponse answers GET /promotions/resolve. Promotion is null when none applies.
type ResolvedPriceResponse struct {
	ProductID string                `json:"productId"`
	Date      Date                  `json:"date"`
	Promotion *promotion.Resolution `json:"promotion"`
}
