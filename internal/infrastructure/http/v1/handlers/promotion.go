package handlers

import (
	"github.com/gin-gonic/gin"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/promotion"
	"tillpoint/internal/infrastructure/http/v1/dto"
)

// PromotionHandler handles /promotions.
type PromotionHandler struct {
	*BaseHandler
	service *promotion.Service
	clock   domain.Clock
}

// NewPromotionHandler creates a new promotion handler.
func NewPromotionHandler(base *BaseHandler, service *promotion.Service, clock domain.Clock) *PromotionHandler {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &PromotionHandler{
		BaseHandler: base,
		service:     service,
		clock:       clock,
	}
}

// Create handles POST /promotions
func (h *PromotionHandler) Create(c *gin.Context) {
	var req dto.CreatePromotionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromPromotion(p))
}

// Get handles GET /promotions/:id
func (h *PromotionHandler) Get(c *gin.Context) {
	promotionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), promotionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPromotion(p))
}

// List handles GET /promotions
func (h *PromotionHandler) List(c *gin.Context) {
	var q dto.PromotionListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter := promotion.ListFilter{
		ListFilter: q.PaginationRequest.ToFilter(),
		ActiveOnly: q.ActiveOnly,
	}
	if q.On != "" {
		on, err := dto.ParseDate(q.On)
		if err != nil {
			h.Error(c, apperror.NewValidation(err.Error()).WithDetail("field", "on"))
			return
		}
		filter.On = &on
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result, dto.FromPromotion))
}

// SetActive handles PATCH /promotions/:id/active
func (h *PromotionHandler) SetActive(c *gin.Context) {
	promotionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.SetActive(c.Request.Context(), promotionID, *req.IsActive)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPromotion(p))
}

// Resolve handles GET /promotions/resolve?productId=&date=
// The date defaults to today.
func (h *PromotionHandler) Resolve(c *gin.Context) {
	var q dto.ResolvePriceQuery
	if !h.BindQuery(c, &q) {
		return
	}
	productID, err := id.Parse(q.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}
	day := domain.DateOnly(h.clock())
	if q.Date != "" {
		if day, err = dto.ParseDate(q.Date); err != nil {
			h.Error(c, apperror.NewValidation(err.Error()).WithDetail("field", "date"))
			return
		}
	}

	res, err := h.service.ResolvePrice(c.Request.Context(), productID, day)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ResolvedPriceResponse{
		ProductID: productID.String(),
		Date:      dto.Date{Time: day},
		Promotion: res,
	})
}
