package handlers

import (
	"github.com/gin-gonic/gin"

	"tillpoint/internal/domain/audit"
	"tillpoint/internal/domain/batch"
	"tillpoint/internal/infrastructure/http/v1/dto"
)

// BatchHandler handles /batches.
type BatchHandler struct {
	*BaseHandler
	service *batch.Service
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(base *BaseHandler, service *batch.Service) *BatchHandler {
	return &BatchHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Get handles GET /batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	b, err := h.service.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromBatch(b))
}

// UpdatePricing handles PUT /batches/:id/pricing
func (h *BatchHandler) UpdatePricing(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePricingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := h.service.UpdatePricing(c.Request.Context(), batchID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromBatch(b))
}

// AddStock handles POST /batches/:id/add-stock
func (h *BatchHandler) AddStock(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.StockChangeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := h.service.AddStock(c.Request.Context(), batchID, *req.Quantity, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromBatch(b))
}

// Adjust handles POST /batches/:id/adjust
func (h *BatchHandler) Adjust(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.StockChangeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := h.service.AdjustStock(c.Request.Context(), batchID, *req.Quantity, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromBatch(b))
}

// History handles GET /batches/:id/history
func (h *BatchHandler) History(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	entries, err := h.service.History(c.Request.Context(), batchID, h.ParseIntQuery(c, "limit", 100))
	if err != nil {
		h.Error(c, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	h.OK(c, gin.H{"items": entries})
}
