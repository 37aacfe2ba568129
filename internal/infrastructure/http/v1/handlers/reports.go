package handlers

import (
	"github.com/gin-gonic/gin"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/reports"
	"tillpoint/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// LowStock handles GET /reports/low-stock
func (h *ReportsHandler) LowStock(c *gin.Context) {
	items, err := h.service.LowStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []reports.LowStockItem{}
	}
	h.OK(c, dto.LowStockResponse{Items: items})
}

// Expiring handles GET /reports/expiring?days=
func (h *ReportsHandler) Expiring(c *gin.Context) {
	var q dto.ExpiringQuery
	if !h.BindQuery(c, &q) {
		return
	}
	days := q.WithinDays()

	items, err := h.service.ExpiringBatches(c.Request.Context(), days)
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []reports.ExpiringBatch{}
	}
	h.OK(c, dto.ExpiringResponse{Days: days, Items: items})
}

// Valuation handles GET /reports/valuation?productId=
func (h *ReportsHandler) Valuation(c *gin.Context) {
	var q dto.ValuationQuery
	if !h.BindQuery(c, &q) {
		return
	}
	var productID *id.ID
	if q.ProductID != "" {
		parsed, err := id.Parse(q.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid productId format"))
			return
		}
		productID = &parsed
	}

	report, err := h.service.StockValuation(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if report.Items == nil {
		report.Items = []reports.ValuationItem{}
	}
	h.OK(c, report)
}

// DailySales handles GET /reports/daily-sales?from=&to=
func (h *ReportsHandler) DailySales(c *gin.Context) {
	var q dto.RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	from, to, err := q.Parse()
	if err != nil {
		h.Error(c, err)
		return
	}

	rows, err := h.service.DailySales(c.Request.Context(), reports.DailySalesFilter{From: from, To: to})
	if err != nil {
		h.Error(c, err)
		return
	}
	if rows == nil {
		rows = []reports.DailySalesRow{}
	}
	h.OK(c, dto.DailySalesResponse{Items: rows})
}
