package handlers

import (
	"github.com/gin-gonic/gin"

	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/ledger"
	"tillpoint/internal/infrastructure/http/v1/dto"
)

// LedgerHandler serves movement history and summaries of a product.
type LedgerHandler struct {
	*BaseHandler
	ledger  *ledger.Service
	catalog *catalog.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, ledger *ledger.Service, catalog *catalog.Service) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: base,
		ledger:      ledger,
		catalog:     catalog,
	}
}

// Movements handles GET /products/:id/movements?from=&to=
func (h *LedgerHandler) Movements(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var q dto.RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	from, to, err := q.Parse()
	if err != nil {
		h.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.catalog.GetProduct(ctx, productID); err != nil {
		h.Error(c, err)
		return
	}

	items := []dto.MovementResponse{}
	for m, err := range h.ledger.QueryRange(ctx, productID, from, to) {
		if err != nil {
			h.Error(c, err)
			return
		}
		items = append(items, dto.FromMovement(m))
	}
	h.OK(c, dto.MovementListResponse{Items: items})
}

// Summary handles GET /products/:id/summary?from=&to=
func (h *LedgerHandler) Summary(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var q dto.RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	from, to, err := q.Parse()
	if err != nil {
		h.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.catalog.GetProduct(ctx, productID); err != nil {
		h.Error(c, err)
		return
	}

	sum, err := h.ledger.Summarize(ctx, productID, from, to)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.SummaryResponse{
		ProductID: productID.String(),
		From:      dto.TimePtr(from),
		To:        dto.TimePtr(to),
		Summary:   sum,
	})
}

// DailySummary handles GET /products/:id/summary/daily?from=&to=
func (h *LedgerHandler) DailySummary(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var q dto.RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	from, to, err := q.Parse()
	if err != nil {
		h.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.catalog.GetProduct(ctx, productID); err != nil {
		h.Error(c, err)
		return
	}

	days, err := h.ledger.SummarizeByDay(ctx, productID, from, to)
	if err != nil {
		h.Error(c, err)
		return
	}
	if days == nil {
		days = []ledger.DailySummary{}
	}
	h.OK(c, dto.DailySummaryResponse{ProductID: productID.String(), Days: days})
}
