package handlers

import (
	"github.com/gin-gonic/gin"

	"tillpoint/internal/domain/refund"
	"tillpoint/internal/domain/sale"
	"tillpoint/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles /sales and their returns.
type SaleHandler struct {
	*BaseHandler
	sales   *sale.Service
	returns *refund.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, sales *sale.Service, returns *refund.Service) *SaleHandler {
	return &SaleHandler{
		BaseHandler: base,
		sales:       sales,
		returns:     returns,
	}
}

// Create handles POST /sales
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.RecordSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := h.sales.RecordSale(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromSale(s))
}

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	s, err := h.sales.GetSale(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(s))
}

// List handles GET /sales?from=&to=
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.SaleListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	from, to, err := q.RangeQuery.Parse()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.sales.ListSales(c.Request.Context(), sale.ListFilter{
		ListFilter: q.PaginationRequest.ToFilter(),
		From:       from,
		To:         to,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result, dto.FromSaleHeader))
}

// CreateReturn handles POST /sales/:id/returns
// Responds with the sale as it stands after the return.
func (h *SaleHandler) CreateReturn(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ProcessReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := h.returns.ProcessReturn(c.Request.Context(), req.ToInput(saleID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromSale(s))
}

// ListReturns handles GET /sales/:id/returns
func (h *SaleHandler) ListReturns(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.sales.GetSale(ctx, saleID); err != nil {
		h.Error(c, err)
		return
	}
	returns, err := h.returns.ListReturns(ctx, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.ReturnResponse, len(returns))
	for i, r := range returns {
		items[i] = dto.FromReturn(r)
	}
	h.OK(c, gin.H{"items": items})
}
