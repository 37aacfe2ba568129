package handlers

import (
	"github.com/gin-gonic/gin"

	"tillpoint/internal/domain/batch"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles /products.
type ProductHandler struct {
	*BaseHandler
	catalog *catalog.Service
	batches *batch.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, catalog *catalog.Service, batches *batch.Service) *ProductHandler {
	return &ProductHandler{
		BaseHandler: base,
		catalog:     catalog,
		batches:     batches,
	}
}

// Create handles POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.catalog.CreateProduct(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromProduct(p))
}

// Get handles GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.catalog.GetProduct(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(p))
}

// GetByBarcode handles GET /products/barcode/:code
func (h *ProductHandler) GetByBarcode(c *gin.Context) {
	p, err := h.catalog.GetByBarcode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(p))
}

// List handles GET /products
func (h *ProductHandler) List(c *gin.Context) {
	var q dto.ProductListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.catalog.ListProducts(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result, dto.FromProduct))
}

// CreateBatch handles POST /products/:id/batches
func (h *ProductHandler) CreateBatch(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := h.batches.CreateBatch(c.Request.Context(), req.ToInput(productID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromBatch(b))
}

// ListBatches handles GET /products/:id/batches
func (h *ProductHandler) ListBatches(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.catalog.GetProduct(ctx, productID); err != nil {
		h.Error(c, err)
		return
	}
	batches, err := h.batches.ListBatches(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": dto.FromBatches(batches)})
}
