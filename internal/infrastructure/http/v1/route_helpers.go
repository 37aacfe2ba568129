package v1

import (
	"github.com/gin-gonic/gin"

	"tillpoint/internal/app"
	"tillpoint/internal/domain"
	"tillpoint/internal/infrastructure/http/v1/handlers"
)

// registerProductRoutes registers the catalog, batch creation and movement history of products.
func registerProductRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	products := handlers.NewProductHandler(base, svc.Catalog, svc.Batches)
	ledger := handlers.NewLedgerHandler(base, svc.Ledger, svc.Catalog)

	group := rg.Group("/products")
	group.POST("", products.Create)
	group.GET("", products.List)
	group.GET("/barcode/:code", products.GetByBarcode)
	group.GET("/:id", products.Get)
	group.POST("/:id/batches", products.CreateBatch)
	group.GET("/:id/batches", products.ListBatches)
	group.GET("/:id/movements", ledger.Movements)
	group.GET("/:id/summary", ledger.Summary)
	group.GET("/:id/summary/daily", ledger.DailySummary)
}

// registerBatchRoutes registers stock and pricing operations on one batch.
func registerBatchRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	h := handlers.NewBatchHandler(base, svc.Batches)

	group := rg.Group("/batches")
	group.GET("/:id", h.Get)
	group.GET("/:id/history", h.History)
	group.PUT("/:id/pricing", h.UpdatePricing)
	group.POST("/:id/add-stock", h.AddStock)
	group.POST("/:id/adjust", h.Adjust)
}

// registerSaleRoutes registers sales and their returns.
func registerSaleRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	h := handlers.NewSaleHandler(base, svc.Sales, svc.Returns)

	group := rg.Group("/sales")
	group.POST("", h.Create)
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("/:id/returns", h.CreateReturn)
	group.GET("/:id/returns", h.ListReturns)
}

// registerPromotionRoutes registers promotions and price resolution.
func registerPromotionRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services, clock domain.Clock) {
	h := handlers.NewPromotionHandler(base, svc.Promotions, clock)

	group := rg.Group("/promotions")
	group.POST("", h.Create)
	group.GET("", h.List)
	group.GET("/resolve", h.Resolve)
	group.GET("/:id", h.Get)
	group.PATCH("/:id/active", h.SetActive)
}

// registerReportRoutes registers report endpoints.
func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	h := handlers.NewReportsHandler(base, svc.Reports)

	group := rg.Group("/reports")
	group.GET("/low-stock", h.LowStock)
	group.GET("/expiring", h.Expiring)
	group.GET("/valuation", h.Valuation)
	group.GET("/daily-sales", h.DailySales)
}
