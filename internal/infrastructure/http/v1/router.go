// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"tillpoint/internal/app"
	"tillpoint/internal/domain"
	"tillpoint/internal/infrastructure/http/v1/handlers"
	"tillpoint/internal/infrastructure/http/v1/middleware"
	"tillpoint/internal/infrastructure/idempotency"
	"tillpoint/pkg/logger"
)

func init() {
	// Request DTOs reject fields they do not declare.
	binding.EnableDecoderDisallowUnknownFields = true
}

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Services are the wired domain services.
	Services *app.Services

	// Logger for request logging
	Logger *logger.Logger

	// Storage names the backing store in readiness output ("postgres", "memory").
	Storage string

	// Readiness is checked by /health/ready. Nil means always ready.
	Readiness handlers.ReadinessChecker

	// Idempotency enables X-Idempotency-Key handling on mutating routes when set.
	Idempotency idempotency.Store

	// RateLimiter throttles mutating routes when set.
	RateLimiter *middleware.RateLimiter

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string

	// Clock supplies "today" for date defaults.
	Clock domain.Clock

	// Debug switches gin to debug mode.
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Storage, cfg.Readiness)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Operator())
	if cfg.RateLimiter != nil {
		v1.Use(cfg.RateLimiter.Middleware())
	}
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerProductRoutes(v1, base, cfg.Services)
	registerBatchRoutes(v1, base, cfg.Services)
	registerSaleRoutes(v1, base, cfg.Services)
	registerPromotionRoutes(v1, base, cfg.Services, cfg.Clock)
	registerReportRoutes(v1, base, cfg.Services)

	return router
}
