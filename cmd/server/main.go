// Package main is the entry point for the till API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tillpoint/internal/app"
	"tillpoint/internal/config"
	"tillpoint/internal/domain"
	v1 "tillpoint/internal/infrastructure/http/v1"
	"tillpoint/internal/infrastructure/http/v1/middleware"
	"tillpoint/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithLogger(ctx, log)

	log.Infow("starting till server", "storage", cfg.Storage.Driver, "env", cfg.Env)

	// --- Storage and services ---
	rt, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
	}
	defer rt.Close()
	if err := rt.Ready(ctx); err != nil {
		log.Fatalw("storage not ready", "error", err)
	}
	log.Infow("storage ready", "driver", cfg.Storage.Driver)

	// --- Rate limiter ---
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RPS,
		BurstSize:         cfg.RateLimit.Burst,
	})
	go limiter.Run(ctx)

	// --- Router ---
	routerCfg := v1.RouterConfig{
		Services:    rt.Services,
		Logger:      log,
		Storage:     cfg.Storage.Driver,
		Readiness:   rt,
		RateLimiter: limiter,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Clock:       domain.SystemClock,
		Debug:       cfg.IsDevelopment(),
	}
	if cfg.Idempotency.Enabled {
		routerCfg.Idempotency = rt.Idempotency
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "addr", server.Addr, "idempotency", cfg.Idempotency.Enabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	cancel()

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
