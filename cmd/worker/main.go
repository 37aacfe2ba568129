// Package main is the entry point for the till background worker.
// It relays outbox events and expires idempotency keys.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tillpoint/internal/app"
	"tillpoint/internal/config"
	"tillpoint/internal/infrastructure/idempotency"
	"tillpoint/internal/infrastructure/storage/postgres"
	"tillpoint/pkg/logger"
)

// Published outbox rows are kept this long for inspection.
const publishedRetention = 7 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if cfg.Storage.Driver != config.DriverPostgres {
		log.Fatalw("worker requires the postgres driver", "driver", cfg.Storage.Driver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithLogger(ctx, log)

	log.Info("starting till worker")

	rt, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer rt.Close()

	relay := postgres.NewOutboxRelay(rt.TxManager, cfg.Outbox.BatchSize, postgres.LogHandler{})
	worker := NewWorker(relay, rt.Idempotency, rt.Pool, cfg.Outbox.PollInterval, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker runs the periodic background jobs.
type Worker struct {
	relay        *postgres.OutboxRelay
	idempotency  idempotency.Store
	pool         *postgres.Pool
	pollInterval time.Duration
	log          *logger.Logger
}

func NewWorker(relay *postgres.OutboxRelay, idem idempotency.Store, pool *postgres.Pool, pollInterval time.Duration, log *logger.Logger) *Worker {
	return &Worker{
		relay:        relay,
		idempotency:  idem,
		pool:         pool,
		pollInterval: pollInterval,
		log:          log.WithComponent("worker"),
	}
}

// Run polls the outbox until ctx is done. Maintenance runs hourly.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		case <-cleanupTicker.C:
			w.moveFailed(ctx)
			w.purgePublished(ctx)
			w.cleanupIdempotency(ctx)
			postgres.LogPoolStats(ctx, w.pool)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	count, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		w.log.Errorw("outbox batch failed", "error", err)
		return
	}
	if count > 0 {
		w.log.Debugw("processed outbox batch", "count", count)
	}
}

func (w *Worker) moveFailed(ctx context.Context) {
	moved, err := w.relay.MoveToDLQ(ctx)
	if err != nil {
		w.log.Errorw("move failed outbox messages", "error", err)
		return
	}
	if moved > 0 {
		w.log.Warnw("outbox messages moved to dead letter queue", "count", moved)
	}
}

func (w *Worker) purgePublished(ctx context.Context) {
	purged, err := w.relay.PurgePublished(ctx, time.Now().UTC().Add(-publishedRetention))
	if err != nil {
		w.log.Errorw("purge published outbox", "error", err)
		return
	}
	if purged > 0 {
		w.log.Infow("purged published outbox messages", "count", purged)
	}
}

func (w *Worker) cleanupIdempotency(ctx context.Context) {
	removed, err := w.idempotency.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("cleanup idempotency keys", "error", err)
		return
	}
	if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}
}
