package app

import (
	"context"
	"fmt"

	"tillpoint/internal/config"
	"tillpoint/internal/domain"
	"tillpoint/internal/infrastructure/idempotency"
	"tillpoint/internal/infrastructure/storage/memory"
	"tillpoint/internal/infrastructure/storage/postgres"
)

// Runtime is an opened store with services wired over it.
type Runtime struct {
	Services    *Services
	Idempotency idempotency.Store

	// Pool and TxManager are nil for the memory driver.
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
}

// Open connects the configured store and builds the services over it.
func Open(ctx context.Context, cfg config.Config) (*Runtime, error) {
	clock := domain.SystemClock

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		st := memory.NewStore()
		return &Runtime{
			Services:    NewServices(MemoryRepositories(st, clock), Options{Clock: clock}),
			Idempotency: st.Idempotency(cfg.Idempotency.TTL, clock),
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Storage.DatabaseURL, cfg.Storage.MaxConns))
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}

		txOpts := postgres.DefaultTxOptions()
		txOpts.StatementTimeout = cfg.Tx.StatementTimeout
		txOpts.MaxAttempts = cfg.Tx.MaxRetries + 1
		txm := postgres.NewTxManager(pool, txOpts)

		auditLog, err := postgres.NewAuditLog(txm, cfg.AuditCompressThreshold)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("create audit log: %w", err)
		}

		return &Runtime{
			Services:    NewServices(PostgresRepositories(txm, auditLog), Options{Clock: clock}),
			Idempotency: postgres.NewIdempotencyStore(txm, cfg.Idempotency.TTL),
			Pool:        pool,
			TxManager:   txm,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// Ready reports whether the store accepts queries. Memory is always ready.
func (r *Runtime) Ready(ctx context.Context) error {
	if r.Pool == nil {
		return nil
	}
	return r.Pool.Ready(ctx)
}

// Close releases the database pool.
func (r *Runtime) Close() {
	if r.Pool != nil {
		r.Pool.Close()
	}
}
