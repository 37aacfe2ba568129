// Package app wires repositories into domain services.
// Both storage drivers produce a Repositories value; everything above it is shared.
package app

import (
	"time"

	"tillpoint/internal/core/numerator"
	"tillpoint/internal/core/tx"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/audit"
	"tillpoint/internal/domain/batch"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/ledger"
	"tillpoint/internal/domain/promotion"
	"tillpoint/internal/domain/refund"
	"tillpoint/internal/domain/reports"
	"tillpoint/internal/domain/sale"
	"tillpoint/internal/infrastructure/storage/memory"
)

// Repositories is the storage surface the services need.
type Repositories struct {
	TxManager    tx.Manager
	Products     catalog.Repository
	ProductLocks batch.ProductReader
	Batches      batch.Repository
	Movements    ledger.Repository
	Sales        sale.Repository
	Returns      refund.Repository
	Promotions   promotion.Repository
	Reports      reports.Repository
	Numerator    numerator.Generator
	Audit        audit.Recorder
	Events       domain.EventPublisher
}

// Services holds the domain services.
type Services struct {
	Catalog    *catalog.Service
	Ledger     *ledger.Service
	Batches    *batch.Service
	Promotions *promotion.Service
	Sales      *sale.Service
	Returns    *refund.Service
	Reports    *reports.Service
}

// Options tune service construction.
type Options struct {
	Clock domain.Clock
	// Location buckets daily movement summaries. UTC when nil.
	Location *time.Location
}

// NewServices builds every domain service over repos.
func NewServices(repos Repositories, opts Options) *Services {
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock
	}

	ledgerSvc := ledger.NewService(repos.Movements, opts.Location)
	batchSvc := batch.NewService(batch.Config{
		Repo:      repos.Batches,
		Products:  repos.ProductLocks,
		Ledger:    ledgerSvc,
		TxManager: repos.TxManager,
		Numerator: repos.Numerator,
		Audit:     repos.Audit,
		Events:    repos.Events,
		Clock:     opts.Clock,
	})
	promotionSvc := promotion.NewService(repos.Promotions, repos.TxManager, opts.Clock)

	return &Services{
		Catalog:    catalog.NewService(repos.Products, repos.TxManager, opts.Clock),
		Ledger:     ledgerSvc,
		Batches:    batchSvc,
		Promotions: promotionSvc,
		Sales: sale.NewService(sale.Config{
			Repo:       repos.Sales,
			Batches:    batchSvc,
			Promotions: promotionSvc,
			TxManager:  repos.TxManager,
			Numerator:  repos.Numerator,
			Events:     repos.Events,
			Clock:      opts.Clock,
		}),
		Returns: refund.NewService(refund.Config{
			Repo:      repos.Returns,
			Sales:     repos.Sales,
			Batches:   batchSvc,
			TxManager: repos.TxManager,
			Events:    repos.Events,
			Clock:     opts.Clock,
		}),
		Reports: reports.NewService(repos.Reports, opts.Clock),
	}
}

// MemoryRepositories exposes an in-memory store as Repositories.
func MemoryRepositories(st *memory.Store, clock domain.Clock) Repositories {
	products := st.Products()
	return Repositories{
		TxManager:    st,
		Products:     products,
		ProductLocks: products,
		Batches:      st.Batches(),
		Movements:    st.Movements(),
		Sales:        st.Sales(),
		Returns:      st.Returns(),
		Promotions:   st.Promotions(),
		Reports:      st.Reports(),
		Numerator:    st.Sequences(),
		Audit:        st.Audit(clock),
		Events:       st.Outbox(),
	}
}
