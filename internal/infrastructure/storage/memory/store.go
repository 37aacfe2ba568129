// Package memory provides an in-process implementation of every repository and tx.Manager.
// Transactions are serialized by one lock and roll back by restoring a snapshot,
// so it keeps the same all-or-nothing behavior as the PostgreSQL store.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/tx"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/audit"
	"tillpoint/internal/domain/batch"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/ledger"
	"tillpoint/internal/domain/promotion"
	"tillpoint/internal/domain/refund"
	"tillpoint/internal/domain/sale"
)

// state is everything the store holds. Values are stored by copy and
// replaced whole on update, so a shallow clone is a consistent snapshot.
type state struct {
	products   map[id.ID]catalog.Product
	barcodes   map[string]id.ID
	batches    map[id.ID]batch.Batch
	movements  []ledger.Movement
	sales      map[id.ID]sale.Sale
	saleItems  map[id.ID]sale.Item
	saleLines  map[id.ID][]id.ID
	returns    []refund.Return
	promotions map[id.ID]promotion.Promotion
	outbox     []domain.DomainEvent
	audit      []audit.Entry
	sequences  map[string]int64
	idem       map[string]idempotencyRecord
}

func newState() *state {
	return &state{
		products:   make(map[id.ID]catalog.Product),
		barcodes:   make(map[string]id.ID),
		batches:    make(map[id.ID]batch.Batch),
		sales:      make(map[id.ID]sale.Sale),
		saleItems:  make(map[id.ID]sale.Item),
		saleLines:  make(map[id.ID][]id.ID),
		promotions: make(map[id.ID]promotion.Promotion),
		sequences:  make(map[string]int64),
		idem:       make(map[string]idempotencyRecord),
	}
}

func (s *state) clone() *state {
	return &state{
		products:   maps.Clone(s.products),
		barcodes:   maps.Clone(s.barcodes),
		batches:    maps.Clone(s.batches),
		movements:  slices.Clone(s.movements),
		sales:      maps.Clone(s.sales),
		saleItems:  maps.Clone(s.saleItems),
		saleLines:  maps.Clone(s.saleLines),
		returns:    slices.Clone(s.returns),
		promotions: maps.Clone(s.promotions),
		outbox:     slices.Clone(s.outbox),
		audit:      slices.Clone(s.audit),
		sequences:  maps.Clone(s.sequences),
		idem:       maps.Clone(s.idem),
	}
}

// Store is the in-memory database.
type Store struct {
	mu sync.RWMutex
	st *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Compile-time check that Store implements the transaction contracts.
var (
	_ tx.Manager         = (*Store)(nil)
	_ tx.ReadOnlyManager = (*Store)(nil)
)

// txKey marks a context running inside a store transaction.
type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// RunInTransaction runs fn with exclusive access to the store.
// Nested calls reuse the outer transaction. Any error or panic restores the snapshot.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
		s.mu.Unlock()
	}()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		return err
	}
	committed = true
	return nil
}

// ReadOnly runs fn as a transaction. Writes are not prevented.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

// view runs fn with read access.
func (s *Store) view(ctx context.Context, fn func(st *state)) {
	if inTx(ctx) {
		fn(s.st)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

// update runs fn with write access. Outside a transaction a failed fn is not rolled back,
// so callers validate before mutating.
func (s *Store) update(ctx context.Context, fn func(st *state) error) error {
	if inTx(ctx) {
		return fn(s.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}
