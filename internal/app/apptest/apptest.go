// Package apptest builds services over a fresh in-memory store for tests.
package apptest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tillpoint/internal/app"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/batch"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/pricing"
	"tillpoint/internal/infrastructure/storage/memory"
)

// Clock is a settable clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now.UTC()}
}

// Now returns the current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Env is a wired set of services over one memory store.
type Env struct {
	*app.Services

	Store *memory.Store
	Repos app.Repositories
	Clock *Clock
}

// Start is the default clock start: 2026-03-10 09:00 UTC.
var Start = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

// New builds an Env with the clock at Start.
func New(t testing.TB) *Env {
	t.Helper()
	clock := NewClock(Start)
	st := memory.NewStore()
	repos := app.MemoryRepositories(st, clock.Now)
	return &Env{
		Services: app.NewServices(repos, app.Options{Clock: clock.Now}),
		Store:    st,
		Repos:    repos,
		Clock:    clock,
	}
}

// M parses a money literal.
func M(s string) types.Money { return types.MustMoney(s) }

// Product creates a batch-tracked product with a generated barcode.
func (e *Env) Product(t testing.TB, name string) *catalog.Product {
	t.Helper()
	return e.ProductWith(t, catalog.CreateProductInput{Name: name, BatchTrackingEnabled: true})
}

// ProductWith creates a product, filling in a barcode when none is given.
func (e *Env) ProductWith(t testing.TB, in catalog.CreateProductInput) *catalog.Product {
	t.Helper()
	if len(in.Barcodes) == 0 {
		in.Barcodes = []string{id.New().String()}
	}
	p, err := e.Catalog.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	return p
}

// BatchTerms are the price fields of a test batch.
type BatchTerms struct {
	Quantity  types.Quantity
	Cost      string
	Selling   string
	MRP       string
	Wholesale *pricing.Wholesale
	Expiry    *time.Time
}

// Batch creates a batch with an auto-generated code.
func (e *Env) Batch(t testing.TB, productID id.ID, terms BatchTerms) *batch.Batch {
	t.Helper()
	b, err := e.Batches.CreateBatch(context.Background(), batch.CreateInput{
		ProductID:    productID,
		Quantity:     terms.Quantity,
		CostPrice:    M(terms.Cost),
		SellingPrice: M(terms.Selling),
		MRP:          M(terms.MRP),
		ExpiryDate:   terms.Expiry,
		Wholesale:    terms.Wholesale,
	})
	require.NoError(t, err)
	return b
}

// Quantity reads a batch's current quantity.
func (e *Env) Quantity(t testing.TB, batchID id.ID) types.Quantity {
	t.Helper()
	b, err := e.Batches.GetBatch(context.Background(), batchID)
	require.NoError(t, err)
	return b.Quantity
}
