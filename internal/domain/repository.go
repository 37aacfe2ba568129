// Package domain provides business contracts shared by the domain packages.
package domain

import (
	"context"
	"time"

	"tillpoint/internal/core/id"
)

// --- Pagination ---

// ListFilter contains common pagination options for list operations.
type ListFilter struct {
	Limit  int
	Offset int
}

// Normalize clamps limit/offset into the accepted range.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// Page slices items according to filter. Used by in-memory repositories.
func Page[T any](items []T, filter ListFilter) ListResult[T] {
	filter = filter.Normalize()
	total := len(items)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	return ListResult[T]{
		Items:      items[start:end],
		TotalCount: int64(total),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
}

// --- Events ---

// Event types written to the transactional outbox.
const (
	EventSaleRecorded    = "SaleRecorded"
	EventReturnProcessed = "ReturnProcessed"
	EventStockAdjusted   = "StockAdjusted"
	EventBatchCreated    = "BatchCreated"
)

// DomainEvent represents an event to be published via outbox.
type DomainEvent struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher writes events atomically with the surrounding transaction.
type EventPublisher interface {
	// Publish MUST be called inside a transaction context.
	Publish(ctx context.Context, event DomainEvent) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, DomainEvent) error { return nil }

// --- Time ---

// Clock returns the current time. Services take it so tests can pin dates.
type Clock func() time.Time

// SystemClock returns time.Now in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
