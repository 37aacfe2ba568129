package ledger

import (
	"context"
	"iter"
)

// Repository persists movements. There is no update or delete.
type Repository interface {
	// Append inserts one movement. Must run inside the transaction that changed the quantity.
	Append(ctx context.Context, m *Movement) error

	// Range yields matching movements ordered by occurred_at, then id.
	// The sequence is lazy; stopping early releases the underlying cursor.
	Range(ctx context.Context, filter RangeFilter) iter.Seq2[Movement, error]
}
