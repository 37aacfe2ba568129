// Package numerator provides domain contracts for auto-numbering.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
	"time"
)

// Generator generates sequential numbers for sales and batch codes.
type Generator interface {
	// GetNextNumber generates the next number.
	// Pattern: PREFIX[-YEAR]-XXXXX (e.g., S-2026-00001, B-00003)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the current sequence value (for migration purposes).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
