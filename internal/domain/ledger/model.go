// Package ledger provides the append-only stock movement log.
// Movements are never edited or deleted; history and summaries are rebuilt from them.
package ledger

import (
	"fmt"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
)

// MovementType is the reason for a quantity change.
type MovementType string

const (
	MovementAdded         MovementType = "added"
	MovementSold          MovementType = "sold"
	MovementReturned      MovementType = "returned"
	MovementAdjustmentIn  MovementType = "adjustment_in"
	MovementAdjustmentOut MovementType = "adjustment_out"
)

// IsValid reports whether t is a known movement type.
func (t MovementType) IsValid() bool {
	switch t {
	case MovementAdded, MovementSold, MovementReturned, MovementAdjustmentIn, MovementAdjustmentOut:
		return true
	}
	return false
}

// IsInbound reports whether the type increases stock.
func (t MovementType) IsInbound() bool {
	return t == MovementAdded || t == MovementReturned || t == MovementAdjustmentIn
}

// ValidateDelta enforces the sign convention: inbound positive, outbound negative, never zero.
func ValidateDelta(t MovementType, delta types.Quantity) error {
	if !t.IsValid() {
		return apperror.NewInvalidMovement(fmt.Sprintf("unknown movement type %q", t)).
			WithDetail("type", string(t))
	}
	if delta.IsZero() {
		return apperror.NewInvalidMovement("movement delta must not be zero").
			WithDetail("type", string(t))
	}
	if t.IsInbound() != delta.IsPositive() {
		return apperror.NewInvalidMovement(fmt.Sprintf("delta sign does not match movement type %q", t)).
			WithDetail("type", string(t)).
			WithDetail("delta", delta.Int64())
	}
	return nil
}

// Movement is one immutable quantity change on a batch.
type Movement struct {
	ID         id.ID          `db:"id" json:"id"`
	BatchID    id.ID          `db:"batch_id" json:"batchId"`
	ProductID  id.ID          `db:"product_id" json:"productId"`
	Delta      types.Quantity `db:"delta" json:"delta"`
	Type       MovementType   `db:"movement_type" json:"type"`
	OccurredAt time.Time      `db:"occurred_at" json:"occurredAt"`
	Note       *string        `db:"note" json:"note,omitempty"`
	SaleItemID *id.ID         `db:"sale_item_id" json:"saleItemId,omitempty"`
}

// RangeFilter selects movements. Zero From/To leave that side unbounded.
// The range is half-open: From <= occurred_at < To.
type RangeFilter struct {
	ProductID *id.ID
	BatchID   *id.ID
	From      time.Time
	To        time.Time
}

// Contains reports whether m falls inside the filter.
func (f RangeFilter) Contains(m Movement) bool {
	if f.ProductID != nil && m.ProductID != *f.ProductID {
		return false
	}
	if f.BatchID != nil && m.BatchID != *f.BatchID {
		return false
	}
	if !f.From.IsZero() && m.OccurredAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !m.OccurredAt.Before(f.To) {
		return false
	}
	return true
}

// Summary aggregates movements by type. Outbound totals are reported as magnitudes.
type Summary struct {
	Added         types.Quantity `json:"added"`
	Sold          types.Quantity `json:"sold"`
	Returned      types.Quantity `json:"returned"`
	AdjustmentIn  types.Quantity `json:"adjustmentIn"`
	AdjustmentOut types.Quantity `json:"adjustmentOut"`
	Net           types.Quantity `json:"net"`
	Movements     int            `json:"movements"`
}

// Add folds one movement into the summary.
func (s *Summary) Add(m Movement) {
	switch m.Type {
	case MovementAdded:
		s.Added += m.Delta
	case MovementSold:
		s.Sold += m.Delta.Abs()
	case MovementReturned:
		s.Returned += m.Delta
	case MovementAdjustmentIn:
		s.AdjustmentIn += m.Delta
	case MovementAdjustmentOut:
		s.AdjustmentOut += m.Delta.Abs()
	}
	s.Net = s.Added + s.Returned + s.AdjustmentIn - s.Sold - s.AdjustmentOut
	s.Movements++
}

// DailySummary is a Summary for one calendar day.
type DailySummary struct {
	Date time.Time `json:"date"`
	Summary
}
