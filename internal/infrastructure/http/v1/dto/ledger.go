package dto

import (
	"time"

	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/ledger"
)

// MovementResponse is one ledger entry.
type MovementResponse struct {
	ID         string              `json:"id"`
	BatchID    string              `json:"batchId"`
	ProductID  string              `json:"productId"`
	Delta      types.Quantity      `json:"delta"`
	Type       ledger.MovementType `json:"type"`
	OccurredAt time.Time           `json:"occurredAt"`
	Note       *string             `json:"note,omitempty"`
	SaleItemID *string             `json:"saleItemId,omitempty"`
}

// FromMovement converts a movement.
func FromMovement(m ledger.Movement) MovementResponse {
	resp := MovementResponse{
		ID:         m.ID.String(),
		BatchID:    m.BatchID.String(),
		ProductID:  m.ProductID.String(),
		Delta:      m.Delta,
		Type:       m.Type,
		OccurredAt: m.OccurredAt,
		Note:       m.Note,
	}
	if m.SaleItemID != nil {
		s := m.SaleItemID.String()
		resp.SaleItemID = &s
	}
	return resp
}

// MovementListResponse wraps a movement range.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
}

// SummaryResponse is a period summary for a product.
type SummaryResponse struct {
	ProductID string         `json:"productId"`
	From      *time.Time     `json:"from,omitempty"`
	To        *time.Time     `json:"to,omitempty"`
	Summary   ledger.Summary `json:"summary"`
}

// DailySummaryResponse lists per-day summaries.
type DailySummaryResponse struct {
	ProductID string                `json:"productId"`
	Days      []ledger.DailySummary `json:"days"`
}

// TimePtr returns nil for the zero time.
func TimePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
