package ledger

import (
	"context"
	"fmt"
	"iter"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
)

// Service reads and appends stock movements.
type Service struct {
	repo Repository
	loc  *time.Location
}

// NewService creates a ledger service. Daily buckets use loc (UTC when nil).
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc}
}

// AppendInput describes a movement to record.
type AppendInput struct {
	BatchID    id.ID
	ProductID  id.ID
	Delta      types.Quantity
	Type       MovementType
	OccurredAt time.Time
	Note       *string
	SaleItemID *id.ID
}

// Append validates and records a movement.
// Only the batch store calls this, in the same transaction as the quantity change.
func (s *Service) Append(ctx context.Context, in AppendInput) (*Movement, error) {
	if err := ValidateDelta(in.Type, in.Delta); err != nil {
		return nil, err
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = domain.SystemClock()
	}
	m := &Movement{
		ID:         id.New(),
		BatchID:    in.BatchID,
		ProductID:  in.ProductID,
		Delta:      in.Delta,
		Type:       in.Type,
		OccurredAt: in.OccurredAt.UTC(),
		Note:       in.Note,
		SaleItemID: in.SaleItemID,
	}
	if err := s.repo.Append(ctx, m); err != nil {
		return nil, fmt.Errorf("append movement: %w", err)
	}
	return m, nil
}

// QueryRange yields movements of a product in [start, end) in ascending time order.
func (s *Service) QueryRange(ctx context.Context, productID id.ID, start, end time.Time) iter.Seq2[Movement, error] {
	return s.repo.Range(ctx, RangeFilter{ProductID: &productID, From: start, To: end})
}

// Summarize totals a product's movements in [start, end).
func (s *Service) Summarize(ctx context.Context, productID id.ID, start, end time.Time) (Summary, error) {
	if err := checkRange(start, end); err != nil {
		return Summary{}, err
	}
	return s.summarize(ctx, RangeFilter{ProductID: &productID, From: start, To: end})
}

// SummarizeBatch totals one batch's movements in [start, end).
// With an unbounded range, Net equals quantity minus initial quantity.
func (s *Service) SummarizeBatch(ctx context.Context, batchID id.ID, start, end time.Time) (Summary, error) {
	if err := checkRange(start, end); err != nil {
		return Summary{}, err
	}
	return s.summarize(ctx, RangeFilter{BatchID: &batchID, From: start, To: end})
}

func (s *Service) summarize(ctx context.Context, filter RangeFilter) (Summary, error) {
	var sum Summary
	for m, err := range s.repo.Range(ctx, filter) {
		if err != nil {
			return Summary{}, fmt.Errorf("read movements: %w", err)
		}
		sum.Add(m)
	}
	return sum, nil
}

// SummarizeByDay returns one row per calendar day with movements, ascending by date.
func (s *Service) SummarizeByDay(ctx context.Context, productID id.ID, start, end time.Time) ([]DailySummary, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}

	var days []DailySummary
	for m, err := range s.QueryRange(ctx, productID, start, end) {
		if err != nil {
			return nil, fmt.Errorf("read movements: %w", err)
		}
		day := s.dayOf(m.OccurredAt)
		// Input is time-ordered, so a new day always appends.
		if n := len(days); n == 0 || !days[n-1].Date.Equal(day) {
			days = append(days, DailySummary{Date: day})
		}
		days[len(days)-1].Add(m)
	}
	return days, nil
}

func (s *Service) dayOf(t time.Time) time.Time {
	y, mo, d := t.In(s.loc).Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, s.loc)
}

func checkRange(start, end time.Time) error {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return apperror.NewValidation("range end is before start").
			WithDetail("start", start).
			WithDetail("end", end)
	}
	return nil
}
