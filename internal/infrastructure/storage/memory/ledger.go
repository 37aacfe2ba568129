package memory

import (
	"context"
	"iter"
	"slices"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/ledger"
)

// MovementRepo implements ledger.Repository.
type MovementRepo struct {
	s *Store
}

var _ ledger.Repository = (*MovementRepo)(nil)

// Movements returns the movement repository.
func (s *Store) Movements() *MovementRepo {
	return &MovementRepo{s: s}
}

func (r *MovementRepo) Append(ctx context.Context, m *ledger.Movement) error {
	if !inTx(ctx) {
		return apperror.NewInternal(errNoTx("append movement"))
	}
	return r.s.update(ctx, func(st *state) error {
		st.movements = append(st.movements, *m)
		return nil
	})
}

// Range copies the matching movements on first pull, then yields them one by one.
func (r *MovementRepo) Range(ctx context.Context, filter ledger.RangeFilter) iter.Seq2[ledger.Movement, error] {
	return func(yield func(ledger.Movement, error) bool) {
		var matched []ledger.Movement
		r.s.view(ctx, func(st *state) {
			for _, m := range st.movements {
				if filter.Contains(m) {
					matched = append(matched, m)
				}
			}
		})
		slices.SortStableFunc(matched, func(a, b ledger.Movement) int {
			if c := a.OccurredAt.Compare(b.OccurredAt); c != 0 {
				return c
			}
			return id.Compare(a.ID, b.ID)
		})
		for _, m := range matched {
			if !yield(m, nil) {
				return
			}
		}
	}
}
