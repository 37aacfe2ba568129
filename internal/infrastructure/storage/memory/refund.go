package memory

import (
	"context"
	"slices"

	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/refund"
)

// ReturnRepo implements refund.Repository.
type ReturnRepo struct {
	s *Store
}

var _ refund.Repository = (*ReturnRepo)(nil)

// Returns returns the return repository.
func (s *Store) Returns() *ReturnRepo {
	return &ReturnRepo{s: s}
}

func (r *ReturnRepo) Create(ctx context.Context, ret *refund.Return) error {
	return r.s.update(ctx, func(st *state) error {
		stored := *ret
		stored.Items = slices.Clone(ret.Items)
		st.returns = append(st.returns, stored)
		return nil
	})
}

func (r *ReturnRepo) ListBySale(ctx context.Context, saleID id.ID) ([]*refund.Return, error) {
	var out []*refund.Return
	r.s.view(ctx, func(st *state) {
		for _, ret := range st.returns {
			if ret.SaleID == saleID {
				ret := ret
				ret.Items = slices.Clone(ret.Items)
				out = append(out, &ret)
			}
		}
	})
	return out, nil
}
