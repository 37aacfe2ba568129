package memory

import (
	"context"
	"slices"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/batch"
)

// BatchRepo implements batch.Repository.
type BatchRepo struct {
	s *Store
}

var _ batch.Repository = (*BatchRepo)(nil)

// Batches returns the batch repository.
func (s *Store) Batches() *BatchRepo {
	return &BatchRepo{s: s}
}

func (r *BatchRepo) Create(ctx context.Context, b *batch.Batch) error {
	return r.s.update(ctx, func(st *state) error {
		if _, ok := st.products[b.ProductID]; !ok {
			return apperror.NewProductNotFound(b.ProductID.String())
		}
		for _, other := range st.batches {
			if other.ProductID == b.ProductID && other.Code == b.Code {
				return apperror.NewDuplicate("batch", "code", b.Code)
			}
		}
		st.batches[b.ID] = *b
		return nil
	})
}

func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	var (
		b  batch.Batch
		ok bool
	)
	r.s.view(ctx, func(st *state) {
		b, ok = st.batches[batchID]
	})
	if !ok {
		return nil, apperror.NewBatchNotFound(batchID.String())
	}
	return &b, nil
}

// LockForUpdate returns copies of the batches. Store transactions are already exclusive.
func (r *BatchRepo) LockForUpdate(ctx context.Context, batchIDs []id.ID) (map[id.ID]*batch.Batch, error) {
	out := make(map[id.ID]*batch.Batch, len(batchIDs))
	var missing *id.ID
	r.s.view(ctx, func(st *state) {
		for _, bid := range id.SortedUnique(batchIDs) {
			b, ok := st.batches[bid]
			if !ok {
				missing = &bid
				return
			}
			out[bid] = &b
		}
	})
	if missing != nil {
		return nil, apperror.NewBatchNotFound(missing.String())
	}
	return out, nil
}

func (r *BatchRepo) UpdateQuantity(ctx context.Context, batchID id.ID, quantity types.Quantity, now time.Time) error {
	return r.s.update(ctx, func(st *state) error {
		b, ok := st.batches[batchID]
		if !ok {
			return apperror.NewBatchNotFound(batchID.String())
		}
		b.Quantity = quantity
		b.Touch(now)
		st.batches[batchID] = b
		return nil
	})
}

func (r *BatchRepo) UpdatePricing(ctx context.Context, b *batch.Batch) error {
	return r.s.update(ctx, func(st *state) error {
		current, ok := st.batches[b.ID]
		if !ok {
			return apperror.NewBatchNotFound(b.ID.String())
		}
		current.CostPrice = b.CostPrice
		current.SellingPrice = b.SellingPrice
		current.MRP = b.MRP
		current.Version = b.Version
		current.UpdatedAt = b.UpdatedAt
		st.batches[b.ID] = current
		return nil
	})
}

func (r *BatchRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*batch.Batch, error) {
	var out []*batch.Batch
	r.s.view(ctx, func(st *state) {
		for _, b := range st.batches {
			if b.ProductID == productID {
				b := b
				out = append(out, &b)
			}
		}
	})
	// UUIDv7 ids sort by creation.
	slices.SortFunc(out, func(a, b *batch.Batch) int { return id.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *BatchRepo) CodeExists(ctx context.Context, productID id.ID, code string) (bool, error) {
	var exists bool
	r.s.view(ctx, func(st *state) {
		for _, b := range st.batches {
			if b.ProductID == productID && b.Code == code {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r *BatchRepo) CountByProduct(ctx context.Context, productID id.ID) (int, error) {
	var n int
	r.s.view(ctx, func(st *state) {
		for _, b := range st.batches {
			if b.ProductID == productID {
				n++
			}
		}
	})
	return n, nil
}
