package memory

import (
	"context"
	"slices"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/sale"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	s *Store
}

var _ sale.Repository = (*SaleRepo)(nil)

// Sales returns the sale repository.
func (s *Store) Sales() *SaleRepo {
	return &SaleRepo{s: s}
}

func (r *SaleRepo) Create(ctx context.Context, sl *sale.Sale) error {
	return r.s.update(ctx, func(st *state) error {
		header := *sl
		header.Items = nil
		st.sales[sl.ID] = header

		lines := make([]id.ID, 0, len(sl.Items))
		for _, it := range sl.Items {
			st.saleItems[it.ID] = *it
			lines = append(lines, it.ID)
		}
		st.saleLines[sl.ID] = lines
		return nil
	})
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	var out *sale.Sale
	r.s.view(ctx, func(st *state) {
		header, ok := st.sales[saleID]
		if !ok {
			return
		}
		out = &header
		for _, itemID := range st.saleLines[saleID] {
			it := st.saleItems[itemID]
			out.Items = append(out.Items, &it)
		}
	})
	if out == nil {
		return nil, apperror.NewSaleNotFound(saleID.String())
	}
	return out, nil
}

// LockItems returns copies ordered by id. Store transactions are already exclusive.
func (r *SaleRepo) LockItems(ctx context.Context, saleID id.ID) ([]*sale.Item, error) {
	var (
		items []*sale.Item
		found bool
	)
	r.s.view(ctx, func(st *state) {
		if _, found = st.sales[saleID]; !found {
			return
		}
		for _, itemID := range st.saleLines[saleID] {
			it := st.saleItems[itemID]
			items = append(items, &it)
		}
	})
	if !found {
		return nil, apperror.NewSaleNotFound(saleID.String())
	}
	slices.SortFunc(items, func(a, b *sale.Item) int { return id.Compare(a.ID, b.ID) })
	return items, nil
}

func (r *SaleRepo) AddReturned(ctx context.Context, itemID id.ID, quantity types.Quantity) error {
	return r.s.update(ctx, func(st *state) error {
		it, ok := st.saleItems[itemID]
		if !ok {
			return apperror.NewSaleItemNotFound(nil, itemID.String())
		}
		if it.ReturnedQuantity+quantity > it.Quantity {
			return apperror.NewOverReturn(itemID.String(), quantity.Int64(), it.Remaining().Int64())
		}
		it.ReturnedQuantity += quantity
		st.saleItems[itemID] = it
		return nil
	})
}

func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	var items []*sale.Sale
	r.s.view(ctx, func(st *state) {
		for _, sl := range st.sales {
			if !filter.From.IsZero() && sl.SoldAt.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && !sl.SoldAt.Before(filter.To) {
				continue
			}
			sl := sl
			items = append(items, &sl)
		}
	})
	slices.SortFunc(items, func(a, b *sale.Sale) int {
		if c := b.SoldAt.Compare(a.SoldAt); c != 0 {
			return c
		}
		return id.Compare(b.ID, a.ID)
	})
	return domain.Page(items, filter.ListFilter), nil
}
