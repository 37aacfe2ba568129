package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/reports"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	s *Store
}

var _ reports.Repository = (*ReportRepo)(nil)

// Reports returns the report repository.
func (s *Store) Reports() *ReportRepo {
	return &ReportRepo{s: s}
}

func (r *ReportRepo) LowStock(ctx context.Context) ([]reports.LowStockItem, error) {
	var out []reports.LowStockItem
	r.s.view(ctx, func(st *state) {
		totals := stockByProduct(st)
		for _, p := range st.products {
			if p.LowStockThreshold == nil {
				continue
			}
			total := totals[p.ID]
			if total > *p.LowStockThreshold {
				continue
			}
			out = append(out, reports.LowStockItem{
				ProductID:     p.ID,
				ProductName:   p.Name,
				TotalQuantity: total,
				Threshold:     *p.LowStockThreshold,
			})
		}
	})
	slices.SortFunc(out, func(a, b reports.LowStockItem) int {
		if c := strings.Compare(a.ProductName, b.ProductName); c != 0 {
			return c
		}
		return id.Compare(a.ProductID, b.ProductID)
	})
	return out, nil
}

func (r *ReportRepo) ExpiringBatches(ctx context.Context, cutoff time.Time) ([]reports.ExpiringBatch, error) {
	var out []reports.ExpiringBatch
	r.s.view(ctx, func(st *state) {
		for _, b := range st.batches {
			if b.Quantity <= 0 || b.ExpiryDate == nil || b.ExpiryDate.After(cutoff) {
				continue
			}
			out = append(out, reports.ExpiringBatch{
				BatchID:     b.ID,
				BatchCode:   b.Code,
				ProductID:   b.ProductID,
				ProductName: st.products[b.ProductID].Name,
				Quantity:    b.Quantity,
				ExpiryDate:  *b.ExpiryDate,
			})
		}
	})
	slices.SortFunc(out, func(a, b reports.ExpiringBatch) int {
		if c := a.ExpiryDate.Compare(b.ExpiryDate); c != 0 {
			return c
		}
		return strings.Compare(a.BatchCode, b.BatchCode)
	})
	return out, nil
}

func (r *ReportRepo) StockValuation(ctx context.Context, productID *id.ID) ([]reports.ValuationItem, error) {
	byProduct := make(map[id.ID]*reports.ValuationItem)
	r.s.view(ctx, func(st *state) {
		for _, b := range st.batches {
			if productID != nil && b.ProductID != *productID {
				continue
			}
			item, ok := byProduct[b.ProductID]
			if !ok {
				item = &reports.ValuationItem{
					ProductID:   b.ProductID,
					ProductName: st.products[b.ProductID].Name,
					CostValue:   types.Zero(),
					RetailValue: types.Zero(),
				}
				byProduct[b.ProductID] = item
			}
			qty := b.Quantity.Money()
			item.Quantity += b.Quantity
			item.CostValue = item.CostValue.Add(b.CostPrice.Mul(qty))
			item.RetailValue = item.RetailValue.Add(b.SellingPrice.Mul(qty))
		}
	})

	out := make([]reports.ValuationItem, 0, len(byProduct))
	for _, item := range byProduct {
		out = append(out, *item)
	}
	slices.SortFunc(out, func(a, b reports.ValuationItem) int {
		if c := strings.Compare(a.ProductName, b.ProductName); c != 0 {
			return c
		}
		return id.Compare(a.ProductID, b.ProductID)
	})
	return out, nil
}

func (r *ReportRepo) DailySales(ctx context.Context, filter reports.DailySalesFilter) ([]reports.DailySalesRow, error) {
	days := make(map[time.Time]*reports.DailySalesRow)
	row := func(at time.Time) *reports.DailySalesRow {
		day := domain.DateOnly(at)
		rw, ok := days[day]
		if !ok {
			rw = &reports.DailySalesRow{
				Date:           day,
				Revenue:        types.Zero(),
				Discount:       types.Zero(),
				GrossProfit:    types.Zero(),
				ReturnedAmount: types.Zero(),
			}
			days[day] = rw
		}
		return rw
	}
	inPeriod := func(at time.Time) bool {
		return !at.Before(filter.From) && at.Before(filter.To)
	}

	r.s.view(ctx, func(st *state) {
		for _, sl := range st.sales {
			if !inPeriod(sl.SoldAt) {
				continue
			}
			rw := row(sl.SoldAt)
			rw.SalesCount++
			rw.Revenue = rw.Revenue.Add(sl.Total)
			rw.Discount = rw.Discount.Add(sl.Discount)
			rw.GrossProfit = rw.GrossProfit.Add(sl.GrossProfit)
		}
		for _, ret := range st.returns {
			if !inPeriod(ret.CreatedAt) {
				continue
			}
			rw := row(ret.CreatedAt)
			rw.ReturnedAmount = rw.ReturnedAmount.Add(ret.Amount)
			for _, it := range ret.Items {
				rw.ReturnedQuantity += it.Quantity
			}
		}
	})

	out := make([]reports.DailySalesRow, 0, len(days))
	for _, rw := range days {
		out = append(out, *rw)
	}
	slices.SortFunc(out, func(a, b reports.DailySalesRow) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func stockByProduct(st *state) map[id.ID]types.Quantity {
	totals := make(map[id.ID]types.Quantity, len(st.products))
	for _, b := range st.batches {
		totals[b.ProductID] += b.Quantity
	}
	return totals
}
