package reports

import (
	"context"
	"fmt"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
)

// Service provides report generation operations.
type Service struct {
	repo  Repository
	clock domain.Clock
}

// NewService creates a new reports service.
func NewService(repo Repository, clock domain.Clock) *Service {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &Service{repo: repo, clock: clock}
}

// LowStock lists products at or below their low-stock threshold.
func (s *Service) LowStock(ctx context.Context) ([]LowStockItem, error) {
	items, err := s.repo.LowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("get low stock report: %w", err)
	}
	return items, nil
}

// ExpiringBatches lists stocked batches expiring within the given number of days.
// Already expired batches are included and flagged.
func (s *Service) ExpiringBatches(ctx context.Context, withinDays int) ([]ExpiringBatch, error) {
	if withinDays < 0 {
		return nil, apperror.NewValidation("days must not be negative").WithDetail("days", withinDays)
	}
	today := domain.DateOnly(s.clock())
	cutoff := today.AddDate(0, 0, withinDays)

	items, err := s.repo.ExpiringBatches(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("get expiring batches: %w", err)
	}
	for i := range items {
		items[i].Expired = items[i].ExpiryDate.Before(today)
	}
	return items, nil
}

// StockValuation values stock at cost and at selling price.
func (s *Service) StockValuation(ctx context.Context, productID *id.ID) (*StockValuation, error) {
	items, err := s.repo.StockValuation(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get stock valuation: %w", err)
	}

	report := &StockValuation{
		Items:       items,
		CostValue:   types.Zero(),
		RetailValue: types.Zero(),
	}
	for _, it := range items {
		report.Quantity += it.Quantity
		report.CostValue = report.CostValue.Add(it.CostValue)
		report.RetailValue = report.RetailValue.Add(it.RetailValue)
	}
	return report, nil
}

// DailySales returns per-day sales figures for [from, to).
func (s *Service) DailySales(ctx context.Context, filter DailySalesFilter) ([]DailySalesRow, error) {
	if filter.From.IsZero() || filter.To.IsZero() {
		return nil, apperror.NewValidation("from and to are required")
	}
	if !filter.From.Before(filter.To) {
		return nil, apperror.NewValidation("from must be before to")
	}

	rows, err := s.repo.DailySales(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get daily sales: %w", err)
	}
	return rows, nil
}
