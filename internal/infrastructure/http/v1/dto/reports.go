package dto

import (
	"tillpoint/internal/domain/reports"
)

// DefaultExpiringDays is the window of GET /reports/expiring without ?days.
const DefaultExpiringDays = 30

// ExpiringQuery is the query of GET /reports/expiring.
type ExpiringQuery struct {
	Days *int `form:"days"`
}

// WithinDays returns the requested window or the default.
func (q ExpiringQuery) WithinDays() int {
	if q.Days == nil {
		return DefaultExpiringDays
	}
	return *q.Days
}

// ValuationQuery is the query of GET /reports/valuation.
type ValuationQuery struct {
	ProductID string `form:"productId"`
}

// LowStockResponse wraps the low stock report.
type LowStockResponse struct {
	Items []reports.LowStockItem `json:"items"`
}

// ExpiringResponse wraps the expiring batches report.
type ExpiringResponse struct {
	Days  int                     `json:"days"`
	Items []reports.ExpiringBatch `json:"items"`
}

// DailySalesResponse wraps the daily sales report.
type DailySalesResponse struct {
	Items []reports.DailySalesRow `json:"items"`
}
