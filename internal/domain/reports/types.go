// Package reports provides read-only views over batches, sales and movements.
package reports

import (
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
)

// --- Low stock ---

// LowStockItem is a product at or below its threshold.
type LowStockItem struct {
	ProductID     id.ID          `db:"product_id" json:"productId"`
	ProductName   string         `db:"product_name" json:"productName"`
	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`
	Threshold     types.Quantity `db:"threshold" json:"threshold"`
}

// --- Expiring batches ---

// ExpiringBatchesFilter selects batches with stock expiring on or before Cutoff.
type ExpiringBatchesFilter struct {
	WithinDays int
	Cutoff     time.Time
}

// ExpiringBatch is a stocked batch near or past expiry.
type ExpiringBatch struct {
	BatchID     id.ID          `db:"batch_id" json:"batchId"`
	BatchCode   string         `db:"batch_code" json:"batchCode"`
	ProductID   id.ID          `db:"product_id" json:"productId"`
	ProductName string         `db:"product_name" json:"productName"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	ExpiryDate  time.Time      `db:"expiry_date" json:"expiryDate"`
	Expired     bool           `db:"-" json:"expired"`
}

// --- Stock valuation ---

// ValuationItem is the stock value of one product.
type ValuationItem struct {
	ProductID   id.ID          `db:"product_id" json:"productId"`
	ProductName string         `db:"product_name" json:"productName"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	CostValue   types.Money    `db:"cost_value" json:"costValue"`
	RetailValue types.Money    `db:"retail_value" json:"retailValue"`
}

// StockValuation totals ValuationItems.
type StockValuation struct {
	Items       []ValuationItem `json:"items"`
	Quantity    types.Quantity  `json:"quantity"`
	CostValue   types.Money     `json:"costValue"`
	RetailValue types.Money     `json:"retailValue"`
}

// --- Daily sales ---

// DailySalesFilter is a half-open period [From, To).
type DailySalesFilter struct {
	From time.Time
	To   time.Time
}

// DailySalesRow aggregates one calendar day (UTC).
type DailySalesRow struct {
	Date             time.Time      `db:"day" json:"date"`
	SalesCount       int64          `db:"sales_count" json:"salesCount"`
	Revenue          types.Money    `db:"revenue" json:"revenue"`
	Discount         types.Money    `db:"discount" json:"discount"`
	GrossProfit      types.Money    `db:"gross_profit" json:"grossProfit"`
	ReturnedQuantity types.Quantity `db:"returned_quantity" json:"returnedQuantity"`
	ReturnedAmount   types.Money    `db:"returned_amount" json:"returnedAmount"`
}
