// Package report_repo provides the PostgreSQL implementation of the report queries.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/reports"
	"tillpoint/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ reports.Repository = (*ReportRepo)(nil)

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txm: txm, builder: postgres.Builder()}
}

func (r *ReportRepo) LowStock(ctx context.Context) ([]reports.LowStockItem, error) {
	var out []reports.LowStockItem
	err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, `
		SELECT p.id AS product_id,
		       p.name AS product_name,
		       COALESCE(SUM(b.quantity), 0)::BIGINT AS total_quantity,
		       p.low_stock_threshold AS threshold
		FROM products p
		LEFT JOIN batches b ON b.product_id = p.id
		WHERE p.low_stock_threshold IS NOT NULL
		GROUP BY p.id, p.name, p.low_stock_threshold
		HAVING COALESCE(SUM(b.quantity), 0) <= p.low_stock_threshold
		ORDER BY p.name, p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	return out, nil
}

func (r *ReportRepo) ExpiringBatches(ctx context.Context, cutoff time.Time) ([]reports.ExpiringBatch, error) {
	sql, args, err := r.builder.Select(
		"b.id AS batch_id",
		"b.code AS batch_code",
		"p.id AS product_id",
		"p.name AS product_name",
		"b.quantity",
		"b.expiry_date",
	).
		From("batches b").
		Join("products p ON p.id = b.product_id").
		Where(squirrel.Gt{"b.quantity": 0}).
		Where(squirrel.NotEq{"b.expiry_date": nil}).
		Where(squirrel.LtOrEq{"b.expiry_date": cutoff}).
		OrderBy("b.expiry_date", "b.code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []reports.ExpiringBatch
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("expiring batches: %w", err)
	}
	return out, nil
}

func (r *ReportRepo) StockValuation(ctx context.Context, productID *id.ID) ([]reports.ValuationItem, error) {
	q := r.builder.Select(
		"p.id AS product_id",
		"p.name AS product_name",
		"SUM(b.quantity)::BIGINT AS quantity",
		"SUM(b.quantity * b.cost_price) AS cost_value",
		"SUM(b.quantity * b.selling_price) AS retail_value",
	).
		From("batches b").
		Join("products p ON p.id = b.product_id").
		GroupBy("p.id", "p.name").
		OrderBy("p.name", "p.id")
	if productID != nil {
		q = q.Where(squirrel.Eq{"b.product_id": *productID})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []reports.ValuationItem
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("stock valuation: %w", err)
	}
	return out, nil
}

// DailySales buckets by UTC calendar day of sold_at and of the return's created_at.
func (r *ReportRepo) DailySales(ctx context.Context, filter reports.DailySalesFilter) ([]reports.DailySalesRow, error) {
	var out []reports.DailySalesRow
	err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, `
		WITH sale_days AS (
			SELECT (sold_at AT TIME ZONE 'UTC')::DATE AS day,
			       COUNT(*) AS sales_count,
			       SUM(total) AS revenue,
			       SUM(discount) AS discount,
			       SUM(gross_profit) AS gross_profit
			FROM sales
			WHERE sold_at >= $1 AND sold_at < $2
			GROUP BY 1
		),
		return_days AS (
			SELECT (r.created_at AT TIME ZONE 'UTC')::DATE AS day,
			       SUM(ri.quantity)::BIGINT AS returned_quantity,
			       SUM(ri.amount) AS returned_amount
			FROM returns r
			JOIN return_items ri ON ri.return_id = r.id
			WHERE r.created_at >= $1 AND r.created_at < $2
			GROUP BY 1
		)
		SELECT COALESCE(s.day, rt.day)::TIMESTAMP AT TIME ZONE 'UTC' AS day,
		       COALESCE(s.sales_count, 0) AS sales_count,
		       COALESCE(s.revenue, 0) AS revenue,
		       COALESCE(s.discount, 0) AS discount,
		       COALESCE(s.gross_profit, 0) AS gross_profit,
		       COALESCE(rt.returned_quantity, 0) AS returned_quantity,
		       COALESCE(rt.returned_amount, 0) AS returned_amount
		FROM sale_days s
		FULL OUTER JOIN return_days rt ON rt.day = s.day
		ORDER BY 1
	`, filter.From, filter.To)
	if err != nil {
		return nil, fmt.Errorf("daily sales: %w", err)
	}
	return out, nil
}
