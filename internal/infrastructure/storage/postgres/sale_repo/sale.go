// Package sale_repo provides PostgreSQL implementations for sales and returns.
package sale_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/sale"
	"tillpoint/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "sales"
	saleItemsTable = "sale_items"
)

var (
	saleColumns     = postgres.ExtractDBColumns[sale.Sale]()
	saleItemColumns = postgres.ExtractDBColumns[sale.Item]()
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	txm      *postgres.TxManager
	inserter *postgres.BatchInserter
	builder  squirrel.StatementBuilderType
}

var _ sale.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txm:      txm,
		inserter: postgres.NewBatchInserter(txm),
		builder:  postgres.Builder(),
	}
}

// Create inserts the header, then copies the lines. Must run inside a transaction.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	sql, args, err := r.builder.Insert(salesTable).
		SetMap(postgres.StructToMap(s, saleColumns...)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return apperror.NewDuplicate("sale", "number", s.Number)
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	rows := make([][]any, 0, len(s.Items))
	for _, it := range s.Items {
		m := postgres.StructToMap(it)
		row := make([]any, len(saleItemColumns))
		for i, col := range saleItemColumns {
			row[i] = m[col]
		}
		rows = append(rows, row)
	}
	if _, err := r.inserter.CopyFromSlice(ctx, saleItemsTable, saleItemColumns, rows); err != nil {
		return fmt.Errorf("copy sale items: %w", err)
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	sql, args, err := r.builder.Select(saleColumns...).
		From(salesTable).
		Where(squirrel.Eq{"id": saleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	querier := r.txm.GetQuerier(ctx)

	var s sale.Sale
	if err := pgxscan.Get(ctx, querier, &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewSaleNotFound(saleID.String())
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	sql, args, err = r.builder.Select(saleItemColumns...).
		From(saleItemsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &s.Items, sql, args...); err != nil {
		return nil, fmt.Errorf("get sale items: %w", err)
	}
	return &s, nil
}

// LockItems row-locks the sale's lines in id order.
func (r *SaleRepo) LockItems(ctx context.Context, saleID id.ID) ([]*sale.Item, error) {
	if r.txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("LockItems requires transaction context")
	}
	querier := r.txm.GetQuerier(ctx)

	var exists bool
	if err := querier.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sales WHERE id = $1)`, saleID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check sale: %w", err)
	}
	if !exists {
		return nil, apperror.NewSaleNotFound(saleID.String())
	}

	sql, args, err := r.builder.Select(saleItemColumns...).
		From(saleItemsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var items []*sale.Item
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("lock sale items: %w", err)
	}
	return items, nil
}

// AddReturned increments returned_quantity, refusing to pass the sold quantity.
func (r *SaleRepo) AddReturned(ctx context.Context, itemID id.ID, quantity types.Quantity) error {
	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, `
		UPDATE sale_items
		SET returned_quantity = returned_quantity + $1
		WHERE id = $2 AND returned_quantity + $1 <= quantity
	`, quantity, itemID)
	if err != nil {
		return fmt.Errorf("update returned quantity: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var remaining types.Quantity
	err = querier.QueryRow(ctx, `SELECT quantity - returned_quantity FROM sale_items WHERE id = $1`, itemID).Scan(&remaining)
	if pgxscan.NotFound(err) {
		return apperror.NewSaleItemNotFound(nil, itemID.String())
	}
	if err != nil {
		return fmt.Errorf("read sale item: %w", err)
	}
	return apperror.NewOverReturn(itemID.String(), quantity.Int64(), remaining.Int64())
}

// List returns headers in [From, To), newest first.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	page := filter.ListFilter.Normalize()
	result := domain.ListResult[*sale.Sale]{Limit: page.Limit, Offset: page.Offset}

	q := r.builder.Select(saleColumns...).From(salesTable)
	if !filter.From.IsZero() {
		q = q.Where(squirrel.GtOrEq{"sold_at": filter.From})
	}
	if !filter.To.IsZero() {
		q = q.Where(squirrel.Lt{"sold_at": filter.To})
	}

	querier := r.txm.GetQuerier(ctx)
	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count sales: %w", err)
	}

	sql, args, err := q.OrderBy("sold_at DESC", "id DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list sales: %w", err)
	}
	return result, nil
}
