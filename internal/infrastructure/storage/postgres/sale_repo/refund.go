package sale_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/refund"
	"tillpoint/internal/infrastructure/storage/postgres"
)

const (
	returnsTable     = "returns"
	returnItemsTable = "return_items"
)

var (
	returnColumns     = postgres.ExtractDBColumns[refund.Return]()
	returnItemColumns = postgres.ExtractDBColumns[refund.Item]()
)

// ReturnRepo implements refund.Repository.
type ReturnRepo struct {
	txm      *postgres.TxManager
	inserter *postgres.BatchInserter
	builder  squirrel.StatementBuilderType
}

var _ refund.Repository = (*ReturnRepo)(nil)

// NewReturnRepo creates a new return repository.
func NewReturnRepo(txm *postgres.TxManager) *ReturnRepo {
	return &ReturnRepo{
		txm:      txm,
		inserter: postgres.NewBatchInserter(txm),
		builder:  postgres.Builder(),
	}
}

// Create inserts the return and copies its lines. Must run inside a transaction.
func (r *ReturnRepo) Create(ctx context.Context, ret *refund.Return) error {
	sql, args, err := r.builder.Insert(returnsTable).
		SetMap(postgres.StructToMap(ret, returnColumns...)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert return: %w", err)
	}

	rows := make([][]any, 0, len(ret.Items))
	for _, it := range ret.Items {
		it.ReturnID = ret.ID
		m := postgres.StructToMap(it)
		row := make([]any, len(returnItemColumns))
		for i, col := range returnItemColumns {
			row[i] = m[col]
		}
		rows = append(rows, row)
	}
	if _, err := r.inserter.CopyFromSlice(ctx, returnItemsTable, returnItemColumns, rows); err != nil {
		return fmt.Errorf("copy return items: %w", err)
	}
	return nil
}

// ListBySale returns a sale's returns oldest first, with their lines.
func (r *ReturnRepo) ListBySale(ctx context.Context, saleID id.ID) ([]*refund.Return, error) {
	querier := r.txm.GetQuerier(ctx)

	sql, args, err := r.builder.Select(returnColumns...).
		From(returnsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []*refund.Return
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list returns: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	byID := make(map[id.ID]*refund.Return, len(out))
	ids := make([]id.ID, 0, len(out))
	for _, ret := range out {
		byID[ret.ID] = ret
		ids = append(ids, ret.ID)
	}

	sql, args, err = r.builder.Select(returnItemColumns...).
		From(returnItemsTable).
		Where(squirrel.Eq{"return_id": ids}).
		OrderBy("return_id", "sale_item_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var items []refund.Item
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list return items: %w", err)
	}
	for _, it := range items {
		ret := byID[it.ReturnID]
		ret.Items = append(ret.Items, it)
	}
	return out, nil
}
