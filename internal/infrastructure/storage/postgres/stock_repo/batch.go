// Package stock_repo provides PostgreSQL implementations for batches and the movement ledger.
package stock_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/batch"
	"tillpoint/internal/infrastructure/storage/postgres"
)

const batchesTable = "batches"

var batchColumns = postgres.ExtractDBColumns[batch.Batch]()

// BatchRepo implements batch.Repository.
type BatchRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ batch.Repository = (*BatchRepo)(nil)

// NewBatchRepo creates a new batch repository.
func NewBatchRepo(txm *postgres.TxManager) *BatchRepo {
	return &BatchRepo{txm: txm, builder: postgres.Builder()}
}

func (r *BatchRepo) Create(ctx context.Context, b *batch.Batch) error {
	sql, args, err := r.builder.Insert(batchesTable).
		SetMap(postgres.StructToMap(b, batchColumns...)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		switch {
		case postgres.IsUniqueViolation(err, "batches_product_code_key"):
			return apperror.NewDuplicate("batch", "code", b.Code)
		case postgres.IsForeignKeyViolation(err, ""):
			return apperror.NewProductNotFound(b.ProductID.String())
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	sql, args, err := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"id": batchID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var b batch.Batch
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewBatchNotFound(batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

// LockForUpdate takes row locks in ascending id order. Postgres locks rows as
// the sorted scan emits them, so concurrent sales over overlapping batches
// queue instead of deadlocking.
func (r *BatchRepo) LockForUpdate(ctx context.Context, batchIDs []id.ID) (map[id.ID]*batch.Batch, error) {
	if r.txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("LockForUpdate requires transaction context")
	}
	ids := id.SortedUnique(batchIDs)
	if len(ids) == 0 {
		return map[id.ID]*batch.Batch{}, nil
	}

	sql, args, err := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*batch.Batch
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("lock batches: %w", err)
	}

	out := make(map[id.ID]*batch.Batch, len(rows))
	for _, b := range rows {
		out[b.ID] = b
	}
	for _, bid := range ids {
		if _, ok := out[bid]; !ok {
			return nil, apperror.NewBatchNotFound(bid.String())
		}
	}
	return out, nil
}

func (r *BatchRepo) UpdateQuantity(ctx context.Context, batchID id.ID, quantity types.Quantity, now time.Time) error {
	sql, args, err := r.builder.Update(batchesTable).
		Set("quantity", quantity).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", now.UTC()).
		Where(squirrel.Eq{"id": batchID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsCheckViolation(err, "batches_quantity_non_negative") {
			return apperror.NewInsufficientStock(batchID.String(), 0, 0)
		}
		return fmt.Errorf("update batch quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewBatchNotFound(batchID.String())
	}
	return nil
}

// UpdatePricing writes the price triple. The caller holds the row lock and has touched b.
func (r *BatchRepo) UpdatePricing(ctx context.Context, b *batch.Batch) error {
	sql, args, err := r.builder.Update(batchesTable).
		Set("cost_price", b.CostPrice).
		Set("selling_price", b.SellingPrice).
		Set("mrp", b.MRP).
		Set("version", b.Version).
		Set("updated_at", b.UpdatedAt).
		Where(squirrel.Eq{"id": b.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update batch pricing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewBatchNotFound(b.ID.String())
	}
	return nil
}

// ListByProduct returns batches oldest first. UUIDv7 ids sort by creation.
func (r *BatchRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*batch.Batch, error) {
	sql, args, err := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []*batch.Batch
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return out, nil
}

func (r *BatchRepo) CodeExists(ctx context.Context, productID id.ID, code string) (bool, error) {
	sql, args, err := r.builder.Select("1").
		Prefix("SELECT EXISTS (").
		From(batchesTable).
		Where(squirrel.Eq{"product_id": productID, "code": code}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check batch code: %w", err)
	}
	return exists, nil
}

func (r *BatchRepo) CountByProduct(ctx context.Context, productID id.ID) (int, error) {
	sql, args, err := r.builder.Select("COUNT(*)").
		From(batchesTable).
		Where(squirrel.Eq{"product_id": productID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var n int
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count batches: %w", err)
	}
	return n, nil
}
