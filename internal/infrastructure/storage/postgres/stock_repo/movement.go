package stock_repo

import (
	"context"
	"fmt"
	"iter"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/domain/ledger"
	"tillpoint/internal/infrastructure/storage/postgres"
)

const movementsTable = "stock_movements"

var movementColumns = postgres.ExtractDBColumns[ledger.Movement]()

// MovementRepo implements ledger.Repository.
type MovementRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ ledger.Repository = (*MovementRepo)(nil)

// NewMovementRepo creates a new movement repository.
func NewMovementRepo(txm *postgres.TxManager) *MovementRepo {
	return &MovementRepo{txm: txm, builder: postgres.Builder()}
}

// Append inserts a movement inside the transaction that changed the batch quantity.
func (r *MovementRepo) Append(ctx context.Context, m *ledger.Movement) error {
	if r.txm.GetTx(ctx) == nil {
		return apperror.NewInternal(fmt.Errorf("append movement requires transaction context"))
	}
	sql, args, err := r.builder.Insert(movementsTable).
		SetMap(postgres.StructToMap(m, movementColumns...)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// Range streams movements from a cursor. Breaking out of the loop closes the rows.
func (r *MovementRepo) Range(ctx context.Context, filter ledger.RangeFilter) iter.Seq2[ledger.Movement, error] {
	return func(yield func(ledger.Movement, error) bool) {
		q := r.builder.Select(movementColumns...).From(movementsTable)
		if filter.ProductID != nil {
			q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
		}
		if filter.BatchID != nil {
			q = q.Where(squirrel.Eq{"batch_id": *filter.BatchID})
		}
		if !filter.From.IsZero() {
			q = q.Where(squirrel.GtOrEq{"occurred_at": filter.From})
		}
		if !filter.To.IsZero() {
			q = q.Where(squirrel.Lt{"occurred_at": filter.To})
		}
		sql, args, err := q.OrderBy("occurred_at", "id").ToSql()
		if err != nil {
			yield(ledger.Movement{}, fmt.Errorf("build query: %w", err))
			return
		}

		rows, err := r.txm.GetQuerier(ctx).Query(ctx, sql, args...)
		if err != nil {
			yield(ledger.Movement{}, fmt.Errorf("query movements: %w", err))
			return
		}
		defer rows.Close()

		scanner := pgxscan.NewRowScanner(rows)
		for rows.Next() {
			var m ledger.Movement
			if err := scanner.Scan(&m); err != nil {
				yield(ledger.Movement{}, fmt.Errorf("scan movement: %w", err))
				return
			}
			if !yield(m, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(ledger.Movement{}, fmt.Errorf("iterate movements: %w", err))
		}
	}
}
