package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/promotion"
	"tillpoint/internal/infrastructure/storage/postgres"
)

const (
	promotionsTable     = "promotions"
	promotionItemsTable = "promotion_items"
)

var (
	promotionColumns     = postgres.ExtractDBColumns[promotion.Promotion]()
	promotionItemColumns = postgres.ExtractDBColumns[promotion.Item]()
)

// PromotionRepo implements promotion.Repository.
type PromotionRepo struct {
	txm      *postgres.TxManager
	inserter *postgres.BatchInserter
	builder  squirrel.StatementBuilderType
}

var _ promotion.Repository = (*PromotionRepo)(nil)

// NewPromotionRepo creates a new promotion repository.
func NewPromotionRepo(txm *postgres.TxManager) *PromotionRepo {
	return &PromotionRepo{
		txm:      txm,
		inserter: postgres.NewBatchInserter(txm),
		builder:  postgres.Builder(),
	}
}

// Create inserts the promotion and its items. Must run inside a transaction.
func (r *PromotionRepo) Create(ctx context.Context, p *promotion.Promotion) error {
	if err := r.checkProducts(ctx, p.Items); err != nil {
		return err
	}

	sql, args, err := r.builder.Insert(promotionsTable).
		SetMap(postgres.StructToMap(p, promotionColumns...)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert promotion: %w", err)
	}

	rows := make([][]any, 0, len(p.Items))
	for _, it := range p.Items {
		rows = append(rows, []any{p.ID, it.ProductID, it.PromoPrice})
	}
	if _, err := r.inserter.CopyFromSlice(ctx, promotionItemsTable, promotionItemColumns, rows); err != nil {
		return fmt.Errorf("copy promotion items: %w", err)
	}
	return nil
}

// checkProducts fails with PRODUCT_NOT_FOUND for the first unknown product.
func (r *PromotionRepo) checkProducts(ctx context.Context, items []promotion.Item) error {
	ids := make([]id.ID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	sql, args, err := r.builder.Select("id").From(productsTable).Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	var found []id.ID
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &found, sql, args...); err != nil {
		return fmt.Errorf("check products: %w", err)
	}
	known := make(map[id.ID]struct{}, len(found))
	for _, f := range found {
		known[f] = struct{}{}
	}
	for _, it := range items {
		if _, ok := known[it.ProductID]; !ok {
			return apperror.NewProductNotFound(it.ProductID.String())
		}
	}
	return nil
}

func (r *PromotionRepo) GetByID(ctx context.Context, promotionID id.ID) (*promotion.Promotion, error) {
	sql, args, err := r.builder.Select(promotionColumns...).
		From(promotionsTable).
		Where(squirrel.Eq{"id": promotionID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var p promotion.Promotion
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("promotion", promotionID.String())
		}
		return nil, fmt.Errorf("get promotion: %w", err)
	}
	if err := r.loadItems(ctx, []*promotion.Promotion{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PromotionRepo) SetActive(ctx context.Context, promotionID id.ID, active bool, now time.Time) error {
	sql, args, err := r.builder.Update(promotionsTable).
		Set("is_active", active).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", now.UTC()).
		Where(squirrel.Eq{"id": promotionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update promotion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("promotion", promotionID.String())
	}
	return nil
}

func (r *PromotionRepo) List(ctx context.Context, filter promotion.ListFilter) (domain.ListResult[*promotion.Promotion], error) {
	page := filter.ListFilter.Normalize()
	result := domain.ListResult[*promotion.Promotion]{Limit: page.Limit, Offset: page.Offset}

	q := r.builder.Select(promotionColumns...).From(promotionsTable)
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if filter.On != nil {
		day := domain.DateOnly(*filter.On)
		q = q.Where(squirrel.LtOrEq{"start_date": day}).Where(squirrel.GtOrEq{"end_date": day})
	}

	querier := r.txm.GetQuerier(ctx)
	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count promotions: %w", err)
	}

	sql, args, err := q.OrderBy("created_at DESC", "id DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list promotions: %w", err)
	}
	if err := r.loadItems(ctx, result.Items); err != nil {
		return result, err
	}
	return result, nil
}

func (r *PromotionRepo) FindCovering(ctx context.Context, productID id.ID, day time.Time) ([]*promotion.Promotion, error) {
	cols := make([]string, 0, len(promotionColumns))
	for _, c := range promotionColumns {
		cols = append(cols, "p."+c)
	}
	sql, args, err := r.builder.Select(cols...).
		From(promotionsTable+" p").
		Join(promotionItemsTable+" pi ON pi.promotion_id = p.id").
		Where(squirrel.Eq{"pi.product_id": productID, "p.is_active": true}).
		Where(squirrel.LtOrEq{"p.start_date": day}).
		Where(squirrel.GtOrEq{"p.end_date": day}).
		OrderBy("p.created_at DESC", "p.id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*promotion.Promotion
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("find covering promotions: %w", err)
	}
	if err := r.loadItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadItems fills Items for every promotion with one query.
func (r *PromotionRepo) loadItems(ctx context.Context, promos []*promotion.Promotion) error {
	if len(promos) == 0 {
		return nil
	}
	byID := make(map[id.ID]*promotion.Promotion, len(promos))
	ids := make([]id.ID, 0, len(promos))
	for _, p := range promos {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	sql, args, err := r.builder.Select(promotionItemColumns...).
		From(promotionItemsTable).
		Where(squirrel.Eq{"promotion_id": ids}).
		OrderBy("promotion_id", "product_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	var items []promotion.Item
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return fmt.Errorf("load promotion items: %w", err)
	}
	for _, it := range items {
		p := byID[it.PromotionID]
		p.Items = append(p.Items, it)
	}
	return nil
}
