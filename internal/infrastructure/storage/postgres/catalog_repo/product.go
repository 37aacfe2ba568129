// Package catalog_repo provides PostgreSQL implementations for product and promotion repositories.
package catalog_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/batch"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/infrastructure/storage/postgres"
)

const (
	productsTable = "products"
	barcodesTable = "product_barcodes"
)

// productColumns are the products table columns; barcodes live in their own table.
var productColumns = postgres.ColumnsExcept(postgres.ExtractDBColumns[catalog.Product](), "barcodes")

// ProductRepo implements catalog.Repository and batch.ProductReader.
type ProductRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var (
	_ catalog.Repository  = (*ProductRepo)(nil)
	_ batch.ProductReader = (*ProductRepo)(nil)
)

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{txm: txm, builder: postgres.Builder()}
}

// Create inserts the product and its barcodes.
func (r *ProductRepo) Create(ctx context.Context, p *catalog.Product) error {
	sql, args, err := r.builder.Insert(productsTable).
		SetMap(postgres.StructToMap(p, productColumns...)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	q := r.txm.GetQuerier(ctx)
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	ins := r.builder.Insert(barcodesTable).Columns("barcode", "product_id", "position")
	for i, code := range p.Barcodes {
		ins = ins.Values(code, p.ID, i)
	}
	sql, args, err = ins.ToSql()
	if err != nil {
		return fmt.Errorf("build barcode insert: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return apperror.NewDuplicate("product", "barcode", strings.Join(p.Barcodes, ","))
		}
		return fmt.Errorf("insert barcodes: %w", err)
	}
	return nil
}

func (r *ProductRepo) baseSelect() squirrel.SelectBuilder {
	cols := make([]string, 0, len(productColumns)+1)
	for _, c := range productColumns {
		cols = append(cols, "p."+c)
	}
	cols = append(cols,
		"ARRAY(SELECT pb.barcode FROM "+barcodesTable+" pb WHERE pb.product_id = p.id ORDER BY pb.position) AS barcodes")
	return r.builder.Select(cols...).From(productsTable + " p")
}

func (r *ProductRepo) getOne(ctx context.Context, q squirrel.SelectBuilder) (*catalog.Product, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var p catalog.Product
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	p, err := r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"p.id": productID}))
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewProductNotFound(productID.String())
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetForUpdate locks the product row until the transaction ends.
func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	p, err := r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"p.id": productID}).Suffix("FOR UPDATE OF p"))
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewProductNotFound(productID.String())
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}
	return p, nil
}

func (r *ProductRepo) GetByBarcode(ctx context.Context, barcode string) (*catalog.Product, error) {
	q := r.baseSelect().
		Join(barcodesTable + " b ON b.product_id = p.id").
		Where(squirrel.Eq{"b.barcode": barcode})
	p, err := r.getOne(ctx, q)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewProductNotFound(nil).WithDetail("barcode", barcode)
		}
		return nil, fmt.Errorf("get product by barcode: %w", err)
	}
	return p, nil
}

func (r *ProductRepo) ExistingBarcodes(ctx context.Context, barcodes []string) ([]string, error) {
	if len(barcodes) == 0 {
		return nil, nil
	}
	sql, args, err := r.builder.Select("barcode").
		From(barcodesTable).
		Where(squirrel.Eq{"barcode": barcodes}).
		OrderBy("barcode").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var taken []string
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &taken, sql, args...); err != nil {
		return nil, fmt.Errorf("check barcodes: %w", err)
	}
	return taken, nil
}

func (r *ProductRepo) List(ctx context.Context, filter catalog.ListFilter) (domain.ListResult[*catalog.Product], error) {
	page := filter.ListFilter.Normalize()
	result := domain.ListResult[*catalog.Product]{Limit: page.Limit, Offset: page.Offset}

	q := r.baseSelect()
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"p.name": "%" + escapeLike(filter.Search) + "%"})
	}
	if filter.CategoryPrefix != "" {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"p.category": filter.CategoryPrefix},
			squirrel.Like{"p.category": escapeLike(filter.CategoryPrefix) + "/%"},
		})
	}

	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count products: %w", err)
	}

	sql, args, err := q.OrderBy("p.name", "p.id").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list products: %w", err)
	}
	return result, nil
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
