package memory

import (
	"context"
	"slices"
	"strings"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/batch"
	"tillpoint/internal/domain/catalog"
)

// ProductRepo implements catalog.Repository and batch.ProductReader.
type ProductRepo struct {
	s *Store
}

var (
	_ catalog.Repository  = (*ProductRepo)(nil)
	_ batch.ProductReader = (*ProductRepo)(nil)
)

// Products returns the product repository.
func (s *Store) Products() *ProductRepo {
	return &ProductRepo{s: s}
}

func (r *ProductRepo) Create(ctx context.Context, p *catalog.Product) error {
	return r.s.update(ctx, func(st *state) error {
		for _, code := range p.Barcodes {
			if _, taken := st.barcodes[code]; taken {
				return apperror.NewDuplicate("product", "barcode", code)
			}
		}
		stored := *p
		stored.Barcodes = slices.Clone(p.Barcodes)
		st.products[p.ID] = stored
		for _, code := range p.Barcodes {
			st.barcodes[code] = p.ID
		}
		return nil
	})
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	var (
		p  catalog.Product
		ok bool
	)
	r.s.view(ctx, func(st *state) {
		p, ok = st.products[productID]
	})
	if !ok {
		return nil, apperror.NewProductNotFound(productID.String())
	}
	return &p, nil
}

// GetForUpdate returns the product. Store transactions are already exclusive.
func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	return r.GetByID(ctx, productID)
}

func (r *ProductRepo) GetByBarcode(ctx context.Context, barcode string) (*catalog.Product, error) {
	var (
		p  catalog.Product
		ok bool
	)
	r.s.view(ctx, func(st *state) {
		var productID id.ID
		if productID, ok = st.barcodes[barcode]; ok {
			p, ok = st.products[productID]
		}
	})
	if !ok {
		return nil, apperror.NewProductNotFound(nil).WithDetail("barcode", barcode)
	}
	return &p, nil
}

func (r *ProductRepo) ExistingBarcodes(ctx context.Context, barcodes []string) ([]string, error) {
	var taken []string
	r.s.view(ctx, func(st *state) {
		for _, code := range barcodes {
			if _, ok := st.barcodes[code]; ok {
				taken = append(taken, code)
			}
		}
	})
	return taken, nil
}

func (r *ProductRepo) List(ctx context.Context, filter catalog.ListFilter) (domain.ListResult[*catalog.Product], error) {
	search := strings.ToLower(filter.Search)
	var items []*catalog.Product
	r.s.view(ctx, func(st *state) {
		for _, p := range st.products {
			if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
				continue
			}
			if filter.CategoryPrefix != "" && !inCategory(p.Category, filter.CategoryPrefix) {
				continue
			}
			p := p
			items = append(items, &p)
		}
	})
	slices.SortFunc(items, func(a, b *catalog.Product) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return id.Compare(a.ID, b.ID)
	})
	return domain.Page(items, filter.ListFilter), nil
}

func inCategory(category *string, prefix string) bool {
	if category == nil {
		return false
	}
	return *category == prefix || strings.HasPrefix(*category, prefix+"/")
}
