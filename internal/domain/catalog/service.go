package catalog

import (
	"context"
	"fmt"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/entity"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/tx"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
	"tillpoint/pkg/logger"
)

// Service provides product catalog operations.
type Service struct {
	repo  Repository
	txm   tx.Manager
	clock domain.Clock
}

// NewService creates a catalog service.
func NewService(repo Repository, txm tx.Manager, clock domain.Clock) *Service {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &Service{repo: repo, txm: txm, clock: clock}
}

// CreateProductInput carries the fields for a new product.
type CreateProductInput struct {
	Name                 string
	Category             *string
	Barcodes             []string
	BatchTrackingEnabled bool
	LowStockThreshold    *types.Quantity
}

// CreateProduct registers a product. Barcodes are globally unique.
func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (*Product, error) {
	p := &Product{
		BaseEntity:           entity.NewBaseEntity(s.clock()),
		Name:                 in.Name,
		Category:             NormalizeCategory(in.Category),
		BatchTrackingEnabled: in.BatchTrackingEnabled,
		LowStockThreshold:    in.LowStockThreshold,
	}
	for _, b := range in.Barcodes {
		p.Barcodes = append(p.Barcodes, NormalizeBarcode(b))
	}
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		taken, err := s.repo.ExistingBarcodes(ctx, p.Barcodes)
		if err != nil {
			return fmt.Errorf("check barcodes: %w", err)
		}
		if len(taken) > 0 {
			return apperror.NewDuplicate("product", "barcode", taken[0])
		}
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "product created",
		"product_id", p.ID,
		"name", p.Name,
		"batch_tracking", p.BatchTrackingEnabled,
	)
	return p, nil
}

// GetProduct returns a product by id.
func (s *Service) GetProduct(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// GetByBarcode resolves a scanned barcode.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (*Product, error) {
	code := NormalizeBarcode(barcode)
	if code == "" {
		return nil, apperror.NewValidation("barcode is required")
	}
	return s.repo.GetByBarcode(ctx, code)
}

// ListProducts lists products.
func (s *Service) ListProducts(ctx context.Context, filter ListFilter) (domain.ListResult[*Product], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	if c := NormalizeCategory(&filter.CategoryPrefix); c != nil {
		filter.CategoryPrefix = *c
	} else {
		filter.CategoryPrefix = ""
	}
	return s.repo.List(ctx, filter)
}
