package promotion

import (
	"context"
	"fmt"
	"time"

	"tillpoint/internal/core/entity"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/tx"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
	"tillpoint/pkg/logger"
)

// Service manages promotions and resolves sale-time prices.
type Service struct {
	repo  Repository
	txm   tx.Manager
	clock domain.Clock
}

// NewService creates a promotion service.
func NewService(repo Repository, txm tx.Manager, clock domain.Clock) *Service {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &Service{repo: repo, txm: txm, clock: clock}
}

// CreateInput carries a new promotion.
type CreateInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	IsActive  bool
	Items     []ItemInput
}

// ItemInput is one product price inside CreateInput.
type ItemInput struct {
	ProductID  id.ID
	PromoPrice types.Money
}

// Create stores a promotion.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Promotion, error) {
	p := &Promotion{
		BaseEntity: entity.NewBaseEntity(s.clock()),
		Name:       in.Name,
		StartDate:  domain.DateOnly(in.StartDate),
		EndDate:    domain.DateOnly(in.EndDate),
		IsActive:   in.IsActive,
	}
	for _, it := range in.Items {
		p.Items = append(p.Items, Item{PromotionID: p.ID, ProductID: it.ProductID, PromoPrice: it.PromoPrice})
	}
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	if err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	}); err != nil {
		return nil, fmt.Errorf("create promotion: %w", err)
	}

	logger.Info(ctx, "promotion created",
		"promotion_id", p.ID,
		"name", p.Name,
		"start", p.StartDate.Format(time.DateOnly),
		"end", p.EndDate.Format(time.DateOnly),
		"items", len(p.Items),
	)
	return p, nil
}

// SetActive switches a promotion on or off.
func (s *Service) SetActive(ctx context.Context, promotionID id.ID, active bool) (*Promotion, error) {
	var result *Promotion
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.SetActive(ctx, promotionID, active, s.clock()); err != nil {
			return err
		}
		p, err := s.repo.GetByID(ctx, promotionID)
		result = p
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "promotion toggled", "promotion_id", promotionID, "active", active)
	return result, nil
}

// Get returns a promotion by id.
func (s *Service) Get(ctx context.Context, promotionID id.ID) (*Promotion, error) {
	return s.repo.GetByID(ctx, promotionID)
}

// List lists promotions.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Promotion], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	if filter.On != nil {
		day := domain.DateOnly(*filter.On)
		filter.On = &day
	}
	return s.repo.List(ctx, filter)
}

// ResolvePrice returns the promo price for a product on asOf's calendar day,
// or nil when no active promotion covers it. Overlaps go to the newest promotion.
func (s *Service) ResolvePrice(ctx context.Context, productID id.ID, asOf time.Time) (*Resolution, error) {
	day := domain.DateOnly(asOf)
	candidates, err := s.repo.FindCovering(ctx, productID, day)
	if err != nil {
		return nil, fmt.Errorf("find promotions: %w", err)
	}

	var best *Promotion
	for _, p := range candidates {
		if !p.Covers(day) {
			continue
		}
		if _, ok := p.PriceFor(productID); !ok {
			continue
		}
		if best == nil || newer(p, best) {
			best = p
		}
	}
	if best == nil {
		return nil, nil
	}

	price, _ := best.PriceFor(productID)
	return &Resolution{PromotionID: best.ID, Name: best.Name, Price: price}, nil
}

// newer orders by creation time; UUIDv7 ids break ties in creation order.
func newer(a, b *Promotion) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return id.Compare(a.ID, b.ID) > 0
}
