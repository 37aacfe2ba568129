package memory

import (
	"context"
	"slices"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/promotion"
)

// PromotionRepo implements promotion.Repository.
type PromotionRepo struct {
	s *Store
}

var _ promotion.Repository = (*PromotionRepo)(nil)

// Promotions returns the promotion repository.
func (s *Store) Promotions() *PromotionRepo {
	return &PromotionRepo{s: s}
}

func (r *PromotionRepo) Create(ctx context.Context, p *promotion.Promotion) error {
	return r.s.update(ctx, func(st *state) error {
		for _, it := range p.Items {
			if _, ok := st.products[it.ProductID]; !ok {
				return apperror.NewProductNotFound(it.ProductID.String())
			}
		}
		stored := *p
		stored.Items = slices.Clone(p.Items)
		st.promotions[p.ID] = stored
		return nil
	})
}

func (r *PromotionRepo) GetByID(ctx context.Context, promotionID id.ID) (*promotion.Promotion, error) {
	var (
		p  promotion.Promotion
		ok bool
	)
	r.s.view(ctx, func(st *state) {
		p, ok = st.promotions[promotionID]
	})
	if !ok {
		return nil, apperror.NewNotFound("promotion", promotionID.String())
	}
	p.Items = slices.Clone(p.Items)
	return &p, nil
}

func (r *PromotionRepo) SetActive(ctx context.Context, promotionID id.ID, active bool, now time.Time) error {
	return r.s.update(ctx, func(st *state) error {
		p, ok := st.promotions[promotionID]
		if !ok {
			return apperror.NewNotFound("promotion", promotionID.String())
		}
		p.IsActive = active
		p.Touch(now)
		st.promotions[promotionID] = p
		return nil
	})
}

func (r *PromotionRepo) List(ctx context.Context, filter promotion.ListFilter) (domain.ListResult[*promotion.Promotion], error) {
	var items []*promotion.Promotion
	r.s.view(ctx, func(st *state) {
		for _, p := range st.promotions {
			if filter.ActiveOnly && !p.IsActive {
				continue
			}
			if filter.On != nil && (filter.On.Before(p.StartDate) || filter.On.After(p.EndDate)) {
				continue
			}
			p := p
			p.Items = slices.Clone(p.Items)
			items = append(items, &p)
		}
	})
	slices.SortFunc(items, newestFirst)
	return domain.Page(items, filter.ListFilter), nil
}

func (r *PromotionRepo) FindCovering(ctx context.Context, productID id.ID, day time.Time) ([]*promotion.Promotion, error) {
	var out []*promotion.Promotion
	r.s.view(ctx, func(st *state) {
		for _, p := range st.promotions {
			if !p.Covers(day) {
				continue
			}
			if _, listed := p.PriceFor(productID); !listed {
				continue
			}
			p := p
			p.Items = slices.Clone(p.Items)
			out = append(out, &p)
		}
	})
	slices.SortFunc(out, newestFirst)
	return out, nil
}

func newestFirst(a, b *promotion.Promotion) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return id.Compare(b.ID, a.ID)
}
