package sale

import (
	"context"
	"fmt"
	"time"

	"tillpoint/internal/core/apperror"
	appctx "tillpoint/internal/core/context"
	"tillpoint/internal/core/entity"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/numerator"
	"tillpoint/internal/core/tx"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/batch"
	"tillpoint/internal/domain/ledger"
	"tillpoint/internal/domain/pricing"
	"tillpoint/internal/domain/promotion"
	"tillpoint/pkg/logger"
)

const (
	aggregateType = "sale"
	numberPrefix  = "S"
)

// PriceResolver looks up an active promotion price.
type PriceResolver interface {
	ResolvePrice(ctx context.Context, productID id.ID, asOf time.Time) (*promotion.Resolution, error)
}

// Config holds the sale service dependencies.
type Config struct {
	Repo       Repository
	Batches    *batch.Service
	Promotions PriceResolver
	TxManager  tx.Manager
	Numerator  numerator.Generator
	Events     domain.EventPublisher
	Clock      domain.Clock
}

// Service is the sale transaction engine.
type Service struct {
	repo       Repository
	batches    *batch.Service
	promotions PriceResolver
	txm        tx.Manager
	numerator  numerator.Generator
	events     domain.EventPublisher
	clock      domain.Clock
}

// NewService creates the sale engine.
func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = domain.SystemClock
	}
	if cfg.Events == nil {
		cfg.Events = domain.NopPublisher{}
	}
	return &Service{
		repo:       cfg.Repo,
		batches:    cfg.Batches,
		promotions: cfg.Promotions,
		txm:        cfg.TxManager,
		numerator:  cfg.Numerator,
		events:     cfg.Events,
		clock:      cfg.Clock,
	}
}

// LineInput is one requested sale line.
type LineInput struct {
	BatchID           id.ID
	Quantity          types.Quantity
	UnitPriceOverride *types.Money
}

// RecordInput is a sale request.
type RecordInput struct {
	Items    []LineInput
	Discount types.Money
}

// RecordSale prices every line, takes stock from each batch and stores the sale,
// all in one transaction. Any failing line aborts the whole sale.
func (s *Service) RecordSale(ctx context.Context, in RecordInput) (*Sale, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var result *Sale
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		now := s.clock()

		batchIDs := make([]id.ID, len(in.Items))
		for i, line := range in.Items {
			batchIDs[i] = line.BatchID
		}
		// Locks go in ascending id order so concurrent multi-line sales cannot deadlock.
		locked, err := s.batches.LockBatches(ctx, batchIDs)
		if err != nil {
			return err
		}
		if err := checkStock(in.Items, locked); err != nil {
			return err
		}

		sale := &Sale{
			BaseEntity:  entity.NewBaseEntity(now),
			SoldAt:      now,
			Discount:    in.Discount,
			Subtotal:    types.Zero(),
			GrossProfit: types.Zero(),
		}
		if op := appctx.GetOperatorID(ctx); op != "" {
			sale.OperatorID = &op
		}

		for i, line := range in.Items {
			b := locked[line.BatchID]
			item, err := s.priceLine(ctx, b, line, now)
			if err != nil {
				return err
			}
			item.SaleID = sale.ID
			item.LineNo = i + 1
			sale.Items = append(sale.Items, item)
			sale.Subtotal = sale.Subtotal.Add(item.LineTotal)
			sale.GrossProfit = sale.GrossProfit.Add(item.Profit)
		}

		if in.Discount.GreaterThan(sale.Subtotal) {
			return apperror.NewValidation("discount exceeds sale subtotal").
				WithDetail("discount", in.Discount.String()).
				WithDetail("subtotal", sale.Subtotal.String())
		}
		sale.Total = sale.Subtotal.Sub(in.Discount)

		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(numberPrefix), nil, now)
		if err != nil {
			return fmt.Errorf("generate sale number: %w", err)
		}
		sale.Number = number

		if err := s.repo.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		for _, item := range sale.Items {
			itemID := item.ID
			if _, err := s.batches.AdjustQuantity(ctx, batch.AdjustInput{
				BatchID:    item.BatchID,
				Delta:      item.Quantity.Neg(),
				Type:       ledger.MovementSold,
				SaleItemID: &itemID,
			}); err != nil {
				return err
			}
		}

		result = sale
		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: aggregateType,
			AggregateID:   sale.ID,
			EventType:     domain.EventSaleRecorded,
			Payload:       sale,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale recorded",
		"sale_id", result.ID,
		"number", result.Number,
		"lines", len(result.Items),
		"total", result.Total,
	)
	return result, nil
}

func validateInput(in RecordInput) error {
	if len(in.Items) == 0 {
		return apperror.NewEmptySale()
	}
	if in.Discount.IsNegative() {
		return apperror.NewBusinessRule(apperror.CodeNegativeValue, "discount must not be negative").
			WithDetail("field", "discount")
	}
	for i, line := range in.Items {
		if id.IsNil(line.BatchID) {
			return apperror.NewValidation("batchId is required").WithDetail("line", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("line", i+1).
				WithDetail("quantity", line.Quantity.Int64())
		}
	}
	return nil
}

// checkStock fails on the first line whose running demand exceeds its batch.
// Lines on the same batch draw from one pool; the pool saturates rather than wraps.
func checkStock(lines []LineInput, locked map[id.ID]*batch.Batch) error {
	demand := make(map[id.ID]types.Quantity, len(locked))
	for i, line := range lines {
		b := locked[line.BatchID]
		demand[b.ID] = demand[b.ID].SaturatingAdd(line.Quantity)
		if demand[b.ID] > b.Quantity {
			return apperror.NewInsufficientStock(b.ID.String(), demand[b.ID].Int64(), b.Quantity.Int64()).
				WithDetail("line", i+1).
				WithDetail("batch_code", b.Code)
		}
	}
	return nil
}

// priceLine resolves the selling price: promotion, then manual override,
// then wholesale terms, then the batch selling price.
// TODO: confirm with the product owner whether an active promotion should
// outrank a cashier's manual override.
func (s *Service) priceLine(ctx context.Context, b *batch.Batch, line LineInput, now time.Time) (*Item, error) {
	item := &Item{
		ID:        id.New(),
		BatchID:   b.ID,
		ProductID: b.ProductID,
		Quantity:  line.Quantity,
		CostPrice: b.CostPrice,
		MRP:       b.MRP,
	}

	promo, err := s.promotions.ResolvePrice(ctx, b.ProductID, now)
	if err != nil {
		return nil, err
	}

	switch {
	case promo != nil:
		promoID := promo.PromotionID
		item.SellingPrice = promo.Price
		item.PriceSource = PriceFromPromotion
		item.PromotionID = &promoID
	case line.UnitPriceOverride != nil:
		if err := pricing.ValidateOverride(*line.UnitPriceOverride, b.MRP); err != nil {
			return nil, err
		}
		item.SellingPrice = *line.UnitPriceOverride
		item.PriceSource = PriceFromOverride
	case b.Wholesale().Applies(line.Quantity):
		item.SellingPrice = b.Wholesale().Price
		item.PriceSource = PriceFromWholesale
	default:
		item.SellingPrice = b.SellingPrice
		item.PriceSource = PriceFromBatch
	}

	qty := line.Quantity.Money()
	item.LineTotal = item.SellingPrice.Mul(qty)
	item.Profit = item.SellingPrice.Sub(item.CostPrice).Mul(qty)
	return item, nil
}

// GetSale returns a sale with its lines.
func (s *Service) GetSale(ctx context.Context, saleID id.ID) (*Sale, error) {
	return s.repo.GetByID(ctx, saleID)
}

// ListSales lists sale headers in [from, to).
func (s *Service) ListSales(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return domain.ListResult[*Sale]{}, apperror.NewValidation("range end is before start")
	}
	filter.ListFilter = filter.ListFilter.Normalize()
	return s.repo.List(ctx, filter)
}
