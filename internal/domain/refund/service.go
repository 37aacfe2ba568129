package refund

import (
	"context"
	"fmt"
	"slices"

	"tillpoint/internal/core/apperror"
	appctx "tillpoint/internal/core/context"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/tx"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/batch"
	"tillpoint/internal/domain/ledger"
	"tillpoint/internal/domain/sale"
	"tillpoint/pkg/logger"
)

// Config holds the refund service dependencies.
type Config struct {
	Repo      Repository
	Sales     sale.Repository
	Batches   *batch.Service
	TxManager tx.Manager
	Events    domain.EventPublisher
	Clock     domain.Clock
}

// Service is the return engine.
type Service struct {
	repo    Repository
	sales   sale.Repository
	batches *batch.Service
	txm     tx.Manager
	events  domain.EventPublisher
	clock   domain.Clock
}

// NewService creates the return engine.
func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = domain.SystemClock
	}
	if cfg.Events == nil {
		cfg.Events = domain.NopPublisher{}
	}
	return &Service{
		repo:    cfg.Repo,
		sales:   cfg.Sales,
		batches: cfg.Batches,
		txm:     cfg.TxManager,
		events:  cfg.Events,
		clock:   cfg.Clock,
	}
}

// LineInput asks to return quantity units of one sale line.
type LineInput struct {
	SaleItemID id.ID
	Quantity   types.Quantity
}

// ProcessInput is a return request.
type ProcessInput struct {
	SaleID id.ID
	Items  []LineInput
	Note   *string
}

// ProcessReturn validates every line against its remaining returnable quantity,
// then restocks all of them in one transaction. Repeating a request re-validates
// against the reduced allowance.
func (s *Service) ProcessReturn(ctx context.Context, in ProcessInput) (*sale.Sale, error) {
	requested, err := mergeLines(in.Items)
	if err != nil {
		return nil, err
	}

	var ret *Return
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		items, err := s.sales.LockItems(ctx, in.SaleID)
		if err != nil {
			return err
		}
		byID := make(map[id.ID]*sale.Item, len(items))
		for _, it := range items {
			byID[it.ID] = it
		}

		// Validate every line before any write.
		var batchIDs []id.ID
		for _, line := range requested {
			it, ok := byID[line.SaleItemID]
			if !ok {
				return apperror.NewSaleItemNotFound(in.SaleID.String(), line.SaleItemID.String())
			}
			if qty, over := line.exceeds(it.Remaining()); over {
				return apperror.NewOverReturn(it.ID.String(), qty.Int64(), it.Remaining().Int64())
			}
			batchIDs = append(batchIDs, it.BatchID)
		}

		if _, err := s.batches.LockBatches(ctx, batchIDs); err != nil {
			return err
		}

		now := s.clock()
		ret = &Return{
			ID:        id.New(),
			SaleID:    in.SaleID,
			Amount:    types.Zero(),
			Note:      in.Note,
			CreatedAt: now,
		}
		if op := appctx.GetOperatorID(ctx); op != "" {
			ret.OperatorID = &op
		}

		for _, line := range requested {
			it := byID[line.SaleItemID]
			if err := s.sales.AddReturned(ctx, it.ID, line.Quantity); err != nil {
				return fmt.Errorf("update returned quantity: %w", err)
			}
			saleItemID := it.ID
			if _, err := s.batches.AdjustQuantity(ctx, batch.AdjustInput{
				BatchID:    it.BatchID,
				Delta:      line.Quantity,
				Type:       ledger.MovementReturned,
				Note:       in.Note,
				SaleItemID: &saleItemID,
			}); err != nil {
				return err
			}

			amount := it.SellingPrice.Mul(line.Quantity.Money())
			ret.Amount = ret.Amount.Add(amount)
			ret.Items = append(ret.Items, Item{
				ReturnID:   ret.ID,
				SaleItemID: it.ID,
				BatchID:    it.BatchID,
				Quantity:   line.Quantity,
				Amount:     amount,
			})
		}

		if err := s.repo.Create(ctx, ret); err != nil {
			return fmt.Errorf("create return: %w", err)
		}
		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: "sale",
			AggregateID:   in.SaleID,
			EventType:     domain.EventReturnProcessed,
			Payload: ReturnProcessedEvent{
				ReturnID: ret.ID,
				SaleID:   ret.SaleID,
				Amount:   ret.Amount,
				Items:    ret.Items,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "return processed",
		"sale_id", in.SaleID,
		"return_id", ret.ID,
		"lines", len(ret.Items),
		"amount", ret.Amount,
	)
	return s.sales.GetByID(ctx, in.SaleID)
}

// ListReturns returns the returns recorded against a sale.
func (s *Service) ListReturns(ctx context.Context, saleID id.ID) ([]*Return, error) {
	if _, err := s.sales.GetByID(ctx, saleID); err != nil {
		return nil, err
	}
	return s.repo.ListBySale(ctx, saleID)
}

type mergedLine struct {
	SaleItemID id.ID
	Quantity   types.Quantity
	// nonPositive is the first zero or negative quantity given for the line.
	nonPositive *types.Quantity
}

// exceeds reports whether the line asks for more than remaining, and the
// quantity to report when it does. Zero and negative requests always exceed.
func (l mergedLine) exceeds(remaining types.Quantity) (types.Quantity, bool) {
	if l.nonPositive != nil {
		return *l.nonPositive, true
	}
	return l.Quantity, l.Quantity > remaining
}

// mergeLines sums quantities per sale line, keeping first-seen order.
// Sums saturate at the int64 bound, which no allowance can reach.
func mergeLines(lines []LineInput) ([]mergedLine, error) {
	if len(lines) == 0 {
		return nil, apperror.NewValidation("return must contain at least one item")
	}
	var merged []mergedLine
	for i, line := range lines {
		if id.IsNil(line.SaleItemID) {
			return nil, apperror.NewValidation("saleItemId is required").WithDetail("line", i+1)
		}
		idx := slices.IndexFunc(merged, func(m mergedLine) bool { return m.SaleItemID == line.SaleItemID })
		if idx < 0 {
			merged = append(merged, mergedLine{SaleItemID: line.SaleItemID})
			idx = len(merged) - 1
		}
		m := &merged[idx]
		if !line.Quantity.IsPositive() {
			if m.nonPositive == nil {
				q := line.Quantity
				m.nonPositive = &q
			}
			continue
		}
		m.Quantity = m.Quantity.SaturatingAdd(line.Quantity)
	}
	return merged, nil
}
