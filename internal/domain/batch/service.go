package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/entity"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/numerator"
	"tillpoint/internal/core/tx"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/audit"
	"tillpoint/internal/domain/ledger"
	"tillpoint/internal/domain/pricing"
	"tillpoint/pkg/logger"
)

const (
	entityType = "batch"
	codePrefix = "B"
	// maxCodeAttempts bounds auto-generation when manual codes collide with the sequence.
	maxCodeAttempts = 5
)

// Config holds the batch service dependencies.
type Config struct {
	Repo      Repository
	Products  ProductReader
	Ledger    *ledger.Service
	TxManager tx.Manager
	Numerator numerator.Generator
	Audit     audit.Recorder
	Events    domain.EventPublisher
	Clock     domain.Clock
}

// Service is the batch store.
type Service struct {
	repo      Repository
	products  ProductReader
	ledger    *ledger.Service
	txm       tx.Manager
	numerator numerator.Generator
	audit     audit.Recorder
	events    domain.EventPublisher
	clock     domain.Clock
}

// NewService creates the batch store.
func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = domain.SystemClock
	}
	if cfg.Events == nil {
		cfg.Events = domain.NopPublisher{}
	}
	return &Service{
		repo:      cfg.Repo,
		products:  cfg.Products,
		ledger:    cfg.Ledger,
		txm:       cfg.TxManager,
		numerator: cfg.Numerator,
		audit:     cfg.Audit,
		events:    cfg.Events,
		clock:     cfg.Clock,
	}
}

// CreateInput carries the fields for a new batch.
type CreateInput struct {
	ProductID    id.ID
	Code         *string
	Quantity     types.Quantity
	CostPrice    types.Money
	SellingPrice types.Money
	MRP          types.Money
	ExpiryDate   *time.Time
	Wholesale    *pricing.Wholesale
}

// CreateBatch validates pricing and stores a new batch. No movement is written;
// the starting quantity is kept as InitialQuantity.
func (s *Service) CreateBatch(ctx context.Context, in CreateInput) (*Batch, error) {
	if err := pricing.Validate(in.CostPrice, in.SellingPrice, in.MRP, in.Quantity); err != nil {
		return nil, err
	}
	if err := pricing.ValidateWholesale(in.Wholesale); err != nil {
		return nil, err
	}

	now := s.clock()
	b := &Batch{
		BaseEntity:      entity.NewBaseEntity(now),
		ProductID:       in.ProductID,
		Quantity:        in.Quantity,
		InitialQuantity: in.Quantity,
		CostPrice:       in.CostPrice,
		SellingPrice:    in.SellingPrice,
		MRP:             in.MRP,
	}
	if in.ExpiryDate != nil {
		expiry := domain.DateOnly(*in.ExpiryDate)
		b.ExpiryDate = &expiry
	}
	b.SetWholesale(in.Wholesale)

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		product, err := s.products.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}

		if !product.BatchTrackingEnabled {
			count, err := s.repo.CountByProduct(ctx, product.ID)
			if err != nil {
				return fmt.Errorf("count batches: %w", err)
			}
			if count > 0 {
				return apperror.NewBusinessRule(apperror.CodeBatchTrackingDisabled,
					"Product without batch tracking already has its batch").
					WithDetail("product_id", product.ID.String())
			}
		}

		code, err := s.resolveCode(ctx, product.ID, in.Code, now)
		if err != nil {
			return err
		}
		b.Code = code

		if err := s.repo.Create(ctx, b); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		if err := s.audit.LogChange(ctx, entityType, b.ID, audit.ActionCreate, b.pricingSnapshot()); err != nil {
			return fmt.Errorf("audit batch: %w", err)
		}
		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: entityType,
			AggregateID:   b.ID,
			EventType:     domain.EventBatchCreated,
			Payload:       b,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch created",
		"batch_id", b.ID,
		"product_id", b.ProductID,
		"code", b.Code,
		"quantity", b.Quantity,
	)
	return b, nil
}

// resolveCode checks an explicit code or draws the next one from the product's sequence.
func (s *Service) resolveCode(ctx context.Context, productID id.ID, requested *string, now time.Time) (string, error) {
	if requested != nil && strings.TrimSpace(*requested) != "" {
		code := strings.TrimSpace(*requested)
		exists, err := s.repo.CodeExists(ctx, productID, code)
		if err != nil {
			return "", fmt.Errorf("check batch code: %w", err)
		}
		if exists {
			return "", apperror.NewDuplicate("batch", "code", code)
		}
		return code, nil
	}

	cfg := numerator.ScopedConfig(codePrefix, productID.String())
	for range maxCodeAttempts {
		code, err := s.numerator.GetNextNumber(ctx, cfg, nil, now)
		if err != nil {
			return "", fmt.Errorf("generate batch code: %w", err)
		}
		exists, err := s.repo.CodeExists(ctx, productID, code)
		if err != nil {
			return "", fmt.Errorf("check batch code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", apperror.NewConflict("could not generate a free batch code").
		WithDetail("product_id", productID.String())
}

// AdjustInput describes one quantity change.
type AdjustInput struct {
	BatchID    id.ID
	Delta      types.Quantity
	Type       ledger.MovementType
	Note       *string
	SaleItemID *id.ID
}

// AdjustQuantity applies delta under a row lock and appends exactly one movement.
// Joins the caller's transaction when there is one.
func (s *Service) AdjustQuantity(ctx context.Context, in AdjustInput) (*Batch, error) {
	if err := ledger.ValidateDelta(in.Type, in.Delta); err != nil {
		return nil, err
	}

	var result *Batch
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockForUpdate(ctx, []id.ID{in.BatchID})
		if err != nil {
			return err
		}
		b := locked[in.BatchID]
		if err := s.apply(ctx, b, in); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// apply mutates a batch that the current transaction already holds locked.
// Inbound deltas never fail on stock; they fail only past MaxQuantity.
func (s *Service) apply(ctx context.Context, b *Batch, in AdjustInput) error {
	newQty, ok := b.Quantity.Add(in.Delta)
	switch {
	case in.Delta.IsNegative() && (!ok || newQty.IsNegative()):
		return apperror.NewInsufficientStock(b.ID.String(), in.Delta.Abs().Int64(), b.Quantity.Int64()).
			WithDetail("batch_code", b.Code)
	case in.Delta.IsPositive() && (!ok || newQty > types.MaxQuantity):
		return apperror.NewQuantityTooLarge("quantity", b.Quantity.SaturatingAdd(in.Delta).Int64(), types.MaxQuantity.Int64()).
			WithDetail("batch_id", b.ID.String()).
			WithDetail("delta", in.Delta.Int64())
	}

	now := s.clock()
	if err := s.repo.UpdateQuantity(ctx, b.ID, newQty, now); err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}
	b.Quantity = newQty
	b.Touch(now)

	_, err := s.ledger.Append(ctx, ledger.AppendInput{
		BatchID:    b.ID,
		ProductID:  b.ProductID,
		Delta:      in.Delta,
		Type:       in.Type,
		OccurredAt: now,
		Note:       in.Note,
		SaleItemID: in.SaleItemID,
	})
	return err
}

// PricingInput is a new price triple for a batch.
type PricingInput struct {
	CostPrice    types.Money
	SellingPrice types.Money
	MRP          types.Money
}

// UpdatePricing re-validates and replaces the price triple. Quantity and history are untouched.
func (s *Service) UpdatePricing(ctx context.Context, batchID id.ID, in PricingInput) (*Batch, error) {
	var result *Batch
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockForUpdate(ctx, []id.ID{batchID})
		if err != nil {
			return err
		}
		b := locked[batchID]
		if err := pricing.Validate(in.CostPrice, in.SellingPrice, in.MRP, b.Quantity); err != nil {
			return err
		}

		before := b.pricingSnapshot()
		b.CostPrice, b.SellingPrice, b.MRP = in.CostPrice, in.SellingPrice, in.MRP
		b.Touch(s.clock())

		if err := s.repo.UpdatePricing(ctx, b); err != nil {
			return fmt.Errorf("update pricing: %w", err)
		}
		if changes := audit.Diff(before, b.pricingSnapshot()); len(changes) > 0 {
			if err := s.audit.LogChange(ctx, entityType, b.ID, audit.ActionUpdatePricing, changes); err != nil {
				return fmt.Errorf("audit pricing: %w", err)
			}
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch pricing updated",
		"batch_id", result.ID,
		"cost", result.CostPrice,
		"selling", result.SellingPrice,
		"mrp", result.MRP,
	)
	return result, nil
}

// AddStock receives new units into a batch after re-checking its pricing.
func (s *Service) AddStock(ctx context.Context, batchID id.ID, quantity types.Quantity, note *string) (*Batch, error) {
	return s.manualAdjust(ctx, batchID, quantity, ledger.MovementAdded, note, true)
}

// AdjustStock applies a manual correction. The sign picks adjustment_in or adjustment_out.
func (s *Service) AdjustStock(ctx context.Context, batchID id.ID, delta types.Quantity, note *string) (*Batch, error) {
	typ := ledger.MovementAdjustmentIn
	if delta.IsNegative() {
		typ = ledger.MovementAdjustmentOut
	}
	return s.manualAdjust(ctx, batchID, delta, typ, note, false)
}

func (s *Service) manualAdjust(ctx context.Context, batchID id.ID, delta types.Quantity, typ ledger.MovementType, note *string, checkPricing bool) (*Batch, error) {
	if checkPricing && delta.IsNegative() {
		return nil, apperror.NewBusinessRule(apperror.CodeNegativeValue, "quantity must not be negative").
			WithDetail("field", "quantity")
	}
	if err := ledger.ValidateDelta(typ, delta); err != nil {
		return nil, err
	}

	in := AdjustInput{BatchID: batchID, Delta: delta, Type: typ, Note: note}
	var result *Batch
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockForUpdate(ctx, []id.ID{batchID})
		if err != nil {
			return err
		}
		b := locked[batchID]
		if checkPricing {
			if err := pricing.ValidateTerms(b.Terms(), b.Quantity.SaturatingAdd(delta)); err != nil {
				return err
			}
		}
		before := b.Quantity
		if err := s.apply(ctx, b, in); err != nil {
			return err
		}
		if err := s.audit.LogChange(ctx, entityType, b.ID, audit.ActionAdjustStock, map[string]any{
			"type":     string(typ),
			"quantity": map[string]any{"old": before.Int64(), "new": b.Quantity.Int64()},
		}); err != nil {
			return fmt.Errorf("audit adjustment: %w", err)
		}
		result = b
		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: entityType,
			AggregateID:   b.ID,
			EventType:     domain.EventStockAdjusted,
			Payload: StockAdjustedEvent{
				BatchID:   b.ID,
				ProductID: b.ProductID,
				Type:      typ,
				Delta:     delta,
				Quantity:  b.Quantity,
				Note:      note,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted",
		"batch_id", batchID,
		"type", typ,
		"delta", delta,
		"quantity", result.Quantity,
	)
	return result, nil
}

// StockAdjustedEvent is the outbox payload for manual stock changes.
type StockAdjustedEvent struct {
	BatchID   id.ID               `json:"batchId"`
	ProductID id.ID               `json:"productId"`
	Type      ledger.MovementType `json:"type"`
	Delta     types.Quantity      `json:"delta"`
	Quantity  types.Quantity      `json:"quantity"`
	Note      *string             `json:"note,omitempty"`
}

// LockBatches row-locks batches in ascending id order for a multi-batch operation.
// Must run inside a transaction; later AdjustQuantity calls on them reuse the locks.
func (s *Service) LockBatches(ctx context.Context, batchIDs []id.ID) (map[id.ID]*Batch, error) {
	return s.repo.LockForUpdate(ctx, id.SortedUnique(batchIDs))
}

// GetBatch returns a batch by id.
func (s *Service) GetBatch(ctx context.Context, batchID id.ID) (*Batch, error) {
	return s.repo.GetByID(ctx, batchID)
}

// ListBatches returns a product's batches ordered by creation.
func (s *Service) ListBatches(ctx context.Context, productID id.ID) ([]*Batch, error) {
	return s.repo.ListByProduct(ctx, productID)
}

// History returns the batch's audit trail, newest first.
func (s *Service) History(ctx context.Context, batchID id.ID, limit int) ([]audit.Entry, error) {
	if _, err := s.repo.GetByID(ctx, batchID); err != nil {
		return nil, err
	}
	return s.audit.History(ctx, entityType, batchID, limit)
}
