package batch_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/app/apptest"
	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/batch"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/ledger"
	"tillpoint/internal/domain/pricing"
)

var m = apptest.M

func standardTerms(qty types.Quantity) apptest.BatchTerms {
	return apptest.BatchTerms{Quantity: qty, Cost: "80", Selling: "100", MRP: "120"}
}

func movementsOf(t *testing.T, env *apptest.Env, batchID id.ID) []ledger.Movement {
	t.Helper()
	var out []ledger.Movement
	for mv, err := range env.Repos.Movements.Range(context.Background(), ledger.RangeFilter{BatchID: &batchID}) {
		require.NoError(t, err)
		out = append(out, mv)
	}
	return out
}

func TestCreateBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("generates per-product codes", func(t *testing.T) {
		env := apptest.New(t)
		p1 := env.Product(t, "Paracetamol")
		p2 := env.Product(t, "Ibuprofen")

		b1 := env.Batch(t, p1.ID, standardTerms(10))
		b2 := env.Batch(t, p1.ID, standardTerms(10))
		b3 := env.Batch(t, p2.ID, standardTerms(10))

		assert.Equal(t, "B-00001", b1.Code)
		assert.Equal(t, "B-00002", b2.Code)
		assert.Equal(t, "B-00001", b3.Code)
	})

	t.Run("writes no movement and keeps initial quantity", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Paracetamol")
		b := env.Batch(t, p.ID, standardTerms(50))

		assert.Equal(t, types.Quantity(50), b.Quantity)
		assert.Equal(t, types.Quantity(50), b.InitialQuantity)
		assert.Empty(t, movementsOf(t, env, b.ID))
	})

	t.Run("explicit code must be unique within product", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Paracetamol")
		code := "  LOT-7 "

		first, err := env.Batches.CreateBatch(ctx, batch.CreateInput{
			ProductID: p.ID, Code: &code, Quantity: 5,
			CostPrice: m("1"), SellingPrice: m("2"), MRP: m("3"),
		})
		require.NoError(t, err)
		assert.Equal(t, "LOT-7", first.Code)

		_, err = env.Batches.CreateBatch(ctx, batch.CreateInput{
			ProductID: p.ID, Code: &code, Quantity: 5,
			CostPrice: m("1"), SellingPrice: m("2"), MRP: m("3"),
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate), "got %v", err)
	})

	t.Run("selling below cost persists nothing", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Paracetamol")

		_, err := env.Batches.CreateBatch(ctx, batch.CreateInput{
			ProductID: p.ID, Quantity: 10,
			CostPrice: m("100"), SellingPrice: m("90"), MRP: m("120"),
		})
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeSellingBelowCost))

		batches, err := env.Batches.ListBatches(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, batches)
	})

	t.Run("unknown product", func(t *testing.T) {
		env := apptest.New(t)
		_, err := env.Batches.CreateBatch(ctx, batch.CreateInput{
			ProductID: id.New(), Quantity: 1,
			CostPrice: m("1"), SellingPrice: m("1"), MRP: m("1"),
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeProductNotFound), "got %v", err)
	})

	t.Run("tracking disabled product owns one batch", func(t *testing.T) {
		env := apptest.New(t)
		p := env.ProductWith(t, catalog.CreateProductInput{Name: "Loose sugar"})
		env.Batch(t, p.ID, standardTerms(10))

		_, err := env.Batches.CreateBatch(ctx, batch.CreateInput{
			ProductID: p.ID, Quantity: 1,
			CostPrice: m("80"), SellingPrice: m("100"), MRP: m("120"),
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeBatchTrackingDisabled), "got %v", err)
	})

	t.Run("rejects invalid wholesale terms", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Rice")
		_, err := env.Batches.CreateBatch(ctx, batch.CreateInput{
			ProductID: p.ID, Quantity: 1,
			CostPrice: m("1"), SellingPrice: m("2"), MRP: m("3"),
			Wholesale: &pricing.Wholesale{Price: m("1.5"), MinQuantity: 0},
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
	})

	t.Run("publishes creation event", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Rice")
		b := env.Batch(t, p.ID, standardTerms(1))

		events := env.Store.Outbox().Events()
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventBatchCreated, events[0].EventType)
		assert.Equal(t, b.ID, events[0].AggregateID)
	})
}

func TestAdjustQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("sold movement", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Paracetamol")
		b := env.Batch(t, p.ID, standardTerms(50))

		updated, err := env.Batches.AdjustQuantity(ctx, batch.AdjustInput{
			BatchID: b.ID, Delta: -3, Type: ledger.MovementSold,
		})
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(47), updated.Quantity)
		assert.Equal(t, types.Quantity(47), env.Quantity(t, b.ID))

		moves := movementsOf(t, env, b.ID)
		require.Len(t, moves, 1)
		assert.Equal(t, ledger.MovementSold, moves[0].Type)
		assert.Equal(t, types.Quantity(-3), moves[0].Delta)
		assert.Equal(t, p.ID, moves[0].ProductID)
	})

	t.Run("insufficient stock leaves batch untouched", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Paracetamol")
		b := env.Batch(t, p.ID, standardTerms(2))

		_, err := env.Batches.AdjustQuantity(ctx, batch.AdjustInput{
			BatchID: b.ID, Delta: -3, Type: ledger.MovementSold,
		})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
		assert.Equal(t, int64(2), appErr.Details["available"])
		assert.Equal(t, types.Quantity(2), env.Quantity(t, b.ID))
		assert.Empty(t, movementsOf(t, env, b.ID))
	})

	t.Run("sign must match type", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Paracetamol")
		b := env.Batch(t, p.ID, standardTerms(5))

		cases := []struct {
			delta types.Quantity
			typ   ledger.MovementType
		}{
			{3, ledger.MovementSold},
			{-1, ledger.MovementAdded},
			{0, ledger.MovementAdjustmentIn},
			{1, ledger.MovementType("stolen")},
		}
		for _, c := range cases {
			_, err := env.Batches.AdjustQuantity(ctx, batch.AdjustInput{BatchID: b.ID, Delta: c.delta, Type: c.typ})
			assert.True(t, apperror.HasCode(err, apperror.CodeInvalidMovement), "%d %s: %v", c.delta, c.typ, err)
		}
		assert.Empty(t, movementsOf(t, env, b.ID))
	})

	t.Run("unknown batch", func(t *testing.T) {
		env := apptest.New(t)
		_, err := env.Batches.AdjustQuantity(ctx, batch.AdjustInput{
			BatchID: id.New(), Delta: 1, Type: ledger.MovementAdded,
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeBatchNotFound), "got %v", err)
	})

	t.Run("ledger reconciles with quantity", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Paracetamol")
		b := env.Batch(t, p.ID, standardTerms(20))

		steps := []batch.AdjustInput{
			{BatchID: b.ID, Delta: -5, Type: ledger.MovementSold},
			{BatchID: b.ID, Delta: 2, Type: ledger.MovementReturned},
			{BatchID: b.ID, Delta: 10, Type: ledger.MovementAdded},
			{BatchID: b.ID, Delta: -1, Type: ledger.MovementAdjustmentOut},
			{BatchID: b.ID, Delta: 4, Type: ledger.MovementAdjustmentIn},
		}
		for _, s := range steps {
			env.Clock.Advance(time.Minute)
			_, err := env.Batches.AdjustQuantity(ctx, s)
			require.NoError(t, err)
		}

		sum, err := env.Ledger.SummarizeBatch(ctx, b.ID, time.Time{}, time.Time{})
		require.NoError(t, err)

		current := env.Quantity(t, b.ID)
		assert.Equal(t, types.Quantity(30), current)
		assert.Equal(t, current-b.InitialQuantity, sum.Net)
		assert.Equal(t, 5, sum.Movements)
	})
}

func TestAdjustQuantity_ConcurrentSameBatch(t *testing.T) {
	env := apptest.New(t)
	p := env.Product(t, "Paracetamol")
	b := env.Batch(t, p.ID, standardTerms(100))

	const workers = 150
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Batches.AdjustQuantity(context.Background(), batch.AdjustInput{
				BatchID: b.ID, Delta: -1, Type: ledger.MovementSold,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
				fail++
				return
			}
			ok++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, ok)
	assert.Equal(t, workers-100, fail)
	assert.Equal(t, types.Quantity(0), env.Quantity(t, b.ID))
	assert.Len(t, movementsOf(t, env, b.ID), 100)
}

func TestUpdatePricing(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Paracetamol")
	b := env.Batch(t, p.ID, standardTerms(10))

	_, err := env.Batches.UpdatePricing(ctx, b.ID, batch.PricingInput{
		CostPrice: m("80"), SellingPrice: m("130"), MRP: m("120"),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeSellingAboveMrp), "got %v", err)

	updated, err := env.Batches.UpdatePricing(ctx, b.ID, batch.PricingInput{
		CostPrice: m("85"), SellingPrice: m("110"), MRP: m("120"),
	})
	require.NoError(t, err)
	assert.True(t, updated.SellingPrice.Equal(m("110")))
	assert.Equal(t, types.Quantity(10), updated.Quantity)
	assert.Empty(t, movementsOf(t, env, b.ID))

	history, err := env.Batches.History(ctx, b.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "update_pricing", string(history[0].Action))
	assert.Contains(t, string(history[0].Changes), "sellingPrice")
	assert.NotContains(t, string(history[0].Changes), "mrp")

	_, err = env.Batches.History(ctx, id.New(), 10)
	assert.True(t, apperror.HasCode(err, apperror.CodeBatchNotFound), "got %v", err)
}

func TestAddStockAndAdjustStock(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Paracetamol")
	b := env.Batch(t, p.ID, standardTerms(10))

	note := "delivery 42"
	added, err := env.Batches.AddStock(ctx, b.ID, 5, &note)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(15), added.Quantity)

	_, err = env.Batches.AddStock(ctx, b.ID, -5, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeNegativeValue), "got %v", err)

	out, err := env.Batches.AdjustStock(ctx, b.ID, -4, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(11), out.Quantity)

	in, err := env.Batches.AdjustStock(ctx, b.ID, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(13), in.Quantity)

	_, err = env.Batches.AdjustStock(ctx, b.ID, -20, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock), "got %v", err)

	moves := movementsOf(t, env, b.ID)
	require.Len(t, moves, 3)
	assert.Equal(t, ledger.MovementAdded, moves[0].Type)
	assert.Equal(t, &note, moves[0].Note)
	assert.Equal(t, ledger.MovementAdjustmentOut, moves[1].Type)
	assert.Equal(t, ledger.MovementAdjustmentIn, moves[2].Type)

	var adjusted int
	for _, e := range env.Store.Outbox().Events() {
		if e.EventType == domain.EventStockAdjusted {
			adjusted++
		}
	}
	assert.Equal(t, 3, adjusted)
}

func TestStockIncreaseBeyondLimit(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Paracetamol")
	b := env.Batch(t, p.ID, standardTerms(10))

	for name, run := range map[string]func() error{
		"adjust max int": func() error {
			_, err := env.Batches.AdjustStock(ctx, b.ID, math.MaxInt64, nil)
			return err
		},
		"add max int": func() error {
			_, err := env.Batches.AddStock(ctx, b.ID, math.MaxInt64, nil)
			return err
		},
		"adjust past limit": func() error {
			_, err := env.Batches.AdjustStock(ctx, b.ID, types.MaxQuantity, nil)
			return err
		},
	} {
		t.Run(name, func(t *testing.T) {
			err := run()
			require.Error(t, err)
			assert.False(t, apperror.HasCode(err, apperror.CodeInsufficientStock), "got %v", err)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
		})
	}

	assert.Equal(t, types.Quantity(10), env.Quantity(t, b.ID))
	assert.Empty(t, movementsOf(t, env, b.ID))

	_, err := env.Batches.AdjustStock(ctx, b.ID, types.MaxQuantity-10, nil)
	require.NoError(t, err)
	assert.Equal(t, types.MaxQuantity, env.Quantity(t, b.ID))
}

func TestCreateBatch_QuantityAboveLimit(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Paracetamol")

	_, err := env.Batches.CreateBatch(ctx, batch.CreateInput{
		ProductID:    p.ID,
		Quantity:     types.MaxQuantity + 1,
		CostPrice:    m("80"),
		SellingPrice: m("100"),
		MRP:          m("120"),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
}
