package refund_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/app/apptest"
	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/batch"
	"tillpoint/internal/domain/ledger"
	"tillpoint/internal/domain/refund"
	"tillpoint/internal/domain/sale"
)

type fixture struct {
	env   *apptest.Env
	batch *batch.Batch
	sale  *sale.Sale
}

// newFixture sells 5 units from a batch of 20 and returns 2 of them.
func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Paracetamol")
	b := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 20, Cost: "80", Selling: "100", MRP: "120"})

	s, err := env.Sales.RecordSale(ctx, sale.RecordInput{Items: []sale.LineInput{{BatchID: b.ID, Quantity: 5}}})
	require.NoError(t, err)

	_, err = env.Returns.ProcessReturn(ctx, refund.ProcessInput{
		SaleID: s.ID,
		Items:  []refund.LineInput{{SaleItemID: s.Items[0].ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, types.Quantity(17), env.Quantity(t, b.ID))

	return fixture{env: env, batch: b, sale: s}
}

func returnedMovements(t *testing.T, env *apptest.Env, batchID id.ID) []ledger.Movement {
	t.Helper()
	var out []ledger.Movement
	for mv, err := range env.Repos.Movements.Range(context.Background(), ledger.RangeFilter{BatchID: &batchID}) {
		require.NoError(t, err)
		if mv.Type == ledger.MovementReturned {
			out = append(out, mv)
		}
	}
	return out
}

func TestProcessReturn_RemainingAllowance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	itemID := f.sale.Items[0].ID

	t.Run("over return fails without mutation", func(t *testing.T) {
		_, err := f.env.Returns.ProcessReturn(ctx, refund.ProcessInput{
			SaleID: f.sale.ID,
			Items:  []refund.LineInput{{SaleItemID: itemID, Quantity: 4}},
		})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeOverReturn, appErr.Code)
		assert.Equal(t, int64(3), appErr.Details["remaining"])

		stored, err := f.env.Sales.GetSale(ctx, f.sale.ID)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(2), stored.Items[0].ReturnedQuantity)
		assert.Equal(t, types.Quantity(17), f.env.Quantity(t, f.batch.ID))
		assert.Len(t, returnedMovements(t, f.env, f.batch.ID), 1)
	})

	t.Run("returning the rest succeeds", func(t *testing.T) {
		updated, err := f.env.Returns.ProcessReturn(ctx, refund.ProcessInput{
			SaleID: f.sale.ID,
			Items:  []refund.LineInput{{SaleItemID: itemID, Quantity: 3}},
		})
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(5), updated.Items[0].ReturnedQuantity)
		assert.Equal(t, types.Quantity(20), f.env.Quantity(t, f.batch.ID))

		moves := returnedMovements(t, f.env, f.batch.ID)
		require.Len(t, moves, 2)
		assert.Equal(t, types.Quantity(3), moves[1].Delta)
		require.NotNil(t, moves[1].SaleItemID)
		assert.Equal(t, itemID, *moves[1].SaleItemID)
	})

	t.Run("nothing left to return", func(t *testing.T) {
		_, err := f.env.Returns.ProcessReturn(ctx, refund.ProcessInput{
			SaleID: f.sale.ID,
			Items:  []refund.LineInput{{SaleItemID: itemID, Quantity: 1}},
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeOverReturn), "got %v", err)
	})

	t.Run("returns are listed with amounts", func(t *testing.T) {
		returns, err := f.env.Returns.ListReturns(ctx, f.sale.ID)
		require.NoError(t, err)
		require.Len(t, returns, 2)
		assert.True(t, returns[0].Amount.Equal(apptest.M("200")), returns[0].Amount.String())
		assert.True(t, returns[1].Amount.Equal(apptest.M("300")), returns[1].Amount.String())
	})
}

func TestProcessReturn_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Paracetamol")
	b1 := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 10, Cost: "1", Selling: "2", MRP: "3"})
	b2 := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 10, Cost: "1", Selling: "2", MRP: "3"})

	s, err := env.Sales.RecordSale(ctx, sale.RecordInput{Items: []sale.LineInput{
		{BatchID: b1.ID, Quantity: 4},
		{BatchID: b2.ID, Quantity: 1},
	}})
	require.NoError(t, err)

	_, err = env.Returns.ProcessReturn(ctx, refund.ProcessInput{
		SaleID: s.ID,
		Items: []refund.LineInput{
			{SaleItemID: s.Items[0].ID, Quantity: 4},
			{SaleItemID: s.Items[1].ID, Quantity: 2},
		},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeOverReturn), "got %v", err)

	stored, err := env.Sales.GetSale(ctx, s.ID)
	require.NoError(t, err)
	for _, it := range stored.Items {
		assert.Zero(t, it.ReturnedQuantity)
	}
	assert.Equal(t, types.Quantity(6), env.Quantity(t, b1.ID))
	assert.Equal(t, types.Quantity(9), env.Quantity(t, b2.ID))
	assert.Empty(t, returnedMovements(t, env, b1.ID))

	_, err = env.Returns.ProcessReturn(ctx, refund.ProcessInput{
		SaleID: s.ID,
		Items: []refund.LineInput{
			{SaleItemID: s.Items[0].ID, Quantity: 1},
			{SaleItemID: id.New(), Quantity: 1},
		},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeSaleItemNotFound), "got %v", err)
	assert.Equal(t, types.Quantity(6), env.Quantity(t, b1.ID))
}

func TestProcessReturn_MergesDuplicateLines(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Paracetamol")
	b := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 10, Cost: "1", Selling: "2", MRP: "3"})

	s, err := env.Sales.RecordSale(ctx, sale.RecordInput{Items: []sale.LineInput{{BatchID: b.ID, Quantity: 3}}})
	require.NoError(t, err)
	itemID := s.Items[0].ID

	// 2 + 2 exceeds the 3 sold even though each line alone fits.
	_, err = env.Returns.ProcessReturn(ctx, refund.ProcessInput{
		SaleID: s.ID,
		Items:  []refund.LineInput{{SaleItemID: itemID, Quantity: 2}, {SaleItemID: itemID, Quantity: 2}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeOverReturn), "got %v", err)

	updated, err := env.Returns.ProcessReturn(ctx, refund.ProcessInput{
		SaleID: s.ID,
		Items:  []refund.LineInput{{SaleItemID: itemID, Quantity: 1}, {SaleItemID: itemID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(3), updated.Items[0].ReturnedQuantity)

	moves := returnedMovements(t, env, b.ID)
	require.Len(t, moves, 1)
	assert.Equal(t, types.Quantity(3), moves[0].Delta)

	events := env.Store.Outbox().Events()
	last := events[len(events)-1]
	assert.Equal(t, domain.EventReturnProcessed, last.EventType)
	assert.Equal(t, s.ID, last.AggregateID)
}

func TestProcessReturn_Validation(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)

	cases := []struct {
		name string
		in   refund.ProcessInput
		code string
	}{
		{"no lines", refund.ProcessInput{SaleID: id.New()}, apperror.CodeValidation},
		{"missing sale item", refund.ProcessInput{SaleID: id.New(), Items: []refund.LineInput{{Quantity: 1}}}, apperror.CodeValidation},
		{"unknown sale", refund.ProcessInput{SaleID: id.New(), Items: []refund.LineInput{{SaleItemID: id.New(), Quantity: 1}}}, apperror.CodeSaleNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Returns.ProcessReturn(ctx, tc.in)
			assert.True(t, apperror.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func TestProcessReturn_NonPositiveQuantityIsOverReturn(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Soap")
	b := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 10, Cost: "1", Selling: "2", MRP: "3"})
	s, err := env.Sales.RecordSale(ctx, sale.RecordInput{Items: []sale.LineInput{{BatchID: b.ID, Quantity: 3}}})
	require.NoError(t, err)
	itemID := s.Items[0].ID

	for _, lines := range [][]refund.LineInput{
		{{SaleItemID: itemID, Quantity: 0}},
		{{SaleItemID: itemID, Quantity: -1}},
		{{SaleItemID: itemID, Quantity: 2}, {SaleItemID: itemID, Quantity: -1}},
	} {
		_, err := env.Returns.ProcessReturn(ctx, refund.ProcessInput{SaleID: s.ID, Items: lines})
		require.True(t, apperror.HasCode(err, apperror.CodeOverReturn), "got %v", err)
		appErr, _ := apperror.AsAppError(err)
		assert.EqualValues(t, 3, appErr.Details["remaining"])
	}
	assert.Equal(t, types.Quantity(7), env.Quantity(t, b.ID))
}

func TestProcessReturn_HugeDuplicateLinesDoNotWrap(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Soap")
	b := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 10, Cost: "1", Selling: "2", MRP: "3"})
	s, err := env.Sales.RecordSale(ctx, sale.RecordInput{Items: []sale.LineInput{{BatchID: b.ID, Quantity: 3}}})
	require.NoError(t, err)
	itemID := s.Items[0].ID

	// Two max-int lines plus 3 would wrap to 1 in unchecked arithmetic.
	_, err = env.Returns.ProcessReturn(ctx, refund.ProcessInput{
		SaleID: s.ID,
		Items: []refund.LineInput{
			{SaleItemID: itemID, Quantity: math.MaxInt64},
			{SaleItemID: itemID, Quantity: math.MaxInt64},
			{SaleItemID: itemID, Quantity: 3},
		},
	})
	require.True(t, apperror.HasCode(err, apperror.CodeOverReturn), "got %v", err)

	stored, err := env.Sales.GetSale(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Items[0].ReturnedQuantity)
	assert.Equal(t, types.Quantity(7), env.Quantity(t, b.ID))
	assert.Empty(t, returnedMovements(t, env, b.ID))
}
