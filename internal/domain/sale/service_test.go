package sale_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/app/apptest"
	"tillpoint/internal/core/apperror"
	appctx "tillpoint/internal/core/context"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/ledger"
	"tillpoint/internal/domain/pricing"
	"tillpoint/internal/domain/promotion"
	"tillpoint/internal/domain/sale"
)

var m = apptest.M

func ptr[T any](v T) *T { return &v }

func TestRecordSale(t *testing.T) {
	ctx := context.Background()

	t.Run("multi-line sale", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Paracetamol")
		b1 := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 10, Cost: "80", Selling: "100", MRP: "120"})
		b2 := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 5, Cost: "50", Selling: "60", MRP: "70"})

		opCtx := appctx.WithOperator(ctx, &appctx.OperatorContext{OperatorID: "cashier-1"})
		s, err := env.Sales.RecordSale(opCtx, sale.RecordInput{
			Items: []sale.LineInput{
				{BatchID: b1.ID, Quantity: 2},
				{BatchID: b2.ID, Quantity: 3},
			},
			Discount: m("10"),
		})
		require.NoError(t, err)

		assert.Equal(t, "S-2026-00001", s.Number)
		assert.True(t, s.Subtotal.Equal(m("380")), s.Subtotal.String())
		assert.True(t, s.Total.Equal(m("370")), s.Total.String())
		assert.True(t, s.GrossProfit.Equal(m("70")), s.GrossProfit.String())
		require.NotNil(t, s.OperatorID)
		assert.Equal(t, "cashier-1", *s.OperatorID)

		require.Len(t, s.Items, 2)
		assert.Equal(t, 1, s.Items[0].LineNo)
		assert.Equal(t, sale.PriceFromBatch, s.Items[0].PriceSource)
		assert.True(t, s.Items[0].CostPrice.Equal(m("80")))
		assert.True(t, s.Items[1].LineTotal.Equal(m("180")))

		assert.Equal(t, types.Quantity(8), env.Quantity(t, b1.ID))
		assert.Equal(t, types.Quantity(2), env.Quantity(t, b2.ID))

		stored, err := env.Sales.GetSale(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, stored.Items, 2)
		assert.Equal(t, s.Items[0].ID, stored.Items[0].ID)

		var sold []ledger.Movement
		for mv, err := range env.Ledger.QueryRange(ctx, p.ID, time.Time{}, time.Time{}) {
			require.NoError(t, err)
			sold = append(sold, mv)
		}
		require.Len(t, sold, 2)
		for _, mv := range sold {
			assert.Equal(t, ledger.MovementSold, mv.Type)
			require.NotNil(t, mv.SaleItemID)
			_, found := s.Item(*mv.SaleItemID)
			assert.True(t, found)
		}

		events := env.Store.Outbox().Events()
		assert.Equal(t, domain.EventSaleRecorded, events[len(events)-1].EventType)
	})

	t.Run("sale numbers increase", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Paracetamol")
		b := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 10, Cost: "1", Selling: "2", MRP: "3"})

		first, err := env.Sales.RecordSale(ctx, sale.RecordInput{Items: []sale.LineInput{{BatchID: b.ID, Quantity: 1}}})
		require.NoError(t, err)
		second, err := env.Sales.RecordSale(ctx, sale.RecordInput{Items: []sale.LineInput{{BatchID: b.ID, Quantity: 1}}})
		require.NoError(t, err)

		assert.Equal(t, "S-2026-00001", first.Number)
		assert.Equal(t, "S-2026-00002", second.Number)
	})

	t.Run("one short line aborts every line", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Paracetamol")
		plenty := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 10, Cost: "1", Selling: "2", MRP: "3"})
		scarce := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 1, Cost: "1", Selling: "2", MRP: "3"})

		_, err := env.Sales.RecordSale(ctx, sale.RecordInput{
			Items: []sale.LineInput{
				{BatchID: plenty.ID, Quantity: 4},
				{BatchID: scarce.ID, Quantity: 2},
			},
		})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
		assert.Equal(t, 2, appErr.Details["line"])

		assert.Equal(t, types.Quantity(10), env.Quantity(t, plenty.ID))
		assert.Equal(t, types.Quantity(1), env.Quantity(t, scarce.ID))

		list, err := env.Sales.ListSales(ctx, sale.ListFilter{})
		require.NoError(t, err)
		assert.Zero(t, list.TotalCount)

		sum, err := env.Ledger.Summarize(ctx, p.ID, time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Zero(t, sum.Movements)

		// The failed sale's number is reused.
		s, err := env.Sales.RecordSale(ctx, sale.RecordInput{Items: []sale.LineInput{{BatchID: plenty.ID, Quantity: 1}}})
		require.NoError(t, err)
		assert.Equal(t, "S-2026-00001", s.Number)
	})

	t.Run("lines on one batch share its stock", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Paracetamol")
		b := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 5, Cost: "1", Selling: "2", MRP: "3"})

		_, err := env.Sales.RecordSale(ctx, sale.RecordInput{
			Items: []sale.LineInput{{BatchID: b.ID, Quantity: 3}, {BatchID: b.ID, Quantity: 3}},
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock), "got %v", err)
		assert.Equal(t, types.Quantity(5), env.Quantity(t, b.ID))

		s, err := env.Sales.RecordSale(ctx, sale.RecordInput{
			Items: []sale.LineInput{{BatchID: b.ID, Quantity: 3}, {BatchID: b.ID, Quantity: 2}},
		})
		require.NoError(t, err)
		assert.Len(t, s.Items, 2)
		assert.Equal(t, types.Quantity(0), env.Quantity(t, b.ID))
	})

	t.Run("input validation", func(t *testing.T) {
		env := apptest.New(t)
		p := env.Product(t, "Paracetamol")
		b := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 5, Cost: "1", Selling: "2", MRP: "3"})

		cases := []struct {
			name string
			in   sale.RecordInput
			code string
		}{
			{"empty", sale.RecordInput{}, apperror.CodeEmptySale},
			{"zero quantity", sale.RecordInput{Items: []sale.LineInput{{BatchID: b.ID}}}, apperror.CodeValidation},
			{"missing batch id", sale.RecordInput{Items: []sale.LineInput{{Quantity: 1}}}, apperror.CodeValidation},
			{"unknown batch", sale.RecordInput{Items: []sale.LineInput{{BatchID: id.New(), Quantity: 1}}}, apperror.CodeBatchNotFound},
			{"negative discount", sale.RecordInput{Items: []sale.LineInput{{BatchID: b.ID, Quantity: 1}}, Discount: m("-1")}, apperror.CodeNegativeValue},
			{"discount above subtotal", sale.RecordInput{Items: []sale.LineInput{{BatchID: b.ID, Quantity: 1}}, Discount: m("2.01")}, apperror.CodeValidation},
			{"override above mrp", sale.RecordInput{Items: []sale.LineInput{{BatchID: b.ID, Quantity: 1, UnitPriceOverride: ptr(m("3.5"))}}}, apperror.CodeSellingAboveMrp},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := env.Sales.RecordSale(ctx, tc.in)
				assert.True(t, apperror.HasCode(err, tc.code), "got %v", err)
			})
		}
		assert.Equal(t, types.Quantity(5), env.Quantity(t, b.ID))
	})
}

func TestRecordSale_PriceResolution(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*apptest.Env, id.ID, id.ID) {
		env := apptest.New(t)
		p := env.Product(t, "Rice 5kg")
		b := env.Batch(t, p.ID, apptest.BatchTerms{
			Quantity: 100, Cost: "40", Selling: "70", MRP: "80",
			Wholesale: &pricing.Wholesale{Price: m("60"), MinQuantity: 10},
		})
		return env, p.ID, b.ID
	}

	t.Run("promotion beats batch price", func(t *testing.T) {
		env, productID, batchID := setup(t)
		_, err := env.Promotions.Create(ctx, promotion.CreateInput{
			Name:      "Spring",
			StartDate: apptest.Start.AddDate(0, 0, -1),
			EndDate:   apptest.Start.AddDate(0, 0, 1),
			IsActive:  true,
			Items:     []promotion.ItemInput{{ProductID: productID, PromoPrice: m("50")}},
		})
		require.NoError(t, err)

		s, err := env.Sales.RecordSale(ctx, sale.RecordInput{
			Items: []sale.LineInput{{BatchID: batchID, Quantity: 12, UnitPriceOverride: ptr(m("65"))}},
		})
		require.NoError(t, err)
		it := s.Items[0]
		assert.True(t, it.SellingPrice.Equal(m("50")), it.SellingPrice.String())
		assert.Equal(t, sale.PriceFromPromotion, it.PriceSource)
		require.NotNil(t, it.PromotionID)
		assert.True(t, it.Profit.Equal(m("120")), it.Profit.String())
	})

	t.Run("promotion outside its window is ignored", func(t *testing.T) {
		env, productID, batchID := setup(t)
		_, err := env.Promotions.Create(ctx, promotion.CreateInput{
			Name:      "Later",
			StartDate: apptest.Start.AddDate(0, 0, 1),
			EndDate:   apptest.Start.AddDate(0, 0, 5),
			IsActive:  true,
			Items:     []promotion.ItemInput{{ProductID: productID, PromoPrice: m("50")}},
		})
		require.NoError(t, err)

		s, err := env.Sales.RecordSale(ctx, sale.RecordInput{Items: []sale.LineInput{{BatchID: batchID, Quantity: 1}}})
		require.NoError(t, err)
		assert.True(t, s.Items[0].SellingPrice.Equal(m("70")))
	})

	t.Run("override beats wholesale and may undercut cost", func(t *testing.T) {
		env, _, batchID := setup(t)
		s, err := env.Sales.RecordSale(ctx, sale.RecordInput{
			Items: []sale.LineInput{{BatchID: batchID, Quantity: 10, UnitPriceOverride: ptr(m("35"))}},
		})
		require.NoError(t, err)
		it := s.Items[0]
		assert.Equal(t, sale.PriceFromOverride, it.PriceSource)
		assert.True(t, it.Profit.Equal(m("-50")), it.Profit.String())
	})

	t.Run("wholesale at minimum quantity", func(t *testing.T) {
		env, _, batchID := setup(t)
		s, err := env.Sales.RecordSale(ctx, sale.RecordInput{
			Items: []sale.LineInput{{BatchID: batchID, Quantity: 10}, {BatchID: batchID, Quantity: 9}},
		})
		require.NoError(t, err)
		assert.Equal(t, sale.PriceFromWholesale, s.Items[0].PriceSource)
		assert.True(t, s.Items[0].SellingPrice.Equal(m("60")))
		assert.Equal(t, sale.PriceFromBatch, s.Items[1].PriceSource)
		assert.True(t, s.Items[1].SellingPrice.Equal(m("70")))
	})
}

func TestListSales(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Paracetamol")
	b := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 10, Cost: "1", Selling: "2", MRP: "3"})

	var ids []id.ID
	for range 3 {
		s, err := env.Sales.RecordSale(ctx, sale.RecordInput{Items: []sale.LineInput{{BatchID: b.ID, Quantity: 1}}})
		require.NoError(t, err)
		ids = append(ids, s.ID)
		env.Clock.Advance(24 * time.Hour)
	}

	all, err := env.Sales.ListSales(ctx, sale.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.Equal(t, ids[2], all.Items[0].ID)
	assert.Empty(t, all.Items[0].Items)

	window, err := env.Sales.ListSales(ctx, sale.ListFilter{
		From: apptest.Start.Add(time.Hour),
		To:   apptest.Start.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, window.Items, 1)
	assert.Equal(t, ids[1], window.Items[0].ID)

	_, err = env.Sales.ListSales(ctx, sale.ListFilter{From: apptest.Start, To: apptest.Start.Add(-time.Hour)})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = env.Sales.GetSale(ctx, id.New())
	assert.True(t, apperror.HasCode(err, apperror.CodeSaleNotFound))
}

func TestRecordSale_SameBatchDemandDoesNotWrap(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Rice 5kg")
	b := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 10, Cost: "1", Selling: "2", MRP: "3"})

	// Unchecked, these three lines sum to 1 and would pass the stock check.
	_, err := env.Sales.RecordSale(ctx, sale.RecordInput{Items: []sale.LineInput{
		{BatchID: b.ID, Quantity: math.MaxInt64},
		{BatchID: b.ID, Quantity: math.MaxInt64},
		{BatchID: b.ID, Quantity: 3},
	}})
	require.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock), "got %v", err)
	appErr, _ := apperror.AsAppError(err)
	assert.EqualValues(t, 10, appErr.Details["available"])
	assert.Equal(t, types.Quantity(10), env.Quantity(t, b.ID))
}
