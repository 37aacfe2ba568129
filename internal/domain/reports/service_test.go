package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/app/apptest"
	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/refund"
	"tillpoint/internal/domain/reports"
	"tillpoint/internal/domain/sale"
)

func ptr[T any](v T) *T { return &v }

func TestLowStockAndValuation(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)

	low := env.ProductWith(t, catalog.CreateProductInput{
		Name: "Bandages", BatchTrackingEnabled: true, LowStockThreshold: ptr(types.Quantity(10)),
	})
	fine := env.ProductWith(t, catalog.CreateProductInput{
		Name: "Cotton", BatchTrackingEnabled: true, LowStockThreshold: ptr(types.Quantity(3)),
	})
	env.Product(t, "Untracked threshold")

	env.Batch(t, low.ID, apptest.BatchTerms{Quantity: 6, Cost: "2", Selling: "3", MRP: "4"})
	env.Batch(t, low.ID, apptest.BatchTerms{Quantity: 4, Cost: "2.5", Selling: "3", MRP: "4"})
	env.Batch(t, fine.ID, apptest.BatchTerms{Quantity: 8, Cost: "1", Selling: "1.5", MRP: "2"})

	items, err := env.Reports.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, low.ID, items[0].ProductID)
	assert.Equal(t, types.Quantity(10), items[0].TotalQuantity)

	val, err := env.Reports.StockValuation(ctx, nil)
	require.NoError(t, err)
	require.Len(t, val.Items, 2)
	assert.Equal(t, types.Quantity(18), val.Quantity)
	// 6*2 + 4*2.5 + 8*1
	assert.True(t, val.CostValue.Equal(apptest.M("30")), val.CostValue.String())
	// 10*3 + 8*1.5
	assert.True(t, val.RetailValue.Equal(apptest.M("42")), val.RetailValue.String())

	one, err := env.Reports.StockValuation(ctx, &fine.ID)
	require.NoError(t, err)
	require.Len(t, one.Items, 1)
	assert.True(t, one.CostValue.Equal(apptest.M("8")))
}

func TestExpiringBatches(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Yoghurt")

	today := domain.DateOnly(apptest.Start)
	expired := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 1, Cost: "1", Selling: "1", MRP: "1", Expiry: ptr(today.AddDate(0, 0, -1))})
	soon := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 1, Cost: "1", Selling: "1", MRP: "1", Expiry: ptr(today.AddDate(0, 0, 7))})
	env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 1, Cost: "1", Selling: "1", MRP: "1", Expiry: ptr(today.AddDate(0, 0, 8))})
	env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 0, Cost: "1", Selling: "1", MRP: "1", Expiry: ptr(today)})
	env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 1, Cost: "1", Selling: "1", MRP: "1"})

	items, err := env.Reports.ExpiringBatches(ctx, 7)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, expired.ID, items[0].BatchID)
	assert.True(t, items[0].Expired)
	assert.Equal(t, soon.ID, items[1].BatchID)
	assert.False(t, items[1].Expired)

	_, err = env.Reports.ExpiringBatches(ctx, -1)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestDailySales(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Bread")
	b := env.Batch(t, p.ID, apptest.BatchTerms{Quantity: 50, Cost: "20", Selling: "30", MRP: "35"})

	first, err := env.Sales.RecordSale(ctx, sale.RecordInput{Items: []sale.LineInput{{BatchID: b.ID, Quantity: 2}}})
	require.NoError(t, err)
	env.Clock.Advance(time.Hour)
	_, err = env.Sales.RecordSale(ctx, sale.RecordInput{Items: []sale.LineInput{{BatchID: b.ID, Quantity: 1}}, Discount: apptest.M("5")})
	require.NoError(t, err)

	env.Clock.Advance(24 * time.Hour)
	_, err = env.Returns.ProcessReturn(ctx, refund.ProcessInput{
		SaleID: first.ID,
		Items:  []refund.LineInput{{SaleItemID: first.Items[0].ID, Quantity: 1}},
	})
	require.NoError(t, err)

	start := domain.DateOnly(apptest.Start)
	rows, err := env.Reports.DailySales(ctx, reports.DailySalesFilter{From: start, To: start.AddDate(0, 0, 3)})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, start, rows[0].Date)
	assert.EqualValues(t, 2, rows[0].SalesCount)
	assert.True(t, rows[0].Revenue.Equal(apptest.M("85")), rows[0].Revenue.String())
	assert.True(t, rows[0].Discount.Equal(apptest.M("5")))
	assert.True(t, rows[0].GrossProfit.Equal(apptest.M("30")))

	assert.Zero(t, rows[1].SalesCount)
	assert.Equal(t, types.Quantity(1), rows[1].ReturnedQuantity)
	assert.True(t, rows[1].ReturnedAmount.Equal(apptest.M("30")))

	_, err = env.Reports.DailySales(ctx, reports.DailySalesFilter{From: start})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
