package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcastano/stockpos/internal/core/domain"
)

func TestSalesReport(t *testing.T) {
	engine, store := newTestEngine(t, map[string]int{"A": 10, "B": 5})
	reports := NewReportService(store.Sales())
	ctx := context.Background()

	_, err := engine.ProcessSale(ctx, []domain.SaleLineItem{
		{Code: "A", Quantity: 2},
		{Code: "B", Quantity: 1},
	})
	require.NoError(t, err)

	records, err := reports.SalesReport(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	records, err = reports.SalesReport(ctx, &past, &future)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = reports.SalesReport(ctx, &future, nil)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = reports.SalesReport(ctx, nil, &past)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSalesReport_InvalidRange(t *testing.T) {
	_, store := newTestEngine(t, nil)
	reports := NewReportService(store.Sales())

	from := time.Now()
	to := from.Add(-time.Hour)

	_, err := reports.SalesReport(context.Background(), &from, &to)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestSalesReport_JoinsCurrentProductName(t *testing.T) {
	engine, store := newTestEngine(t, map[string]int{"A": 10})
	reports := NewReportService(store.Sales())
	products := NewProductService(store.Stock(), store)
	ctx := context.Background()

	_, err := engine.ProcessSale(ctx, []domain.SaleLineItem{{Code: "A", Quantity: 1}})
	require.NoError(t, err)

	renamed := "Renamed A"
	require.NoError(t, products.UpdateProduct(ctx, "A", ProductUpdate{Name: &renamed}))

	records, err := reports.SalesReport(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, renamed, records[0].Name)
}
