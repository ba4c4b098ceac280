package alerts_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Distribuidora-api/internal/application/alerts"
	"github.com/jhoicas/Distribuidora-api/internal/application/batch"
	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/memory"
)

var now = time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func TestLowStock_SugerenciaYPrioridad(t *testing.T) {
	store := memory.NewStore()
	cost := decimal.RequireFromString("2.5")
	store.PutProduct(&entity.Product{ID: "a", SKU: "A", IsActive: true, StockQuantity: 1, LowStockThreshold: 10, CostPrice: &cost})
	store.PutProduct(&entity.Product{ID: "b", SKU: "B", IsActive: true, StockQuantity: 4, LowStockThreshold: 5})
	store.PutProduct(&entity.Product{ID: "c", SKU: "C", IsActive: true, StockQuantity: 50, LowStockThreshold: 5})
	store.PutProduct(&entity.Product{ID: "d", SKU: "D", IsActive: false, StockQuantity: 0, LowStockThreshold: 5})

	svc := alerts.NewService(store.Repos().Products, store.Repos().Batches, clock)
	items, err := svc.LowStock(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 2, "inactivos y con stock suficiente no aparecen")

	assert.Equal(t, "a", items[0].ProductID)
	assert.Equal(t, 1, items[0].Priority)
	assert.Equal(t, 15, items[0].IdealStock)
	assert.Equal(t, 14, items[0].SuggestedQty)
	assert.True(t, decimal.RequireFromString("35").Equal(items[0].EstimatedCost))

	assert.Equal(t, "b", items[1].ProductID)
	assert.Equal(t, 8, items[1].IdealStock, "ceil(5 * 1.5)")
	assert.Equal(t, 4, items[1].SuggestedQty)
	assert.True(t, items[1].EstimatedCost.IsZero())
}

func TestExpiringBatches(t *testing.T) {
	store := memory.NewStore()
	store.PutProduct(&entity.Product{ID: "p1", SKU: "YOGUR", IsActive: true})
	runner := ledger.NewRunner(store, nil, clock)
	l := ledger.NewLedger(runner, store.Repos().Movements, nil)
	tracker := batch.NewTracker(l, store.Repos().Batches)
	ctx := context.Background()

	day := func(d int) *time.Time { t := entity.TruncateDay(now).AddDate(0, 0, d); return &t }
	for _, in := range []batch.CreateInput{
		{ProductID: "p1", BatchNumber: "VENCIDO", Quantity: 2, ExpiryDate: day(-1)},
		{ProductID: "p1", BatchNumber: "PRONTO", Quantity: 3, ExpiryDate: day(5)},
		{ProductID: "p1", BatchNumber: "LEJANO", Quantity: 3, ExpiryDate: day(90)},
		{ProductID: "p1", BatchNumber: "VACIO", Quantity: 0, ExpiryDate: day(2)},
	} {
		_, err := tracker.Create(ctx, "bodega", in)
		require.NoError(t, err)
	}

	svc := alerts.NewService(store.Repos().Products, store.Repos().Batches, clock)
	got, err := svc.ExpiringBatches(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "VENCIDO", got[0].BatchNumber)
	assert.True(t, got[0].Expired)
	assert.Equal(t, -1, got[0].DaysLeft)
	assert.Equal(t, "PRONTO", got[1].BatchNumber)
	assert.False(t, got[1].Expired)
	assert.Equal(t, 5, got[1].DaysLeft)

	all, err := svc.ExpiringBatches(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2, "horizonte por defecto de 30 días")
}
