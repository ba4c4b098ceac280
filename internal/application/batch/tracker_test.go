package batch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Distribuidora-api/internal/application/batch"
	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/memory"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func setup(t *testing.T) (*memory.Store, *batch.Tracker) {
	t.Helper()
	store := memory.NewStore()
	store.PutProduct(&entity.Product{ID: "p1", SKU: "LECHE", IsActive: true})
	runner := ledger.NewRunner(store, nil, func() time.Time { return now })
	l := ledger.NewLedger(runner, store.Repos().Movements, nil)
	return store, batch.NewTracker(l, store.Repos().Batches)
}

func TestCreate_IngresaStockPorElLibro(t *testing.T) {
	store, tracker := setup(t)

	b, err := tracker.Create(context.Background(), "u1", batch.CreateInput{
		ProductID: "p1", BatchNumber: "L-001", Quantity: 12, ExpiryDate: date(2026, 7, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 12, b.Quantity)
	assert.Equal(t, 12, store.Batch(b.ID).Quantity)

	p := store.Product("p1")
	assert.Equal(t, 12, p.StockQuantity)
	assert.Equal(t, store.LedgerSum("p1"), p.StockQuantity)
	require.NotNil(t, p.ExpiryDate)
	assert.Equal(t, *date(2026, 7, 1), *p.ExpiryDate)

	movs := store.Movements("p1")
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementIn, movs[0].Type)
	assert.Equal(t, entity.RefBatch, movs[0].ReferenceType)
	require.NotNil(t, movs[0].BatchID)
	assert.Equal(t, b.ID, *movs[0].BatchID)
}

func TestCreate_Duplicado(t *testing.T) {
	_, tracker := setup(t)
	ctx := context.Background()
	_, err := tracker.Create(ctx, "u1", batch.CreateInput{ProductID: "p1", BatchNumber: "L-1", Quantity: 1})
	require.NoError(t, err)

	_, err = tracker.Create(ctx, "u1", batch.CreateInput{ProductID: "p1", BatchNumber: "L-1", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestCreate_CantidadCeroNoMueveStock(t *testing.T) {
	store, tracker := setup(t)
	_, err := tracker.Create(context.Background(), "u1", batch.CreateInput{ProductID: "p1", BatchNumber: "L-0"})
	require.NoError(t, err)
	assert.Empty(t, store.Movements("p1"))
}

func TestResize_EmiteAjuste(t *testing.T) {
	store, tracker := setup(t)
	ctx := context.Background()
	b, err := tracker.Create(ctx, "u1", batch.CreateInput{ProductID: "p1", BatchNumber: "L-1", Quantity: 10})
	require.NoError(t, err)

	b, err = tracker.Resize(ctx, "u1", b.ID, 7, "")
	require.NoError(t, err)
	assert.Equal(t, 7, b.Quantity)
	assert.Equal(t, 7, store.Product("p1").StockQuantity)

	movs := store.Movements("p1")
	require.Len(t, movs, 2)
	assert.Equal(t, entity.MovementAdjust, movs[1].Type)
	assert.Equal(t, -3, movs[1].Quantity)

	_, err = tracker.Resize(ctx, "u1", b.ID, 7, "")
	require.NoError(t, err)
	assert.Len(t, store.Movements("p1"), 2, "sin diferencia no hay movimiento")
	assert.Equal(t, store.LedgerSum("p1"), store.Product("p1").StockQuantity)
}

func TestSyncExpiry_MasProximaConStock(t *testing.T) {
	store, tracker := setup(t)
	ctx := context.Background()

	_, err := tracker.Create(ctx, "u1", batch.CreateInput{ProductID: "p1", BatchNumber: "A", Quantity: 5, ExpiryDate: date(2026, 9, 1)})
	require.NoError(t, err)
	early, err := tracker.Create(ctx, "u1", batch.CreateInput{ProductID: "p1", BatchNumber: "B", Quantity: 5, ExpiryDate: date(2026, 6, 15)})
	require.NoError(t, err)
	// vencido: no cuenta
	_, err = tracker.Create(ctx, "u1", batch.CreateInput{ProductID: "p1", BatchNumber: "C", Quantity: 5, ExpiryDate: date(2026, 5, 1)})
	require.NoError(t, err)
	assert.Equal(t, *date(2026, 6, 15), *store.Product("p1").ExpiryDate)

	// vaciar el lote B mueve el vencimiento al siguiente lote con stock
	_, err = tracker.Resize(ctx, "u1", early.ID, 0, "merma")
	require.NoError(t, err)
	assert.Equal(t, *date(2026, 9, 1), *store.Product("p1").ExpiryDate)
}

func TestSyncExpiry_SinLotesConservaValor(t *testing.T) {
	store, tracker := setup(t)
	ctx := context.Background()
	b, err := tracker.Create(ctx, "u1", batch.CreateInput{ProductID: "p1", BatchNumber: "A", Quantity: 2, ExpiryDate: date(2026, 8, 1)})
	require.NoError(t, err)

	_, err = tracker.Resize(ctx, "u1", b.ID, 0, "")
	require.NoError(t, err)
	p := store.Product("p1")
	require.NotNil(t, p.ExpiryDate)
	assert.Equal(t, *date(2026, 8, 1), *p.ExpiryDate, "se conserva el último valor conocido")
}
