package purchasing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Distribuidora-api/internal/application/batch"
	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/application/purchasing"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/memory"
)

var now = time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T) (*memory.Store, *purchasing.Service) {
	t.Helper()
	store := memory.NewStore()
	store.PutProduct(&entity.Product{ID: "p1", SKU: "ACEITE", IsActive: true})
	store.PutProduct(&entity.Product{ID: "p2", SKU: "HARINA", IsActive: true})
	runner := ledger.NewRunner(store, nil, func() time.Time { return now })
	l := ledger.NewLedger(runner, store.Repos().Movements, nil)
	tracker := batch.NewTracker(l, store.Repos().Batches)
	return store, purchasing.NewService(l, tracker, store.Repos().Purchases)
}

func createPO(t *testing.T, svc *purchasing.Service) *entity.PurchaseOrder {
	t.Helper()
	po, err := svc.Create(context.Background(), "comprador", purchasing.CreateInput{
		SupplierID: "prov-1",
		Items: []purchasing.ItemInput{
			{ProductID: "p1", Quantity: 10, UnitCost: dec("4")},
			{ProductID: "p2", Quantity: 5, UnitCost: dec("2.20")},
		},
	})
	require.NoError(t, err)
	return po
}

func itemFor(po *entity.PurchaseOrder, productID string) *entity.PurchaseItem {
	for _, it := range po.Items {
		if it.ProductID == productID {
			return it
		}
	}
	return nil
}

func TestCreate_Totales(t *testing.T) {
	_, svc := setup(t)
	po := createPO(t, svc)
	assert.Equal(t, entity.PurchasePending, po.Status)
	assert.True(t, dec("51").Equal(po.TotalAmount), "10*4 + 5*2.20")

	_, err := svc.Create(context.Background(), "comprador", purchasing.CreateInput{SupplierID: "prov-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Create(context.Background(), "comprador", purchasing.CreateInput{
		SupplierID: "prov-1", Items: []purchasing.ItemInput{{ProductID: "px", Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReceive_ParcialYLuegoCompleta(t *testing.T) {
	store, svc := setup(t)
	ctx := context.Background()
	po := createPO(t, svc)
	i1, i2 := itemFor(po, "p1"), itemFor(po, "p2")

	po, err := svc.Receive(ctx, "bodega", po.ID, []purchasing.ReceiptLine{{ItemID: i1.ID, Quantity: 6}})
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrdered, po.Status)
	assert.Equal(t, 6, store.Product("p1").StockQuantity)

	po, err = svc.Receive(ctx, "bodega", po.ID, []purchasing.ReceiptLine{
		{ItemID: i1.ID, Quantity: 4},
		{ItemID: i2.ID, Quantity: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseReceived, po.Status)
	assert.Equal(t, 10, store.Product("p1").StockQuantity)
	assert.Equal(t, 5, store.Product("p2").StockQuantity)

	movs := store.Movements("p1")
	require.Len(t, movs, 2)
	assert.Equal(t, entity.MovementIn, movs[0].Type)
	assert.Equal(t, entity.RefPurchaseOrder, movs[0].ReferenceType)
	assert.Equal(t, po.ID, movs[0].ReferenceID)
}

func TestReceive_ExcesoRechazaTodo(t *testing.T) {
	store, svc := setup(t)
	po := createPO(t, svc)
	i1, i2 := itemFor(po, "p1"), itemFor(po, "p2")

	_, err := svc.Receive(context.Background(), "bodega", po.ID, []purchasing.ReceiptLine{
		{ItemID: i1.ID, Quantity: 3},
		{ItemID: i2.ID, Quantity: 6},
	})
	require.ErrorIs(t, err, domain.ErrOverReceipt)
	var ae *domain.AllowanceError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, i2.ID, ae.LineID)
	assert.Equal(t, 5, ae.Remaining)

	assert.Equal(t, 0, store.Product("p1").StockQuantity, "todo o nada")
	got, err := svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, itemFor(got, "p1").ReceivedQuantity)
	assert.Equal(t, entity.PurchasePending, got.Status)
}

func TestReceive_LineasRepetidasSeAcumulan(t *testing.T) {
	_, svc := setup(t)
	po := createPO(t, svc)
	i2 := itemFor(po, "p2")

	_, err := svc.Receive(context.Background(), "bodega", po.ID, []purchasing.ReceiptLine{
		{ItemID: i2.ID, Quantity: 3},
		{ItemID: i2.ID, Quantity: 3},
	})
	assert.ErrorIs(t, err, domain.ErrOverReceipt)
}

func TestReceive_IgnoraNoPositivasYRechazaAjenas(t *testing.T) {
	store, svc := setup(t)
	po := createPO(t, svc)
	i1 := itemFor(po, "p1")

	po, err := svc.Receive(context.Background(), "bodega", po.ID, []purchasing.ReceiptLine{
		{ItemID: i1.ID, Quantity: 0},
		{ItemID: "otra", Quantity: -1},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PurchasePending, po.Status)
	assert.Empty(t, store.Movements("p1"))

	_, err = svc.Receive(context.Background(), "bodega", po.ID, []purchasing.ReceiptLine{{ItemID: "otra", Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Receive(context.Background(), "bodega", "nope", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReceive_CostoPromedioPonderado(t *testing.T) {
	store, svc := setup(t)
	ctx := context.Background()
	po := createPO(t, svc)
	i1 := itemFor(po, "p1")

	_, err := svc.Receive(ctx, "bodega", po.ID, []purchasing.ReceiptLine{{ItemID: i1.ID, Quantity: 5}})
	require.NoError(t, err)
	require.NotNil(t, store.Product("p1").CostPrice)
	assert.True(t, dec("4").Equal(*store.Product("p1").CostPrice))

	po2, err := svc.Create(ctx, "comprador", purchasing.CreateInput{
		SupplierID: "prov-2", Items: []purchasing.ItemInput{{ProductID: "p1", Quantity: 5, UnitCost: dec("6")}},
	})
	require.NoError(t, err)
	_, err = svc.Receive(ctx, "bodega", po2.ID, []purchasing.ReceiptLine{{ItemID: po2.Items[0].ID, Quantity: 5}})
	require.NoError(t, err)
	assert.True(t, dec("5").Equal(*store.Product("p1").CostPrice), "(5*4 + 5*6) / 10")
}

func TestReceive_ConVencimientoCreaOLlenaLote(t *testing.T) {
	store, svc := setup(t)
	ctx := context.Background()
	po := createPO(t, svc)
	i1 := itemFor(po, "p1")
	exp := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	_, err := svc.Receive(ctx, "bodega", po.ID, []purchasing.ReceiptLine{{ItemID: i1.ID, Quantity: 4, BatchNumber: "L-77", ExpiryDate: &exp}})
	require.NoError(t, err)
	_, err = svc.Receive(ctx, "bodega", po.ID, []purchasing.ReceiptLine{{ItemID: i1.ID, Quantity: 2, BatchNumber: "L-77", ExpiryDate: &exp}})
	require.NoError(t, err)

	batches, err := store.Repos().Batches.ListByProduct(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, batches, 1, "el mismo número de lote se reutiliza")
	assert.Equal(t, 6, batches[0].Quantity)
	assert.Equal(t, "L-77", batches[0].BatchNumber)

	p := store.Product("p1")
	assert.Equal(t, 6, p.StockQuantity)
	require.NotNil(t, p.ExpiryDate)
	assert.Equal(t, exp, *p.ExpiryDate)
	assert.Equal(t, store.LedgerSum("p1"), p.StockQuantity)
}

func TestReceive_LoteExistenteConOtroVencimientoSeRechaza(t *testing.T) {
	store, svc := setup(t)
	ctx := context.Background()
	po := createPO(t, svc)
	i1 := itemFor(po, "p1")
	exp := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	other := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)

	_, err := svc.Receive(ctx, "bodega", po.ID, []purchasing.ReceiptLine{{ItemID: i1.ID, Quantity: 4, BatchNumber: "L-77", ExpiryDate: &exp}})
	require.NoError(t, err)

	_, err = svc.Receive(ctx, "bodega", po.ID, []purchasing.ReceiptLine{{ItemID: i1.ID, Quantity: 2, BatchNumber: "L-77", ExpiryDate: &other}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	batches, err := store.Repos().Batches.ListByProduct(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 4, batches[0].Quantity)
	require.NotNil(t, batches[0].ExpiryDate)
	assert.Equal(t, exp, *batches[0].ExpiryDate, "el lote conserva su vencimiento")
	assert.Equal(t, 4, store.Product("p1").StockQuantity)

	got, err := svc.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, itemFor(got, "p1").ReceivedQuantity, "la recepción rechazada no deja rastro")
}
