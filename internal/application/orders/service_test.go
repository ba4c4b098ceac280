package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/application/orders"
	"github.com/jhoicas/Distribuidora-api/internal/application/sequence"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const actor = "vendedor-1"

var now = time.Date(2026, 4, 20, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store *memory.Store
	svc   *orders.Service
	l     *ledger.Ledger
}

// newFixture productos p1 (precio 10, stock 10) y p2 (precio 2.50, stock 20);
// cliente c1 sin límite con envío 5.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	runner := ledger.NewRunner(store, nil, func() time.Time { return now })
	l := ledger.NewLedger(runner, store.Repos().Movements, nil)

	store.PutProduct(&entity.Product{ID: "p1", SKU: "ARROZ", BasePrice: dec("10"), IsActive: true})
	store.PutProduct(&entity.Product{ID: "p2", SKU: "SAL", BasePrice: dec("2.50"), IsActive: true})
	for id, q := range map[string]int{"p1": 10, "p2": 20} {
		_, err := l.Receive(context.Background(), actor, ledger.Entry{ProductID: id, Quantity: q, ReferenceType: entity.RefAdjust})
		require.NoError(t, err)
	}
	store.PutProfile(&entity.CreditProfile{CustomerID: "c1", CustomerTypeID: "retail", DeliveryFee: dec("5")})

	repos := store.Repos()
	svc := orders.NewService(orders.Deps{
		Ledger:     l,
		Sequence:   sequence.NewGenerator(sequence.DefaultPrefixes),
		Customers:  store,
		Promotions: store,
		Statuses:   store,
		Orders:     repos.Orders,
		Payments:   repos.Payments,
	})
	return &fixture{store: store, svc: svc, l: l}
}

func (f *fixture) stock(id string) int { return f.store.Product(id).StockQuantity }

func (f *fixture) assertInvariant(t *testing.T) {
	t.Helper()
	for _, id := range f.store.ProductIDs() {
		assert.Equal(t, f.store.LedgerSum(id), f.stock(id), "invariante del libro para %s", id)
	}
}

func (f *fixture) create(t *testing.T, typ entity.OrderType, items ...orders.ItemInput) *entity.SalesOrder {
	t.Helper()
	o, err := f.svc.Create(context.Background(), actor, orders.CreateInput{CustomerID: "c1", Type: typ, Items: items})
	require.NoError(t, err)
	return o
}

func item(productID string, qty int) orders.ItemInput {
	return orders.ItemInput{ProductID: productID, Quantity: qty}
}

// ──────────────────────────────────────────────────────────────────────────────
// Creación
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_NormalDescuentaYValoriza(t *testing.T) {
	f := newFixture(t)

	o := f.create(t, entity.OrderTypeNormal, item("p1", 3), item("p2", 4))

	assert.Equal(t, "ORD-20260420-0001", o.OrderNumber)
	assert.Equal(t, entity.OrderPending, o.Status)
	assert.Equal(t, "status-pending", o.StatusID)
	assert.True(t, dec("40").Equal(o.Subtotal), "3*10 + 4*2.50")
	assert.True(t, dec("5").Equal(o.DeliveryFee))
	assert.True(t, dec("45").Equal(o.TotalAmount))
	assert.Equal(t, 7, f.stock("p1"))
	assert.Equal(t, 16, f.stock("p2"))

	movs, err := f.l.MovementsByReference(context.Background(), entity.RefSalesOrder, o.ID)
	require.NoError(t, err)
	assert.Len(t, movs, 2)
	f.assertInvariant(t)

	o2 := f.create(t, entity.OrderTypeNormal, item("p1", 1))
	assert.Equal(t, "ORD-20260420-0002", o2.OrderNumber)
}

func TestCreate_StockInsuficienteNoDejaRastro(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), actor, orders.CreateInput{
		CustomerID: "c1", Items: []orders.ItemInput{item("p2", 2), item("p1", 11)},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 10, f.stock("p1"))
	assert.Equal(t, 20, f.stock("p2"), "la línea ya descontada se revierte")

	list, err := f.svc.List(context.Background(), "c1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	f.assertInvariant(t)
}

func TestCreate_ValidacionesDeEntrada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]orders.CreateInput{
		"sin líneas":        {CustomerID: "c1"},
		"cantidad cero":     {CustomerID: "c1", Items: []orders.ItemInput{item("p1", 0)}},
		"producto repetido": {CustomerID: "c1", Items: []orders.ItemInput{item("p1", 1), item("p1", 2)}},
		"tipo desconocido":  {CustomerID: "c1", Type: "GIFT", Items: []orders.ItemInput{item("p1", 1)}},
		"descuento > total": {CustomerID: "c1", Items: []orders.ItemInput{item("p1", 1)}, Discount: dec("11")},
	}
	for name, in := range cases {
		_, err := f.svc.Create(ctx, actor, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, name)
	}

	_, err := f.svc.Create(ctx, actor, orders.CreateInput{CustomerID: "nadie", Items: []orders.ItemInput{item("p1", 1)}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.Create(ctx, actor, orders.CreateInput{CustomerID: "c1", Items: []orders.ItemInput{item("px", 1)}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreate_PrecioPorTipoDeCliente(t *testing.T) {
	f := newFixture(t)
	f.store.SetTierPrice("p1", "retail", dec("8"))

	o := f.create(t, entity.OrderTypeNormal, item("p1", 2), item("p2", 2))
	assert.True(t, dec("8").Equal(o.ItemByProduct("p1").UnitPrice))
	assert.True(t, dec("2.50").Equal(o.ItemByProduct("p2").UnitPrice), "sin tarifa usa el precio base")
	assert.True(t, dec("21").Equal(o.Subtotal))
}

func TestCreate_MejorPromocionReemplazaDescuentoManual(t *testing.T) {
	f := newFixture(t)
	f.store.PutPromotion(&entity.Promotion{ID: "promo-b", DiscountPercent: dec("10"), StartDate: now.AddDate(0, 0, -1), EndDate: now.AddDate(0, 0, 1), IsActive: true})
	f.store.PutPromotion(&entity.Promotion{ID: "promo-a", DiscountPercent: dec("10"), StartDate: now.AddDate(0, 0, -1), EndDate: now.AddDate(0, 0, 1), IsActive: true})
	f.store.PutPromotion(&entity.Promotion{ID: "promo-c", DiscountPercent: dec("5"), StartDate: now, EndDate: now, IsActive: true})
	f.store.PutPromotion(&entity.Promotion{ID: "vencida", DiscountPercent: dec("50"), StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 0, -1), IsActive: true})

	o, err := f.svc.Create(context.Background(), actor, orders.CreateInput{
		CustomerID: "c1", Items: []orders.ItemInput{item("p1", 5)}, Discount: dec("3"),
	})
	require.NoError(t, err)
	require.NotNil(t, o.PromotionID)
	assert.Equal(t, "promo-a", *o.PromotionID, "empate: gana el ID menor")
	assert.True(t, dec("5").Equal(o.DiscountAmount), "10 por ciento de 50")
	assert.True(t, dec("50").Equal(o.TotalAmount), "50 - 5 + 5")
}

func TestCreate_LimiteDeCredito(t *testing.T) {
	f := newFixture(t)
	f.store.PutProfile(&entity.CreditProfile{CustomerID: "c1", CreditLimit: dec("60")})

	f.create(t, entity.OrderTypeNormal, item("p1", 4)) // saldo 40

	_, err := f.svc.Create(context.Background(), actor, orders.CreateInput{CustomerID: "c1", Items: []orders.ItemInput{item("p1", 3)}})
	var ce *domain.CreditLimitError
	require.True(t, errors.As(err, &ce))
	assert.True(t, dec("40").Equal(ce.Outstanding))
	assert.True(t, dec("30").Equal(ce.OrderTotal))
	assert.Equal(t, 6, f.stock("p1"), "el rechazo no descuenta")

	f.create(t, entity.OrderTypeNormal, item("p1", 2)) // 40 + 20 = 60, en el límite
}

func TestCreate_LimiteCeroEsIlimitado(t *testing.T) {
	f := newFixture(t)
	f.store.PutProfile(&entity.CreditProfile{CustomerID: "c1", CreditLimit: decimal.Zero})
	f.create(t, entity.OrderTypeNormal, item("p1", 10))
}

func TestCreate_ReposicionPrecioCeroYDescuenta(t *testing.T) {
	f := newFixture(t)
	f.store.PutPromotion(&entity.Promotion{ID: "p", DiscountPercent: dec("10"), StartDate: now, EndDate: now, IsActive: true})

	o := f.create(t, entity.OrderTypeReplacement, item("p1", 2))
	assert.True(t, o.TotalAmount.IsZero())
	assert.True(t, o.DeliveryFee.IsZero())
	assert.Nil(t, o.PromotionID)
	assert.Equal(t, 8, f.stock("p1"))
}

func TestCreate_ConcurrentesSobreElMismoStock(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(context.Background(), actor, orders.CreateInput{CustomerID: "c1", Items: []orders.ItemInput{item("p1", 6)}})
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, domain.ErrInsufficientStock)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 4, f.stock("p1"))
	f.assertInvariant(t)
}

// ──────────────────────────────────────────────────────────────────────────────
// Edición de ítems
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdateItems_DiferenciaMinima(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.PutProduct(&entity.Product{ID: "p3", SKU: "AZUCAR", BasePrice: dec("1"), IsActive: true})
	_, err := f.l.Receive(ctx, actor, ledger.Entry{ProductID: "p3", Quantity: 5})
	require.NoError(t, err)

	o := f.create(t, entity.OrderTypeNormal, item("p1", 3), item("p2", 4))

	// p1 sube a 5 (+2), p2 se quita (restituye 4), p3 entra con 1
	o, err = f.svc.UpdateItems(ctx, actor, o.ID, []orders.ItemInput{item("p1", 5), item("p3", 1)})
	require.NoError(t, err)
	assert.Equal(t, 5, f.stock("p1"))
	assert.Equal(t, 20, f.stock("p2"))
	assert.Equal(t, 4, f.stock("p3"))
	assert.Len(t, o.Items, 2)
	assert.True(t, dec("51").Equal(o.Subtotal))
	assert.True(t, dec("56").Equal(o.TotalAmount))

	movs, err := f.l.MovementsByReference(ctx, entity.RefSalesOrder, o.ID)
	require.NoError(t, err)
	require.Len(t, movs, 5, "2 de la creación + 3 deltas")
	quantities := []int{}
	for _, m := range movs[2:] {
		quantities = append(quantities, m.Quantity)
	}
	assert.ElementsMatch(t, []int{-2, 4, -1}, quantities)

	// bajar p1 a 1 restituye solo el delta
	_, err = f.svc.UpdateItems(ctx, actor, o.ID, []orders.ItemInput{item("p1", 1), item("p3", 1)})
	require.NoError(t, err)
	assert.Equal(t, 9, f.stock("p1"))
	f.assertInvariant(t)
}

func TestUpdateItems_SinCambiosNoMueveElLibro(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, entity.OrderTypeNormal, item("p1", 3))
	before := len(f.store.Movements("p1"))

	_, err := f.svc.UpdateItems(context.Background(), actor, o.ID, []orders.ItemInput{item("p1", 3)})
	require.NoError(t, err)
	assert.Len(t, f.store.Movements("p1"), before)
}

func TestUpdateItems_ReaplicaPromocion(t *testing.T) {
	f := newFixture(t)
	f.store.PutPromotion(&entity.Promotion{ID: "p", DiscountPercent: dec("20"), StartDate: now, EndDate: now, IsActive: true})
	o := f.create(t, entity.OrderTypeNormal, item("p1", 5))
	assert.True(t, dec("10").Equal(o.DiscountAmount))

	o, err := f.svc.UpdateItems(context.Background(), actor, o.ID, []orders.ItemInput{item("p1", 2)})
	require.NoError(t, err)
	assert.True(t, dec("4").Equal(o.DiscountAmount), "20 por ciento del nuevo subtotal 20")
	assert.True(t, dec("21").Equal(o.TotalAmount))
}

func TestUpdateItems_TotalCubiertoPorAbonosPasaAPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, entity.OrderTypeNormal, item("p1", 3), item("p2", 4))
	require.True(t, dec("45").Equal(o.TotalAmount))

	_, o, err := f.svc.RecordPayment(ctx, actor, o.ID, orders.PaymentInput{Amount: dec("30")})
	require.NoError(t, err)
	require.Equal(t, entity.OrderPending, o.Status)

	o, err = f.svc.UpdateItems(ctx, actor, o.ID, []orders.ItemInput{item("p1", 2)})
	require.NoError(t, err)
	assert.True(t, dec("25").Equal(o.TotalAmount))
	assert.Equal(t, entity.OrderPaid, o.Status, "lo abonado ya cubre el nuevo total")

	stored, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPaid, stored.Status)
	f.assertInvariant(t)
}

func TestUpdateItems_AbonoParcialSigueEnPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, entity.OrderTypeNormal, item("p1", 3))

	_, _, err := f.svc.RecordPayment(ctx, actor, o.ID, orders.PaymentInput{Amount: dec("10")})
	require.NoError(t, err)

	o, err = f.svc.UpdateItems(ctx, actor, o.ID, []orders.ItemInput{item("p1", 2)})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPending, o.Status)
	assert.True(t, dec("10").Equal(o.PaidAmount))
}

func TestUpdateItems_BloqueadoTrasConfirmar(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, entity.OrderTypeNormal, item("p1", 3))
	_, err := f.svc.Confirm(context.Background(), actor, o.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateItems(context.Background(), actor, o.ID, []orders.ItemInput{item("p1", 1)})
	assert.ErrorIs(t, err, domain.ErrOrderLocked)
	assert.Equal(t, 7, f.stock("p1"))
}

func TestUpdateItems_StockInsuficienteRevierte(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, entity.OrderTypeNormal, item("p1", 3), item("p2", 1))

	_, err := f.svc.UpdateItems(context.Background(), actor, o.ID, []orders.ItemInput{item("p1", 20)})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 7, f.stock("p1"))
	assert.Equal(t, 19, f.stock("p2"))
	got, err := f.svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

// ──────────────────────────────────────────────────────────────────────────────
// Transiciones
// ──────────────────────────────────────────────────────────────────────────────

func TestCicloNormal_ConfirmarEntregarPagar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, entity.OrderTypeNormal, item("p1", 2)) // total 25

	o, err := f.svc.Confirm(ctx, actor, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderConfirmed, o.Status)

	o, err = f.svc.Deliver(ctx, actor, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderDelivered, o.Status)
	require.NotNil(t, o.DeliveryDate)
	assert.Equal(t, entity.TruncateDay(now), *o.DeliveryDate)
	assert.Equal(t, 8, f.stock("p1"), "un pedido normal no vuelve a descontar al entregar")

	_, err = f.svc.Deliver(ctx, actor, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.Cancel(ctx, actor, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	p1, o, err := f.svc.RecordPayment(ctx, actor, o.ID, orders.PaymentInput{Amount: dec("10"), Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, "PV-20260420-0001", p1.VoucherNumber)
	assert.Equal(t, entity.OrderDelivered, o.Status)
	assert.True(t, dec("10").Equal(o.PaidAmount))

	p2, o, err := f.svc.RecordPayment(ctx, actor, o.ID, orders.PaymentInput{Amount: dec("15")})
	require.NoError(t, err)
	assert.Equal(t, "PV-20260420-0002", p2.VoucherNumber)
	assert.Equal(t, entity.OrderPaid, o.Status)
	assert.Equal(t, "status-paid", o.StatusID)

	_, err = f.svc.Cancel(ctx, actor, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestConfirm_SoloDesdePending(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, entity.OrderTypeNormal, item("p1", 1))
	_, err := f.svc.Deliver(context.Background(), actor, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "no se entrega sin confirmar")

	_, err = f.svc.Confirm(context.Background(), actor, o.ID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), actor, o.ID)
	var te *domain.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "CONFIRMED", te.From)
}

func TestPagoTotalAntesDeEntregar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, entity.OrderTypeNormal, item("p1", 1)) // total 15

	_, o, err := f.svc.RecordPayment(ctx, actor, o.ID, orders.PaymentInput{Amount: dec("15")})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPaid, o.Status, "PENDING pasa a PAID al cubrir el total")

	o, err = f.svc.Deliver(ctx, actor, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPaid, o.Status)
	assert.NotNil(t, o.DeliveryDate)
}

func TestPreOrder_DescuentaAlEntregar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o := f.create(t, entity.OrderTypePreOrder, item("p1", 15))
	assert.Equal(t, 10, f.stock("p1"), "un pre-pedido no toca stock al crearse")

	_, err := f.svc.UpdateItems(ctx, actor, o.ID, []orders.ItemInput{item("p1", 4)})
	require.NoError(t, err)
	assert.Equal(t, 10, f.stock("p1"))

	_, err = f.svc.Confirm(ctx, actor, o.ID)
	require.NoError(t, err)
	o, err = f.svc.Deliver(ctx, actor, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, f.stock("p1"))

	_, err = f.svc.Deliver(ctx, actor, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 6, f.stock("p1"), "la entrega descuenta una sola vez")
	f.assertInvariant(t)
}

func TestPreOrder_EntregaSinStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, entity.OrderTypePreOrder, item("p1", 15))
	_, err := f.svc.Confirm(ctx, actor, o.ID)
	require.NoError(t, err)

	_, err = f.svc.Deliver(ctx, actor, o.ID)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	got, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderConfirmed, got.Status)
	assert.Nil(t, got.DeliveryDate)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	normal := f.create(t, entity.OrderTypeNormal, item("p1", 4))
	_, err := f.svc.Confirm(ctx, actor, normal.ID)
	require.NoError(t, err)
	c, err := f.svc.Cancel(ctx, actor, normal.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderCancelled, c.Status)
	assert.Equal(t, 10, f.stock("p1"), "cancelar un pedido normal restituye")

	pre := f.create(t, entity.OrderTypePreOrder, item("p1", 4))
	_, err = f.svc.Cancel(ctx, actor, pre.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, f.stock("p1"), "un pre-pedido no entregado no restituye nada")

	_, err = f.svc.Cancel(ctx, actor, normal.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	f.assertInvariant(t)
}

// ──────────────────────────────────────────────────────────────────────────────
// Eliminación y pagos
// ──────────────────────────────────────────────────────────────────────────────

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.create(t, entity.OrderTypeNormal, item("p1", 4))
	require.NoError(t, f.svc.Delete(ctx, actor, pending.ID))
	assert.Equal(t, 10, f.stock("p1"), "borrar un PENDING restituye")
	_, err := f.svc.Get(ctx, pending.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotNil(t, f.store.Order(pending.ID).DeletedAt)

	cancelled := f.create(t, entity.OrderTypeNormal, item("p1", 4))
	_, err = f.svc.Cancel(ctx, actor, cancelled.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, actor, cancelled.ID))
	assert.Equal(t, 10, f.stock("p1"), "borrar un CANCELLED no restituye dos veces")

	confirmed := f.create(t, entity.OrderTypeNormal, item("p1", 1))
	_, err = f.svc.Confirm(ctx, actor, confirmed.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Delete(ctx, actor, confirmed.ID), domain.ErrInvalidTransition)

	paid := f.create(t, entity.OrderTypeNormal, item("p2", 1))
	_, _, err = f.svc.RecordPayment(ctx, actor, paid.ID, orders.PaymentInput{Amount: dec("1")})
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Delete(ctx, actor, paid.ID), domain.ErrOrderHasDependents)
	f.assertInvariant(t)
}

func TestDelete_NumeroNoSeReutiliza(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, entity.OrderTypeNormal, item("p1", 1))
	require.NoError(t, f.svc.Delete(context.Background(), actor, o.ID))

	o2 := f.create(t, entity.OrderTypeNormal, item("p1", 1))
	assert.Equal(t, "ORD-20260420-0002", o2.OrderNumber)
}

func TestRecordPayment_Rechazos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, entity.OrderTypeNormal, item("p1", 1))

	_, _, err := f.svc.RecordPayment(ctx, actor, o.ID, orders.PaymentInput{Amount: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Cancel(ctx, actor, o.ID)
	require.NoError(t, err)
	_, _, err = f.svc.RecordPayment(ctx, actor, o.ID, orders.PaymentInput{Amount: dec("5")})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	payments, err := f.svc.Payments(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}
