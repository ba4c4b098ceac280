package returns_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/application/orders"
	"github.com/jhoicas/Distribuidora-api/internal/application/returns"
	"github.com/jhoicas/Distribuidora-api/internal/application/sequence"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/memory"
)

const actor = "bodega-1"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store  *memory.Store
	now    time.Time
	orders *orders.Service
	svc    *returns.Service
}

// newFixture p1 (precio 10, stock 20) y p2 (precio 4, stock 20); pedido entregado con 5 de p1
// y 2 de p2, lo que deja stock 15 y 18.
func newFixture(t *testing.T) (*fixture, *entity.SalesOrder) {
	t.Helper()
	f := &fixture{store: memory.NewStore(), now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	runner := ledger.NewRunner(f.store, nil, func() time.Time { return f.now })
	l := ledger.NewLedger(runner, f.store.Repos().Movements, nil)
	gen := sequence.NewGenerator(sequence.DefaultPrefixes)

	f.store.PutProduct(&entity.Product{ID: "p1", SKU: "LECHE", BasePrice: dec("10"), IsActive: true})
	f.store.PutProduct(&entity.Product{ID: "p2", SKU: "QUESO", BasePrice: dec("4"), IsActive: true})
	for _, id := range []string{"p1", "p2"} {
		_, err := l.Receive(context.Background(), actor, ledger.Entry{ProductID: id, Quantity: 20, ReferenceType: entity.RefAdjust})
		require.NoError(t, err)
	}
	f.store.PutProfile(&entity.CreditProfile{CustomerID: "c1", CustomerTypeID: "retail"})

	repos := f.store.Repos()
	f.orders = orders.NewService(orders.Deps{
		Ledger: l, Sequence: gen,
		Customers: f.store, Promotions: f.store, Statuses: f.store,
		Orders: repos.Orders, Payments: repos.Payments,
	})
	f.svc = returns.NewService(returns.Deps{Ledger: l, Sequence: gen, Orders: f.orders, Returns: repos.Returns})

	ctx := context.Background()
	o, err := f.orders.Create(ctx, actor, orders.CreateInput{CustomerID: "c1", Items: []orders.ItemInput{
		{ProductID: "p1", Quantity: 5},
		{ProductID: "p2", Quantity: 2},
	}})
	require.NoError(t, err)
	_, err = f.orders.Confirm(ctx, actor, o.ID)
	require.NoError(t, err)
	o, err = f.orders.Deliver(ctx, actor, o.ID)
	require.NoError(t, err)
	return f, o
}

func line(o *entity.SalesOrder, productID string) string {
	return o.ItemByProduct(productID).ID
}

func (f *fixture) createReturn(t *testing.T, o *entity.SalesOrder, items ...returns.ItemInput) *entity.ReturnRequest {
	t.Helper()
	ret, err := f.svc.Create(context.Background(), actor, returns.CreateInput{OrderID: o.ID, ReturnType: "REFUND", Items: items})
	require.NoError(t, err)
	return ret
}

func TestCreate_NumeroYTotal(t *testing.T) {
	f, o := newFixture(t)
	ret := f.createReturn(t, o,
		returns.ItemInput{OrderItemID: line(o, "p1"), Quantity: 2},
		returns.ItemInput{OrderItemID: line(o, "p2"), Quantity: 1},
	)
	assert.Equal(t, "RET-20260601-0001", ret.ReturnNumber)
	assert.Equal(t, entity.ReturnPending, ret.Status)
	assert.True(t, dec("24").Equal(ret.TotalAmount), "2*10 + 1*4")
	assert.Equal(t, 15, f.store.Product("p1").StockQuantity, "crear no toca stock")
}

func TestCreate_PedidoNoEntregado(t *testing.T) {
	f, _ := newFixture(t)
	o, err := f.orders.Create(context.Background(), actor, orders.CreateInput{CustomerID: "c1", Items: []orders.ItemInput{{ProductID: "p1", Quantity: 1}}})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), actor, returns.CreateInput{OrderID: o.ID, Items: []returns.ItemInput{{OrderItemID: line(o, "p1"), Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCreate_PlazoVencido(t *testing.T) {
	f, o := newFixture(t)
	in := returns.CreateInput{OrderID: o.ID, Items: []returns.ItemInput{{OrderItemID: line(o, "p1"), Quantity: 1}}}

	f.now = f.now.AddDate(0, 0, 8)
	_, err := f.svc.Create(context.Background(), actor, in)
	assert.ErrorIs(t, err, domain.ErrReturnWindowExceeded)

	f.now = f.now.AddDate(0, 0, -1)
	_, err = f.svc.Create(context.Background(), actor, in)
	assert.NoError(t, err, "el día 7 todavía está dentro del plazo")
}

func TestCreate_UnaDevolucionActivaPorPedido(t *testing.T) {
	f, o := newFixture(t)
	f.createReturn(t, o, returns.ItemInput{OrderItemID: line(o, "p1"), Quantity: 1})

	_, err := f.svc.Create(context.Background(), actor, returns.CreateInput{OrderID: o.ID, Items: []returns.ItemInput{{OrderItemID: line(o, "p2"), Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrReturnExists)
}

func TestCreate_LimiteAcumuladoPorLinea(t *testing.T) {
	f, o := newFixture(t)
	ctx := context.Background()
	first := f.createReturn(t, o, returns.ItemInput{OrderItemID: line(o, "p1"), Quantity: 3})
	_, err := f.svc.Approve(ctx, actor, first.ID, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, actor, first.ID))

	_, err = f.svc.Create(ctx, actor, returns.CreateInput{OrderID: o.ID, Items: []returns.ItemInput{{OrderItemID: line(o, "p1"), Quantity: 3}}})
	require.ErrorIs(t, err, domain.ErrOverReturn)
	var ae *domain.AllowanceError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 2, ae.Remaining)

	second := f.createReturn(t, o, returns.ItemInput{OrderItemID: line(o, "p1"), Quantity: 2})
	assert.Equal(t, "RET-20260601-0002", second.ReturnNumber)
}

func TestCreate_ValidaLineas(t *testing.T) {
	f, o := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, actor, returns.CreateInput{OrderID: o.ID, Items: []returns.ItemInput{{OrderItemID: "ajena", Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.Create(ctx, actor, returns.CreateInput{OrderID: o.ID, Items: []returns.ItemInput{{OrderItemID: line(o, "p1"), Quantity: 0}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.Create(ctx, actor, returns.CreateInput{OrderID: o.ID, Items: []returns.ItemInput{
		{OrderItemID: line(o, "p2"), Quantity: 1},
		{OrderItemID: line(o, "p2"), Quantity: 2},
	}})
	assert.ErrorIs(t, err, domain.ErrOverReturn)
	_, err = f.svc.Create(ctx, actor, returns.CreateInput{OrderID: "nope", Items: []returns.ItemInput{{OrderItemID: "x", Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApprove_ReingresaSoloLineasMarcadas(t *testing.T) {
	f, o := newFixture(t)
	ctx := context.Background()
	no := false
	ret := f.createReturn(t, o,
		returns.ItemInput{OrderItemID: line(o, "p1"), Quantity: 2},
		returns.ItemInput{OrderItemID: line(o, "p2"), Quantity: 1, ReturnToStock: &no, ConditionNotes: "empaque roto"},
	)

	ret, err := f.svc.Approve(ctx, "supervisor", ret.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, entity.ReturnApproved, ret.Status)
	assert.Equal(t, 17, f.store.Product("p1").StockQuantity)
	assert.Equal(t, 18, f.store.Product("p2").StockQuantity, "descartado no vuelve al stock")

	movs := f.store.Movements("p1")
	last := movs[len(movs)-1]
	assert.Equal(t, entity.MovementReturn, last.Type)
	assert.Equal(t, 2, last.Quantity)
	assert.Equal(t, entity.RefReturn, last.ReferenceType)
	assert.Equal(t, ret.ID, last.ReferenceID)
	assert.Equal(t, "supervisor", last.CreatedBy)

	hist, err := f.svc.History(ctx, ret.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, entity.ReturnActionApproved, hist[0].Action)
	assert.Equal(t, entity.ReturnActionStockRestoredPartial, hist[1].Action)

	_, err = f.svc.Approve(ctx, actor, ret.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 17, f.store.Product("p1").StockQuantity)
}

func TestReject_Terminal(t *testing.T) {
	f, o := newFixture(t)
	ctx := context.Background()
	ret := f.createReturn(t, o, returns.ItemInput{OrderItemID: line(o, "p1"), Quantity: 2})

	ret, err := f.svc.Reject(ctx, actor, ret.ID, "sin soporte")
	require.NoError(t, err)
	assert.Equal(t, entity.ReturnRejected, ret.Status)
	assert.Equal(t, 15, f.store.Product("p1").StockQuantity)

	_, err = f.svc.Approve(ctx, actor, ret.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.Reject(ctx, actor, ret.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.CreateReplacement(ctx, actor, ret.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCreateReplacement_UnaSolaVez(t *testing.T) {
	f, o := newFixture(t)
	ctx := context.Background()
	ret := f.createReturn(t, o,
		returns.ItemInput{OrderItemID: line(o, "p1"), Quantity: 2},
		returns.ItemInput{OrderItemID: line(o, "p2"), Quantity: 1},
	)
	_, err := f.svc.CreateReplacement(ctx, actor, ret.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "requiere aprobación")

	_, err = f.svc.Approve(ctx, actor, ret.ID, "")
	require.NoError(t, err)
	repl, err := f.svc.CreateReplacement(ctx, actor, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderTypeReplacement, repl.Type)
	assert.Equal(t, "c1", repl.CustomerID)
	assert.True(t, repl.TotalAmount.IsZero())
	assert.Equal(t, 15, f.store.Product("p1").StockQuantity, "17 tras aprobar, menos 2 de la reposición")
	assert.Equal(t, 18, f.store.Product("p2").StockQuantity)

	got := f.store.Return(ret.ID)
	require.NotNil(t, got.ReplacementOrderID)
	assert.Equal(t, repl.ID, *got.ReplacementOrderID)

	_, err = f.svc.CreateReplacement(ctx, actor, ret.ID)
	assert.ErrorIs(t, err, domain.ErrReplacementExists)
	assert.ErrorIs(t, f.svc.Delete(ctx, actor, ret.ID), domain.ErrInvalidTransition)

	for _, id := range f.store.ProductIDs() {
		assert.Equal(t, f.store.LedgerSum(id), f.store.Product(id).StockQuantity)
	}
}

func TestCreateReplacement_SinStockRevierteTodo(t *testing.T) {
	f, o := newFixture(t)
	ctx := context.Background()
	ret := f.createReturn(t, o, returns.ItemInput{OrderItemID: line(o, "p1"), Quantity: 5, ReturnToStock: new(bool)})
	_, err := f.svc.Approve(ctx, actor, ret.ID, "")
	require.NoError(t, err)
	f.store.SetStock("p1", 0)

	_, err = f.svc.CreateReplacement(ctx, actor, ret.ID)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Nil(t, f.store.Return(ret.ID).ReplacementOrderID)
}
