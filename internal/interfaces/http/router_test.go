package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Distribuidora-api/internal/application/alerts"
	"github.com/jhoicas/Distribuidora-api/internal/application/batch"
	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/application/orders"
	"github.com/jhoicas/Distribuidora-api/internal/application/purchasing"
	"github.com/jhoicas/Distribuidora-api/internal/application/returns"
	"github.com/jhoicas/Distribuidora-api/internal/application/sequence"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/memory"
	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/Distribuidora-api/internal/interfaces/http"
)

var apiNow = time.Date(2026, 4, 20, 10, 0, 0, 0, time.UTC)

type api struct {
	t     *testing.T
	app   *fiber.App
	store *memory.Store
	token string
}

// newAPI app completa sobre el adaptador en memoria: producto p1 con 10 unidades, cliente c1.
func newAPI(t *testing.T) *api {
	t.Helper()
	store := memory.NewStore()
	clock := func() time.Time { return apiNow }
	repos := store.Repos()

	m := metrics.NewLedgerMetrics()
	l := ledger.NewLedger(ledger.NewRunner(store, nil, clock), repos.Movements, m)
	tracker := batch.NewTracker(l, repos.Batches)
	seq := sequence.NewGenerator(sequence.DefaultPrefixes)
	orderSvc := orders.NewService(orders.Deps{
		Ledger: l, Sequence: seq, Customers: store, Promotions: store, Statuses: store,
		Orders: repos.Orders, Payments: repos.Payments,
	})

	store.PutProduct(&entity.Product{ID: "p1", SKU: "ARROZ", Name: "Arroz 1kg", BasePrice: decimal.NewFromInt(10), IsActive: true, LowStockThreshold: 5})
	_, err := l.Receive(context.Background(), "test", ledger.Entry{ProductID: "p1", Quantity: 10, ReferenceType: entity.RefAdjust})
	require.NoError(t, err)
	store.PutProfile(&entity.CreditProfile{CustomerID: "c1", CustomerTypeID: "retail"})

	app := apphttp.NewApp(apphttp.AppConfig{Name: "distribuidora-test"})
	apphttp.Router(app, apphttp.RouterDeps{
		Ledger:     l,
		Batches:    tracker,
		Alerts:     alerts.NewService(repos.Products, repos.Batches, clock),
		Orders:     orderSvc,
		Purchasing: purchasing.NewService(l, tracker, repos.Purchases),
		Returns:    returns.NewService(returns.Deps{Ledger: l, Sequence: seq, Orders: orderSvc, Returns: repos.Returns}),
		Metrics:    m.Handler(),
		JWTSecret:  testJWTSecret,
		Log:        zerolog.Nop(),
	})
	return &api{t: t, app: app, store: store, token: bearer(t, testUsername)}
}

func (a *api) do(method, path string, body any) (*http.Response, map[string]any) {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", a.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(a.t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (a *api) list(path string) []map[string]any {
	a.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", a.token)
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	require.Equal(a.t, http.StatusOK, resp.StatusCode)

	var out []map[string]any
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Stock
// ──────────────────────────────────────────────────────────────────────────────

func TestStock_DeductSinStock_Retorna409ConDetalle(t *testing.T) {
	a := newAPI(t)

	resp, body := a.do(http.MethodPost, "/api/stock/deduct", map[string]any{
		"product_id": "p1", "quantity": 11, "reference_type": entity.RefAdjust,
	})

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 10, details["available"])
	assert.EqualValues(t, 11, details["requested"])
	assert.Equal(t, 10, a.store.Product("p1").StockQuantity, "un rechazo no mueve stock")
}

func TestStock_Deduct_ActualizaContadorYRegistraActor(t *testing.T) {
	a := newAPI(t)

	resp, body := a.do(http.MethodPost, "/api/stock/deduct", map[string]any{
		"product_id": "p1", "quantity": 4, "reference_type": entity.RefAdjust, "reference_id": "manual-1",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 6, body["stock_quantity"])

	movs := a.list("/api/stock/movements?type=" + entity.RefAdjust + "&id=manual-1")
	require.Len(t, movs, 1)
	assert.EqualValues(t, -4, movs[0]["quantity"])
	assert.Equal(t, testUsername, movs[0]["created_by"])
}

func TestStock_BodyInvalido_Retorna400ConCampos(t *testing.T) {
	a := newAPI(t)

	resp, body := a.do(http.MethodPost, "/api/stock/deduct", map[string]any{"product_id": "p1", "quantity": 0})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", body["code"])
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "quantity")
	assert.Contains(t, details, "reference_type")
}

func TestStock_ProductoInexistente_Retorna404(t *testing.T) {
	a := newAPI(t)

	resp, body := a.do(http.MethodPost, "/api/stock/receive", map[string]any{
		"product_id": "nope", "quantity": 1, "reference_type": entity.RefAdjust,
	})

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestStock_Reconcile_Consistente(t *testing.T) {
	a := newAPI(t)

	resp, body := a.do(http.MethodPost, "/api/stock/products/p1/reconcile", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["consistent"])
	assert.EqualValues(t, 10, body["ledger_sum"])
}

func TestStock_Reconcile_DesviacionSeInformaYSeCorrige(t *testing.T) {
	a := newAPI(t)
	a.store.SetStock("p1", 13)

	resp, body := a.do(http.MethodPost, "/api/stock/products/p1/reconcile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["consistent"])

	resp, body = a.do(http.MethodPost, "/api/stock/products/p1/reconcile?correct=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["corrected"])
	assert.Equal(t, a.store.LedgerSum("p1"), a.store.Product("p1").StockQuantity)
}

// ──────────────────────────────────────────────────────────────────────────────
// Pedidos
// ──────────────────────────────────────────────────────────────────────────────

func TestOrders_CrearYCancelar_RestituyeStock(t *testing.T) {
	a := newAPI(t)

	resp, order := a.do(http.MethodPost, "/api/orders", map[string]any{
		"customer_id": "c1",
		"items":       []map[string]any{{"product_id": "p1", "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, string(entity.OrderPending), order["status"])
	assert.True(t, strings.HasPrefix(order["order_number"].(string), "ORD-20260420-"))
	assert.Equal(t, 7, a.store.Product("p1").StockQuantity)

	id := order["id"].(string)
	movs := a.list("/api/orders/" + id + "/movements")
	require.Len(t, movs, 1)
	assert.Equal(t, string(entity.MovementOut), movs[0]["movement_type"])

	resp, order = a.do(http.MethodPost, "/api/orders/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(entity.OrderCancelled), order["status"])
	assert.Equal(t, 10, a.store.Product("p1").StockQuantity)
	assert.Len(t, a.list("/api/orders/"+id+"/movements"), 2)
}

func TestOrders_TransicionInvalida_Retorna409(t *testing.T) {
	a := newAPI(t)
	_, order := a.do(http.MethodPost, "/api/orders", map[string]any{
		"customer_id": "c1",
		"items":       []map[string]any{{"product_id": "p1", "quantity": 1}},
	})
	id := order["id"].(string)
	resp, _ := a.do(http.MethodPost, "/api/orders/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := a.do(http.MethodPost, "/api/orders/"+id+"/confirm", nil)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", body["code"])
}

func TestOrders_TipoDesconocido_Retorna400(t *testing.T) {
	a := newAPI(t)

	resp, body := a.do(http.MethodPost, "/api/orders", map[string]any{
		"customer_id": "c1", "order_type": "REPLACEMENT",
		"items": []map[string]any{{"product_id": "p1", "quantity": 1}},
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", body["code"])
}

func TestOrders_Inexistente_Retorna404(t *testing.T) {
	a := newAPI(t)

	resp, body := a.do(http.MethodGet, "/api/orders/no-existe", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Infraestructura HTTP
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_ApiSinToken_Retorna401(t *testing.T) {
	a := newAPI(t)
	a.token = ""

	resp, body := a.do(http.MethodGet, "/api/orders", nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", body["code"])
}

func TestRouter_HealthYMetricsSonPublicos(t *testing.T) {
	a := newAPI(t)
	_, _ = a.do(http.MethodPost, "/api/stock/deduct", map[string]any{
		"product_id": "p1", "quantity": 1, "reference_type": entity.RefAdjust,
	})

	resp, err := a.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = a.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "movements_total")
}
