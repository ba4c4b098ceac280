package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Distribuidora-api/internal/application/alerts"
	"github.com/jhoicas/Distribuidora-api/internal/application/batch"
	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/application/orders"
	"github.com/jhoicas/Distribuidora-api/internal/application/purchasing"
	"github.com/jhoicas/Distribuidora-api/internal/application/returns"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger     *ledger.Ledger
	Batches    *batch.Tracker
	Alerts     *alerts.Service
	Orders     *orders.Service
	Purchasing *purchasing.Service
	Returns    *returns.Service
	Metrics    nethttp.Handler // nil: sin /metrics
	JWTSecret  string
	Log        zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	// Todo /api requiere Bearer Token: el actor del token queda en cada movimiento.
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	inventory := NewInventoryHandler(deps.Ledger, deps.Batches, deps.Alerts, deps.Log)
	stock := api.Group("/stock")
	stock.Post("/deduct", inventory.Deduct)
	stock.Post("/restore", inventory.Restore)
	stock.Post("/receive", inventory.Receive)
	stock.Post("/adjust", inventory.Adjust)
	stock.Get("/movements", inventory.MovementsByReference)
	stock.Post("/reconcile", inventory.ReconcileAll)
	stock.Get("/products/:id/movements", inventory.Movements)
	stock.Post("/products/:id/reconcile", inventory.Reconcile)
	stock.Get("/products/:id/batches", inventory.ProductBatches)

	batches := api.Group("/batches")
	batches.Post("/", inventory.CreateBatch)
	batches.Get("/:id", inventory.GetBatch)
	batches.Put("/:id", inventory.ResizeBatch)
	batches.Get("/:id/movements", inventory.DocumentMovements(entity.RefBatch))

	alertsGroup := api.Group("/alerts")
	alertsGroup.Get("/low-stock", inventory.LowStock)
	alertsGroup.Get("/expiring-batches", inventory.ExpiringBatches)

	orderHandler := NewOrderHandler(deps.Orders, deps.Log)
	ordersGroup := api.Group("/orders")
	ordersGroup.Post("/", orderHandler.Create)
	ordersGroup.Get("/", orderHandler.List)
	ordersGroup.Get("/:id", orderHandler.Get)
	ordersGroup.Delete("/:id", orderHandler.Delete)
	ordersGroup.Put("/:id/items", orderHandler.UpdateItems)
	ordersGroup.Post("/:id/confirm", orderHandler.Confirm)
	ordersGroup.Post("/:id/deliver", orderHandler.Deliver)
	ordersGroup.Post("/:id/cancel", orderHandler.Cancel)
	ordersGroup.Post("/:id/payments", orderHandler.RecordPayment)
	ordersGroup.Get("/:id/payments", orderHandler.Payments)
	ordersGroup.Get("/:id/movements", inventory.DocumentMovements(entity.RefSalesOrder))

	purchaseHandler := NewPurchaseHandler(deps.Purchasing, deps.Log)
	purchases := api.Group("/purchases")
	purchases.Post("/", purchaseHandler.Create)
	purchases.Get("/:id", purchaseHandler.Get)
	purchases.Post("/:id/receive", purchaseHandler.Receive)
	purchases.Get("/:id/movements", inventory.DocumentMovements(entity.RefPurchaseOrder))

	returnHandler := NewReturnHandler(deps.Returns, deps.Log)
	returnsGroup := api.Group("/returns")
	returnsGroup.Post("/", returnHandler.Create)
	returnsGroup.Get("/:id", returnHandler.Get)
	returnsGroup.Delete("/:id", returnHandler.Delete)
	returnsGroup.Post("/:id/approve", returnHandler.Approve)
	returnsGroup.Post("/:id/reject", returnHandler.Reject)
	returnsGroup.Post("/:id/replacement", returnHandler.Replacement)
	returnsGroup.Get("/:id/history", returnHandler.History)
	returnsGroup.Get("/:id/movements", inventory.DocumentMovements(entity.RefReturn))
}
