package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Distribuidora-api/internal/application/alerts"
	"github.com/jhoicas/Distribuidora-api/internal/application/batch"
	"github.com/jhoicas/Distribuidora-api/internal/application/dto"
	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// InventoryHandler primitivas del libro de stock, lotes y alertas.
type InventoryHandler struct {
	ledger  *ledger.Ledger
	batches *batch.Tracker
	alerts  *alerts.Service
	log     zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(l *ledger.Ledger, batches *batch.Tracker, al *alerts.Service, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{ledger: l, batches: batches, alerts: al, log: log}
}

type stockOp func(ctx context.Context, actor string, e ledger.Entry) (*entity.Product, error)

func (h *InventoryHandler) stock(c *fiber.Ctx, op stockOp) error {
	var in dto.StockOperationRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	p, err := op(c.UserContext(), GetActor(c), in.Entry())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromProduct(p))
}

// Deduct godoc
// @Summary      Descontar stock
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockOperationRequest  true  "producto, lote opcional, cantidad y referencia"
// @Success      200   {object}  dto.ProductStockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/deduct [post]
func (h *InventoryHandler) Deduct(c *fiber.Ctx) error { return h.stock(c, h.ledger.Deduct) }

// Restore godoc
// @Summary      Restituir stock
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockOperationRequest  true  "producto, lote opcional, cantidad y referencia"
// @Success      200   {object}  dto.ProductStockResponse
// @Router       /api/stock/restore [post]
func (h *InventoryHandler) Restore(c *fiber.Ctx) error { return h.stock(c, h.ledger.Restore) }

// Receive godoc
// @Summary      Ingresar stock
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockOperationRequest  true  "producto, lote opcional, cantidad y referencia"
// @Success      200   {object}  dto.ProductStockResponse
// @Router       /api/stock/receive [post]
func (h *InventoryHandler) Receive(c *fiber.Ctx) error { return h.stock(c, h.ledger.Receive) }

// Adjust godoc
// @Summary      Ajuste manual con delta con signo
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustRequest  true  "delta distinto de cero y motivo"
// @Success      200   {object}  dto.ProductStockResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	p, err := h.ledger.Adjust(c.UserContext(), GetActor(c), in.Entry())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromProduct(p))
}

// Movements godoc
// @Summary      Historial de movimientos de un producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "producto"
// @Param        limit   query  int     false  "máximo 100"
// @Param        offset  query  int     false  "desplazamiento"
// @Success      200  {array}   dto.MovementResponse
// @Router       /api/stock/products/{id}/movements [get]
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()
	list, err := h.ledger.Movements(c.UserContext(), c.Params("id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromMovements(list))
}

// MovementsByReference godoc
// @Summary      Movimientos generados por un documento
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        type  query  string  true  "SalesOrder, PurchaseOrder, ReturnRequest, Batch, ADJUST, RECONCILE"
// @Param        id    query  string  true  "ID del documento"
// @Success      200  {array}   dto.MovementResponse
// @Router       /api/stock/movements [get]
func (h *InventoryHandler) MovementsByReference(c *fiber.Ctx) error {
	refType, refID := c.Query("type"), c.Query("id")
	if refType == "" || refID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "type e id son requeridos"})
	}
	list, err := h.ledger.MovementsByReference(c.UserContext(), refType, refID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromMovements(list))
}

// DocumentMovements movimientos de un documento cuyo ID viene en la ruta (:id).
func (h *InventoryHandler) DocumentMovements(refType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := h.ledger.MovementsByReference(c.UserContext(), refType, c.Params("id"))
		if err != nil {
			return writeError(c, h.log, err)
		}
		return c.JSON(dto.FromMovements(list))
	}
}

// Reconcile godoc
// @Summary      Conciliar el stock de un producto
// @Description  Compara el contador con la suma de movimientos. Con correct=true agrega el ajuste
// @Description  correctivo. Una diferencia no es un error de la petición: se informa en el cuerpo.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id       path   string  true   "producto"
// @Param        correct  query  bool    false  "registrar ajuste correctivo"
// @Success      200  {object}  dto.ReconcileResponse
// @Router       /api/stock/products/{id}/reconcile [post]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	var (
		rec ledger.Reconciliation
		err error
	)
	if c.QueryBool("correct") {
		rec, err = h.ledger.Correct(c.UserContext(), GetActor(c), c.Params("id"))
	} else {
		rec, err = h.ledger.Reconcile(c.UserContext(), c.Params("id"))
	}
	if err != nil && !errors.Is(err, domain.ErrLedgerInconsistency) {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromReconciliation(rec))
}

// ReconcileAll godoc
// @Summary      Conciliar todos los productos
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        correct  query  bool  false  "registrar ajustes correctivos"
// @Success      200  {object}  dto.ReconcileReportResponse
// @Router       /api/stock/reconcile [post]
func (h *InventoryHandler) ReconcileAll(c *fiber.Ctx) error {
	report, err := h.ledger.ReconcileAll(c.UserContext(), c.QueryBool("correct"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromReport(report))
}

// ── lotes ──────────────────────────────────────────────────────────────────────

// CreateBatch godoc
// @Summary      Crear lote
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateBatchRequest  true  "lote"
// @Success      201   {object}  dto.BatchResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/batches [post]
func (h *InventoryHandler) CreateBatch(c *fiber.Ctx) error {
	var in dto.CreateBatchRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	b, err := h.batches.Create(c.UserContext(), GetActor(c), batch.CreateInput{
		ProductID:   in.ProductID,
		BatchNumber: in.BatchNumber,
		Quantity:    in.Quantity,
		ExpiryDate:  dto.ParseDate(in.ExpiryDate),
		Notes:       in.Notes,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromBatch(b))
}

// GetBatch godoc
// @Summary      Obtener lote
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "lote"
// @Success      200  {object}  dto.BatchResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id} [get]
func (h *InventoryHandler) GetBatch(c *fiber.Ctx) error {
	b, err := h.batches.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromBatch(b))
}

// ResizeBatch godoc
// @Summary      Cambiar la cantidad física de un lote
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "lote"
// @Param        body  body  dto.ResizeBatchRequest  true  "nueva cantidad"
// @Success      200   {object}  dto.BatchResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/batches/{id} [put]
func (h *InventoryHandler) ResizeBatch(c *fiber.Ctx) error {
	var in dto.ResizeBatchRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	b, err := h.batches.Resize(c.UserContext(), GetActor(c), c.Params("id"), in.Quantity, in.Notes)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromBatch(b))
}

// ProductBatches godoc
// @Summary      Lotes de un producto (FEFO)
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "producto"
// @Success      200  {array}  dto.BatchResponse
// @Router       /api/stock/products/{id}/batches [get]
func (h *InventoryHandler) ProductBatches(c *fiber.Ctx) error {
	list, err := h.batches.ListByProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromBatches(list))
}

// ── alertas ────────────────────────────────────────────────────────────────────

// LowStock godoc
// @Summary      Productos en o bajo su umbral con cantidad sugerida
// @Tags         alerts
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "máximo 100"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200  {array}  dto.LowStockResponse
// @Router       /api/alerts/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()
	list, err := h.alerts.LowStock(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"total": len(list), "items": dto.FromLowStock(list)})
}

// ExpiringBatches godoc
// @Summary      Lotes con stock que vencen dentro de N días (incluye vencidos)
// @Tags         alerts
// @Security     Bearer
// @Produce      json
// @Param        days  query  int  false  "horizonte en días, por defecto 30"
// @Success      200  {array}  dto.ExpiringBatchResponse
// @Router       /api/alerts/expiring-batches [get]
func (h *InventoryHandler) ExpiringBatches(c *fiber.Ctx) error {
	list, err := h.alerts.ExpiringBatches(c.UserContext(), c.QueryInt("days", 0))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"total": len(list), "items": dto.FromExpiring(list)})
}
