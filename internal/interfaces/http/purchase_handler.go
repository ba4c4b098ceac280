package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Distribuidora-api/internal/application/dto"
	"github.com/jhoicas/Distribuidora-api/internal/application/purchasing"
)

// PurchaseHandler órdenes de compra y su recepción.
type PurchaseHandler struct {
	svc *purchasing.Service
	log zerolog.Logger
}

func NewPurchaseHandler(svc *purchasing.Service, log zerolog.Logger) *PurchaseHandler {
	return &PurchaseHandler{svc: svc, log: log}
}

// Create godoc
// @Summary      Crear orden de compra
// @Tags         purchases
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreatePurchaseRequest  true  "proveedor y líneas"
// @Success      201   {object}  dto.PurchaseResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/purchases [post]
func (h *PurchaseHandler) Create(c *fiber.Ctx) error {
	var in dto.CreatePurchaseRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	po, err := h.svc.Create(c.UserContext(), GetActor(c), in.Input())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromPurchase(po))
}

// Get godoc
// @Summary      Obtener orden de compra
// @Tags         purchases
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "orden de compra"
// @Success      200  {object}  dto.PurchaseResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/purchases/{id} [get]
func (h *PurchaseHandler) Get(c *fiber.Ctx) error {
	po, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromPurchase(po))
}

// Receive godoc
// @Summary      Recibir mercancía
// @Description  Ingresa stock por línea, recalcula costo promedio y crea lotes cuando hay vencimiento.
// @Description  Todas las líneas se validan antes de mover stock.
// @Tags         purchases
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "orden de compra"
// @Param        body  body  dto.ReceivePurchaseRequest  true  "cantidades recibidas"
// @Success      200   {object}  dto.PurchaseResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/purchases/{id}/receive [post]
func (h *PurchaseHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceivePurchaseRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	po, err := h.svc.Receive(c.UserContext(), GetActor(c), c.Params("id"), in.Lines())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromPurchase(po))
}
