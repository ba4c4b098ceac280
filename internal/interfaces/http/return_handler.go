package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Distribuidora-api/internal/application/dto"
	"github.com/jhoicas/Distribuidora-api/internal/application/returns"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// ReturnHandler devoluciones de clientes y pedidos de reposición.
type ReturnHandler struct {
	svc *returns.Service
	log zerolog.Logger
}

func NewReturnHandler(svc *returns.Service, log zerolog.Logger) *ReturnHandler {
	return &ReturnHandler{svc: svc, log: log}
}

// Create godoc
// @Summary      Crear devolución
// @Description  El pedido debe estar DELIVERED o PAID y dentro de la ventana de devolución.
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReturnRequest  true  "pedido y líneas devueltas"
// @Success      201   {object}  dto.ReturnResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/returns [post]
func (h *ReturnHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReturnRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	r, err := h.svc.Create(c.UserContext(), GetActor(c), in.Input())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromReturn(r))
}

// Get godoc
// @Summary      Obtener devolución
// @Tags         returns
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "devolución"
// @Success      200  {object}  dto.ReturnResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/returns/{id} [get]
func (h *ReturnHandler) Get(c *fiber.Ctx) error {
	r, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromReturn(r))
}

type returnDecision func(ctx context.Context, actor, id, notes string) (*entity.ReturnRequest, error)

func (h *ReturnHandler) decide(c *fiber.Ctx, fn returnDecision) error {
	var in dto.ProcessReturnRequest
	if len(c.Body()) > 0 {
		if ok, err := bind(c, &in); !ok {
			return err
		}
	}
	r, err := fn(c.UserContext(), GetActor(c), c.Params("id"), in.Notes)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromReturn(r))
}

// Approve godoc
// @Summary      Aprobar devolución
// @Description  Reingresa al stock las líneas marcadas con return_to_stock.
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true   "devolución"
// @Param        body  body  dto.ProcessReturnRequest  false  "notas"
// @Success      200   {object}  dto.ReturnResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/returns/{id}/approve [post]
func (h *ReturnHandler) Approve(c *fiber.Ctx) error { return h.decide(c, h.svc.Approve) }

// Reject godoc
// @Summary      Rechazar devolución
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true   "devolución"
// @Param        body  body  dto.ProcessReturnRequest  false  "notas"
// @Success      200   {object}  dto.ReturnResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/returns/{id}/reject [post]
func (h *ReturnHandler) Reject(c *fiber.Ctx) error { return h.decide(c, h.svc.Reject) }

// Replacement godoc
// @Summary      Crear pedido de reposición
// @Description  Solo sobre devoluciones aprobadas y una única vez. El pedido sale sin costo.
// @Tags         returns
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "devolución"
// @Success      201  {object}  dto.OrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/returns/{id}/replacement [post]
func (h *ReturnHandler) Replacement(c *fiber.Ctx) error {
	o, err := h.svc.CreateReplacement(c.UserContext(), GetActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromOrder(o))
}

// Delete godoc
// @Summary      Eliminar devolución
// @Tags         returns
// @Security     Bearer
// @Param        id  path  string  true  "devolución"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/returns/{id} [delete]
func (h *ReturnHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), GetActor(c), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// History godoc
// @Summary      Historial de procesamiento
// @Tags         returns
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "devolución"
// @Success      200  {array}  dto.ReturnProcessingResponse
// @Router       /api/returns/{id}/history [get]
func (h *ReturnHandler) History(c *fiber.Ctx) error {
	list, err := h.svc.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromProcessing(list))
}
