package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Distribuidora-api/internal/application/dto"
	"github.com/jhoicas/Distribuidora-api/internal/application/orders"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// OrderHandler ciclo de vida de pedidos y pagos.
type OrderHandler struct {
	svc *orders.Service
	log zerolog.Logger
}

func NewOrderHandler(svc *orders.Service, log zerolog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, log: log}
}

// Create godoc
// @Summary      Crear pedido
// @Description  NORMAL descuenta stock al crear; PRE_ORDER al entregar. Aplica la mejor promoción vigente.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOrderRequest  true  "cliente, tipo y líneas"
// @Success      201   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	o, err := h.svc.Create(c.UserContext(), GetActor(c), in.Input())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromOrder(o))
}

// Get godoc
// @Summary      Obtener pedido
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "pedido"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	o, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromOrder(o))
}

// List godoc
// @Summary      Listar pedidos
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        customer_id  query  string  false  "filtrar por cliente"
// @Param        limit        query  int     false  "máximo 100"
// @Param        offset       query  int     false  "desplazamiento"
// @Success      200  {object}  dto.OrderListResponse
// @Router       /api/orders [get]
func (h *OrderHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()
	list, err := h.svc.List(c.UserContext(), c.Query("customer_id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.OrderResponse, 0, len(list))
	for _, o := range list {
		items = append(items, dto.FromOrder(o))
	}
	return c.JSON(dto.OrderListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// UpdateItems godoc
// @Summary      Reemplazar las líneas de un pedido
// @Description  Solo en PENDING; en otro estado responde 409 ORDER_LOCKED. Ajusta el stock por la diferencia.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "pedido"
// @Param        body  body  dto.UpdateOrderItemsRequest  true  "líneas deseadas"
// @Success      200   {object}  dto.OrderResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/items [put]
func (h *OrderHandler) UpdateItems(c *fiber.Ctx) error {
	var in dto.UpdateOrderItemsRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	o, err := h.svc.UpdateItems(c.UserContext(), GetActor(c), c.Params("id"), in.Input())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromOrder(o))
}

type orderTransition func(ctx context.Context, actor, id string) (*entity.SalesOrder, error)

func (h *OrderHandler) transition(c *fiber.Ctx, fn orderTransition) error {
	o, err := fn(c.UserContext(), GetActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromOrder(o))
}

// Confirm godoc
// @Summary      Confirmar pedido
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "pedido"
// @Success      200  {object}  dto.OrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/confirm [post]
func (h *OrderHandler) Confirm(c *fiber.Ctx) error { return h.transition(c, h.svc.Confirm) }

// Deliver godoc
// @Summary      Entregar pedido
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "pedido"
// @Success      200  {object}  dto.OrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/deliver [post]
func (h *OrderHandler) Deliver(c *fiber.Ctx) error { return h.transition(c, h.svc.Deliver) }

// Cancel godoc
// @Summary      Cancelar pedido y restituir su stock
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "pedido"
// @Success      200  {object}  dto.OrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *fiber.Ctx) error { return h.transition(c, h.svc.Cancel) }

// Delete godoc
// @Summary      Eliminar pedido (PENDING o CANCELLED, sin pagos ni devoluciones)
// @Tags         orders
// @Security     Bearer
// @Param        id  path  string  true  "pedido"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [delete]
func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), GetActor(c), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RecordPayment godoc
// @Summary      Registrar pago
// @Description  Asigna comprobante PV-AAAAMMDD-NNNN. Cubierto el total, el pedido pasa a PAID desde cualquier estado salvo CANCELLED.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "pedido"
// @Param        body  body  dto.PaymentRequest  true  "monto y método"
// @Success      201   {object}  dto.PaymentRecordedResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/payments [post]
func (h *OrderHandler) RecordPayment(c *fiber.Ctx) error {
	var in dto.PaymentRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	p, o, err := h.svc.RecordPayment(c.UserContext(), GetActor(c), c.Params("id"), in.Input())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.PaymentRecordedResponse{Payment: dto.FromPayment(p), Order: dto.FromOrder(o)})
}

// Payments godoc
// @Summary      Pagos de un pedido
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "pedido"
// @Success      200  {array}  dto.PaymentResponse
// @Router       /api/orders/{id}/payments [get]
func (h *OrderHandler) Payments(c *fiber.Ctx) error {
	if _, err := h.svc.Get(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	list, err := h.svc.Payments(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromPayments(list))
}
