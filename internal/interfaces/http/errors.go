package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Distribuidora-api/internal/application/dto"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
)

// retryAfterSeconds sugerencia al cliente cuando la operación chocó con otra.
const retryAfterSeconds = 1

type errorClass struct {
	target error
	status int
	code   string
}

// Orden relevante: el primer sentinel que coincide decide el status.
var errorClasses = []errorClass{
	{domain.ErrConcurrency, fiber.StatusServiceUnavailable, "CONCURRENCY"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrOrderLocked, fiber.StatusConflict, "ORDER_LOCKED"},
	{domain.ErrOrderHasDependents, fiber.StatusConflict, "ORDER_HAS_DEPENDENTS"},
	{domain.ErrReturnExists, fiber.StatusConflict, "RETURN_EXISTS"},
	{domain.ErrReplacementExists, fiber.StatusConflict, "REPLACEMENT_EXISTS"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrOverReceipt, fiber.StatusUnprocessableEntity, "OVER_RECEIPT"},
	{domain.ErrOverReturn, fiber.StatusUnprocessableEntity, "OVER_RETURN"},
	{domain.ErrCreditLimitExceeded, fiber.StatusUnprocessableEntity, "CREDIT_LIMIT_EXCEEDED"},
	{domain.ErrReturnWindowExceeded, fiber.StatusUnprocessableEntity, "RETURN_WINDOW_EXCEEDED"},
	{domain.ErrLedgerInconsistency, fiber.StatusInternalServerError, "LEDGER_INCONSISTENCY"},
}

// writeError traduce un error de caso de uso a status + dto.ErrorResponse.
// Solo los 5xx se registran: los rechazos de negocio son respuestas normales.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	for _, cl := range errorClasses {
		if errors.Is(err, cl.target) {
			status, code = cl.status, cl.code
			break
		}
	}

	body := dto.ErrorResponse{Code: code, Message: err.Error(), Details: details(err)}
	switch {
	case status == fiber.StatusServiceUnavailable:
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds))
	case status >= fiber.StatusInternalServerError:
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error no controlado")
		if code == "INTERNAL" {
			body.Message = "error interno"
		}
	}
	return c.Status(status).JSON(body)
}

// details datos estructurados de los errores tipados del dominio.
func details(err error) map[string]any {
	var stock *domain.StockError
	if errors.As(err, &stock) {
		d := map[string]any{"product_id": stock.ProductID, "requested": stock.Requested, "available": stock.Available}
		if stock.BatchID != "" {
			d["batch_id"] = stock.BatchID
		}
		return d
	}
	var allowance *domain.AllowanceError
	if errors.As(err, &allowance) {
		return map[string]any{"line_id": allowance.LineID, "requested": allowance.Requested, "remaining": allowance.Remaining}
	}
	var credit *domain.CreditLimitError
	if errors.As(err, &credit) {
		return map[string]any{
			"outstanding":  credit.Outstanding.StringFixed(2),
			"order_total":  credit.OrderTotal.StringFixed(2),
			"credit_limit": credit.Limit.StringFixed(2),
		}
	}
	var transition *domain.TransitionError
	if errors.As(err, &transition) {
		return map[string]any{"entity": transition.Entity, "from": transition.From, "action": transition.Action}
	}
	var inconsistency *domain.InconsistencyError
	if errors.As(err, &inconsistency) {
		return map[string]any{"product_id": inconsistency.ProductID, "cached": inconsistency.Cached, "ledger_sum": inconsistency.LedgerSum}
	}
	return nil
}
