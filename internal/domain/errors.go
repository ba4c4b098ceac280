package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")

	// Libro de stock
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrLedgerInconsistency = errors.New("el stock cacheado no coincide con la suma de movimientos")

	// Límites por línea (recepción de compras y devoluciones)
	ErrOverReceipt = errors.New("la cantidad recibida excede lo pendiente")
	ErrOverReturn  = errors.New("la cantidad devuelta excede lo disponible para devolver")

	// Reglas de negocio de pedidos
	ErrCreditLimitExceeded = errors.New("límite de crédito excedido")
	ErrInvalidTransition   = errors.New("transición de estado no permitida")
	ErrOrderLocked         = errors.New("el pedido ya no admite cambios en sus ítems")
	ErrOrderHasDependents  = errors.New("el pedido tiene pagos o devoluciones asociadas")

	// Devoluciones
	ErrReturnWindowExceeded = errors.New("plazo de devolución vencido")
	ErrReturnExists         = errors.New("el pedido ya tiene una solicitud de devolución activa")
	ErrReplacementExists    = errors.New("la devolución ya tiene un pedido de reposición")

	// ErrConcurrency es la única clase reintentable: espera de bloqueo agotada, deadlock,
	// fallo de serialización o colisión de consecutivo.
	ErrConcurrency = errors.New("conflicto de concurrencia, reintente la operación")
)

// IsRetryable indica si el llamador puede reintentar la operación sin cambiarla.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrency)
}

// StockError detalla un rechazo por stock insuficiente (producto o lote).
type StockError struct {
	ProductID string
	BatchID   string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	if e.BatchID != "" {
		return fmt.Sprintf("stock insuficiente en lote %s: solicitado %d, disponible %d", e.BatchID, e.Requested, e.Available)
	}
	return fmt.Sprintf("stock insuficiente para producto %s: solicitado %d, disponible %d", e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// AllowanceError detalla un exceso sobre lo pendiente de una línea (OverReceipt / OverReturn).
type AllowanceError struct {
	Kind      error
	LineID    string
	Requested int
	Remaining int
}

func (e *AllowanceError) Error() string {
	return fmt.Sprintf("%s: línea %s solicitado %d, máximo %d", e.Kind.Error(), e.LineID, e.Requested, e.Remaining)
}

func (e *AllowanceError) Unwrap() error { return e.Kind }

// CreditLimitError detalla el rechazo por límite de crédito.
type CreditLimitError struct {
	Outstanding decimal.Decimal
	OrderTotal  decimal.Decimal
	Limit       decimal.Decimal
}

func (e *CreditLimitError) Error() string {
	return fmt.Sprintf("límite de crédito excedido: saldo %s, pedido %s, límite %s",
		e.Outstanding.StringFixed(2), e.OrderTotal.StringFixed(2), e.Limit.StringFixed(2))
}

func (e *CreditLimitError) Unwrap() error { return ErrCreditLimitExceeded }

// TransitionError detalla una operación ilegal para el estado actual.
type TransitionError struct {
	Entity string
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s en estado %s no admite %s", e.Entity, e.From, e.Action)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// InconsistencyError lo produce únicamente la reconciliación.
type InconsistencyError struct {
	ProductID string
	Cached    int
	LedgerSum int
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("producto %s: stock cacheado %d, suma de movimientos %d", e.ProductID, e.Cached, e.LedgerSum)
}

func (e *InconsistencyError) Unwrap() error { return ErrLedgerInconsistency }
