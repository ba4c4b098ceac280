// Package orders contiene las reglas puras del ciclo de vida de pedidos: la política por tipo
// de pedido (cuándo se compromete stock, cómo se valoriza) y la tabla de transiciones de estado.
package orders

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// Policy encapsula el comportamiento que varía por tipo de pedido.
type Policy interface {
	Type() entity.OrderType
	// DeductsAtCreation: las líneas descuentan stock al crear y al editar.
	DeductsAtCreation() bool
	// DeductsOnDelivery: el stock se descuenta una única vez al entregar.
	DeductsOnDelivery() bool
	// StockCommitted indica si el pedido tiene stock descontado en este momento
	// (determina si cancelar o borrar debe restituir).
	StockCommitted(o *entity.SalesOrder) bool
	// Priced: si es false el pedido es de precio cero, sin promoción, envío ni control de crédito.
	Priced() bool
}

type normalPolicy struct{}

func (normalPolicy) Type() entity.OrderType                   { return entity.OrderTypeNormal }
func (normalPolicy) DeductsAtCreation() bool                  { return true }
func (normalPolicy) DeductsOnDelivery() bool                  { return false }
func (normalPolicy) StockCommitted(_ *entity.SalesOrder) bool { return true }
func (normalPolicy) Priced() bool                             { return true }

type preOrderPolicy struct{}

func (preOrderPolicy) Type() entity.OrderType  { return entity.OrderTypePreOrder }
func (preOrderPolicy) DeductsAtCreation() bool { return false }
func (preOrderPolicy) DeductsOnDelivery() bool { return true }
func (preOrderPolicy) StockCommitted(o *entity.SalesOrder) bool {
	return o.IsDelivered()
}
func (preOrderPolicy) Priced() bool { return true }

type replacementPolicy struct{}

func (replacementPolicy) Type() entity.OrderType                   { return entity.OrderTypeReplacement }
func (replacementPolicy) DeductsAtCreation() bool                  { return true }
func (replacementPolicy) DeductsOnDelivery() bool                  { return false }
func (replacementPolicy) StockCommitted(_ *entity.SalesOrder) bool { return true }
func (replacementPolicy) Priced() bool                             { return false }

// PolicyFor devuelve la política del tipo de pedido.
func PolicyFor(t entity.OrderType) (Policy, error) {
	switch t {
	case entity.OrderTypeNormal:
		return normalPolicy{}, nil
	case entity.OrderTypePreOrder:
		return preOrderPolicy{}, nil
	case entity.OrderTypeReplacement:
		return replacementPolicy{}, nil
	}
	return nil, fmt.Errorf("tipo de pedido %q: %w", t, domain.ErrInvalidInput)
}

// transitions estados destino permitidos por acción explícita.
// PAID solo se alcanza por pagos (ver ApplyPayments), nunca por acción directa.
var transitions = map[entity.OrderStatus][]entity.OrderStatus{
	entity.OrderPending:   {entity.OrderConfirmed, entity.OrderCancelled},
	entity.OrderConfirmed: {entity.OrderDelivered, entity.OrderCancelled},
}

// CanTransition indica si from -> to es una transición explícita válida.
func CanTransition(from, to entity.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RequireTransition devuelve un *domain.TransitionError si la transición no es válida.
func RequireTransition(o *entity.SalesOrder, to entity.OrderStatus, action string) error {
	if CanTransition(o.Status, to) {
		return nil
	}
	return &domain.TransitionError{Entity: "pedido " + o.OrderNumber, From: string(o.Status), Action: action}
}

// CanDeliver: CONFIRMED pasa a DELIVERED; un pedido PAID aún no entregado registra la
// entrega sin cambiar de estado. Un pedido ya entregado nunca se vuelve a entregar.
func CanDeliver(o *entity.SalesOrder) error {
	if o.IsDelivered() {
		return &domain.TransitionError{Entity: "pedido " + o.OrderNumber, From: string(o.Status), Action: "entregar (ya entregado)"}
	}
	if o.Status == entity.OrderConfirmed || o.Status == entity.OrderPaid {
		return nil
	}
	return &domain.TransitionError{Entity: "pedido " + o.OrderNumber, From: string(o.Status), Action: "entregar"}
}

// CanEditItems solo en PENDING.
func CanEditItems(o *entity.SalesOrder) error {
	if o.Status != entity.OrderPending {
		return fmt.Errorf("pedido %s en estado %s: %w", o.OrderNumber, o.Status, domain.ErrOrderLocked)
	}
	return nil
}

// CanDelete solo en PENDING o CANCELLED.
func CanDelete(o *entity.SalesOrder) error {
	if o.Status == entity.OrderPending || o.Status == entity.OrderCancelled {
		return nil
	}
	return &domain.TransitionError{Entity: "pedido " + o.OrderNumber, From: string(o.Status), Action: "eliminar"}
}

// ApplyPayments fija PaidAmount y pasa a PAID si el total queda cubierto.
// Un pedido CANCELLED conserva su estado. Devuelve true si el estado cambió.
func ApplyPayments(o *entity.SalesOrder, paid decimal.Decimal) bool {
	o.PaidAmount = paid
	if o.Status == entity.OrderCancelled || o.Status == entity.OrderPaid {
		return false
	}
	if o.IsFullyPaid() {
		o.Status = entity.OrderPaid
		return true
	}
	return false
}
