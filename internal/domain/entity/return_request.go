package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReturnStatus estado de una solicitud de devolución.
type ReturnStatus string

const (
	ReturnPending  ReturnStatus = "PENDING"
	ReturnApproved ReturnStatus = "APPROVED"
	ReturnRejected ReturnStatus = "REJECTED"
)

// Acciones del historial de procesamiento de una devolución.
const (
	ReturnActionApproved             = "APPROVED"
	ReturnActionStockRestored        = "STOCK_RESTORED"
	ReturnActionStockRestoredPartial = "STOCK_RESTORED_PARTIAL"
	ReturnActionRejected             = "REJECTED"
	ReturnActionReplacementCreated   = "REPLACEMENT_CREATED"
)

// ReturnRequest solicitud de devolución sobre un pedido entregado o pagado.
type ReturnRequest struct {
	ID                 string
	ReturnNumber       string
	OrderID            string
	Status             ReturnStatus
	ReturnType         string
	TotalAmount        decimal.Decimal
	Notes              string
	ReplacementOrderID *string
	Items              []*ReturnItem
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

// ReturnItem línea devuelta; ReturnToStock decide si la aprobación reingresa el stock.
type ReturnItem struct {
	ID             string
	ReturnID       string
	OrderItemID    string
	ProductID      string
	Quantity       int
	UnitPrice      decimal.Decimal
	ReasonID       string
	ReturnToStock  bool
	ConditionNotes string
}

// ReturnProcessing entrada del historial de una devolución.
type ReturnProcessing struct {
	ID          string
	ReturnID    string
	Action      string
	Notes       string
	ProcessedBy string
	CreatedAt   time.Time
}

func (r *ReturnRequest) Snapshot() map[string]any {
	snap := map[string]any{
		"id":            r.ID,
		"return_number": r.ReturnNumber,
		"order_id":      r.OrderID,
		"status":        string(r.Status),
		"total_amount":  r.TotalAmount.StringFixed(2),
	}
	if r.ReplacementOrderID != nil {
		snap["replacement_order_id"] = *r.ReplacementOrderID
	}
	return snap
}
