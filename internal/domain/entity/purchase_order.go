package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseStatus estado de una orden de compra.
type PurchaseStatus string

const (
	PurchasePending  PurchaseStatus = "PENDING"
	PurchaseOrdered  PurchaseStatus = "ORDERED" // recepción parcial
	PurchaseReceived PurchaseStatus = "RECEIVED"
)

// PurchaseOrder orden de compra a proveedor.
type PurchaseOrder struct {
	ID           string
	SupplierID   string
	Status       PurchaseStatus
	ExpectedDate *time.Time
	TotalAmount  decimal.Decimal
	Notes        string
	Items        []*PurchaseItem
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PurchaseItem línea de compra; ReceivedQuantity acumula recepciones parciales.
type PurchaseItem struct {
	ID               string
	PurchaseOrderID  string
	ProductID        string
	Quantity         int
	ReceivedQuantity int
	UnitCost         decimal.Decimal
	TotalCost        decimal.Decimal
}

// Remaining cantidad aún por recibir.
func (i *PurchaseItem) Remaining() int { return i.Quantity - i.ReceivedQuantity }

// IsFullyReceived indica si la línea se recibió por completo.
func (i *PurchaseItem) IsFullyReceived() bool { return i.ReceivedQuantity >= i.Quantity }

// ItemByID devuelve la línea con ese ID, o nil si no pertenece a la orden.
func (po *PurchaseOrder) ItemByID(id string) *PurchaseItem {
	for _, it := range po.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// ResolveStatus RECEIVED si todas las líneas están completas, si no ORDERED.
func (po *PurchaseOrder) ResolveStatus() PurchaseStatus {
	for _, it := range po.Items {
		if !it.IsFullyReceived() {
			return PurchaseOrdered
		}
	}
	return PurchaseReceived
}

func (po *PurchaseOrder) Snapshot() map[string]any {
	items := make([]map[string]any, 0, len(po.Items))
	for _, it := range po.Items {
		items = append(items, map[string]any{
			"id":                it.ID,
			"product_id":        it.ProductID,
			"quantity":          it.Quantity,
			"received_quantity": it.ReceivedQuantity,
		})
	}
	return map[string]any{
		"id":           po.ID,
		"status":       string(po.Status),
		"total_amount": po.TotalAmount.StringFixed(2),
		"items":        items,
	}
}
