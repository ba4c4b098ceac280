package entity

import "time"

// MovementType tipo de movimiento del libro de stock.
type MovementType string

const (
	MovementIn     MovementType = "IN"     // recepción de compra, creación de lote
	MovementOut    MovementType = "OUT"    // salida por pedido
	MovementAdjust MovementType = "ADJUST" // corrección manual, cambio de tamaño de lote, reconciliación
	MovementReturn MovementType = "RETURN" // restitución (cancelación, devolución aprobada)
)

// Tipos de documento de referencia de un movimiento.
const (
	RefSalesOrder    = "SalesOrder"
	RefPurchaseOrder = "PurchaseOrder"
	RefReturn        = "ReturnRequest"
	RefBatch         = "Batch"
	RefAdjust        = "ADJUST"
	RefReconcile     = "RECONCILE"
)

// StockMovement es un asiento inmutable del libro de stock. Nunca se actualiza ni se borra.
// Quantity es positivo para IN/RETURN, negativo para OUT y de cualquier signo para ADJUST.
type StockMovement struct {
	ID            string
	ProductID     string
	BatchID       *string
	Type          MovementType
	Quantity      int
	ReferenceType string
	ReferenceID   string
	Notes         string
	CreatedAt     time.Time
	CreatedBy     string // actor
}
