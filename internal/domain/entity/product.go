package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del distribuidor.
// StockQuantity es un valor derivado: caché de la suma de StockMovement.Quantity del producto.
// Solo el libro de stock (application/ledger) puede modificarlo.
type Product struct {
	ID                string
	SKU               string
	Name              string
	BasePrice         decimal.Decimal
	CostPrice         *decimal.Decimal // para cálculo de margen
	StockQuantity     int
	LowStockThreshold int
	ExpiryDate        *time.Time // sincronizado desde los lotes
	ExpiryAlertDays   int
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// IsLowStock indica si el stock está en o por debajo del umbral de alerta.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}

// Snapshot devuelve los campos relevantes para eventos de cambio.
func (p *Product) Snapshot() map[string]any {
	snap := map[string]any{
		"id":             p.ID,
		"sku":            p.SKU,
		"stock_quantity": p.StockQuantity,
	}
	if p.ExpiryDate != nil {
		snap["expiry_date"] = p.ExpiryDate.Format(DateLayout)
	}
	return snap
}

// DateLayout formato de fechas sin hora usado en snapshots y consecutivos.
const DateLayout = "2006-01-02"
