package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Distribuidora-api/internal/application/alerts"
	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// StockOperationRequest body de deduct/restore/receive. Quantity es positiva.
type StockOperationRequest struct {
	ProductID     string `json:"product_id" validate:"required"`
	BatchID       string `json:"batch_id"`
	Quantity      int    `json:"quantity" validate:"required,gt=0"`
	ReferenceType string `json:"reference_type" validate:"required,max=50"`
	ReferenceID   string `json:"reference_id" validate:"max=100"`
	Notes         string `json:"notes" validate:"max=500"`
}

// AdjustRequest body de un ajuste: Delta con signo, distinto de cero.
type AdjustRequest struct {
	ProductID     string `json:"product_id" validate:"required"`
	BatchID       string `json:"batch_id"`
	Delta         int    `json:"delta" validate:"required,ne=0"`
	ReferenceType string `json:"reference_type" validate:"max=50"`
	ReferenceID   string `json:"reference_id" validate:"max=100"`
	Notes         string `json:"notes" validate:"required,max=500"`
}

func (r StockOperationRequest) Entry() ledger.Entry {
	return ledger.Entry{ProductID: r.ProductID, BatchID: r.BatchID, Quantity: r.Quantity,
		ReferenceType: r.ReferenceType, ReferenceID: r.ReferenceID, Notes: r.Notes}
}

func (r AdjustRequest) Entry() ledger.Entry {
	ref := r.ReferenceType
	if ref == "" {
		ref = entity.RefAdjust
	}
	return ledger.Entry{ProductID: r.ProductID, BatchID: r.BatchID, Quantity: r.Delta,
		ReferenceType: ref, ReferenceID: r.ReferenceID, Notes: r.Notes}
}

// ProductStockResponse estado del producto después de una operación de stock.
type ProductStockResponse struct {
	ID            string     `json:"id"`
	SKU           string     `json:"sku"`
	Name          string     `json:"name"`
	StockQuantity int        `json:"stock_quantity"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
}

func FromProduct(p *entity.Product) ProductStockResponse {
	return ProductStockResponse{ID: p.ID, SKU: p.SKU, Name: p.Name, StockQuantity: p.StockQuantity, ExpiryDate: p.ExpiryDate}
}

// MovementResponse fila del libro de stock.
type MovementResponse struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	BatchID       *string   `json:"batch_id,omitempty"`
	Type          string    `json:"movement_type"`
	Quantity      int       `json:"quantity"`
	ReferenceType string    `json:"reference_type"`
	ReferenceID   string    `json:"reference_id"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     string    `json:"created_by"`
}

func FromMovements(list []*entity.StockMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, MovementResponse{
			ID: m.ID, ProductID: m.ProductID, BatchID: m.BatchID, Type: string(m.Type), Quantity: m.Quantity,
			ReferenceType: m.ReferenceType, ReferenceID: m.ReferenceID, Notes: m.Notes,
			CreatedAt: m.CreatedAt, CreatedBy: m.CreatedBy,
		})
	}
	return out
}

// ReconcileResponse resultado de conciliar un producto.
type ReconcileResponse struct {
	ProductID  string `json:"product_id"`
	Cached     int    `json:"cached"`
	LedgerSum  int    `json:"ledger_sum"`
	Drift      int    `json:"drift"`
	Consistent bool   `json:"consistent"`
	Corrected  bool   `json:"corrected"`
}

func FromReconciliation(r ledger.Reconciliation) ReconcileResponse {
	return ReconcileResponse{ProductID: r.ProductID, Cached: r.Cached, LedgerSum: r.LedgerSum,
		Drift: r.Drift, Consistent: r.Consistent(), Corrected: r.Corrected}
}

// ReconcileReportResponse resultado de una pasada completa.
type ReconcileReportResponse struct {
	Checked    int                 `json:"checked"`
	Mismatches []ReconcileResponse `json:"mismatches"`
}

func FromReport(r ledger.ReconcileReport) ReconcileReportResponse {
	out := ReconcileReportResponse{Checked: r.Checked, Mismatches: make([]ReconcileResponse, 0, len(r.Mismatches))}
	for _, m := range r.Mismatches {
		out.Mismatches = append(out.Mismatches, FromReconciliation(m))
	}
	return out
}

// CreateBatchRequest alta de lote; Quantity > 0 ingresa stock.
type CreateBatchRequest struct {
	ProductID   string  `json:"product_id" validate:"required"`
	BatchNumber string  `json:"batch_number" validate:"required,max=100"`
	Quantity    int     `json:"quantity" validate:"min=0"`
	ExpiryDate  *string `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	Notes       string  `json:"notes" validate:"max=500"`
}

// ResizeBatchRequest nueva cantidad física del lote.
type ResizeBatchRequest struct {
	Quantity int    `json:"quantity" validate:"min=0"`
	Notes    string `json:"notes" validate:"max=500"`
}

// BatchResponse salida de un lote.
type BatchResponse struct {
	ID          string     `json:"id"`
	ProductID   string     `json:"product_id"`
	BatchNumber string     `json:"batch_number"`
	Quantity    int        `json:"quantity"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	ReceivedAt  *time.Time `json:"received_at,omitempty"`
	Notes       string     `json:"notes"`
}

func FromBatch(b *entity.Batch) BatchResponse {
	return BatchResponse{ID: b.ID, ProductID: b.ProductID, BatchNumber: b.BatchNumber, Quantity: b.Quantity,
		ExpiryDate: b.ExpiryDate, ReceivedAt: b.ReceivedAt, Notes: b.Notes}
}

func FromBatches(list []*entity.Batch) []BatchResponse {
	out := make([]BatchResponse, 0, len(list))
	for _, b := range list {
		out = append(out, FromBatch(b))
	}
	return out
}

// LowStockResponse sugerencia de reposición para un producto bajo su umbral.
type LowStockResponse struct {
	ProductID     string          `json:"product_id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	CurrentStock  int             `json:"current_stock"`
	Threshold     int             `json:"low_stock_threshold"`
	IdealStock    int             `json:"ideal_stock"`   // umbral * 1.5
	SuggestedQty  int             `json:"suggested_qty"` // ideal - actual
	UnitCost      decimal.Decimal `json:"unit_cost"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	Priority      int             `json:"priority"` // 1 = más urgente
}

func FromLowStock(list []alerts.LowStockItem) []LowStockResponse {
	out := make([]LowStockResponse, 0, len(list))
	for _, it := range list {
		out = append(out, LowStockResponse{
			ProductID: it.ProductID, SKU: it.SKU, Name: it.Name, CurrentStock: it.CurrentStock,
			Threshold: it.Threshold, IdealStock: it.IdealStock, SuggestedQty: it.SuggestedQty,
			UnitCost: it.UnitCost, EstimatedCost: it.EstimatedCost, Priority: it.Priority,
		})
	}
	return out
}

// ExpiringBatchResponse lote con stock próximo a vencer o vencido.
type ExpiringBatchResponse struct {
	BatchID     string    `json:"batch_id"`
	ProductID   string    `json:"product_id"`
	BatchNumber string    `json:"batch_number"`
	Quantity    int       `json:"quantity"`
	ExpiryDate  time.Time `json:"expiry_date"`
	DaysLeft    int       `json:"days_left"`
	Expired     bool      `json:"expired"`
}

func FromExpiring(list []alerts.ExpiringBatch) []ExpiringBatchResponse {
	out := make([]ExpiringBatchResponse, 0, len(list))
	for _, b := range list {
		out = append(out, ExpiringBatchResponse{
			BatchID: b.BatchID, ProductID: b.ProductID, BatchNumber: b.BatchNumber, Quantity: b.Quantity,
			ExpiryDate: b.ExpiryDate, DaysLeft: b.DaysLeft, Expired: b.Expired,
		})
	}
	return out
}
