package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Distribuidora-api/internal/application/purchasing"
	"github.com/jhoicas/Distribuidora-api/internal/application/returns"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// ── compras ────────────────────────────────────────────────────────────────────

// PurchaseItemRequest línea de una orden de compra.
type PurchaseItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// CreatePurchaseRequest body de POST /api/purchases.
type CreatePurchaseRequest struct {
	SupplierID   string                `json:"supplier_id" validate:"required"`
	ExpectedDate *string               `json:"expected_date" validate:"omitempty,datetime=2006-01-02"`
	Notes        string                `json:"notes" validate:"max=1000"`
	Items        []PurchaseItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ReceiptLineRequest cantidad recibida de una línea; con fecha de vencimiento entra a un lote.
type ReceiptLineRequest struct {
	ItemID      string  `json:"item_id" validate:"required"`
	Quantity    int     `json:"quantity"`
	BatchNumber string  `json:"batch_number" validate:"max=100"`
	ExpiryDate  *string `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
}

// ReceivePurchaseRequest body de POST /api/purchases/:id/receive.
type ReceivePurchaseRequest struct {
	Items []ReceiptLineRequest `json:"items" validate:"required,min=1,dive"`
}

func (r CreatePurchaseRequest) Input() purchasing.CreateInput {
	in := purchasing.CreateInput{SupplierID: r.SupplierID, ExpectedDate: ParseDate(r.ExpectedDate), Notes: r.Notes}
	for _, it := range r.Items {
		in.Items = append(in.Items, purchasing.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity, UnitCost: it.UnitCost})
	}
	return in
}

func (r ReceivePurchaseRequest) Lines() []purchasing.ReceiptLine {
	out := make([]purchasing.ReceiptLine, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, purchasing.ReceiptLine{ItemID: it.ItemID, Quantity: it.Quantity,
			BatchNumber: it.BatchNumber, ExpiryDate: ParseDate(it.ExpiryDate)})
	}
	return out
}

// PurchaseItemResponse línea con lo recibido hasta ahora.
type PurchaseItemResponse struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	Quantity         int             `json:"quantity"`
	ReceivedQuantity int             `json:"received_quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	TotalCost        decimal.Decimal `json:"total_cost"`
}

// PurchaseResponse salida de una orden de compra.
type PurchaseResponse struct {
	ID           string                 `json:"id"`
	SupplierID   string                 `json:"supplier_id"`
	Status       string                 `json:"status"`
	ExpectedDate *time.Time             `json:"expected_date,omitempty"`
	TotalAmount  decimal.Decimal        `json:"total_amount"`
	Notes        string                 `json:"notes"`
	Items        []PurchaseItemResponse `json:"items"`
	CreatedAt    time.Time              `json:"created_at"`
}

func FromPurchase(po *entity.PurchaseOrder) PurchaseResponse {
	items := make([]PurchaseItemResponse, 0, len(po.Items))
	for _, it := range po.Items {
		items = append(items, PurchaseItemResponse{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity,
			ReceivedQuantity: it.ReceivedQuantity, UnitCost: it.UnitCost, TotalCost: it.TotalCost})
	}
	return PurchaseResponse{ID: po.ID, SupplierID: po.SupplierID, Status: string(po.Status), ExpectedDate: po.ExpectedDate,
		TotalAmount: po.TotalAmount, Notes: po.Notes, Items: items, CreatedAt: po.CreatedAt}
}

// ── devoluciones ───────────────────────────────────────────────────────────────

// ReturnItemRequest línea devuelta. return_to_stock omitido equivale a true.
type ReturnItemRequest struct {
	OrderItemID    string `json:"order_item_id" validate:"required"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	ReasonID       string `json:"reason_id" validate:"max=100"`
	ReturnToStock  *bool  `json:"return_to_stock"`
	ConditionNotes string `json:"condition_notes" validate:"max=500"`
}

// CreateReturnRequest body de POST /api/returns.
type CreateReturnRequest struct {
	OrderID    string              `json:"order_id" validate:"required"`
	ReturnType string              `json:"return_type" validate:"max=50"`
	Notes      string              `json:"notes" validate:"max=1000"`
	Items      []ReturnItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ProcessReturnRequest notas de aprobación o rechazo.
type ProcessReturnRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

func (r CreateReturnRequest) Input() returns.CreateInput {
	in := returns.CreateInput{OrderID: r.OrderID, ReturnType: r.ReturnType, Notes: r.Notes}
	for _, it := range r.Items {
		in.Items = append(in.Items, returns.ItemInput{OrderItemID: it.OrderItemID, Quantity: it.Quantity,
			ReasonID: it.ReasonID, ReturnToStock: it.ReturnToStock, ConditionNotes: it.ConditionNotes})
	}
	return in
}

// ReturnItemResponse línea devuelta.
type ReturnItemResponse struct {
	ID             string          `json:"id"`
	OrderItemID    string          `json:"order_item_id"`
	ProductID      string          `json:"product_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ReasonID       string          `json:"reason_id"`
	ReturnToStock  bool            `json:"return_to_stock"`
	ConditionNotes string          `json:"condition_notes"`
}

// ReturnResponse salida de una devolución.
type ReturnResponse struct {
	ID                 string               `json:"id"`
	ReturnNumber       string               `json:"return_number"`
	OrderID            string               `json:"order_id"`
	Status             string               `json:"status"`
	ReturnType         string               `json:"return_type"`
	TotalAmount        decimal.Decimal      `json:"total_amount"`
	Notes              string               `json:"notes"`
	ReplacementOrderID *string              `json:"replacement_order_id,omitempty"`
	Items              []ReturnItemResponse `json:"items"`
	CreatedAt          time.Time            `json:"created_at"`
}

func FromReturn(r *entity.ReturnRequest) ReturnResponse {
	items := make([]ReturnItemResponse, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, ReturnItemResponse{ID: it.ID, OrderItemID: it.OrderItemID, ProductID: it.ProductID,
			Quantity: it.Quantity, UnitPrice: it.UnitPrice, ReasonID: it.ReasonID, ReturnToStock: it.ReturnToStock,
			ConditionNotes: it.ConditionNotes})
	}
	return ReturnResponse{ID: r.ID, ReturnNumber: r.ReturnNumber, OrderID: r.OrderID, Status: string(r.Status),
		ReturnType: r.ReturnType, TotalAmount: r.TotalAmount, Notes: r.Notes, ReplacementOrderID: r.ReplacementOrderID,
		Items: items, CreatedAt: r.CreatedAt}
}

// ReturnProcessingResponse entrada del historial.
type ReturnProcessingResponse struct {
	Action      string    `json:"action"`
	Notes       string    `json:"notes"`
	ProcessedBy string    `json:"processed_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func FromProcessing(list []*entity.ReturnProcessing) []ReturnProcessingResponse {
	out := make([]ReturnProcessingResponse, 0, len(list))
	for _, p := range list {
		out = append(out, ReturnProcessingResponse{Action: p.Action, Notes: p.Notes, ProcessedBy: p.ProcessedBy, CreatedAt: p.CreatedAt})
	}
	return out
}

// ParseDate convierte AAAA-MM-DD (ya validado) a *time.Time en UTC; nil si viene vacío.
func ParseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	d, err := time.Parse(entity.DateLayout, *s)
	if err != nil {
		return nil
	}
	return &d
}
