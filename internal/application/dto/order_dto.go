package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Distribuidora-api/internal/application/orders"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// OrderItemRequest línea de pedido; batch_id opcional fija el lote.
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	BatchID   string `json:"batch_id"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest body de POST /api/orders.
type CreateOrderRequest struct {
	CustomerID string             `json:"customer_id" validate:"required"`
	OrderType  string             `json:"order_type" validate:"omitempty,oneof=NORMAL PRE_ORDER"`
	Discount   decimal.Decimal    `json:"discount_amount"`
	Notes      string             `json:"notes" validate:"max=1000"`
	Items      []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateOrderItemsRequest conjunto deseado de líneas del pedido.
type UpdateOrderItemsRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// PaymentRequest body de POST /api/orders/:id/payments.
type PaymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"payment_method" validate:"required,max=50"`
	ReferenceNumber string          `json:"reference_number" validate:"max=100"`
	Notes           string          `json:"notes" validate:"max=500"`
	PaymentDate     *string         `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
}

func toItemInputs(in []OrderItemRequest) []orders.ItemInput {
	out := make([]orders.ItemInput, 0, len(in))
	for _, it := range in {
		out = append(out, orders.ItemInput{ProductID: it.ProductID, BatchID: it.BatchID, Quantity: it.Quantity})
	}
	return out
}

func (r CreateOrderRequest) Input() orders.CreateInput {
	typ := entity.OrderType(r.OrderType)
	if typ == "" {
		typ = entity.OrderTypeNormal
	}
	return orders.CreateInput{CustomerID: r.CustomerID, Type: typ, Items: toItemInputs(r.Items), Discount: r.Discount, Notes: r.Notes}
}

func (r UpdateOrderItemsRequest) Input() []orders.ItemInput { return toItemInputs(r.Items) }

func (r PaymentRequest) Input() orders.PaymentInput {
	return orders.PaymentInput{Amount: r.Amount, Method: r.Method, Reference: r.ReferenceNumber, Notes: r.Notes,
		Date: ParseDate(r.PaymentDate)}
}

// OrderItemResponse línea de pedido.
type OrderItemResponse struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	BatchID    *string         `json:"batch_id,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// OrderResponse salida de un pedido.
type OrderResponse struct {
	ID             string              `json:"id"`
	OrderNumber    string              `json:"order_number"`
	CustomerID     string              `json:"customer_id"`
	OrderDate      time.Time           `json:"order_date"`
	DeliveryDate   *time.Time          `json:"delivery_date,omitempty"`
	OrderType      string              `json:"order_type"`
	Status         string              `json:"status"`
	StatusID       string              `json:"status_id,omitempty"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	DeliveryFee    decimal.Decimal     `json:"delivery_fee"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	PaidAmount     decimal.Decimal     `json:"paid_amount"`
	BalanceDue     decimal.Decimal     `json:"balance_due"`
	PromotionID    *string             `json:"promotion_id,omitempty"`
	Notes          string              `json:"notes"`
	Items          []OrderItemResponse `json:"items"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func FromOrder(o *entity.SalesOrder) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{ID: it.ID, ProductID: it.ProductID, BatchID: it.BatchID,
			Quantity: it.Quantity, UnitPrice: it.UnitPrice, TotalPrice: it.TotalPrice})
	}
	return OrderResponse{
		ID: o.ID, OrderNumber: o.OrderNumber, CustomerID: o.CustomerID, OrderDate: o.OrderDate,
		DeliveryDate: o.DeliveryDate, OrderType: string(o.Type), Status: string(o.Status), StatusID: o.StatusID,
		Subtotal: o.Subtotal, DiscountAmount: o.DiscountAmount, DeliveryFee: o.DeliveryFee,
		TotalAmount: o.TotalAmount, PaidAmount: o.PaidAmount, BalanceDue: o.BalanceDue(),
		PromotionID: o.PromotionID, Notes: o.Notes, Items: items, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}
}

// OrderListResponse lista paginada de pedidos.
type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}

// PaymentResponse salida de un pago.
type PaymentResponse struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id"`
	VoucherNumber   string          `json:"voucher_number"`
	PaymentDate     time.Time       `json:"payment_date"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
}

func FromPayment(p *entity.Payment) PaymentResponse {
	return PaymentResponse{ID: p.ID, OrderID: p.OrderID, VoucherNumber: p.VoucherNumber, PaymentDate: p.PaymentDate,
		Amount: p.Amount, Method: p.Method, ReferenceNumber: p.ReferenceNumber, Notes: p.Notes}
}

func FromPayments(list []*entity.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(list))
	for _, p := range list {
		out = append(out, FromPayment(p))
	}
	return out
}

// PaymentRecordedResponse pago registrado y el pedido con su saldo actualizado.
type PaymentRecordedResponse struct {
	Payment PaymentResponse `json:"payment"`
	Order   OrderResponse   `json:"order"`
}
