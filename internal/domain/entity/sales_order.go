package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType determina cuándo un pedido compromete stock y cómo se valoriza.
type OrderType string

const (
	OrderTypeNormal      OrderType = "NORMAL"      // descuenta stock al crear
	OrderTypePreOrder    OrderType = "PRE_ORDER"   // descuenta stock al entregar
	OrderTypeReplacement OrderType = "REPLACEMENT" // reposición de una devolución, precio cero
)

// OrderStatus código semántico del estado; el ID configurado lo resuelve ports.StatusResolver.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
)

// SalesOrder pedido de venta. TotalAmount = Subtotal - DiscountAmount + DeliveryFee.
type SalesOrder struct {
	ID             string
	OrderNumber    string
	CustomerID     string
	OrderDate      time.Time
	DeliveryDate   *time.Time
	Type           OrderType
	Status         OrderStatus
	StatusID       string
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	DeliveryFee    decimal.Decimal
	TotalAmount    decimal.Decimal
	PaidAmount     decimal.Decimal
	PromotionID    *string
	DiscountPct    decimal.Decimal // porcentaje de la promoción aplicada (0 si no hay)
	Notes          string
	Items          []*OrderItem
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// OrderItem línea de pedido. TotalPrice = Quantity * UnitPrice.
type OrderItem struct {
	ID         string
	OrderID    string
	ProductID  string
	BatchID    *string
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Payment abono a un pedido. La suma de pagos define PaidAmount.
type Payment struct {
	ID              string
	OrderID         string
	VoucherNumber   string
	PaymentDate     time.Time
	Amount          decimal.Decimal
	Method          string
	ReferenceNumber string
	Notes           string
	CreatedBy       string
	CreatedAt       time.Time
}

// IsDelivered indica si el pedido ya fue entregado (fecha de entrega registrada).
func (o *SalesOrder) IsDelivered() bool { return o.DeliveryDate != nil }

// BalanceDue saldo pendiente de pago.
func (o *SalesOrder) BalanceDue() decimal.Decimal { return o.TotalAmount.Sub(o.PaidAmount) }

// IsFullyPaid indica si los pagos cubren el total.
func (o *SalesOrder) IsFullyPaid() bool { return o.PaidAmount.GreaterThanOrEqual(o.TotalAmount) }

// ItemByProduct devuelve la línea del producto, o nil.
func (o *SalesOrder) ItemByProduct(productID string) *OrderItem {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return it
		}
	}
	return nil
}

// ItemByID devuelve la línea con ese ID, o nil.
func (o *SalesOrder) ItemByID(id string) *OrderItem {
	for _, it := range o.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// RecalculateTotals recalcula subtotal y total a partir de las líneas.
// El descuento por promoción se reaplica sobre el nuevo subtotal.
func (o *SalesOrder) RecalculateTotals() {
	subtotal := decimal.Zero
	for _, it := range o.Items {
		it.TotalPrice = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(it.TotalPrice)
	}
	o.Subtotal = subtotal
	if o.PromotionID != nil {
		o.DiscountAmount = DiscountFor(subtotal, o.DiscountPct)
	}
	if o.DiscountAmount.GreaterThan(subtotal) {
		o.DiscountAmount = subtotal
	}
	o.TotalAmount = o.Subtotal.Sub(o.DiscountAmount).Add(o.DeliveryFee)
}

// DiscountFor calcula subtotal * pct / 100 redondeado a 2 decimales.
func DiscountFor(subtotal, pct decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
}

func (o *SalesOrder) Snapshot() map[string]any {
	snap := map[string]any{
		"id":              o.ID,
		"order_number":    o.OrderNumber,
		"order_type":      string(o.Type),
		"status":          string(o.Status),
		"subtotal":        o.Subtotal.StringFixed(2),
		"discount_amount": o.DiscountAmount.StringFixed(2),
		"delivery_fee":    o.DeliveryFee.StringFixed(2),
		"total_amount":    o.TotalAmount.StringFixed(2),
		"paid_amount":     o.PaidAmount.StringFixed(2),
	}
	if o.DeliveryDate != nil {
		snap["delivery_date"] = o.DeliveryDate.Format(DateLayout)
	}
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"product_id": it.ProductID,
			"quantity":   it.Quantity,
			"unit_price": it.UnitPrice.StringFixed(2),
		})
	}
	snap["items"] = items
	return snap
}
