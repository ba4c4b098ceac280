package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditProfile vista del cliente que necesita el motor de pedidos
// (límite de crédito, saldo pendiente y tarifa de envío de su zona).
// CreditLimit cero significa crédito ilimitado.
type CreditProfile struct {
	CustomerID     string
	CustomerTypeID string
	CreditLimit    decimal.Decimal
	Outstanding    decimal.Decimal
	DeliveryZoneID string
	DeliveryFee    decimal.Decimal
}

// HasCreditLimit indica si el cliente tiene un límite efectivo.
func (c *CreditProfile) HasCreditLimit() bool {
	return c.CreditLimit.GreaterThan(decimal.Zero)
}

// ExceedsLimit indica si sumar orderTotal al saldo supera el límite.
func (c *CreditProfile) ExceedsLimit(orderTotal decimal.Decimal) bool {
	if !c.HasCreditLimit() {
		return false
	}
	return c.Outstanding.Add(orderTotal).GreaterThan(c.CreditLimit)
}

// Promotion descuento porcentual vigente entre StartDate y EndDate (inclusive).
type Promotion struct {
	ID              string
	Name            string
	DiscountPercent decimal.Decimal
	StartDate       time.Time
	EndDate         time.Time
	IsActive        bool
}

// ActiveOn indica si la promoción aplica en el día de t.
func (p *Promotion) ActiveOn(t time.Time) bool {
	day := TruncateDay(t)
	return p.IsActive && !day.Before(TruncateDay(p.StartDate)) && !day.After(TruncateDay(p.EndDate))
}
