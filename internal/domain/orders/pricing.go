package orders

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// BestPromotion elige la promoción vigente con mayor porcentaje de descuento.
// Empates: gana el ID menor, para que el resultado no dependa del orden de la consulta.
func BestPromotion(promos []*entity.Promotion, on time.Time) *entity.Promotion {
	var best *entity.Promotion
	for _, p := range promos {
		if p == nil || !p.ActiveOn(on) {
			continue
		}
		if best == nil {
			best = p
			continue
		}
		switch p.DiscountPercent.Cmp(best.DiscountPercent) {
		case 1:
			best = p
		case 0:
			if p.ID < best.ID {
				best = p
			}
		}
	}
	return best
}

// PricingInput datos para valorizar un pedido nuevo.
type PricingInput struct {
	Policy         Policy
	Profile        *entity.CreditProfile
	Promotions     []*entity.Promotion
	ManualDiscount decimal.Decimal
	On             time.Time
}

// Price fija precios, descuento, envío y total del pedido.
// Pedidos sin valorizar (reposición) quedan en cero. Una promoción vigente reemplaza
// el descuento manual.
func Price(o *entity.SalesOrder, in PricingInput) error {
	if in.ManualDiscount.IsNegative() {
		return domain.ErrInvalidInput
	}
	if !in.Policy.Priced() {
		for _, it := range o.Items {
			it.UnitPrice = decimal.Zero
		}
		o.DiscountAmount = decimal.Zero
		o.DeliveryFee = decimal.Zero
		o.PromotionID = nil
		o.DiscountPct = decimal.Zero
		o.RecalculateTotals()
		return nil
	}

	if in.Profile != nil {
		o.DeliveryFee = in.Profile.DeliveryFee
	}
	o.DiscountAmount = in.ManualDiscount
	if best := BestPromotion(in.Promotions, in.On); best != nil {
		id := best.ID
		o.PromotionID = &id
		o.DiscountPct = best.DiscountPercent
	}
	o.RecalculateTotals()
	if o.PromotionID == nil && in.ManualDiscount.GreaterThan(o.Subtotal) {
		return domain.ErrInvalidInput
	}
	return nil
}

// CheckCredit aplica el control de límite de crédito (límite cero = ilimitado).
func CheckCredit(p Policy, profile *entity.CreditProfile, total decimal.Decimal) error {
	if !p.Priced() || profile == nil {
		return nil
	}
	if profile.ExceedsLimit(total) {
		return &domain.CreditLimitError{Outstanding: profile.Outstanding, OrderTotal: total, Limit: profile.CreditLimit}
	}
	return nil
}
