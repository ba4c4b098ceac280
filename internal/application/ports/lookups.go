package ports

import (
	"context"
	"time"

	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// CustomerDirectory consulta de crédito y zona de entrega del cliente.
type CustomerDirectory interface {
	// CreditProfile devuelve nil si el cliente no existe.
	CreditProfile(ctx context.Context, customerID string) (*entity.CreditProfile, error)
}

// PromotionLookup consulta de promociones vigentes en una fecha.
type PromotionLookup interface {
	ActivePromotions(ctx context.Context, on time.Time) ([]*entity.Promotion, error)
}

// StatusResolver traduce códigos semánticos (PENDING, DELIVERED, ...) al ID configurado
// en la tabla de estados. El núcleo nunca usa IDs fijos.
type StatusResolver interface {
	OrderStatusID(ctx context.Context, code entity.OrderStatus) (string, error)
}
