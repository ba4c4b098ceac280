package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// ReturnRepository puerto de persistencia de devoluciones.
type ReturnRepository interface {
	Create(ctx context.Context, ret *entity.ReturnRequest) error
	GetByID(ctx context.Context, id string) (*entity.ReturnRequest, error)
	// GetForUpdate bloquea la devolución hasta el commit; nil si no existe o está eliminada.
	GetForUpdate(ctx context.Context, id string) (*entity.ReturnRequest, error)
	UpdateStatus(ctx context.Context, id string, status entity.ReturnStatus) error
	SetReplacement(ctx context.Context, id, orderID string) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	// HasActiveForOrder indica si el pedido tiene alguna devolución no eliminada.
	HasActiveForOrder(ctx context.Context, orderID string) (bool, error)
	// ReturnedQuantity suma lo devuelto de una línea en todas las devoluciones no rechazadas,
	// incluidas las eliminadas.
	ReturnedQuantity(ctx context.Context, orderItemID string) (int, error)
	AddProcessing(ctx context.Context, p *entity.ReturnProcessing) error
	ListProcessing(ctx context.Context, returnID string) ([]*entity.ReturnProcessing, error)
}
