package repository

import (
	"context"

	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// StockMovementRepository puerto del libro de movimientos. Solo inserción: no existe Update ni Delete.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	SumByProduct(ctx context.Context, productID string) (int, error)
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockMovement, error)
	ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error)
}
