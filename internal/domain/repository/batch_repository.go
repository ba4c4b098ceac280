package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// BatchRepository puerto de persistencia para lotes.
type BatchRepository interface {
	Create(ctx context.Context, batch *entity.Batch) error
	GetByID(ctx context.Context, id string) (*entity.Batch, error)
	// GetForUpdate bloquea la fila del lote hasta el commit.
	GetForUpdate(ctx context.Context, id string) (*entity.Batch, error)
	// FindForUpdate busca y bloquea un lote por producto y número; nil si no existe.
	FindForUpdate(ctx context.Context, productID, batchNumber string) (*entity.Batch, error)
	UpdateQuantity(ctx context.Context, id string, quantity int) error
	ListByProduct(ctx context.Context, productID string) ([]*entity.Batch, error)
	ListExpiring(ctx context.Context, until time.Time) ([]*entity.Batch, error)
}
