package repository

import (
	"context"

	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// PurchaseOrderRepository puerto de persistencia de órdenes de compra.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	// GetForUpdate bloquea la cabecera y sus líneas hasta el commit.
	GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	UpdateItemReceived(ctx context.Context, itemID string, received int) error
	UpdateStatus(ctx context.Context, id string, status entity.PurchaseStatus) error
}
