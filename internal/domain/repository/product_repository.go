package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// UpdateStock solo lo invoca el libro de stock, siempre después de GetForUpdate en la misma tx.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetForUpdate bloquea la fila del producto (SELECT ... FOR UPDATE) hasta el commit.
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	UpdateStock(ctx context.Context, id string, quantity int) error
	UpdateExpiry(ctx context.Context, id string, expiry *time.Time) error
	UpdateCost(ctx context.Context, id string, cost decimal.Decimal) error
	// PriceFor precio por tipo de cliente; si no hay tarifa, el precio base.
	PriceFor(ctx context.Context, productID, customerTypeID string) (decimal.Decimal, error)
	ListLowStock(ctx context.Context, limit, offset int) ([]*entity.Product, error)
	// ListIDs ids de productos no eliminados, para la conciliación global.
	ListIDs(ctx context.Context) ([]string, error)
}
