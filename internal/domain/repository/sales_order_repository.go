package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// SalesOrderRepository puerto de persistencia de pedidos y sus líneas.
type SalesOrderRepository interface {
	// Create inserta cabecera y líneas.
	Create(ctx context.Context, order *entity.SalesOrder) error
	// GetByID carga el pedido con sus líneas; nil si no existe o está eliminado.
	GetByID(ctx context.Context, id string) (*entity.SalesOrder, error)
	// GetForUpdate igual que GetByID bloqueando la cabecera hasta el commit.
	GetForUpdate(ctx context.Context, id string) (*entity.SalesOrder, error)
	// Update persiste cabecera (estado, montos, fechas).
	Update(ctx context.Context, order *entity.SalesOrder) error
	CreateItem(ctx context.Context, item *entity.OrderItem) error
	UpdateItem(ctx context.Context, item *entity.OrderItem) error
	DeleteItem(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, customerID string, limit, offset int) ([]*entity.SalesOrder, error)
}

// PaymentRepository puerto de persistencia de pagos.
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	SumByOrder(ctx context.Context, orderID string) (decimal.Decimal, error)
	CountByOrder(ctx context.Context, orderID string) (int, error)
	ListByOrder(ctx context.Context, orderID string) ([]*entity.Payment, error)
}
