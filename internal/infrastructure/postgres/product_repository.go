package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, sku, name, base_price, cost_price, stock_quantity, low_stock_threshold,
	expiry_date, expiry_alert_days, is_active, created_at, updated_at, deleted_at`

func scanProduct(row interface{ Scan(...any) error }) (*entity.Product, error) {
	var p entity.Product
	var cost decimal.NullDecimal
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.BasePrice, &cost, &p.StockQuantity, &p.LowStockThreshold,
		&p.ExpiryDate, &p.ExpiryAlertDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt); err != nil {
		return nil, err
	}
	if cost.Valid {
		p.CostPrice = &cost.Decimal
	}
	return &p, nil
}

// GetByID obtiene un producto no eliminado por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", mapError(err))
	}
	return p, nil
}

// GetForUpdate obtiene el producto y bloquea la fila (SELECT FOR UPDATE).
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product for update: %w", mapError(err))
	}
	return p, nil
}

func (r *ProductRepo) exec(ctx context.Context, what, query string, args ...any) error {
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, mapError(err))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}

// UpdateStock escribe el contador cacheado. Solo lo usa el libro de stock.
func (r *ProductRepo) UpdateStock(ctx context.Context, id string, quantity int) error {
	return r.exec(ctx, "update product stock",
		`UPDATE products SET stock_quantity = $2, updated_at = now() WHERE id = $1`, id, quantity)
}

func (r *ProductRepo) UpdateExpiry(ctx context.Context, id string, expiry *time.Time) error {
	return r.exec(ctx, "update product expiry",
		`UPDATE products SET expiry_date = $2, updated_at = now() WHERE id = $1`, id, expiry)
}

// UpdateCost actualiza solo el costo del producto (usado por la recepción de compras).
func (r *ProductRepo) UpdateCost(ctx context.Context, id string, cost decimal.Decimal) error {
	return r.exec(ctx, "update product cost",
		`UPDATE products SET cost_price = $2, updated_at = now() WHERE id = $1`, id, cost)
}

// PriceFor tarifa del tipo de cliente si existe; si no, el precio base.
func (r *ProductRepo) PriceFor(ctx context.Context, productID, customerTypeID string) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(pp.price, p.base_price)
		FROM products p
		LEFT JOIN product_prices pp ON pp.product_id = p.id AND pp.customer_type_id = $2
		WHERE p.id = $1 AND p.deleted_at IS NULL`, productID, customerTypeID).Scan(&price)
	if err != nil {
		if isNoRows(err) {
			return decimal.Zero, fmt.Errorf("producto %s: %w", productID, domain.ErrNotFound)
		}
		return decimal.Zero, fmt.Errorf("price for: %w", mapError(err))
	}
	return price, nil
}

// ListLowStock productos activos en o bajo su umbral, menor stock primero.
func (r *ProductRepo) ListLowStock(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE deleted_at IS NULL AND is_active AND stock_quantity <= low_stock_threshold
		ORDER BY stock_quantity, sku
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *ProductRepo) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM products WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list product ids: %w", mapError(err))
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
