package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo órdenes de compra y sus líneas.
type PurchaseOrderRepo struct {
	q Querier
}

func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

func (r *PurchaseOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO purchase_orders (id, supplier_id, status, expected_date, total_amount, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		po.ID, po.SupplierID, string(po.Status), po.ExpectedDate, po.TotalAmount, po.Notes, po.CreatedBy, po.CreatedAt, po.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert purchase order: %w", mapError(err))
	}
	for _, it := range po.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO purchase_items (id, purchase_order_id, product_id, quantity, received_quantity, unit_cost, total_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, po.ID, it.ProductID, it.Quantity, it.ReceivedQuantity, it.UnitCost, it.TotalCost)
		if err != nil {
			return fmt.Errorf("insert purchase item: %w", mapError(err))
		}
	}
	return nil
}

func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate bloquea la cabecera y las líneas; la recepción escribe ambas.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *PurchaseOrderRepo) get(ctx context.Context, id, lock string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	var status string
	err := r.q.QueryRow(ctx, `
		SELECT id, supplier_id, status, expected_date, total_amount, notes, created_by, created_at, updated_at
		FROM purchase_orders WHERE id = $1`+lock, id).
		Scan(&po.ID, &po.SupplierID, &status, &po.ExpectedDate, &po.TotalAmount, &po.Notes, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase order: %w", mapError(err))
	}
	po.Status = entity.PurchaseStatus(status)

	rows, err := r.q.Query(ctx, `
		SELECT id, purchase_order_id, product_id, quantity, received_quantity, unit_cost, total_cost
		FROM purchase_items WHERE purchase_order_id = $1 ORDER BY id`+lock, id)
	if err != nil {
		return nil, fmt.Errorf("list purchase items: %w", mapError(err))
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.PurchaseItem
		if err := rows.Scan(&it.ID, &it.PurchaseOrderID, &it.ProductID, &it.Quantity, &it.ReceivedQuantity,
			&it.UnitCost, &it.TotalCost); err != nil {
			return nil, fmt.Errorf("scan purchase item: %w", err)
		}
		po.Items = append(po.Items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *PurchaseOrderRepo) UpdateItemReceived(ctx context.Context, itemID string, received int) error {
	cmd, err := r.q.Exec(ctx, `UPDATE purchase_items SET received_quantity = $2 WHERE id = $1`, itemID, received)
	if err != nil {
		return fmt.Errorf("update purchase item: %w", mapError(err))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("línea de compra %s: %w", itemID, domain.ErrNotFound)
	}
	return nil
}

func (r *PurchaseOrderRepo) UpdateStatus(ctx context.Context, id string, status entity.PurchaseStatus) error {
	cmd, err := r.q.Exec(ctx, `UPDATE purchase_orders SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update purchase status: %w", mapError(err))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("orden de compra %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
