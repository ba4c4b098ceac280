package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

var _ repository.ReturnRepository = (*ReturnRepo)(nil)

// ReturnRepo devoluciones, sus líneas e historial.
type ReturnRepo struct {
	q Querier
}

func NewReturnRepository(q Querier) *ReturnRepo {
	return &ReturnRepo{q: q}
}

const returnColumns = `id, return_number, order_id, status, return_type, total_amount, notes, replacement_order_id,
	created_by, created_at, updated_at, deleted_at`

func (r *ReturnRepo) Create(ctx context.Context, ret *entity.ReturnRequest) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO return_requests (`+returnColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL)`,
		ret.ID, ret.ReturnNumber, ret.OrderID, string(ret.Status), ret.ReturnType, ret.TotalAmount, ret.Notes,
		ret.ReplacementOrderID, ret.CreatedBy, ret.CreatedAt, ret.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert return: %w", uniqueAsConcurrency(err, "devolución "+ret.ReturnNumber))
	}
	for _, it := range ret.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO return_items (id, return_id, order_item_id, product_id, quantity, unit_price, reason_id, return_to_stock, condition_notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			it.ID, ret.ID, it.OrderItemID, it.ProductID, it.Quantity, it.UnitPrice, it.ReasonID, it.ReturnToStock, it.ConditionNotes)
		if err != nil {
			return fmt.Errorf("insert return item: %w", mapError(err))
		}
	}
	return nil
}

func (r *ReturnRepo) GetByID(ctx context.Context, id string) (*entity.ReturnRequest, error) {
	return r.get(ctx, `SELECT `+returnColumns+` FROM return_requests WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *ReturnRepo) GetForUpdate(ctx context.Context, id string) (*entity.ReturnRequest, error) {
	return r.get(ctx, `SELECT `+returnColumns+` FROM return_requests WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
}

func (r *ReturnRepo) get(ctx context.Context, query, id string) (*entity.ReturnRequest, error) {
	var ret entity.ReturnRequest
	var status string
	err := r.q.QueryRow(ctx, query, id).Scan(&ret.ID, &ret.ReturnNumber, &ret.OrderID, &status, &ret.ReturnType,
		&ret.TotalAmount, &ret.Notes, &ret.ReplacementOrderID, &ret.CreatedBy, &ret.CreatedAt, &ret.UpdatedAt, &ret.DeletedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get return: %w", mapError(err))
	}
	ret.Status = entity.ReturnStatus(status)

	rows, err := r.q.Query(ctx, `
		SELECT id, return_id, order_item_id, product_id, quantity, unit_price, reason_id, return_to_stock, condition_notes
		FROM return_items WHERE return_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list return items: %w", mapError(err))
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.ReturnItem
		if err := rows.Scan(&it.ID, &it.ReturnID, &it.OrderItemID, &it.ProductID, &it.Quantity, &it.UnitPrice,
			&it.ReasonID, &it.ReturnToStock, &it.ConditionNotes); err != nil {
			return nil, fmt.Errorf("scan return item: %w", err)
		}
		ret.Items = append(ret.Items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *ReturnRepo) exec(ctx context.Context, id, query string, args ...any) error {
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update return: %w", mapError(err))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("devolución %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *ReturnRepo) UpdateStatus(ctx context.Context, id string, status entity.ReturnStatus) error {
	return r.exec(ctx, id, `UPDATE return_requests SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
}

// SetReplacement la restricción UNIQUE sobre replacement_order_id impide dos reposiciones.
func (r *ReturnRepo) SetReplacement(ctx context.Context, id, orderID string) error {
	err := r.exec(ctx, id, `UPDATE return_requests SET replacement_order_id = $2, updated_at = now() WHERE id = $1`, id, orderID)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("devolución %s: %w", id, domain.ErrReplacementExists)
	}
	return err
}

func (r *ReturnRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, id,
		`UPDATE return_requests SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
}

func (r *ReturnRepo) HasActiveForOrder(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM return_requests WHERE order_id = $1 AND deleted_at IS NULL)`, orderID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("active return: %w", mapError(err))
	}
	return exists, nil
}

func (r *ReturnRepo) ReturnedQuantity(ctx context.Context, orderItemID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(ri.quantity), 0)
		FROM return_items ri
		JOIN return_requests rr ON rr.id = ri.return_id
		WHERE ri.order_item_id = $1 AND rr.status <> 'REJECTED'`, orderItemID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("returned quantity: %w", mapError(err))
	}
	return n, nil
}

func (r *ReturnRepo) AddProcessing(ctx context.Context, p *entity.ReturnProcessing) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO return_processing (id, return_id, action, notes, processed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.ReturnID, p.Action, p.Notes, p.ProcessedBy, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert return processing: %w", mapError(err))
	}
	return nil
}

func (r *ReturnRepo) ListProcessing(ctx context.Context, returnID string) ([]*entity.ReturnProcessing, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, return_id, action, notes, processed_by, created_at
		FROM return_processing WHERE return_id = $1 ORDER BY created_at, id`, returnID)
	if err != nil {
		return nil, fmt.Errorf("list return processing: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.ReturnProcessing
	for rows.Next() {
		var p entity.ReturnProcessing
		if err := rows.Scan(&p.ID, &p.ReturnID, &p.Action, &p.Notes, &p.ProcessedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan return processing: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
