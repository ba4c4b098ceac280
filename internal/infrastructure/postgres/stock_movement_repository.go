package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro de movimientos. Solo INSERT y lecturas.
type StockMovementRepo struct {
	q Querier
}

func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, product_id, batch_id, movement_type, quantity, reference_type, reference_id,
	notes, created_at, created_by`

func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_movements (`+movementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.ProductID, m.BatchID, string(m.Type), m.Quantity, m.ReferenceType, m.ReferenceID,
		m.Notes, m.CreatedAt, m.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", mapError(err))
	}
	return nil
}

// SumByProduct Σ quantity del producto; 0 si no tiene movimientos.
func (r *StockMovementRepo) SumByProduct(ctx context.Context, productID string) (int, error) {
	var sum int
	if err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM stock_movements WHERE product_id = $1`, productID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum stock movements: %w", mapError(err))
	}
	return sum, nil
}

// ListByProduct más recientes primero.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockMovement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM stock_movements
		WHERE product_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, productID, limit, offset)
}

// ListByReference en orden cronológico.
func (r *StockMovementRepo) ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM stock_movements
		WHERE reference_type = $1 AND reference_id = $2 ORDER BY created_at, id`, referenceType, referenceID)
}

func (r *StockMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var typ string
		if err := rows.Scan(&m.ID, &m.ProductID, &m.BatchID, &typ, &m.Quantity, &m.ReferenceType, &m.ReferenceID,
			&m.Notes, &m.CreatedAt, &m.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		m.Type = entity.MovementType(typ)
		out = append(out, &m)
	}
	return out, rows.Err()
}
