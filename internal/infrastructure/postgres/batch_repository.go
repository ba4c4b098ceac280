package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo lotes sobre PostgreSQL.
type BatchRepo struct {
	q Querier
}

func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const batchColumns = `id, product_id, batch_number, quantity, expiry_date, received_at, notes, created_at, deleted_at`

// orden FEFO: vencimiento más próximo primero, sin fecha al final
const batchOrder = ` ORDER BY expiry_date ASC NULLS LAST, batch_number`

func scanBatch(row interface{ Scan(...any) error }) (*entity.Batch, error) {
	var b entity.Batch
	if err := row.Scan(&b.ID, &b.ProductID, &b.BatchNumber, &b.Quantity, &b.ExpiryDate, &b.ReceivedAt,
		&b.Notes, &b.CreatedAt, &b.DeletedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO batches (id, product_id, batch_number, quantity, expiry_date, received_at, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.ProductID, b.BatchNumber, b.Quantity, b.ExpiryDate, b.ReceivedAt, b.Notes, b.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("lote %s: %w", b.BatchNumber, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert batch: %w", mapError(err))
	}
	return nil
}

func (r *BatchRepo) one(ctx context.Context, what, query string, args ...any) (*entity.Batch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", what, mapError(err))
	}
	return b, nil
}

func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.Batch, error) {
	return r.one(ctx, "get batch",
		`SELECT `+batchColumns+` FROM batches WHERE id = $1 AND deleted_at IS NULL`, id)
}

// GetForUpdate bloquea la fila del lote hasta el commit.
func (r *BatchRepo) GetForUpdate(ctx context.Context, id string) (*entity.Batch, error) {
	return r.one(ctx, "get batch for update",
		`SELECT `+batchColumns+` FROM batches WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
}

// FindForUpdate busca por (producto, número). El lock del producto que toma el llamador
// serializa la creación de un lote que todavía no existe.
func (r *BatchRepo) FindForUpdate(ctx context.Context, productID, batchNumber string) (*entity.Batch, error) {
	return r.one(ctx, "find batch for update", `
		SELECT `+batchColumns+` FROM batches
		WHERE product_id = $1 AND batch_number = $2 AND deleted_at IS NULL
		FOR UPDATE`, productID, batchNumber)
}

func (r *BatchRepo) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	cmd, err := r.q.Exec(ctx, `UPDATE batches SET quantity = $2 WHERE id = $1`, id, quantity)
	if err != nil {
		return fmt.Errorf("update batch quantity: %w", mapError(err))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("lote %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *BatchRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.Batch, error) {
	return r.list(ctx, `SELECT `+batchColumns+` FROM batches
		WHERE product_id = $1 AND deleted_at IS NULL`+batchOrder, productID)
}

// ListExpiring lotes con stock que vencen hasta until inclusive.
func (r *BatchRepo) ListExpiring(ctx context.Context, until time.Time) ([]*entity.Batch, error) {
	return r.list(ctx, `SELECT `+batchColumns+` FROM batches
		WHERE deleted_at IS NULL AND quantity > 0 AND expiry_date IS NOT NULL AND expiry_date <= $1`+batchOrder, until)
}

func (r *BatchRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
