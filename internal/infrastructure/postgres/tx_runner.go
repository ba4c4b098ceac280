package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

var _ ports.TxRunner = (*TxRunner)(nil)

var tracer = otel.Tracer("github.com/jhoicas/Distribuidora-api/internal/infrastructure/postgres")

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Timeouts de lock, deadlocks y fallos de serialización salen como domain.ErrConcurrency.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Repos) error) (err error) {
	ctx, span := tracer.Start(ctx, "postgres.tx")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepos(tx)); err != nil {
		return mapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	return nil
}

// NewRepos repositorios atados a q: un pgx.Tx dentro de Run, o el pool para lecturas sueltas.
func NewRepos(q Querier) repository.Repos {
	return repository.Repos{
		Products:  NewProductRepository(q),
		Batches:   NewBatchRepository(q),
		Movements: NewStockMovementRepository(q),
		Orders:    NewSalesOrderRepository(q),
		Payments:  NewPaymentRepository(q),
		Purchases: NewPurchaseOrderRepository(q),
		Returns:   NewReturnRepository(q),
		Sequences: NewSequenceRepository(q),
	}
}
