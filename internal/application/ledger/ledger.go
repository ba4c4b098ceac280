// Package ledger implementa las primitivas del libro de stock: el único camino por el que
// cambia Product.StockQuantity (y Batch.Quantity). Cada operación bloquea la fila del producto
// (y del lote) antes de leer, actualiza el contador y agrega un StockMovement inmutable.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

var tracer = otel.Tracer("github.com/jhoicas/Distribuidora-api/internal/application/ledger")

// Entry entrada de una primitiva. BatchID es opcional; Quantity es positiva salvo en Adjust,
// donde es el delta con signo.
type Entry struct {
	ProductID     string
	BatchID       string
	Quantity      int
	ReferenceType string
	ReferenceID   string
	Notes         string
}

// Ledger primitivas deduct/restore/receive/adjust/reconcile.
// Las variantes ...InTx componen dentro de la transacción de otro caso de uso.
type Ledger struct {
	runner    *Runner
	movements repository.StockMovementRepository
	metrics   ports.LedgerMetrics
}

// NewLedger construye el libro. movements se usa solo para consultas de historial.
func NewLedger(runner *Runner, movements repository.StockMovementRepository, metrics ports.LedgerMetrics) *Ledger {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Ledger{runner: runner, movements: movements, metrics: metrics}
}

// Runner expone el runner transaccional compartido por los casos de uso.
func (l *Ledger) Runner() *Runner { return l.runner }

// Deduct descuenta stock en su propia transacción.
func (l *Ledger) Deduct(ctx context.Context, actor string, e Entry) (*entity.Product, error) {
	return l.standalone(ctx, actor, e, l.DeductInTx)
}

// Restore restituye stock en su propia transacción.
func (l *Ledger) Restore(ctx context.Context, actor string, e Entry) (*entity.Product, error) {
	return l.standalone(ctx, actor, e, l.RestoreInTx)
}

// Receive ingresa stock en su propia transacción.
func (l *Ledger) Receive(ctx context.Context, actor string, e Entry) (*entity.Product, error) {
	return l.standalone(ctx, actor, e, l.ReceiveInTx)
}

// Adjust aplica un delta con signo en su propia transacción.
func (l *Ledger) Adjust(ctx context.Context, actor string, e Entry) (*entity.Product, error) {
	return l.standalone(ctx, actor, e, l.AdjustInTx)
}

func (l *Ledger) standalone(
	ctx context.Context, actor string, e Entry,
	op func(context.Context, *Tx, Entry) (*entity.Product, error),
) (*entity.Product, error) {
	var out *entity.Product
	err := l.runner.Do(ctx, actor, func(tx *Tx) error {
		p, err := op(ctx, tx, e)
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeductInTx falla con *domain.StockError si qty supera el stock del producto o del lote.
// Agrega un movimiento OUT con cantidad -qty.
func (l *Ledger) DeductInTx(ctx context.Context, tx *Tx, e Entry) (_ *entity.Product, err error) {
	ctx, span := startSpan(ctx, "ledger.Deduct", e)
	defer func() { endSpan(span, err) }()

	if e.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	product, batch, err := l.lock(ctx, tx, e)
	if err != nil {
		return nil, err
	}
	if product.StockQuantity < e.Quantity {
		l.metrics.OperationRejected("deduct", "insufficient_stock")
		return nil, &domain.StockError{ProductID: product.ID, Requested: e.Quantity, Available: product.StockQuantity}
	}
	if batch != nil && batch.Quantity < e.Quantity {
		l.metrics.OperationRejected("deduct", "insufficient_batch_stock")
		return nil, &domain.StockError{ProductID: product.ID, BatchID: batch.ID, Requested: e.Quantity, Available: batch.Quantity}
	}
	return l.apply(ctx, tx, product, batch, entity.MovementOut, -e.Quantity, e)
}

// RestoreInTx no tiene tope superior: el llamador evita restituir de más.
// Agrega un movimiento RETURN con cantidad +qty.
func (l *Ledger) RestoreInTx(ctx context.Context, tx *Tx, e Entry) (_ *entity.Product, err error) {
	ctx, span := startSpan(ctx, "ledger.Restore", e)
	defer func() { endSpan(span, err) }()

	if e.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	product, batch, err := l.lock(ctx, tx, e)
	if err != nil {
		return nil, err
	}
	return l.apply(ctx, tx, product, batch, entity.MovementReturn, e.Quantity, e)
}

// ReceiveInTx agrega un movimiento IN (compras, creación de lotes).
func (l *Ledger) ReceiveInTx(ctx context.Context, tx *Tx, e Entry) (_ *entity.Product, err error) {
	ctx, span := startSpan(ctx, "ledger.Receive", e)
	defer func() { endSpan(span, err) }()

	if e.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	product, batch, err := l.lock(ctx, tx, e)
	if err != nil {
		return nil, err
	}
	return l.apply(ctx, tx, product, batch, entity.MovementIn, e.Quantity, e)
}

// AdjustInTx aplica e.Quantity como delta con signo y agrega un movimiento ADJUST.
// Falla con *domain.StockError si el producto o el lote quedarían negativos.
func (l *Ledger) AdjustInTx(ctx context.Context, tx *Tx, e Entry) (_ *entity.Product, err error) {
	ctx, span := startSpan(ctx, "ledger.Adjust", e)
	defer func() { endSpan(span, err) }()

	if e.Quantity == 0 {
		return nil, domain.ErrInvalidInput
	}
	if e.ReferenceType == "" {
		e.ReferenceType = entity.RefAdjust
	}
	product, batch, err := l.lock(ctx, tx, e)
	if err != nil {
		return nil, err
	}
	if product.StockQuantity+e.Quantity < 0 {
		l.metrics.OperationRejected("adjust", "insufficient_stock")
		return nil, &domain.StockError{ProductID: product.ID, Requested: -e.Quantity, Available: product.StockQuantity}
	}
	if batch != nil && batch.Quantity+e.Quantity < 0 {
		l.metrics.OperationRejected("adjust", "insufficient_batch_stock")
		return nil, &domain.StockError{ProductID: product.ID, BatchID: batch.ID, Requested: -e.Quantity, Available: batch.Quantity}
	}
	return l.apply(ctx, tx, product, batch, entity.MovementAdjust, e.Quantity, e)
}

// lock bloquea primero el producto y luego el lote: orden fijo para evitar deadlocks.
func (l *Ledger) lock(ctx context.Context, tx *Tx, e Entry) (*entity.Product, *entity.Batch, error) {
	if e.ProductID == "" {
		return nil, nil, domain.ErrInvalidInput
	}
	product, err := tx.Products.GetForUpdate(ctx, e.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if product == nil {
		return nil, nil, fmt.Errorf("producto %s: %w", e.ProductID, domain.ErrNotFound)
	}
	if e.BatchID == "" {
		return product, nil, nil
	}
	batch, err := tx.Batches.GetForUpdate(ctx, e.BatchID)
	if err != nil {
		return nil, nil, err
	}
	if batch == nil || batch.ProductID != product.ID {
		return nil, nil, fmt.Errorf("lote %s: %w", e.BatchID, domain.ErrNotFound)
	}
	return product, batch, nil
}

func (l *Ledger) apply(
	ctx context.Context, tx *Tx,
	product *entity.Product, batch *entity.Batch,
	typ entity.MovementType, delta int, e Entry,
) (*entity.Product, error) {
	before := product.Snapshot()
	product.StockQuantity += delta
	product.UpdatedAt = tx.Now
	if err := tx.Products.UpdateStock(ctx, product.ID, product.StockQuantity); err != nil {
		return nil, err
	}

	var batchID *string
	if batch != nil {
		batchBefore := batch.Snapshot()
		batch.Quantity += delta
		if err := tx.Batches.UpdateQuantity(ctx, batch.ID, batch.Quantity); err != nil {
			return nil, err
		}
		id := batch.ID
		batchID = &id
		tx.Record("Batch", batch.ID, entity.ActionUpdate, batchBefore, batch.Snapshot())
	}

	mov := &entity.StockMovement{
		ID:            uuid.NewString(),
		ProductID:     product.ID,
		BatchID:       batchID,
		Type:          typ,
		Quantity:      delta,
		ReferenceType: e.ReferenceType,
		ReferenceID:   e.ReferenceID,
		Notes:         e.Notes,
		CreatedAt:     tx.Now,
		CreatedBy:     tx.Actor,
	}
	if err := tx.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}

	tx.Record("Product", product.ID, entity.ActionUpdate, before, product.Snapshot())
	tx.Record("StockMovement", mov.ID, entity.ActionCreate, nil, movementSnapshot(mov))
	tx.OnCommit(func() { l.metrics.MovementRecorded(string(typ), delta) })
	return product, nil
}

// Movements historial de un producto, más reciente primero.
func (l *Ledger) Movements(ctx context.Context, productID string, limit, offset int) ([]*entity.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.movements.ListByProduct(ctx, productID, limit, offset)
}

// MovementsByReference movimientos generados por un documento (pedido, compra, devolución, lote).
func (l *Ledger) MovementsByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error) {
	return l.movements.ListByReference(ctx, referenceType, referenceID)
}

func movementSnapshot(m *entity.StockMovement) map[string]any {
	snap := map[string]any{
		"product_id":     m.ProductID,
		"movement_type":  string(m.Type),
		"quantity":       m.Quantity,
		"reference_type": m.ReferenceType,
		"reference_id":   m.ReferenceID,
	}
	if m.BatchID != nil {
		snap["batch_id"] = *m.BatchID
	}
	return snap
}

func startSpan(ctx context.Context, name string, e Entry) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("product.id", e.ProductID),
		attribute.Int("ledger.quantity", e.Quantity),
		attribute.String("ledger.reference_type", e.ReferenceType),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
