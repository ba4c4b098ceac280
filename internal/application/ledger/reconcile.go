package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// Reconciliation resultado de comparar el contador cacheado con la suma de movimientos.
type Reconciliation struct {
	ProductID string
	Cached    int
	LedgerSum int
	Drift     int // Cached - LedgerSum
	Corrected bool
}

// Consistent indica si no hay deriva.
func (r Reconciliation) Consistent() bool { return r.Drift == 0 }

// Reconcile compara stock_quantity con Σ movimientos bajo el lock del producto.
// Con diferencia devuelve el resultado junto a un *domain.InconsistencyError; no corrige nada.
func (l *Ledger) Reconcile(ctx context.Context, productID string) (Reconciliation, error) {
	var rec Reconciliation
	err := l.runner.Do(ctx, "system", func(tx *Tx) error {
		r, err := l.ReconcileInTx(ctx, tx, productID)
		rec = r
		return err
	})
	if err != nil && !errors.Is(err, domain.ErrLedgerInconsistency) {
		return Reconciliation{}, err
	}
	return rec, err
}

// ReconcileInTx igual que Reconcile dentro de la transacción del llamador. La inconsistencia
// se reporta pero no aborta la transacción: el error se devuelve al final.
func (l *Ledger) ReconcileInTx(ctx context.Context, tx *Tx, productID string) (_ Reconciliation, err error) {
	ctx, span := startSpan(ctx, "ledger.Reconcile", Entry{ProductID: productID})
	defer func() { endSpan(span, err) }()

	product, err := tx.Products.GetForUpdate(ctx, productID)
	if err != nil {
		return Reconciliation{}, err
	}
	if product == nil {
		return Reconciliation{}, fmt.Errorf("producto %s: %w", productID, domain.ErrNotFound)
	}
	sum, err := tx.Movements.SumByProduct(ctx, productID)
	if err != nil {
		return Reconciliation{}, err
	}
	rec := Reconciliation{
		ProductID: productID,
		Cached:    product.StockQuantity,
		LedgerSum: sum,
		Drift:     product.StockQuantity - sum,
	}
	if rec.Consistent() {
		return rec, nil
	}
	return rec, &domain.InconsistencyError{ProductID: productID, Cached: rec.Cached, LedgerSum: rec.LedgerSum}
}

// Correct reconcilia y, si hay deriva, agrega un ADJUST por la diferencia sin tocar el contador.
// El contador se toma como verdad operativa: el movimiento deja registrada la deriva en el historial
// y restablece Σ movimientos == stock_quantity.
func (l *Ledger) Correct(ctx context.Context, actor, productID string) (Reconciliation, error) {
	var rec Reconciliation
	err := l.runner.Do(ctx, actor, func(tx *Tx) error {
		r, err := l.ReconcileInTx(ctx, tx, productID)
		rec = r
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrLedgerInconsistency) {
			return err
		}
		mov := &entity.StockMovement{
			ID:            uuid.NewString(),
			ProductID:     productID,
			Type:          entity.MovementAdjust,
			Quantity:      r.Drift,
			ReferenceType: entity.RefReconcile,
			ReferenceID:   productID,
			Notes:         fmt.Sprintf("corrección de deriva: cacheado %d, movimientos %d", r.Cached, r.LedgerSum),
			CreatedAt:     tx.Now,
			CreatedBy:     tx.Actor,
		}
		if err := tx.Movements.Create(ctx, mov); err != nil {
			return err
		}
		tx.Record("StockMovement", mov.ID, entity.ActionCreate, nil, movementSnapshot(mov))
		drift := r.Drift
		tx.OnCommit(func() { l.metrics.MovementRecorded(string(entity.MovementAdjust), drift) })
		rec.Corrected = true
		return nil
	})
	if err != nil {
		return Reconciliation{}, err
	}
	return rec, nil
}

// ReconcileReport resumen de una pasada global.
type ReconcileReport struct {
	Checked    int
	Mismatches []Reconciliation
}

// ReconcileAll recorre todos los productos no eliminados, cada uno en su propia transacción.
// Con autocorrect agrega el ADJUST correctivo; sin él solo reporta.
// Un error distinto de inconsistencia corta la pasada.
func (l *Ledger) ReconcileAll(ctx context.Context, autocorrect bool) (ReconcileReport, error) {
	ids, err := l.runner.productIDs(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}
	var report ReconcileReport
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		var rec Reconciliation
		if autocorrect {
			rec, err = l.Correct(ctx, "system", id)
		} else {
			rec, err = l.Reconcile(ctx, id)
			if errors.Is(err, domain.ErrLedgerInconsistency) {
				err = nil
			}
		}
		if errors.Is(err, domain.ErrNotFound) {
			// eliminado entre el listado y la conciliación
			continue
		}
		if err != nil {
			return report, err
		}
		report.Checked++
		if !rec.Consistent() {
			report.Mismatches = append(report.Mismatches, rec)
		}
	}
	l.metrics.ReconcileRun(report.Checked, len(report.Mismatches))
	return report, nil
}

// productIDs lista los productos en una transacción corta de solo lectura.
func (r *Runner) productIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.Do(ctx, "system", func(tx *Tx) error {
		var err error
		ids, err = tx.Products.ListIDs(ctx)
		return err
	})
	return ids, err
}
