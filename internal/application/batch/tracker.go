// Package batch gestiona los lotes: particiones con vencimiento del stock de un producto.
// Toda variación de cantidad de un lote pasa por el libro de stock.
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

// CreateInput datos de un lote nuevo. Quantity 0 crea el lote vacío.
type CreateInput struct {
	ProductID   string
	BatchNumber string
	Quantity    int
	ExpiryDate  *time.Time
	ReceivedAt  *time.Time
	Notes       string
}

// Tracker casos de uso de lotes.
type Tracker struct {
	ledger  *ledger.Ledger
	batches repository.BatchRepository
}

// NewTracker batches se usa solo para lecturas fuera de transacción.
func NewTracker(l *ledger.Ledger, batches repository.BatchRepository) *Tracker {
	return &Tracker{ledger: l, batches: batches}
}

// Create crea el lote y, si Quantity > 0, ingresa su stock con un movimiento IN.
func (t *Tracker) Create(ctx context.Context, actor string, in CreateInput) (*entity.Batch, error) {
	var out *entity.Batch
	err := t.ledger.Runner().Do(ctx, actor, func(tx *ledger.Tx) error {
		b, err := t.CreateInTx(ctx, tx, in)
		out = b
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInTx igual que Create dentro de la transacción del llamador.
func (t *Tracker) CreateInTx(ctx context.Context, tx *ledger.Tx, in CreateInput) (*entity.Batch, error) {
	in.BatchNumber = strings.TrimSpace(in.BatchNumber)
	if in.ProductID == "" || in.BatchNumber == "" || in.Quantity < 0 {
		return nil, domain.ErrInvalidInput
	}
	product, err := tx.Products.GetForUpdate(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("producto %s: %w", in.ProductID, domain.ErrNotFound)
	}
	existing, err := tx.Batches.FindForUpdate(ctx, in.ProductID, in.BatchNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("lote %s: %w", in.BatchNumber, domain.ErrDuplicate)
	}

	b := &entity.Batch{
		ID:          uuid.NewString(),
		ProductID:   in.ProductID,
		BatchNumber: in.BatchNumber,
		ExpiryDate:  dayPtr(in.ExpiryDate),
		ReceivedAt:  in.ReceivedAt,
		Notes:       in.Notes,
		CreatedAt:   tx.Now,
	}
	if b.ReceivedAt == nil {
		now := tx.Now
		b.ReceivedAt = &now
	}
	if err := tx.Batches.Create(ctx, b); err != nil {
		return nil, err
	}
	tx.Record("Batch", b.ID, entity.ActionCreate, nil, b.Snapshot())

	if in.Quantity > 0 {
		if _, err := t.ledger.ReceiveInTx(ctx, tx, ledger.Entry{
			ProductID:     b.ProductID,
			BatchID:       b.ID,
			Quantity:      in.Quantity,
			ReferenceType: entity.RefBatch,
			ReferenceID:   b.ID,
			Notes:         "creación de lote " + b.BatchNumber,
		}); err != nil {
			return nil, err
		}
		b.Quantity = in.Quantity
	}
	if err := t.SyncExpiryInTx(ctx, tx, b.ProductID); err != nil {
		return nil, err
	}
	return b, nil
}

// ReceiveIntoInTx ingresa qty al lote (producto, número), creándolo si no existe.
// Lo usa la recepción de compras cuando la línea trae vencimiento. Un lote existente
// con otro vencimiento se rechaza con ErrInvalidInput.
func (t *Tracker) ReceiveIntoInTx(
	ctx context.Context, tx *ledger.Tx,
	productID, batchNumber string, expiry *time.Time, qty int,
	refType, refID string,
) (*entity.Batch, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if _, err := tx.Products.GetForUpdate(ctx, productID); err != nil {
		return nil, err
	}
	b, err := tx.Batches.FindForUpdate(ctx, productID, batchNumber)
	if err != nil {
		return nil, err
	}
	if b == nil {
		received := tx.Now
		b = &entity.Batch{
			ID:          uuid.NewString(),
			ProductID:   productID,
			BatchNumber: batchNumber,
			ExpiryDate:  dayPtr(expiry),
			ReceivedAt:  &received,
			CreatedAt:   tx.Now,
		}
		if err := tx.Batches.Create(ctx, b); err != nil {
			return nil, err
		}
		tx.Record("Batch", b.ID, entity.ActionCreate, nil, b.Snapshot())
	} else if expiry != nil && !sameDay(dayPtr(b.ExpiryDate), dayPtr(expiry)) {
		return nil, fmt.Errorf("lote %s ya existe con otro vencimiento (%s): %w",
			batchNumber, formatDay(b.ExpiryDate), domain.ErrInvalidInput)
	}
	if _, err := t.ledger.ReceiveInTx(ctx, tx, ledger.Entry{
		ProductID:     productID,
		BatchID:       b.ID,
		Quantity:      qty,
		ReferenceType: refType,
		ReferenceID:   refID,
	}); err != nil {
		return nil, err
	}
	b.Quantity += qty
	if err := t.SyncExpiryInTx(ctx, tx, productID); err != nil {
		return nil, err
	}
	return b, nil
}

// Resize fija la cantidad del lote emitiendo un ADJUST por la diferencia.
func (t *Tracker) Resize(ctx context.Context, actor, batchID string, quantity int, notes string) (*entity.Batch, error) {
	if quantity < 0 {
		return nil, domain.ErrInvalidInput
	}
	var out *entity.Batch
	err := t.ledger.Runner().Do(ctx, actor, func(tx *ledger.Tx) error {
		current, err := tx.Batches.GetByID(ctx, batchID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("lote %s: %w", batchID, domain.ErrNotFound)
		}
		// producto antes que lote, igual que el libro
		if _, err := tx.Products.GetForUpdate(ctx, current.ProductID); err != nil {
			return err
		}
		b, err := tx.Batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if b == nil {
			return fmt.Errorf("lote %s: %w", batchID, domain.ErrNotFound)
		}
		delta := quantity - b.Quantity
		if delta != 0 {
			if notes == "" {
				notes = fmt.Sprintf("ajuste de lote %s: %d -> %d", b.BatchNumber, b.Quantity, quantity)
			}
			if _, err := t.ledger.AdjustInTx(ctx, tx, ledger.Entry{
				ProductID:     b.ProductID,
				BatchID:       b.ID,
				Quantity:      delta,
				ReferenceType: entity.RefBatch,
				ReferenceID:   b.ID,
				Notes:         notes,
			}); err != nil {
				return err
			}
			b.Quantity = quantity
		}
		out = b
		return t.SyncExpiryInTx(ctx, tx, b.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SyncExpiryInTx fija el vencimiento del producto en la fecha futura más próxima entre sus
// lotes con stock. Sin lotes aplicables conserva el último valor conocido.
func (t *Tracker) SyncExpiryInTx(ctx context.Context, tx *ledger.Tx, productID string) error {
	product, err := tx.Products.GetForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return fmt.Errorf("producto %s: %w", productID, domain.ErrNotFound)
	}
	batches, err := tx.Batches.ListByProduct(ctx, productID)
	if err != nil {
		return err
	}
	earliest := entity.EarliestFutureExpiry(batches, tx.Now)
	if earliest == nil {
		return nil
	}
	if product.ExpiryDate != nil && product.ExpiryDate.Equal(*earliest) {
		return nil
	}
	before := product.Snapshot()
	if err := tx.Products.UpdateExpiry(ctx, productID, earliest); err != nil {
		return err
	}
	product.ExpiryDate = earliest
	tx.Record("Product", productID, entity.ActionUpdate, before, product.Snapshot())
	return nil
}

// ListByProduct lotes no eliminados del producto, vencimiento más próximo primero.
func (t *Tracker) ListByProduct(ctx context.Context, productID string) ([]*entity.Batch, error) {
	return t.batches.ListByProduct(ctx, productID)
}

// Get lote por ID.
func (t *Tracker) Get(ctx context.Context, id string) (*entity.Batch, error) {
	b, err := t.batches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("lote %s: %w", id, domain.ErrNotFound)
	}
	return b, nil
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := entity.TruncateDay(*t)
	return &d
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func formatDay(t *time.Time) string {
	if t == nil {
		return "sin fecha"
	}
	return t.Format("2006-01-02")
}
