// Package purchasing implementa órdenes de compra y su recepción incremental.
package purchasing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Distribuidora-api/internal/application/batch"
	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/inventory"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

// ItemInput línea de una orden de compra nueva.
type ItemInput struct {
	ProductID string
	Quantity  int
	UnitCost  decimal.Decimal
}

// CreateInput datos de una orden de compra nueva.
type CreateInput struct {
	SupplierID   string
	ExpectedDate *time.Time
	Notes        string
	Items        []ItemInput
}

// ReceiptLine cantidad recibida de una línea. Con ExpiryDate la mercancía entra a un lote;
// BatchNumber vacío genera uno a partir de la orden y la fecha de vencimiento.
type ReceiptLine struct {
	ItemID      string
	Quantity    int
	BatchNumber string
	ExpiryDate  *time.Time
}

// Service casos de uso de compras.
type Service struct {
	ledger    *ledger.Ledger
	batches   *batch.Tracker
	purchases repository.PurchaseOrderRepository
}

// NewService purchases se usa solo para lecturas fuera de transacción.
func NewService(l *ledger.Ledger, batches *batch.Tracker, purchases repository.PurchaseOrderRepository) *Service {
	return &Service{ledger: l, batches: batches, purchases: purchases}
}

// Create registra la orden en estado PENDING con total = Σ cantidad × costo.
func (s *Service) Create(ctx context.Context, actor string, in CreateInput) (*entity.PurchaseOrder, error) {
	if strings.TrimSpace(in.SupplierID) == "" || len(in.Items) == 0 {
		return nil, fmt.Errorf("proveedor y líneas requeridos: %w", domain.ErrInvalidInput)
	}
	var out *entity.PurchaseOrder
	err := s.ledger.Runner().Do(ctx, actor, func(tx *ledger.Tx) error {
		po := &entity.PurchaseOrder{
			ID:           uuid.NewString(),
			SupplierID:   in.SupplierID,
			Status:       entity.PurchasePending,
			ExpectedDate: in.ExpectedDate,
			Notes:        strings.TrimSpace(in.Notes),
			TotalAmount:  decimal.Zero,
			CreatedBy:    tx.Actor,
			CreatedAt:    tx.Now,
			UpdatedAt:    tx.Now,
		}
		for i, it := range in.Items {
			if it.ProductID == "" || it.Quantity <= 0 || it.UnitCost.IsNegative() {
				return fmt.Errorf("línea %d: %w", i+1, domain.ErrInvalidInput)
			}
			p, err := tx.Products.GetByID(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("producto %s: %w", it.ProductID, domain.ErrNotFound)
			}
			line := &entity.PurchaseItem{
				ID:              uuid.NewString(),
				PurchaseOrderID: po.ID,
				ProductID:       it.ProductID,
				Quantity:        it.Quantity,
				UnitCost:        it.UnitCost,
				TotalCost:       it.UnitCost.Mul(decimal.NewFromInt(int64(it.Quantity))),
			}
			po.Items = append(po.Items, line)
			po.TotalAmount = po.TotalAmount.Add(line.TotalCost)
		}
		if err := tx.Purchases.Create(ctx, po); err != nil {
			return err
		}
		tx.Record("PurchaseOrder", po.ID, entity.ActionCreate, nil, po.Snapshot())
		out = po
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type acceptedLine struct {
	item  *entity.PurchaseItem
	lines []ReceiptLine
	total int
}

// Receive aplica una recepción en una sola transacción. Cantidades <= 0 se ignoran; una línea
// ajena a la orden es ErrInvalidInput; exceder lo pendiente es *domain.AllowanceError
// (ErrOverReceipt). Todo se valida antes de escribir.
func (s *Service) Receive(ctx context.Context, actor, purchaseID string, lines []ReceiptLine) (*entity.PurchaseOrder, error) {
	var out *entity.PurchaseOrder
	err := s.ledger.Runner().Do(ctx, actor, func(tx *ledger.Tx) error {
		po, err := tx.Purchases.GetForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		if po == nil {
			return fmt.Errorf("orden de compra %s: %w", purchaseID, domain.ErrNotFound)
		}
		before := po.Snapshot()

		accepted := map[string]*acceptedLine{}
		for _, l := range lines {
			if l.Quantity <= 0 {
				continue
			}
			item := po.ItemByID(l.ItemID)
			if item == nil {
				return fmt.Errorf("línea %s no pertenece a la orden %s: %w", l.ItemID, po.ID, domain.ErrInvalidInput)
			}
			acc := accepted[item.ID]
			if acc == nil {
				acc = &acceptedLine{item: item}
				accepted[item.ID] = acc
			}
			acc.lines = append(acc.lines, l)
			acc.total += l.Quantity
			if acc.total > item.Remaining() {
				return &domain.AllowanceError{Kind: domain.ErrOverReceipt, LineID: item.ID, Requested: acc.total, Remaining: item.Remaining()}
			}
		}

		ordered := make([]*acceptedLine, 0, len(accepted))
		for _, acc := range accepted {
			ordered = append(ordered, acc)
		}
		sort.Slice(ordered, func(i, j int) bool {
			if ordered[i].item.ProductID != ordered[j].item.ProductID {
				return ordered[i].item.ProductID < ordered[j].item.ProductID
			}
			return ordered[i].item.ID < ordered[j].item.ID
		})

		for _, acc := range ordered {
			if err := s.updateCost(ctx, tx, acc.item, acc.total); err != nil {
				return err
			}
			for _, l := range acc.lines {
				if err := s.receiveLine(ctx, tx, po, acc.item, l); err != nil {
					return err
				}
			}
			acc.item.ReceivedQuantity += acc.total
			if err := tx.Purchases.UpdateItemReceived(ctx, acc.item.ID, acc.item.ReceivedQuantity); err != nil {
				return err
			}
		}

		if len(accepted) > 0 {
			if status := po.ResolveStatus(); status != po.Status {
				po.Status = status
				if err := tx.Purchases.UpdateStatus(ctx, po.ID, status); err != nil {
					return err
				}
			}
			tx.Record("PurchaseOrder", po.ID, entity.ActionUpdate, before, po.Snapshot())
		}
		out = po
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// updateCost costo promedio ponderado con el stock previo a la recepción.
func (s *Service) updateCost(ctx context.Context, tx *ledger.Tx, item *entity.PurchaseItem, qty int) error {
	p, err := tx.Products.GetForUpdate(ctx, item.ProductID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("producto %s: %w", item.ProductID, domain.ErrNotFound)
	}
	current := item.UnitCost
	if p.CostPrice != nil {
		current = *p.CostPrice
	}
	cost := inventory.WeightedAverageCost(p.StockQuantity, current, qty, item.UnitCost)
	if p.CostPrice != nil && p.CostPrice.Equal(cost) {
		return nil
	}
	return tx.Products.UpdateCost(ctx, p.ID, cost)
}

func (s *Service) receiveLine(ctx context.Context, tx *ledger.Tx, po *entity.PurchaseOrder, item *entity.PurchaseItem, l ReceiptLine) error {
	if l.ExpiryDate == nil {
		_, err := s.ledger.ReceiveInTx(ctx, tx, ledger.Entry{
			ProductID:     item.ProductID,
			Quantity:      l.Quantity,
			ReferenceType: entity.RefPurchaseOrder,
			ReferenceID:   po.ID,
			Notes:         "recepción de compra",
		})
		return err
	}
	number := strings.TrimSpace(l.BatchNumber)
	if number == "" {
		number = fmt.Sprintf("OC-%s-%s", shortID(po.ID), l.ExpiryDate.Format("20060102"))
	}
	_, err := s.batches.ReceiveIntoInTx(ctx, tx, item.ProductID, number, l.ExpiryDate, l.Quantity, entity.RefPurchaseOrder, po.ID)
	return err
}

// Get orden de compra con sus líneas.
func (s *Service) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	po, err := s.purchases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, fmt.Errorf("orden de compra %s: %w", id, domain.ErrNotFound)
	}
	return po, nil
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}
