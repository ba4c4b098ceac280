// Package returns gestiona devoluciones de pedidos entregados: creación acotada por lo ya
// devuelto, aprobación con reingreso de stock, rechazo y pedido de reposición.
package returns

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/application/orders"
	"github.com/jhoicas/Distribuidora-api/internal/application/sequence"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

// DefaultWindowDays plazo de devolución si no se configura otro.
const DefaultWindowDays = 7

// ItemInput línea devuelta. ReturnToStock nil equivale a true.
type ItemInput struct {
	OrderItemID    string
	Quantity       int
	ReasonID       string
	ReturnToStock  *bool
	ConditionNotes string
}

// CreateInput datos de una devolución nueva.
type CreateInput struct {
	OrderID    string
	ReturnType string
	Notes      string
	Items      []ItemInput
}

// Deps dependencias del servicio.
type Deps struct {
	Ledger   *ledger.Ledger
	Sequence *sequence.Generator
	Orders   *orders.Service
	Returns  repository.ReturnRepository
	// WindowDays días desde la entrega en que se aceptan devoluciones; <= 0 usa DefaultWindowDays.
	WindowDays int
}

// Service casos de uso de devoluciones.
type Service struct {
	ledger     *ledger.Ledger
	seq        *sequence.Generator
	orders     *orders.Service
	returns    repository.ReturnRepository
	windowDays int
}

func NewService(d Deps) *Service {
	days := d.WindowDays
	if days <= 0 {
		days = DefaultWindowDays
	}
	return &Service{ledger: d.Ledger, seq: d.Sequence, orders: d.Orders, returns: d.Returns, windowDays: days}
}

// Create registra la devolución en PENDING. El pedido debe estar entregado o pagado, sin otra
// devolución activa y dentro del plazo; cada línea se limita a lo pedido menos lo ya devuelto.
func (s *Service) Create(ctx context.Context, actor string, in CreateInput) (*entity.ReturnRequest, error) {
	if in.OrderID == "" || len(in.Items) == 0 {
		return nil, fmt.Errorf("pedido y líneas requeridos: %w", domain.ErrInvalidInput)
	}
	var out *entity.ReturnRequest
	err := s.ledger.Runner().Do(ctx, actor, func(tx *ledger.Tx) error {
		o, err := tx.Orders.GetForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("pedido %s: %w", in.OrderID, domain.ErrNotFound)
		}
		if o.Status != entity.OrderDelivered && o.Status != entity.OrderPaid {
			return &domain.TransitionError{Entity: "pedido " + o.OrderNumber, From: string(o.Status), Action: "devolución"}
		}
		if o.DeliveryDate != nil {
			days := int(entity.TruncateDay(tx.Now).Sub(entity.TruncateDay(*o.DeliveryDate)).Hours() / 24)
			if days > s.windowDays {
				return fmt.Errorf("%d días desde la entrega, máximo %d: %w", days, s.windowDays, domain.ErrReturnWindowExceeded)
			}
		}
		active, err := tx.Returns.HasActiveForOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		if active {
			return fmt.Errorf("pedido %s: %w", o.OrderNumber, domain.ErrReturnExists)
		}

		ret := &entity.ReturnRequest{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			Status:      entity.ReturnPending,
			ReturnType:  strings.TrimSpace(in.ReturnType),
			Notes:       strings.TrimSpace(in.Notes),
			TotalAmount: decimal.Zero,
			CreatedBy:   tx.Actor,
			CreatedAt:   tx.Now,
			UpdatedAt:   tx.Now,
		}
		requested := map[string]int{}
		for i, it := range in.Items {
			if it.Quantity <= 0 {
				return fmt.Errorf("línea %d: cantidad debe ser positiva: %w", i+1, domain.ErrInvalidInput)
			}
			line := o.ItemByID(it.OrderItemID)
			if line == nil {
				return fmt.Errorf("línea %s no pertenece al pedido %s: %w", it.OrderItemID, o.OrderNumber, domain.ErrInvalidInput)
			}
			returned, err := tx.Returns.ReturnedQuantity(ctx, line.ID)
			if err != nil {
				return err
			}
			requested[line.ID] += it.Quantity
			if available := line.Quantity - returned; requested[line.ID] > available {
				return &domain.AllowanceError{Kind: domain.ErrOverReturn, LineID: line.ID, Requested: requested[line.ID], Remaining: available}
			}
			toStock := true
			if it.ReturnToStock != nil {
				toStock = *it.ReturnToStock
			}
			ret.Items = append(ret.Items, &entity.ReturnItem{
				ID:             uuid.NewString(),
				ReturnID:       ret.ID,
				OrderItemID:    line.ID,
				ProductID:      line.ProductID,
				Quantity:       it.Quantity,
				UnitPrice:      line.UnitPrice,
				ReasonID:       it.ReasonID,
				ReturnToStock:  toStock,
				ConditionNotes: strings.TrimSpace(it.ConditionNotes),
			})
			ret.TotalAmount = ret.TotalAmount.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}

		if ret.ReturnNumber, err = s.seq.Next(ctx, tx.Sequences, repository.SequenceReturn, tx.Now); err != nil {
			return err
		}
		if err := tx.Returns.Create(ctx, ret); err != nil {
			return err
		}
		tx.Record("ReturnRequest", ret.ID, entity.ActionCreate, nil, ret.Snapshot())
		out = ret
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Approve reingresa al stock las líneas marcadas ReturnToStock. Solo desde PENDING.
func (s *Service) Approve(ctx context.Context, actor, returnID, notes string) (*entity.ReturnRequest, error) {
	return s.process(ctx, actor, returnID, func(tx *ledger.Tx, ret *entity.ReturnRequest) error {
		if ret.Status != entity.ReturnPending {
			return &domain.TransitionError{Entity: "devolución " + ret.ReturnNumber, From: string(ret.Status), Action: "aprobar"}
		}
		if err := s.log(ctx, tx, ret.ID, entity.ReturnActionApproved, notes); err != nil {
			return err
		}
		lines := append([]*entity.ReturnItem(nil), ret.Items...)
		sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
		partial := false
		for _, it := range lines {
			if !it.ReturnToStock {
				partial = true
				continue
			}
			if _, err := s.ledger.RestoreInTx(ctx, tx, ledger.Entry{
				ProductID:     it.ProductID,
				Quantity:      it.Quantity,
				ReferenceType: entity.RefReturn,
				ReferenceID:   ret.ID,
				Notes:         "devolución " + ret.ReturnNumber,
			}); err != nil {
				return err
			}
		}
		action := entity.ReturnActionStockRestored
		if partial {
			action = entity.ReturnActionStockRestoredPartial
		}
		if err := s.log(ctx, tx, ret.ID, action, notes); err != nil {
			return err
		}
		ret.Status = entity.ReturnApproved
		return tx.Returns.UpdateStatus(ctx, ret.ID, ret.Status)
	})
}

// Reject estado terminal; no toca stock.
func (s *Service) Reject(ctx context.Context, actor, returnID, notes string) (*entity.ReturnRequest, error) {
	return s.process(ctx, actor, returnID, func(tx *ledger.Tx, ret *entity.ReturnRequest) error {
		if ret.Status != entity.ReturnPending {
			return &domain.TransitionError{Entity: "devolución " + ret.ReturnNumber, From: string(ret.Status), Action: "rechazar"}
		}
		if err := s.log(ctx, tx, ret.ID, entity.ReturnActionRejected, notes); err != nil {
			return err
		}
		ret.Status = entity.ReturnRejected
		return tx.Returns.UpdateStatus(ctx, ret.ID, ret.Status)
	})
}

// CreateReplacement genera el pedido REPLACEMENT (precio cero) con las líneas de una devolución
// aprobada. Una devolución produce como máximo una reposición.
func (s *Service) CreateReplacement(ctx context.Context, actor, returnID string) (*entity.SalesOrder, error) {
	var out *entity.SalesOrder
	_, err := s.process(ctx, actor, returnID, func(tx *ledger.Tx, ret *entity.ReturnRequest) error {
		if ret.ReplacementOrderID != nil {
			return fmt.Errorf("devolución %s: %w", ret.ReturnNumber, domain.ErrReplacementExists)
		}
		if ret.Status != entity.ReturnApproved {
			return &domain.TransitionError{Entity: "devolución " + ret.ReturnNumber, From: string(ret.Status), Action: "crear reposición"}
		}
		origin, err := tx.Orders.GetByID(ctx, ret.OrderID)
		if err != nil {
			return err
		}
		if origin == nil {
			return fmt.Errorf("pedido %s: %w", ret.OrderID, domain.ErrNotFound)
		}
		items := make([]orders.ItemInput, 0, len(ret.Items))
		for _, it := range ret.Items {
			items = append(items, orders.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		notes := "Reposición de la devolución " + ret.ReturnNumber
		if ret.Notes != "" {
			notes += "\n" + ret.Notes
		}
		o, err := s.orders.CreateInTx(ctx, tx, orders.CreateInput{
			CustomerID: origin.CustomerID,
			Type:       entity.OrderTypeReplacement,
			Items:      mergeByProduct(items),
			Notes:      notes,
		})
		if err != nil {
			return err
		}
		if err := tx.Returns.SetReplacement(ctx, ret.ID, o.ID); err != nil {
			return err
		}
		ret.ReplacementOrderID = &o.ID
		out = o
		return s.log(ctx, tx, ret.ID, entity.ReturnActionReplacementCreated, "Pedido: "+o.OrderNumber)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete borrado lógico. Lo ya devuelto sigue contando para el límite de las líneas del pedido.
func (s *Service) Delete(ctx context.Context, actor, returnID string) error {
	return s.ledger.Runner().Do(ctx, actor, func(tx *ledger.Tx) error {
		ret, err := s.lock(ctx, tx, returnID)
		if err != nil {
			return err
		}
		if ret.ReplacementOrderID != nil {
			return &domain.TransitionError{Entity: "devolución " + ret.ReturnNumber, From: string(ret.Status), Action: "eliminar (tiene reposición)"}
		}
		if err := tx.Returns.SoftDelete(ctx, ret.ID, tx.Now); err != nil {
			return err
		}
		tx.Record("ReturnRequest", ret.ID, entity.ActionDelete, ret.Snapshot(), nil)
		return nil
	})
}

// Get devolución con sus líneas.
func (s *Service) Get(ctx context.Context, id string) (*entity.ReturnRequest, error) {
	ret, err := s.returns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, fmt.Errorf("devolución %s: %w", id, domain.ErrNotFound)
	}
	return ret, nil
}

// History historial de procesamiento en orden cronológico.
func (s *Service) History(ctx context.Context, id string) ([]*entity.ReturnProcessing, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.returns.ListProcessing(ctx, id)
}

func (s *Service) process(
	ctx context.Context, actor, returnID string,
	fn func(tx *ledger.Tx, ret *entity.ReturnRequest) error,
) (*entity.ReturnRequest, error) {
	var out *entity.ReturnRequest
	err := s.ledger.Runner().Do(ctx, actor, func(tx *ledger.Tx) error {
		ret, err := s.lock(ctx, tx, returnID)
		if err != nil {
			return err
		}
		before := ret.Snapshot()
		if err := fn(tx, ret); err != nil {
			return err
		}
		tx.Record("ReturnRequest", ret.ID, entity.ActionUpdate, before, ret.Snapshot())
		out = ret
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) lock(ctx context.Context, tx *ledger.Tx, id string) (*entity.ReturnRequest, error) {
	ret, err := tx.Returns.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, fmt.Errorf("devolución %s: %w", id, domain.ErrNotFound)
	}
	return ret, nil
}

func (s *Service) log(ctx context.Context, tx *ledger.Tx, returnID, action, notes string) error {
	return tx.Returns.AddProcessing(ctx, &entity.ReturnProcessing{
		ID:          uuid.NewString(),
		ReturnID:    returnID,
		Action:      action,
		Notes:       strings.TrimSpace(notes),
		ProcessedBy: tx.Actor,
		CreatedAt:   tx.Now,
	})
}

// mergeByProduct el pedido admite una línea por producto.
func mergeByProduct(items []orders.ItemInput) []orders.ItemInput {
	idx := map[string]int{}
	var out []orders.ItemInput
	for _, it := range items {
		if i, ok := idx[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		idx[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}
