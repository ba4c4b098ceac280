// Package orders implementa el ciclo de vida de pedidos de venta: creación, edición de ítems,
// confirmación, entrega, cancelación, eliminación y pagos. Los movimientos de stock se
// delegan al libro según la política del tipo de pedido.
package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
	"github.com/jhoicas/Distribuidora-api/internal/application/sequence"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	domorders "github.com/jhoicas/Distribuidora-api/internal/domain/orders"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

// ItemInput línea solicitada. BatchID opcional fija el lote del que se descuenta.
type ItemInput struct {
	ProductID string
	BatchID   string
	Quantity  int
}

// CreateInput datos de un pedido nuevo.
type CreateInput struct {
	CustomerID string
	Type       entity.OrderType
	Items      []ItemInput
	Discount   decimal.Decimal
	Notes      string
}

// PaymentInput abono a un pedido. Date vacío toma la hora de la operación.
type PaymentInput struct {
	Amount    decimal.Decimal
	Method    string
	Reference string
	Notes     string
	Date      *time.Time
}

// Deps dependencias del servicio de pedidos.
type Deps struct {
	Ledger     *ledger.Ledger
	Sequence   *sequence.Generator
	Customers  ports.CustomerDirectory
	Promotions ports.PromotionLookup
	Statuses   ports.StatusResolver
	// Orders y Payments se usan para lecturas fuera de transacción.
	Orders   repository.SalesOrderRepository
	Payments repository.PaymentRepository
}

// Service casos de uso de pedidos.
type Service struct {
	ledger     *ledger.Ledger
	seq        *sequence.Generator
	customers  ports.CustomerDirectory
	promotions ports.PromotionLookup
	statuses   ports.StatusResolver
	orders     repository.SalesOrderRepository
	payments   repository.PaymentRepository
}

// NewService construye el servicio.
func NewService(d Deps) *Service {
	return &Service{
		ledger:     d.Ledger,
		seq:        d.Sequence,
		customers:  d.Customers,
		promotions: d.Promotions,
		statuses:   d.Statuses,
		orders:     d.Orders,
		payments:   d.Payments,
	}
}

// ── creación ───────────────────────────────────────────────────────────────────

// Create crea el pedido en estado PENDING.
func (s *Service) Create(ctx context.Context, actor string, in CreateInput) (*entity.SalesOrder, error) {
	var out *entity.SalesOrder
	err := s.ledger.Runner().Do(ctx, actor, func(tx *ledger.Tx) error {
		o, err := s.CreateInTx(ctx, tx, in)
		out = o
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInTx igual que Create dentro de la transacción del llamador (reposiciones).
func (s *Service) CreateInTx(ctx context.Context, tx *ledger.Tx, in CreateInput) (*entity.SalesOrder, error) {
	if in.Type == "" {
		in.Type = entity.OrderTypeNormal
	}
	policy, err := domorders.PolicyFor(in.Type)
	if err != nil {
		return nil, err
	}
	if in.CustomerID == "" {
		return nil, fmt.Errorf("cliente requerido: %w", domain.ErrInvalidInput)
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	var profile *entity.CreditProfile
	if policy.Priced() {
		profile, err = s.customers.CreditProfile(ctx, in.CustomerID)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, fmt.Errorf("cliente %s: %w", in.CustomerID, domain.ErrNotFound)
		}
	}

	o := &entity.SalesOrder{
		ID:         uuid.NewString(),
		CustomerID: in.CustomerID,
		OrderDate:  entity.TruncateDay(tx.Now),
		Type:       in.Type,
		Status:     entity.OrderPending,
		Notes:      strings.TrimSpace(in.Notes),
		CreatedBy:  tx.Actor,
		CreatedAt:  tx.Now,
		UpdatedAt:  tx.Now,
	}
	for _, it := range in.Items {
		item, err := s.buildItem(ctx, tx, o, policy, profile, it)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}

	var promos []*entity.Promotion
	if policy.Priced() {
		promos, err = s.promotions.ActivePromotions(ctx, tx.Now)
		if err != nil {
			return nil, err
		}
	}
	if err := domorders.Price(o, domorders.PricingInput{
		Policy:         policy,
		Profile:        profile,
		Promotions:     promos,
		ManualDiscount: in.Discount,
		On:             tx.Now,
	}); err != nil {
		return nil, err
	}
	if err := domorders.CheckCredit(policy, profile, o.TotalAmount); err != nil {
		return nil, err
	}

	if o.StatusID, err = s.statuses.OrderStatusID(ctx, entity.OrderPending); err != nil {
		return nil, err
	}
	if o.OrderNumber, err = s.seq.Next(ctx, tx.Sequences, repository.SequenceOrder, tx.Now); err != nil {
		return nil, err
	}
	if err := tx.Orders.Create(ctx, o); err != nil {
		return nil, err
	}

	if policy.DeductsAtCreation() {
		for _, it := range byProduct(o.Items) {
			if _, err := s.ledger.DeductInTx(ctx, tx, s.entry(o, it.ProductID, it.BatchID, it.Quantity)); err != nil {
				return nil, err
			}
		}
	}
	tx.Record("SalesOrder", o.ID, entity.ActionCreate, nil, o.Snapshot())
	return o, nil
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return fmt.Errorf("el pedido requiere al menos un producto: %w", domain.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return fmt.Errorf("línea %d: producto y cantidad positiva requeridos: %w", i+1, domain.ErrInvalidInput)
		}
		if _, dup := seen[it.ProductID]; dup {
			return fmt.Errorf("línea %d: producto %s repetido: %w", i+1, it.ProductID, domain.ErrInvalidInput)
		}
		seen[it.ProductID] = struct{}{}
	}
	return nil
}

func (s *Service) buildItem(
	ctx context.Context, tx *ledger.Tx, o *entity.SalesOrder,
	policy domorders.Policy, profile *entity.CreditProfile, in ItemInput,
) (*entity.OrderItem, error) {
	product, err := tx.Products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, fmt.Errorf("producto %s no existe o está inactivo: %w", in.ProductID, domain.ErrNotFound)
	}
	item := &entity.OrderItem{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		CreatedAt: tx.Now,
		UpdatedAt: tx.Now,
	}
	if in.BatchID != "" {
		id := in.BatchID
		item.BatchID = &id
	}
	if err := s.priceItem(ctx, tx, item, policy, profile); err != nil {
		return nil, err
	}
	return item, nil
}

// priceItem precio por tipo de cliente, o el base; cero para pedidos sin valorizar.
func (s *Service) priceItem(ctx context.Context, tx *ledger.Tx, item *entity.OrderItem, policy domorders.Policy, profile *entity.CreditProfile) error {
	if !policy.Priced() {
		item.UnitPrice = decimal.Zero
	} else {
		customerType := ""
		if profile != nil {
			customerType = profile.CustomerTypeID
		}
		price, err := tx.Products.PriceFor(ctx, item.ProductID, customerType)
		if err != nil {
			return err
		}
		item.UnitPrice = price
	}
	item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	return nil
}

// ── edición de ítems ───────────────────────────────────────────────────────────

// UpdateItems reemplaza el conjunto de líneas aplicando al libro solo las diferencias:
// líneas quitadas restituyen, nuevas descuentan, cambios de cantidad mueven el delta.
// Si lo abonado cubre el nuevo total, el pedido pasa a PAID.
func (s *Service) UpdateItems(ctx context.Context, actor, orderID string, items []ItemInput) (*entity.SalesOrder, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	var out *entity.SalesOrder
	err := s.ledger.Runner().Do(ctx, actor, func(tx *ledger.Tx) error {
		o, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := domorders.CanEditItems(o); err != nil {
			return err
		}
		policy, err := domorders.PolicyFor(o.Type)
		if err != nil {
			return err
		}
		var profile *entity.CreditProfile
		if policy.Priced() {
			if profile, err = s.customers.CreditProfile(ctx, o.CustomerID); err != nil {
				return err
			}
		}
		before := o.Snapshot()
		moves := ledgerDiff{}

		wanted := make(map[string]ItemInput, len(items))
		for _, it := range items {
			wanted[it.ProductID] = it
		}

		kept := o.Items[:0:0]
		for _, cur := range o.Items {
			in, ok := wanted[cur.ProductID]
			if !ok {
				moves.restore(cur.ProductID, cur.BatchID, cur.Quantity)
				if err := tx.Orders.DeleteItem(ctx, cur.ID); err != nil {
					return err
				}
				continue
			}
			delete(wanted, cur.ProductID)
			newBatch := batchPtr(in.BatchID)
			if !sameBatch(cur.BatchID, newBatch) {
				moves.restore(cur.ProductID, cur.BatchID, cur.Quantity)
				moves.deduct(cur.ProductID, newBatch, in.Quantity)
			} else if in.Quantity > cur.Quantity {
				moves.deduct(cur.ProductID, cur.BatchID, in.Quantity-cur.Quantity)
			} else if in.Quantity < cur.Quantity {
				moves.restore(cur.ProductID, cur.BatchID, cur.Quantity-in.Quantity)
			}
			if in.Quantity != cur.Quantity || !sameBatch(cur.BatchID, newBatch) {
				cur.Quantity = in.Quantity
				cur.BatchID = newBatch
				cur.UpdatedAt = tx.Now
				if err := s.priceItem(ctx, tx, cur, policy, profile); err != nil {
					return err
				}
				if err := tx.Orders.UpdateItem(ctx, cur); err != nil {
					return err
				}
			}
			kept = append(kept, cur)
		}
		for _, in := range items {
			if _, isNew := wanted[in.ProductID]; !isNew {
				continue
			}
			item, err := s.buildItem(ctx, tx, o, policy, profile, in)
			if err != nil {
				return err
			}
			if err := tx.Orders.CreateItem(ctx, item); err != nil {
				return err
			}
			moves.deduct(item.ProductID, item.BatchID, item.Quantity)
			kept = append(kept, item)
		}
		o.Items = kept

		if policy.DeductsAtCreation() {
			if err := moves.apply(ctx, s, tx, o); err != nil {
				return err
			}
		}

		o.RecalculateTotals()
		// Un total que baja hasta lo ya abonado deja el pedido pagado.
		if o.PaidAmount.IsPositive() && domorders.ApplyPayments(o, o.PaidAmount) {
			if o.StatusID, err = s.statuses.OrderStatusID(ctx, o.Status); err != nil {
				return err
			}
		}
		o.UpdatedAt = tx.Now
		if err := tx.Orders.Update(ctx, o); err != nil {
			return err
		}
		tx.Record("SalesOrder", o.ID, entity.ActionUpdate, before, o.Snapshot())
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type ledgerMove struct {
	productID string
	batchID   *string
	qty       int // > 0 descuenta, < 0 restituye
}

// ledgerDiff acumula los movimientos de una edición para aplicarlos en orden de lock.
type ledgerDiff []ledgerMove

func (d *ledgerDiff) deduct(productID string, batchID *string, qty int) {
	*d = append(*d, ledgerMove{productID: productID, batchID: batchID, qty: qty})
}

func (d *ledgerDiff) restore(productID string, batchID *string, qty int) {
	*d = append(*d, ledgerMove{productID: productID, batchID: batchID, qty: -qty})
}

// apply restituye antes de descontar: un cambio de lote del mismo producto libera primero.
func (d ledgerDiff) apply(ctx context.Context, s *Service, tx *ledger.Tx, o *entity.SalesOrder) error {
	sort.SliceStable(d, func(i, j int) bool {
		if d[i].productID != d[j].productID {
			return d[i].productID < d[j].productID
		}
		return d[i].qty < d[j].qty
	})
	for _, m := range d {
		var err error
		if m.qty < 0 {
			_, err = s.ledger.RestoreInTx(ctx, tx, s.entry(o, m.productID, m.batchID, -m.qty))
		} else {
			_, err = s.ledger.DeductInTx(ctx, tx, s.entry(o, m.productID, m.batchID, m.qty))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ── transiciones ───────────────────────────────────────────────────────────────

// Confirm PENDING -> CONFIRMED.
func (s *Service) Confirm(ctx context.Context, actor, orderID string) (*entity.SalesOrder, error) {
	return s.transition(ctx, actor, orderID, func(tx *ledger.Tx, o *entity.SalesOrder, _ domorders.Policy) error {
		if err := domorders.RequireTransition(o, entity.OrderConfirmed, "confirmar"); err != nil {
			return err
		}
		return s.setStatus(ctx, o, entity.OrderConfirmed)
	})
}

// Deliver registra la entrega. Un pre-pedido descuenta su stock en este momento, una sola vez.
func (s *Service) Deliver(ctx context.Context, actor, orderID string) (*entity.SalesOrder, error) {
	return s.transition(ctx, actor, orderID, func(tx *ledger.Tx, o *entity.SalesOrder, policy domorders.Policy) error {
		if err := domorders.CanDeliver(o); err != nil {
			return err
		}
		if policy.DeductsOnDelivery() {
			for _, it := range byProduct(o.Items) {
				if _, err := s.ledger.DeductInTx(ctx, tx, s.entry(o, it.ProductID, it.BatchID, it.Quantity)); err != nil {
					return err
				}
			}
		}
		day := entity.TruncateDay(tx.Now)
		o.DeliveryDate = &day
		if o.Status == entity.OrderConfirmed {
			return s.setStatus(ctx, o, entity.OrderDelivered)
		}
		return nil
	})
}

// Cancel PENDING|CONFIRMED -> CANCELLED, restituyendo el stock comprometido.
func (s *Service) Cancel(ctx context.Context, actor, orderID string) (*entity.SalesOrder, error) {
	return s.transition(ctx, actor, orderID, func(tx *ledger.Tx, o *entity.SalesOrder, policy domorders.Policy) error {
		if err := domorders.RequireTransition(o, entity.OrderCancelled, "cancelar"); err != nil {
			return err
		}
		if policy.StockCommitted(o) {
			if err := s.restoreAll(ctx, tx, o); err != nil {
				return err
			}
		}
		return s.setStatus(ctx, o, entity.OrderCancelled)
	})
}

// Delete borrado lógico; solo PENDING o CANCELLED y sin pagos ni devoluciones.
// Un pedido PENDING restituye su stock; uno CANCELLED ya lo hizo al cancelarse.
func (s *Service) Delete(ctx context.Context, actor, orderID string) error {
	return s.ledger.Runner().Do(ctx, actor, func(tx *ledger.Tx) error {
		o, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := domorders.CanDelete(o); err != nil {
			return err
		}
		n, err := tx.Payments.CountByOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		hasReturn, err := tx.Returns.HasActiveForOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		if n > 0 || hasReturn {
			return fmt.Errorf("pedido %s: %w", o.OrderNumber, domain.ErrOrderHasDependents)
		}
		policy, err := domorders.PolicyFor(o.Type)
		if err != nil {
			return err
		}
		if o.Status == entity.OrderPending && policy.StockCommitted(o) {
			if err := s.restoreAll(ctx, tx, o); err != nil {
				return err
			}
		}
		if err := tx.Orders.SoftDelete(ctx, o.ID, tx.Now); err != nil {
			return err
		}
		tx.Record("SalesOrder", o.ID, entity.ActionDelete, o.Snapshot(), nil)
		return nil
	})
}

// RecordPayment registra un abono con comprobante consecutivo y recalcula lo pagado.
// Cubierto el total, el pedido pasa a PAID.
func (s *Service) RecordPayment(ctx context.Context, actor, orderID string, in PaymentInput) (*entity.Payment, *entity.SalesOrder, error) {
	if !in.Amount.IsPositive() {
		return nil, nil, fmt.Errorf("monto debe ser positivo: %w", domain.ErrInvalidInput)
	}
	var (
		payment *entity.Payment
		order   *entity.SalesOrder
	)
	err := s.ledger.Runner().Do(ctx, actor, func(tx *ledger.Tx) error {
		o, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.Status == entity.OrderCancelled {
			return &domain.TransitionError{Entity: "pedido " + o.OrderNumber, From: string(o.Status), Action: "registrar pago"}
		}
		voucher, err := s.seq.Next(ctx, tx.Sequences, repository.SequencePayment, tx.Now)
		if err != nil {
			return err
		}
		date := tx.Now
		if in.Date != nil {
			date = *in.Date
		}
		p := &entity.Payment{
			ID:              uuid.NewString(),
			OrderID:         o.ID,
			VoucherNumber:   voucher,
			PaymentDate:     date,
			Amount:          in.Amount,
			Method:          in.Method,
			ReferenceNumber: in.Reference,
			Notes:           in.Notes,
			CreatedBy:       tx.Actor,
			CreatedAt:       tx.Now,
		}
		if err := tx.Payments.Create(ctx, p); err != nil {
			return err
		}
		paid, err := tx.Payments.SumByOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		before := o.Snapshot()
		if domorders.ApplyPayments(o, paid) {
			if o.StatusID, err = s.statuses.OrderStatusID(ctx, o.Status); err != nil {
				return err
			}
		}
		o.UpdatedAt = tx.Now
		if err := tx.Orders.Update(ctx, o); err != nil {
			return err
		}
		tx.Record("Payment", p.ID, entity.ActionCreate, nil, map[string]any{
			"order_id":       p.OrderID,
			"voucher_number": p.VoucherNumber,
			"amount":         p.Amount.StringFixed(2),
		})
		tx.Record("SalesOrder", o.ID, entity.ActionUpdate, before, o.Snapshot())
		payment, order = p, o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return payment, order, nil
}

// ── lecturas ───────────────────────────────────────────────────────────────────

// Get pedido con sus líneas.
func (s *Service) Get(ctx context.Context, id string) (*entity.SalesOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("pedido %s: %w", id, domain.ErrNotFound)
	}
	return o, nil
}

// List pedidos no eliminados, opcionalmente de un cliente.
func (s *Service) List(ctx context.Context, customerID string, limit, offset int) ([]*entity.SalesOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.orders.List(ctx, customerID, limit, offset)
}

// Payments pagos de un pedido.
func (s *Service) Payments(ctx context.Context, orderID string) ([]*entity.Payment, error) {
	return s.payments.ListByOrder(ctx, orderID)
}

// ── helpers ────────────────────────────────────────────────────────────────────

func (s *Service) transition(
	ctx context.Context, actor, orderID string,
	fn func(tx *ledger.Tx, o *entity.SalesOrder, policy domorders.Policy) error,
) (*entity.SalesOrder, error) {
	var out *entity.SalesOrder
	err := s.ledger.Runner().Do(ctx, actor, func(tx *ledger.Tx) error {
		o, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		policy, err := domorders.PolicyFor(o.Type)
		if err != nil {
			return err
		}
		before := o.Snapshot()
		if err := fn(tx, o, policy); err != nil {
			return err
		}
		o.UpdatedAt = tx.Now
		if err := tx.Orders.Update(ctx, o); err != nil {
			return err
		}
		tx.Record("SalesOrder", o.ID, entity.ActionUpdate, before, o.Snapshot())
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) lockOrder(ctx context.Context, tx *ledger.Tx, id string) (*entity.SalesOrder, error) {
	o, err := tx.Orders.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("pedido %s: %w", id, domain.ErrNotFound)
	}
	return o, nil
}

func (s *Service) setStatus(ctx context.Context, o *entity.SalesOrder, status entity.OrderStatus) error {
	id, err := s.statuses.OrderStatusID(ctx, status)
	if err != nil {
		return err
	}
	o.Status = status
	o.StatusID = id
	return nil
}

func (s *Service) restoreAll(ctx context.Context, tx *ledger.Tx, o *entity.SalesOrder) error {
	for _, it := range byProduct(o.Items) {
		if _, err := s.ledger.RestoreInTx(ctx, tx, s.entry(o, it.ProductID, it.BatchID, it.Quantity)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) entry(o *entity.SalesOrder, productID string, batchID *string, qty int) ledger.Entry {
	e := ledger.Entry{
		ProductID:     productID,
		Quantity:      qty,
		ReferenceType: entity.RefSalesOrder,
		ReferenceID:   o.ID,
	}
	if batchID != nil {
		e.BatchID = *batchID
	}
	return e
}

// byProduct copia de las líneas ordenada por producto: orden de lock estable entre pedidos.
func byProduct(items []*entity.OrderItem) []*entity.OrderItem {
	out := append([]*entity.OrderItem(nil), items...)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func batchPtr(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func sameBatch(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
