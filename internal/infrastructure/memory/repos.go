package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

var (
	_ repository.ProductRepository       = productRepo{}
	_ repository.BatchRepository         = batchRepo{}
	_ repository.StockMovementRepository = movementRepo{}
	_ repository.SalesOrderRepository    = orderRepo{}
	_ repository.PaymentRepository       = paymentRepo{}
	_ repository.PurchaseOrderRepository = purchaseRepo{}
	_ repository.ReturnRepository        = returnRepo{}
	_ repository.SequenceRepository      = sequenceRepo{}
)

// ── productos ──────────────────────────────────────────────────────────────────

type productRepo struct{ t *tx }

func (r productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	if p == nil || p.DeletedAt != nil {
		return nil, nil
	}
	return copyProduct(p), nil
}

func (r productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	if err := r.t.lock(ctx, "product:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r productRepo) update(id string, fn func(p *entity.Product)) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	if p == nil {
		return fmt.Errorf("producto %s: %w", id, domain.ErrNotFound)
	}
	old := *p
	fn(p)
	r.t.onUndo(func() { *p = old })
	return nil
}

func (r productRepo) UpdateStock(_ context.Context, id string, quantity int) error {
	return r.update(id, func(p *entity.Product) { p.StockQuantity = quantity })
}

func (r productRepo) UpdateExpiry(_ context.Context, id string, expiry *time.Time) error {
	return r.update(id, func(p *entity.Product) { p.ExpiryDate = expiry })
}

func (r productRepo) UpdateCost(_ context.Context, id string, cost decimal.Decimal) error {
	return r.update(id, func(p *entity.Product) { p.CostPrice = &cost })
}

func (r productRepo) PriceFor(_ context.Context, productID, customerTypeID string) (decimal.Decimal, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[productID]
	if p == nil || p.DeletedAt != nil {
		return decimal.Zero, fmt.Errorf("producto %s: %w", productID, domain.ErrNotFound)
	}
	if price, ok := s.tierPrices[productID+"|"+customerTypeID]; ok && customerTypeID != "" {
		return price, nil
	}
	return p.BasePrice, nil
}

func (r productRepo) ListLowStock(_ context.Context, limit, offset int) ([]*entity.Product, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Product
	for _, p := range s.products {
		if p.DeletedAt == nil && p.IsActive && p.IsLowStock() {
			out = append(out, copyProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StockQuantity != out[j].StockQuantity {
			return out[i].StockQuantity < out[j].StockQuantity
		}
		return out[i].SKU < out[j].SKU
	})
	return page(out, limit, offset), nil
}

func (r productRepo) ListIDs(_ context.Context) ([]string, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, p := range s.products {
		if p.DeletedAt == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ── lotes ──────────────────────────────────────────────────────────────────────

type batchRepo struct{ t *tx }

func (r batchRepo) Create(_ context.Context, b *entity.Batch) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.batches {
		if other.DeletedAt == nil && other.ProductID == b.ProductID && other.BatchNumber == b.BatchNumber {
			return fmt.Errorf("lote %s: %w", b.BatchNumber, domain.ErrDuplicate)
		}
	}
	s.batches[b.ID] = copyBatch(b)
	id := b.ID
	r.t.onUndo(func() { delete(s.batches, id) })
	return nil
}

func (r batchRepo) GetByID(_ context.Context, id string) (*entity.Batch, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.batches[id]
	if b == nil || b.DeletedAt != nil {
		return nil, nil
	}
	return copyBatch(b), nil
}

func (r batchRepo) GetForUpdate(ctx context.Context, id string) (*entity.Batch, error) {
	if err := r.t.lock(ctx, "batch:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r batchRepo) FindForUpdate(ctx context.Context, productID, batchNumber string) (*entity.Batch, error) {
	if err := r.t.lock(ctx, "batch-number:"+productID+"|"+batchNumber); err != nil {
		return nil, err
	}
	s := r.t.store
	s.mu.Lock()
	var id string
	for _, b := range s.batches {
		if b.DeletedAt == nil && b.ProductID == productID && b.BatchNumber == batchNumber {
			id = b.ID
			break
		}
	}
	s.mu.Unlock()
	if id == "" {
		return nil, nil
	}
	return r.GetForUpdate(ctx, id)
}

func (r batchRepo) UpdateQuantity(_ context.Context, id string, quantity int) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.batches[id]
	if b == nil {
		return fmt.Errorf("lote %s: %w", id, domain.ErrNotFound)
	}
	old := b.Quantity
	b.Quantity = quantity
	r.t.onUndo(func() { b.Quantity = old })
	return nil
}

func (r batchRepo) ListByProduct(_ context.Context, productID string) ([]*entity.Batch, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Batch
	for _, b := range s.batches {
		if b.DeletedAt == nil && b.ProductID == productID {
			out = append(out, copyBatch(b))
		}
	}
	sortFEFO(out)
	return out, nil
}

func (r batchRepo) ListExpiring(_ context.Context, until time.Time) ([]*entity.Batch, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Batch
	for _, b := range s.batches {
		if b.DeletedAt == nil && b.Quantity > 0 && b.ExpiryDate != nil && !b.ExpiryDate.After(until) {
			out = append(out, copyBatch(b))
		}
	}
	sortFEFO(out)
	return out, nil
}

// sortFEFO vencimiento más próximo primero; sin fecha al final.
func sortFEFO(bs []*entity.Batch) {
	sort.SliceStable(bs, func(i, j int) bool {
		a, b := bs[i].ExpiryDate, bs[j].ExpiryDate
		switch {
		case a == nil && b == nil:
			return bs[i].BatchNumber < bs[j].BatchNumber
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return bs[i].BatchNumber < bs[j].BatchNumber
	})
}

// ── movimientos ────────────────────────────────────────────────────────────────

type movementRepo struct{ t *tx }

func (r movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &entity.StockMovement{}
	*c = *m
	s.movements = append(s.movements, c)
	r.t.onUndo(func() { s.movements = without(s.movements, c) })
	return nil
}

func (r movementRepo) SumByProduct(_ context.Context, productID string) (int, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumLocked(productID), nil
}

func (r movementRepo) ListByProduct(_ context.Context, productID string, limit, offset int) ([]*entity.StockMovement, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.StockMovement
	for i := len(s.movements) - 1; i >= 0; i-- {
		if m := s.movements[i]; m.ProductID == productID {
			c := *m
			out = append(out, &c)
		}
	}
	return page(out, limit, offset), nil
}

func (r movementRepo) ListByReference(_ context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range s.movements {
		if m.ReferenceType == referenceType && m.ReferenceID == referenceID {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

// ── pedidos ────────────────────────────────────────────────────────────────────

type orderRepo struct{ t *tx }

func (r orderRepo) Create(_ context.Context, o *entity.SalesOrder) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.orders {
		if other.OrderNumber == o.OrderNumber {
			return fmt.Errorf("pedido %s: %w", o.OrderNumber, domain.ErrConcurrency)
		}
	}
	s.orders[o.ID] = copyOrder(o)
	id := o.ID
	r.t.onUndo(func() { delete(s.orders, id) })
	return nil
}

func (r orderRepo) GetByID(_ context.Context, id string) (*entity.SalesOrder, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	if o == nil || o.DeletedAt != nil {
		return nil, nil
	}
	return copyOrder(o), nil
}

func (r orderRepo) GetForUpdate(ctx context.Context, id string) (*entity.SalesOrder, error) {
	if err := r.t.lock(ctx, "order:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r orderRepo) Update(_ context.Context, o *entity.SalesOrder) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.orders[o.ID]
	if cur == nil {
		return fmt.Errorf("pedido %s: %w", o.ID, domain.ErrNotFound)
	}
	old := *cur
	items := cur.Items
	*cur = *o
	cur.Items = items
	r.t.onUndo(func() { *cur = old })
	return nil
}

func (r orderRepo) CreateItem(_ context.Context, it *entity.OrderItem) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[it.OrderID]
	if o == nil {
		return fmt.Errorf("pedido %s: %w", it.OrderID, domain.ErrNotFound)
	}
	old := o.Items
	c := *it
	o.Items = append(append([]*entity.OrderItem(nil), o.Items...), &c)
	r.t.onUndo(func() { o.Items = old })
	return nil
}

func (r orderRepo) UpdateItem(_ context.Context, it *entity.OrderItem) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[it.OrderID]
	if o == nil {
		return fmt.Errorf("pedido %s: %w", it.OrderID, domain.ErrNotFound)
	}
	for i, cur := range o.Items {
		if cur.ID == it.ID {
			old := o.Items
			items := append([]*entity.OrderItem(nil), o.Items...)
			c := *it
			items[i] = &c
			o.Items = items
			r.t.onUndo(func() { o.Items = old })
			return nil
		}
	}
	return fmt.Errorf("línea %s: %w", it.ID, domain.ErrNotFound)
}

func (r orderRepo) DeleteItem(_ context.Context, id string) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		for i, cur := range o.Items {
			if cur.ID != id {
				continue
			}
			old := o.Items
			items := append([]*entity.OrderItem(nil), o.Items[:i]...)
			o.Items = append(items, o.Items[i+1:]...)
			order := o
			r.t.onUndo(func() { order.Items = old })
			return nil
		}
	}
	return fmt.Errorf("línea %s: %w", id, domain.ErrNotFound)
}

func (r orderRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	if o == nil {
		return fmt.Errorf("pedido %s: %w", id, domain.ErrNotFound)
	}
	old := o.DeletedAt
	o.DeletedAt = &at
	r.t.onUndo(func() { o.DeletedAt = old })
	return nil
}

func (r orderRepo) List(_ context.Context, customerID string, limit, offset int) ([]*entity.SalesOrder, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.SalesOrder
	for _, o := range s.orders {
		if o.DeletedAt != nil || (customerID != "" && o.CustomerID != customerID) {
			continue
		}
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber > out[j].OrderNumber })
	return page(out, limit, offset), nil
}

// ── pagos ──────────────────────────────────────────────────────────────────────

type paymentRepo struct{ t *tx }

func (r paymentRepo) Create(_ context.Context, p *entity.Payment) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.payments {
		if other.VoucherNumber == p.VoucherNumber {
			return fmt.Errorf("comprobante %s: %w", p.VoucherNumber, domain.ErrConcurrency)
		}
	}
	c := &entity.Payment{}
	*c = *p
	s.payments = append(s.payments, c)
	r.t.onUndo(func() { s.payments = without(s.payments, c) })
	return nil
}

func (r paymentRepo) SumByOrder(_ context.Context, orderID string) (decimal.Decimal, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, p := range s.payments {
		if p.OrderID == orderID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (r paymentRepo) CountByOrder(_ context.Context, orderID string) (int, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.payments {
		if p.OrderID == orderID {
			n++
		}
	}
	return n, nil
}

func (r paymentRepo) ListByOrder(_ context.Context, orderID string) ([]*entity.Payment, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Payment
	for _, p := range s.payments {
		if p.OrderID == orderID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

// ── compras ────────────────────────────────────────────────────────────────────

type purchaseRepo struct{ t *tx }

func (r purchaseRepo) Create(_ context.Context, po *entity.PurchaseOrder) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases[po.ID] = copyPurchase(po)
	id := po.ID
	r.t.onUndo(func() { delete(s.purchases, id) })
	return nil
}

func (r purchaseRepo) GetByID(_ context.Context, id string) (*entity.PurchaseOrder, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyPurchase(s.purchases[id]), nil
}

func (r purchaseRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	if err := r.t.lock(ctx, "purchase:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r purchaseRepo) UpdateItemReceived(_ context.Context, itemID string, received int) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, po := range s.purchases {
		for _, it := range po.Items {
			if it.ID == itemID {
				old := it.ReceivedQuantity
				it.ReceivedQuantity = received
				item := it
				r.t.onUndo(func() { item.ReceivedQuantity = old })
				return nil
			}
		}
	}
	return fmt.Errorf("línea de compra %s: %w", itemID, domain.ErrNotFound)
}

func (r purchaseRepo) UpdateStatus(_ context.Context, id string, status entity.PurchaseStatus) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	po := s.purchases[id]
	if po == nil {
		return fmt.Errorf("orden de compra %s: %w", id, domain.ErrNotFound)
	}
	old := po.Status
	po.Status = status
	r.t.onUndo(func() { po.Status = old })
	return nil
}

// ── devoluciones ───────────────────────────────────────────────────────────────

type returnRepo struct{ t *tx }

func (r returnRepo) Create(_ context.Context, ret *entity.ReturnRequest) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.returns {
		if other.ReturnNumber == ret.ReturnNumber {
			return fmt.Errorf("devolución %s: %w", ret.ReturnNumber, domain.ErrConcurrency)
		}
	}
	s.returns[ret.ID] = copyReturn(ret)
	id := ret.ID
	r.t.onUndo(func() { delete(s.returns, id) })
	return nil
}

func (r returnRepo) GetByID(_ context.Context, id string) (*entity.ReturnRequest, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := s.returns[id]
	if ret == nil || ret.DeletedAt != nil {
		return nil, nil
	}
	return copyReturn(ret), nil
}

func (r returnRepo) GetForUpdate(ctx context.Context, id string) (*entity.ReturnRequest, error) {
	if err := r.t.lock(ctx, "return:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r returnRepo) UpdateStatus(_ context.Context, id string, status entity.ReturnStatus) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := s.returns[id]
	if ret == nil {
		return fmt.Errorf("devolución %s: %w", id, domain.ErrNotFound)
	}
	old := ret.Status
	ret.Status = status
	r.t.onUndo(func() { ret.Status = old })
	return nil
}

func (r returnRepo) SetReplacement(_ context.Context, id, orderID string) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := s.returns[id]
	if ret == nil {
		return fmt.Errorf("devolución %s: %w", id, domain.ErrNotFound)
	}
	old := ret.ReplacementOrderID
	ret.ReplacementOrderID = &orderID
	r.t.onUndo(func() { ret.ReplacementOrderID = old })
	return nil
}

func (r returnRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := s.returns[id]
	if ret == nil || ret.DeletedAt != nil {
		return fmt.Errorf("devolución %s: %w", id, domain.ErrNotFound)
	}
	ret.DeletedAt = &at
	r.t.onUndo(func() { ret.DeletedAt = nil })
	return nil
}

func (r returnRepo) HasActiveForOrder(_ context.Context, orderID string) (bool, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ret := range s.returns {
		if ret.OrderID == orderID && ret.DeletedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (r returnRepo) ReturnedQuantity(_ context.Context, orderItemID string) (int, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, ret := range s.returns {
		if ret.Status == entity.ReturnRejected {
			continue
		}
		for _, it := range ret.Items {
			if it.OrderItemID == orderItemID {
				total += it.Quantity
			}
		}
	}
	return total, nil
}

func (r returnRepo) AddProcessing(_ context.Context, p *entity.ReturnProcessing) error {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &entity.ReturnProcessing{}
	*c = *p
	s.processing = append(s.processing, c)
	r.t.onUndo(func() { s.processing = without(s.processing, c) })
	return nil
}

func (r returnRepo) ListProcessing(_ context.Context, returnID string) ([]*entity.ReturnProcessing, error) {
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.ReturnProcessing
	for _, p := range s.processing {
		if p.ReturnID == returnID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

// ── consecutivos ───────────────────────────────────────────────────────────────

type sequenceRepo struct{ t *tx }

func (r sequenceRepo) LatestWithPrefix(ctx context.Context, kind repository.SequenceKind, prefix string) (string, error) {
	if err := r.t.lock(ctx, "sequence:"+string(kind)+"|"+prefix); err != nil {
		return "", err
	}
	s := r.t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var numbers []string
	switch kind {
	case repository.SequenceOrder:
		for _, o := range s.orders {
			numbers = append(numbers, o.OrderNumber)
		}
	case repository.SequencePayment:
		for _, p := range s.payments {
			numbers = append(numbers, p.VoucherNumber)
		}
	case repository.SequenceReturn:
		for _, ret := range s.returns {
			numbers = append(numbers, ret.ReturnNumber)
		}
	default:
		return "", fmt.Errorf("serie %q: %w", kind, domain.ErrInvalidInput)
	}
	latest := ""
	for _, n := range numbers {
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		if len(n) > len(latest) || (len(n) == len(latest) && n > latest) {
			latest = n
		}
	}
	return latest, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// without quita x de items (por identidad) sin alterar el orden.
func without[T comparable](items []T, x T) []T {
	out := items[:0:0]
	for _, it := range items {
		if it != x {
			out = append(out, it)
		}
	}
	return out
}
