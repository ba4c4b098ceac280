// Package memory es un adaptador en memoria de los puertos de persistencia.
// Emula el bloqueo de filas de Postgres (SELECT ... FOR UPDATE): GetForUpdate toma un lock por
// fila que se mantiene hasta el fin de la transacción, y un rollback deshace las escrituras.
// Lo usan los tests de los casos de uso y el modo de desarrollo sin base de datos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

// Store estado compartido por todas las transacciones.
type Store struct {
	// LockTimeout espera máxima por un lock de fila; agotada devuelve domain.ErrConcurrency.
	LockTimeout time.Duration

	mu         sync.Mutex
	locks      map[string]chan struct{}
	products   map[string]*entity.Product
	tierPrices map[string]decimal.Decimal
	batches    map[string]*entity.Batch
	movements  []*entity.StockMovement
	orders     map[string]*entity.SalesOrder
	payments   []*entity.Payment
	purchases  map[string]*entity.PurchaseOrder
	returns    map[string]*entity.ReturnRequest
	processing []*entity.ReturnProcessing
	profiles   map[string]*entity.CreditProfile
	promotions []*entity.Promotion
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		LockTimeout: 5 * time.Second,
		locks:       make(map[string]chan struct{}),
		products:    make(map[string]*entity.Product),
		tierPrices:  make(map[string]decimal.Decimal),
		batches:     make(map[string]*entity.Batch),
		orders:      make(map[string]*entity.SalesOrder),
		purchases:   make(map[string]*entity.PurchaseOrder),
		returns:     make(map[string]*entity.ReturnRequest),
		profiles:    make(map[string]*entity.CreditProfile),
	}
}

var _ ports.TxRunner = (*Store)(nil)

// Run ejecuta fn con repositorios atados a una transacción. Si fn falla se deshacen sus escrituras.
// Los locks de fila se liberan al terminar, con commit o rollback.
func (s *Store) Run(ctx context.Context, fn func(repos repository.Repos) error) error {
	t := &tx{store: s, held: make(map[string]struct{})}
	defer t.release()
	if err := fn(t.repos()); err != nil {
		t.rollback()
		return err
	}
	return nil
}

// Repos repositorios sin transacción: cada escritura queda confirmada y GetForUpdate no bloquea.
func (s *Store) Repos() repository.Repos {
	return (&tx{store: s, auto: true}).repos()
}

type tx struct {
	store *Store
	auto  bool
	held  map[string]struct{}
	undo  []func()
}

func (t *tx) repos() repository.Repos {
	return repository.Repos{
		Products:  productRepo{t},
		Batches:   batchRepo{t},
		Movements: movementRepo{t},
		Orders:    orderRepo{t},
		Payments:  paymentRepo{t},
		Purchases: purchaseRepo{t},
		Returns:   returnRepo{t},
		Sequences: sequenceRepo{t},
	}
}

// lock toma el lock de fila key; reentrante dentro de la misma transacción.
func (t *tx) lock(ctx context.Context, key string) error {
	if t.auto {
		return nil
	}
	if _, ok := t.held[key]; ok {
		return nil
	}
	s := t.store
	s.mu.Lock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	s.mu.Unlock()

	timer := time.NewTimer(s.LockTimeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		t.held[key] = struct{}{}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("lock %s: %w", key, domain.ErrConcurrency)
	}
}

func (t *tx) release() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range t.held {
		<-s.locks[key]
	}
	t.held = nil
}

// onUndo registra la acción inversa de una escritura. Se llama con store.mu tomado.
func (t *tx) onUndo(fn func()) {
	if !t.auto {
		t.undo = append(t.undo, fn)
	}
}

func (t *tx) rollback() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// ── Carga y lectura directa (tests, seed) ──────────────────────────────────────

// PutProduct inserta o reemplaza un producto.
func (s *Store) PutProduct(p *entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	s.products[p.ID] = &c
}

// SetTierPrice fija el precio de un producto para un tipo de cliente.
func (s *Store) SetTierPrice(productID, customerTypeID string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tierPrices[productID+"|"+customerTypeID] = price
}

// SetStock escribe el contador sin pasar por el libro. Solo para simular corrupción.
func (s *Store) SetStock(productID string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[productID]; ok {
		p.StockQuantity = qty
	}
}

// PutProfile registra el perfil de crédito de un cliente. Outstanding se calcula de los pedidos.
func (s *Store) PutProfile(p *entity.CreditProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	s.profiles[p.CustomerID] = &c
}

// PutPromotion registra una promoción.
func (s *Store) PutPromotion(p *entity.Promotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	s.promotions = append(s.promotions, &c)
}

// Product copia del producto, o nil.
func (s *Store) Product(id string) *entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProduct(s.products[id])
}

// Batch copia del lote, o nil.
func (s *Store) Batch(id string) *entity.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyBatch(s.batches[id])
}

// Order copia del pedido (incluso eliminado), o nil.
func (s *Store) Order(id string) *entity.SalesOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOrder(s.orders[id])
}

// Return copia de la devolución, o nil.
func (s *Store) Return(id string) *entity.ReturnRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyReturn(s.returns[id])
}

// Movements movimientos del producto en orden de inserción.
func (s *Store) Movements(productID string) []*entity.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range s.movements {
		if m.ProductID == productID {
			c := *m
			out = append(out, &c)
		}
	}
	return out
}

// LedgerSum Σ cantidades de movimientos del producto.
func (s *Store) LedgerSum(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumLocked(productID)
}

// ProductIDs ids de todos los productos, ordenados.
func (s *Store) ProductIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) sumLocked(productID string) int {
	sum := 0
	for _, m := range s.movements {
		if m.ProductID == productID {
			sum += m.Quantity
		}
	}
	return sum
}

// ── copias ─────────────────────────────────────────────────────────────────────

func copyProduct(p *entity.Product) *entity.Product {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func copyBatch(b *entity.Batch) *entity.Batch {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

func copyOrder(o *entity.SalesOrder) *entity.SalesOrder {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = make([]*entity.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		ic := *it
		c.Items = append(c.Items, &ic)
	}
	return &c
}

func copyPurchase(po *entity.PurchaseOrder) *entity.PurchaseOrder {
	if po == nil {
		return nil
	}
	c := *po
	c.Items = make([]*entity.PurchaseItem, 0, len(po.Items))
	for _, it := range po.Items {
		ic := *it
		c.Items = append(c.Items, &ic)
	}
	return &c
}

func copyReturn(r *entity.ReturnRequest) *entity.ReturnRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Items = make([]*entity.ReturnItem, 0, len(r.Items))
	for _, it := range r.Items {
		ic := *it
		c.Items = append(c.Items, &ic)
	}
	return &c
}
