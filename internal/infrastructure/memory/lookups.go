package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

var (
	_ ports.CustomerDirectory = (*Store)(nil)
	_ ports.PromotionLookup   = (*Store)(nil)
	_ ports.StatusResolver    = (*Store)(nil)
)

// CreditProfile perfil registrado con Outstanding calculado como Σ(total - pagado) de los
// pedidos no cancelados ni eliminados del cliente.
func (s *Store) CreditProfile(_ context.Context, customerID string) (*entity.CreditProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[customerID]
	if p == nil {
		return nil, nil
	}
	c := *p
	c.Outstanding = decimal.Zero
	for _, o := range s.orders {
		if o.CustomerID != customerID || o.DeletedAt != nil || o.Status == entity.OrderCancelled {
			continue
		}
		c.Outstanding = c.Outstanding.Add(o.TotalAmount.Sub(o.PaidAmount))
	}
	return &c, nil
}

// ActivePromotions promociones vigentes en on, ordenadas por ID.
func (s *Store) ActivePromotions(_ context.Context, on time.Time) ([]*entity.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Promotion
	for _, p := range s.promotions {
		if p.ActiveOn(on) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// OrderStatusID IDs sintéticos "status-<código>".
func (s *Store) OrderStatusID(_ context.Context, code entity.OrderStatus) (string, error) {
	return "status-" + strings.ToLower(string(code)), nil
}
