package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

var (
	_ ports.CustomerDirectory = (*Lookups)(nil)
	_ ports.PromotionLookup   = (*Lookups)(nil)
	_ ports.StatusResolver    = (*Lookups)(nil)
)

// Lookups consultas de solo lectura sobre clientes, promociones y estados.
// Se construye con el pool: estas lecturas no participan de la transacción del pedido.
type Lookups struct {
	q Querier

	mu       sync.RWMutex
	statuses map[entity.OrderStatus]string
}

func NewLookups(q Querier) *Lookups {
	return &Lookups{q: q, statuses: make(map[entity.OrderStatus]string)}
}

// CreditProfile datos de crédito y zona del cliente. Outstanding suma el saldo de los pedidos
// no cancelados ni eliminados.
func (l *Lookups) CreditProfile(ctx context.Context, customerID string) (*entity.CreditProfile, error) {
	var p entity.CreditProfile
	var typeID, zoneID *string
	var fee decimal.NullDecimal
	err := l.q.QueryRow(ctx, `
		SELECT c.id, c.customer_type_id, c.credit_limit, c.delivery_zone_id, z.delivery_fee,
			COALESCE((
				SELECT SUM(o.total_amount - o.paid_amount) FROM sales_orders o
				WHERE o.customer_id = c.id AND o.deleted_at IS NULL AND o.status <> 'CANCELLED'
			), 0)
		FROM customers c
		LEFT JOIN delivery_zones z ON z.id = c.delivery_zone_id AND z.is_active
		WHERE c.id = $1 AND c.deleted_at IS NULL`, customerID).
		Scan(&p.CustomerID, &typeID, &p.CreditLimit, &zoneID, &fee, &p.Outstanding)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("credit profile: %w", mapError(err))
	}
	if typeID != nil {
		p.CustomerTypeID = *typeID
	}
	if zoneID != nil {
		p.DeliveryZoneID = *zoneID
	}
	if fee.Valid {
		p.DeliveryFee = fee.Decimal
	}
	return &p, nil
}

// ActivePromotions vigentes el día de on, ordenadas por ID para que el desempate sea estable.
func (l *Lookups) ActivePromotions(ctx context.Context, on time.Time) ([]*entity.Promotion, error) {
	rows, err := l.q.Query(ctx, `
		SELECT id, name, discount_percent, start_date, end_date, is_active
		FROM promotions
		WHERE is_active AND start_date <= $1::date AND end_date >= $1::date
		ORDER BY id`, entity.TruncateDay(on))
	if err != nil {
		return nil, fmt.Errorf("active promotions: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.Promotion
	for rows.Next() {
		var p entity.Promotion
		if err := rows.Scan(&p.ID, &p.Name, &p.DiscountPercent, &p.StartDate, &p.EndDate, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// OrderStatusID resuelve el código contra order_statuses y lo cachea; la tabla es configuración.
func (l *Lookups) OrderStatusID(ctx context.Context, code entity.OrderStatus) (string, error) {
	l.mu.RLock()
	id, ok := l.statuses[code]
	l.mu.RUnlock()
	if ok {
		return id, nil
	}
	err := l.q.QueryRow(ctx, `SELECT id FROM order_statuses WHERE code = $1`, string(code)).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("estado %s no configurado: %w", code, domain.ErrNotFound)
		}
		return "", fmt.Errorf("order status: %w", mapError(err))
	}
	l.mu.Lock()
	l.statuses[code] = id
	l.mu.Unlock()
	return id, nil
}
