package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

var (
	_ repository.SalesOrderRepository = (*SalesOrderRepo)(nil)
	_ repository.PaymentRepository    = (*PaymentRepo)(nil)
)

// SalesOrderRepo pedidos y sus líneas.
type SalesOrderRepo struct {
	q Querier
}

func NewSalesOrderRepository(q Querier) *SalesOrderRepo {
	return &SalesOrderRepo{q: q}
}

const orderColumns = `id, order_number, customer_id, order_date, delivery_date, order_type, status, status_id,
	subtotal, discount_amount, delivery_fee, total_amount, paid_amount, promotion_id, discount_pct, notes,
	created_by, created_at, updated_at, deleted_at`

const orderItemColumns = `id, order_id, product_id, batch_id, quantity, unit_price, total_price, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*entity.SalesOrder, error) {
	var o entity.SalesOrder
	var typ, status string
	var statusID *string
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.OrderDate, &o.DeliveryDate, &typ, &status, &statusID,
		&o.Subtotal, &o.DiscountAmount, &o.DeliveryFee, &o.TotalAmount, &o.PaidAmount, &o.PromotionID, &o.DiscountPct,
		&o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt); err != nil {
		return nil, err
	}
	o.Type = entity.OrderType(typ)
	o.Status = entity.OrderStatus(status)
	if statusID != nil {
		o.StatusID = *statusID
	}
	return &o, nil
}

// Create inserta cabecera y líneas. Un order_number repetido es una carrera perdida del consecutivo.
func (r *SalesOrderRepo) Create(ctx context.Context, o *entity.SalesOrder) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sales_orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NULL)`,
		o.ID, o.OrderNumber, o.CustomerID, o.OrderDate, o.DeliveryDate, string(o.Type), string(o.Status), nullable(o.StatusID),
		o.Subtotal, o.DiscountAmount, o.DeliveryFee, o.TotalAmount, o.PaidAmount, o.PromotionID, o.DiscountPct, o.Notes,
		o.CreatedBy, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert sales order: %w", uniqueAsConcurrency(err, "pedido "+o.OrderNumber))
	}
	for _, it := range o.Items {
		if err := r.CreateItem(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func (r *SalesOrderRepo) GetByID(ctx context.Context, id string) (*entity.SalesOrder, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE id = $1 AND deleted_at IS NULL`, id)
}

// GetForUpdate bloquea solo la cabecera: las líneas pertenecen al pedido y nadie más las escribe.
func (r *SalesOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.SalesOrder, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
}

func (r *SalesOrderRepo) get(ctx context.Context, query, id string) (*entity.SalesOrder, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sales order: %w", mapError(err))
	}
	if o.Items, err = r.items(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *SalesOrderRepo) items(ctx context.Context, orderID string) ([]*entity.OrderItem, error) {
	rows, err := r.q.Query(ctx, `SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.OrderItem
	for rows.Next() {
		var it entity.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.BatchID, &it.Quantity, &it.UnitPrice,
			&it.TotalPrice, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

// Update persiste la cabecera; las líneas se escriben con CreateItem/UpdateItem/DeleteItem.
func (r *SalesOrderRepo) Update(ctx context.Context, o *entity.SalesOrder) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE sales_orders SET
			delivery_date = $2, status = $3, status_id = $4, subtotal = $5, discount_amount = $6,
			delivery_fee = $7, total_amount = $8, paid_amount = $9, promotion_id = $10, discount_pct = $11,
			notes = $12, updated_at = $13
		WHERE id = $1`,
		o.ID, o.DeliveryDate, string(o.Status), nullable(o.StatusID), o.Subtotal, o.DiscountAmount,
		o.DeliveryFee, o.TotalAmount, o.PaidAmount, o.PromotionID, o.DiscountPct, o.Notes, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update sales order: %w", mapError(err))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("pedido %s: %w", o.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *SalesOrderRepo) CreateItem(ctx context.Context, it *entity.OrderItem) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO order_items (`+orderItemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		it.ID, it.OrderID, it.ProductID, it.BatchID, it.Quantity, it.UnitPrice, it.TotalPrice, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order item: %w", mapError(err))
	}
	return nil
}

func (r *SalesOrderRepo) UpdateItem(ctx context.Context, it *entity.OrderItem) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE order_items SET batch_id = $2, quantity = $3, unit_price = $4, total_price = $5, updated_at = $6
		WHERE id = $1`,
		it.ID, it.BatchID, it.Quantity, it.UnitPrice, it.TotalPrice, it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order item: %w", mapError(err))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("línea %s: %w", it.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *SalesOrderRepo) DeleteItem(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM order_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order item: %w", mapError(err))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("línea %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *SalesOrderRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `UPDATE sales_orders SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("soft delete sales order: %w", mapError(err))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("pedido %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List pedidos no eliminados, número más reciente primero. customerID vacío lista todos.
func (r *SalesOrderRepo) List(ctx context.Context, customerID string, limit, offset int) ([]*entity.SalesOrder, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+orderColumns+` FROM sales_orders
		WHERE deleted_at IS NULL AND ($1 = '' OR customer_id::text = $1)
		ORDER BY order_number DESC
		LIMIT $2 OFFSET $3`, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sales orders: %w", mapError(err))
	}
	var out []*entity.SalesOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sales order: %w", err)
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range out {
		if o.Items, err = r.items(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ── pagos ──────────────────────────────────────────────────────────────────────

// PaymentRepo pagos de pedidos.
type PaymentRepo struct {
	q Querier
}

func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

func (r *PaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO payments (id, order_id, voucher_number, payment_date, amount, method, reference_number, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.OrderID, p.VoucherNumber, p.PaymentDate, p.Amount, p.Method, p.ReferenceNumber, p.Notes, p.CreatedBy, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", uniqueAsConcurrency(err, "comprobante "+p.VoucherNumber))
	}
	return nil
}

func (r *PaymentRepo) SumByOrder(ctx context.Context, orderID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1`, orderID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", mapError(err))
	}
	return sum, nil
}

func (r *PaymentRepo) CountByOrder(ctx context.Context, orderID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE order_id = $1`, orderID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count payments: %w", mapError(err))
	}
	return n, nil
}

func (r *PaymentRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.Payment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, voucher_number, payment_date, amount, method, reference_number, notes, created_by, created_at
		FROM payments WHERE order_id = $1 ORDER BY created_at, voucher_number`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", mapError(err))
	}
	defer rows.Close()
	var out []*entity.Payment
	for rows.Next() {
		var p entity.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.VoucherNumber, &p.PaymentDate, &p.Amount, &p.Method,
			&p.ReferenceNumber, &p.Notes, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// nullable cadena vacía como NULL (columnas uuid opcionales).
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
