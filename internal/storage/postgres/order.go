package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/veloshop/orderdesk/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
//
// UpdateStatus is the compare-and-swap primitive the lifecycle engine relies
// on: the UPDATE carries the expected status in its WHERE clause, so of two
// concurrent writers exactly one matches and commits.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateOrder persists the order row. The shipping snapshot is stored as
// JSONB. Line items are written separately by CreateItems.
func (r *OrderRepository) CreateOrder(ctx context.Context, o *order.Order) error {
	addr, err := json.Marshal(o.Shipping)
	if err != nil {
		return errors.Wrap(err, "marshal shipping address")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, owner_id, status, payment_status,
			total_amount, shipping_cost, shipping_address, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.OrderNumber, o.OwnerID, o.Status, o.PaymentStatus,
		o.TotalAmount, o.ShippingCost, addr, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %s", o.ID)
	}
	return nil
}

// CreateItems batch-inserts the line item snapshots for an order.
func (r *OrderRepository) CreateItems(ctx context.Context, orderID string, items []order.Item) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, product_name, product_image, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			orderID, it.ProductID, it.ProductName, it.ProductImage, it.UnitPrice, it.Quantity,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range items {
		if _, err := br.Exec(); err != nil {
			return errors.Wrapf(err, "insert items for order %s", orderID)
		}
	}
	return nil
}

// Delete removes the order row; order_items cascade.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return errors.Wrapf(err, "delete order %s", id)
	}
	return nil
}

const orderColumns = `
	id, order_number, owner_id, status, payment_status,
	total_amount, shipping_cost, shipping_address,
	COALESCE(receipt_reference, ''), reject_reason, created_at, updated_at`

// Get fetches one order with its line items.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

// List returns orders matching the filter, newest first, without line items.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE ($1 = '' OR status = $1) AND ($2 = '' OR owner_id = $2) ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, string(f.Status), f.OwnerID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}
	return out, nil
}

// Stats aggregates per-status counts and settled revenue.
func (r *OrderRepository) Stats(ctx context.Context, f order.ListFilter) (*order.Stats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status,
		       COUNT(*),
		       COALESCE(SUM(total_amount) FILTER (WHERE payment_status = 'paid'), 0)
		FROM orders
		WHERE ($1 = '' OR owner_id = $1)
		GROUP BY status`,
		f.OwnerID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query order stats")
	}
	defer rows.Close()

	stats := &order.Stats{
		CountByStatus: make(map[order.Status]int),
		Revenue:       decimal.Zero,
	}
	for rows.Next() {
		var (
			status  string
			count   int
			revenue decimal.Decimal
		)
		if err := rows.Scan(&status, &count, &revenue); err != nil {
			return nil, errors.Wrap(err, "scan stats row")
		}
		stats.CountByStatus[order.Status(status)] = count
		stats.TotalOrders += count
		stats.Revenue = stats.Revenue.Add(revenue)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate stats")
	}
	return stats, nil
}

// UpdateStatus conditionally applies change where the current status equals
// expected. RowsAffected discriminates commit from guard mismatch.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, expected order.Status, change order.StatusChange) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET
			status            = $3,
			payment_status    = CASE WHEN $4 = '' THEN payment_status ELSE $4 END,
			receipt_reference = CASE WHEN $5 = '' THEN receipt_reference ELSE $5 END,
			reject_reason     = CASE WHEN $6 = '' THEN reject_reason ELSE $6 END,
			updated_at        = now()
		WHERE id = $1 AND status = $2`,
		id, expected,
		change.Status, string(change.PaymentStatus), change.ReceiptRef, change.RejectReason,
	)
	if err != nil {
		return false, errors.Wrapf(err, "conditional update order %s", id)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, product_name, product_image, unit_price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "load items for order %s", orderID)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.ProductImage, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate order items")
	}
	return items, nil
}

// scanOrder scans one order row in orderColumns order.
func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o    order.Order
		addr []byte
	)
	if err := row.Scan(
		&o.ID, &o.OrderNumber, &o.OwnerID, &o.Status, &o.PaymentStatus,
		&o.TotalAmount, &o.ShippingCost, &addr,
		&o.ReceiptReference, &o.RejectReason, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(addr, &o.Shipping); err != nil {
		return nil, errors.Wrap(err, "unmarshal shipping address")
	}
	return &o, nil
}
