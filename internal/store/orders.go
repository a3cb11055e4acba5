package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is a step in the fulfilment lifecycle.
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
)

var orderLifecycle = []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered}

// ErrInvalidTransition is returned when a status change would move an order backwards or sideways.
var ErrInvalidTransition = errors.New("invalid order status transition")

func (s OrderStatus) rank() int {
	for i, st := range orderLifecycle {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	return s.rank() >= 0
}

// CanAdvanceTo reports whether an order in s may move to next. Only forward moves are allowed.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	return s.Valid() && next.Valid() && next.rank() > s.rank()
}

// Order is a purchase placed from a quote.
type Order struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"user_id"`
	QuoteID     int64           `json:"quote_id"`
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

var orderColumns = `id, user_id, quote_id, quantity, total_amount, status, ` +
	selectTimestamp("created_at") + `, ` + selectTimestamp("updated_at")

func scanOrder(row rowScanner) (Order, error) {
	var (
		o                    Order
		status               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.QuoteID, &o.Quantity, &o.TotalAmount, &status, &createdAt, &updatedAt); err != nil {
		return Order{}, err
	}
	o.Status = OrderStatus(status)
	o.CreatedAt = parseTimestamp(createdAt)
	o.UpdatedAt = parseTimestamp(updatedAt)
	return o, nil
}

// CreateOrder inserts a Pending order.
func (s *Store) CreateOrder(ctx context.Context, o Order) (Order, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (user_id, quote_id, quantity, total_amount, status)
		VALUES (?, ?, ?, ?, ?)
	`, o.UserID, o.QuoteID, o.Quantity, o.TotalAmount.StringFixed(2), string(OrderPending))
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	return s.GetOrder(ctx, id)
}

// GetOrder returns the order with id.
func (s *Store) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if err != nil {
		return Order{}, notFound(err, fmt.Sprintf("order %d", id))
	}
	return o, nil
}

// ListOrdersByUser returns a user's orders newest first.
func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = ?
		ORDER BY datetime(created_at) DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

// UpdateOrderStatus moves an order forward in its lifecycle.
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, next OrderStatus) (Order, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&current); err != nil {
			return notFound(err, fmt.Sprintf("order %d", id))
		}
		if !OrderStatus(current).CanAdvanceTo(next) {
			return fmt.Errorf("%s -> %s: %w", current, next, ErrInvalidTransition)
		}
		return setOrderStatus(ctx, tx, id, next)
	})
	if err != nil {
		return Order{}, err
	}
	return s.GetOrder(ctx, id)
}

func setOrderStatus(ctx context.Context, tx *sql.Tx, id int64, status OrderStatus) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(status), id); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}
