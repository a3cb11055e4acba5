package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus mirrors the gateway's payment states.
type PaymentStatus string

const (
	PaymentCreated    PaymentStatus = "created"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// ErrPaymentTransition is returned when an outcome would move a payment out of a settled state
// or replace the gateway payment that settled it.
var ErrPaymentTransition = errors.New("invalid payment status transition")

// Live reports whether a payment in this status still blocks a new payment for its order.
func (s PaymentStatus) Live() bool {
	return s == PaymentCreated || s == PaymentAuthorized || s == PaymentCaptured
}

// Refundable reports whether money can be returned for a payment in this status.
func (s PaymentStatus) Refundable() bool {
	return s == PaymentCaptured || s == PaymentAuthorized
}

// CanBecome reports whether a payment in status s may move to next. Refunded is terminal and a
// capture can only be refunded; a failed attempt may still be followed by a successful one.
func (s PaymentStatus) CanBecome(next PaymentStatus) bool {
	switch s {
	case PaymentRefunded:
		return false
	case PaymentCaptured:
		return next == PaymentCaptured || next == PaymentRefunded
	case PaymentFailed:
		return next == PaymentFailed || next == PaymentAuthorized || next == PaymentCaptured
	default:
		return true
	}
}

// settled reports whether the stored gateway payment id may no longer change.
func (s PaymentStatus) settled() bool {
	return s == PaymentCaptured || s == PaymentRefunded
}

// Payment is one gateway order attached to an order.
type Payment struct {
	ID                int64           `json:"id"`
	OrderID           int64           `json:"order_id"`
	UserID            string          `json:"user_id"`
	RazorpayOrderID   string          `json:"razorpay_order_id"`
	RazorpayPaymentID string          `json:"razorpay_payment_id,omitempty"`
	RazorpaySignature string          `json:"-"`
	Receipt           string          `json:"receipt"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Status            PaymentStatus   `json:"status"`
	Method            string          `json:"payment_method,omitempty"`
	RefundID          string          `json:"refund_id,omitempty"`
	RefundedAmount    decimal.Decimal `json:"refunded_amount"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// PaymentOutcome is the result of a verification, webhook or refund.
// Empty string fields leave the stored value unchanged. Refunded is added to the running refund
// total, which may never exceed the payment amount.
type PaymentOutcome struct {
	Status            PaymentStatus
	RazorpayPaymentID string
	RazorpaySignature string
	Method            string
	RefundID          string
	Refunded          decimal.Decimal
}

var paymentColumns = `id, order_id, user_id, razorpay_order_id, razorpay_payment_id, razorpay_signature, receipt, amount, currency, status, payment_method, refund_id, refunded_amount, ` +
	selectTimestamp("created_at") + `, ` + selectTimestamp("updated_at")

func scanPayment(row rowScanner) (Payment, error) {
	var (
		p                    Payment
		status               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.RazorpayOrderID, &p.RazorpayPaymentID, &p.RazorpaySignature,
		&p.Receipt, &p.Amount, &p.Currency, &status, &p.Method, &p.RefundID, &p.RefundedAmount, &createdAt, &updatedAt); err != nil {
		return Payment{}, err
	}
	p.Status = PaymentStatus(status)
	p.CreatedAt = parseTimestamp(createdAt)
	p.UpdatedAt = parseTimestamp(updatedAt)
	return p, nil
}

// HasLivePayment reports whether the order already has a payment that is not failed or refunded.
func (s *Store) HasLivePayment(ctx context.Context, orderID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM payments
			WHERE order_id = ? AND status IN ('created', 'authorized', 'captured')
		)
	`, orderID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check live payment: %w", err)
	}
	return exists, nil
}

// CreatePayment stores a freshly created gateway order. It fails with ErrConflict when the
// order already has a live payment.
func (s *Store) CreatePayment(ctx context.Context, p Payment) (Payment, error) {
	if p.Status == "" {
		p.Status = PaymentCreated
	}
	if p.Currency == "" {
		p.Currency = "INR"
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var live bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM payments
				WHERE order_id = ? AND status IN ('created', 'authorized', 'captured')
			)
		`, p.OrderID).Scan(&live); err != nil {
			return fmt.Errorf("check live payment: %w", err)
		}
		if live {
			return fmt.Errorf("order %d already has a payment in progress: %w", p.OrderID, ErrConflict)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO payments (order_id, user_id, razorpay_order_id, receipt, amount, currency, status)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, p.OrderID, p.UserID, p.RazorpayOrderID, p.Receipt, p.Amount.StringFixed(2), p.Currency, string(p.Status))
		if isUniqueViolation(err) {
			return fmt.Errorf("gateway order %s: %w", p.RazorpayOrderID, ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return Payment{}, err
	}
	return s.GetPayment(ctx, id)
}

// GetPayment returns the payment with id.
func (s *Store) GetPayment(ctx context.Context, id int64) (Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if err != nil {
		return Payment{}, notFound(err, fmt.Sprintf("payment %d", id))
	}
	return p, nil
}

// GetPaymentByGatewayOrder returns the payment created for a gateway order id.
func (s *Store) GetPaymentByGatewayOrder(ctx context.Context, razorpayOrderID string) (Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE razorpay_order_id = ?`, razorpayOrderID))
	if err != nil {
		return Payment{}, notFound(err, "payment for gateway order "+razorpayOrderID)
	}
	return p, nil
}

// GetPaymentByGatewayPayment returns the payment holding a gateway payment id.
func (s *Store) GetPaymentByGatewayPayment(ctx context.Context, razorpayPaymentID string) (Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE razorpay_payment_id = ?`, razorpayPaymentID))
	if err != nil {
		return Payment{}, notFound(err, "payment "+razorpayPaymentID)
	}
	return p, nil
}

// ListPaymentsByOrder returns all payments of an order, oldest first.
func (s *Store) ListPaymentsByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	payments := make([]Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}

	return payments, nil
}

// RecordPaymentOutcome updates a payment. A capture also moves a Pending order to Processing
// in the same transaction. Outcomes that break the payment lifecycle fail with ErrPaymentTransition
// and leave the row untouched.
func (s *Store) RecordPaymentOutcome(ctx context.Context, id int64, out PaymentOutcome) (Payment, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			orderID   int64
			current   string
			paymentID string
			amount    decimal.Decimal
			refunded  decimal.Decimal
		)
		if err := tx.QueryRowContext(ctx, `
			SELECT order_id, status, razorpay_payment_id, amount, refunded_amount
			FROM payments WHERE id = ?
		`, id).Scan(&orderID, &current, &paymentID, &amount, &refunded); err != nil {
			return notFound(err, fmt.Sprintf("payment %d", id))
		}

		from := PaymentStatus(current)
		if !from.CanBecome(out.Status) {
			return fmt.Errorf("payment %d from %s to %s: %w", id, from, out.Status, ErrPaymentTransition)
		}
		if from.settled() && out.RazorpayPaymentID != "" && paymentID != "" && out.RazorpayPaymentID != paymentID {
			return fmt.Errorf("payment %d is %s by %s, not %s: %w", id, from, paymentID, out.RazorpayPaymentID, ErrPaymentTransition)
		}
		if out.Refunded.IsNegative() {
			return fmt.Errorf("payment %d refund of %s: %w", id, out.Refunded.StringFixed(2), ErrPaymentTransition)
		}
		refunded = refunded.Add(out.Refunded)
		if refunded.GreaterThan(amount) {
			return fmt.Errorf("payment %d refunds %s exceed %s: %w", id, refunded.StringFixed(2), amount.StringFixed(2), ErrPaymentTransition)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE payments
			SET
				status = ?,
				razorpay_payment_id = CASE WHEN ? = '' THEN razorpay_payment_id ELSE ? END,
				razorpay_signature = CASE WHEN ? = '' THEN razorpay_signature ELSE ? END,
				payment_method = CASE WHEN ? = '' THEN payment_method ELSE ? END,
				refund_id = CASE WHEN ? = '' THEN refund_id ELSE ? END,
				refunded_amount = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, string(out.Status),
			out.RazorpayPaymentID, out.RazorpayPaymentID,
			out.RazorpaySignature, out.RazorpaySignature,
			out.Method, out.Method,
			out.RefundID, out.RefundID,
			refunded.StringFixed(2),
			id); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		if out.Status != PaymentCaptured {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND status = ?
		`, string(OrderProcessing), orderID, string(OrderPending)); err != nil {
			return fmt.Errorf("advance order after capture: %w", err)
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	return s.GetPayment(ctx, id)
}
