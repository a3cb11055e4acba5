// Package payment takes orders through checkout on Razorpay: gateway orders, signature
// verification, refunds and webhooks.
package payment

import (
	"context"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"
)

var (
	// ErrNotConfigured is returned when no gateway credentials were supplied.
	ErrNotConfigured = errors.New("payment gateway is not configured")
	// ErrInvalidSignature is returned when a checkout or webhook signature does not verify.
	ErrInvalidSignature = errors.New("invalid payment signature")
	// ErrGateway wraps failures reported by the gateway itself.
	ErrGateway = errors.New("payment gateway error")
	// ErrNotRefundable is returned for refunds of payments that were never captured or authorized.
	ErrNotRefundable = errors.New("payment is not refundable")
	// ErrInvalidAmount is returned for non-positive or excessive amounts.
	ErrInvalidAmount = errors.New("invalid payment amount")
)

// GatewayOrder is the gateway-side order a checkout pays into.
type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

// GatewayPayment is a payment as reported by the gateway.
type GatewayPayment struct {
	ID      string
	OrderID string
	Amount  int64
	Status  string
	Method  string
}

// GatewayRefund is a refund as reported by the gateway.
type GatewayRefund struct {
	ID     string
	Amount int64
	Status string
}

// Gateway is the subset of the payment provider API the service needs. Amounts are in paise.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (GatewayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (GatewayPayment, error)
	Refund(ctx context.Context, paymentID string, amount int64) (GatewayRefund, error)
}

// Razorpay implements Gateway with the official client.
type Razorpay struct {
	client *razorpay.Client
	log    *zap.Logger
}

// NewRazorpay builds a gateway for the given API key pair.
func NewRazorpay(keyID, keySecret string, log *zap.Logger) *Razorpay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Razorpay{client: razorpay.NewClient(keyID, keySecret), log: log}
}

func (r *Razorpay) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return GatewayOrder{}, err
	}

	data := map[string]interface{}{
		"amount":          amount,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := r.client.Order.Create(data, nil)
	if err != nil {
		r.log.Error("razorpay order create failed", zap.String("receipt", receipt), zap.Error(err))
		return GatewayOrder{}, fmt.Errorf("%w: create order: %v", ErrGateway, err)
	}

	order := GatewayOrder{
		ID:       stringField(body, "id"),
		Amount:   int64Field(body, "amount"),
		Currency: stringField(body, "currency"),
		Receipt:  stringField(body, "receipt"),
		Status:   stringField(body, "status"),
	}
	if order.ID == "" {
		return GatewayOrder{}, fmt.Errorf("%w: create order: response without id", ErrGateway)
	}
	r.log.Info("razorpay order created", zap.String("razorpay_order_id", order.ID), zap.Int64("amount", order.Amount))
	return order, nil
}

func (r *Razorpay) FetchPayment(ctx context.Context, paymentID string) (GatewayPayment, error) {
	if err := ctx.Err(); err != nil {
		return GatewayPayment{}, err
	}

	body, err := r.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		r.log.Error("razorpay payment fetch failed", zap.String("razorpay_payment_id", paymentID), zap.Error(err))
		return GatewayPayment{}, fmt.Errorf("%w: fetch payment: %v", ErrGateway, err)
	}

	return GatewayPayment{
		ID:      stringField(body, "id"),
		OrderID: stringField(body, "order_id"),
		Amount:  int64Field(body, "amount"),
		Status:  stringField(body, "status"),
		Method:  stringField(body, "method"),
	}, nil
}

func (r *Razorpay) Refund(ctx context.Context, paymentID string, amount int64) (GatewayRefund, error) {
	if err := ctx.Err(); err != nil {
		return GatewayRefund{}, err
	}

	body, err := r.client.Payment.Refund(paymentID, int(amount), nil, nil)
	if err != nil {
		r.log.Error("razorpay refund failed", zap.String("razorpay_payment_id", paymentID), zap.Error(err))
		return GatewayRefund{}, fmt.Errorf("%w: refund: %v", ErrGateway, err)
	}

	refund := GatewayRefund{
		ID:     stringField(body, "id"),
		Amount: int64Field(body, "amount"),
		Status: stringField(body, "status"),
	}
	r.log.Info("razorpay refund issued", zap.String("razorpay_payment_id", paymentID), zap.String("refund_id", refund.ID))
	return refund, nil
}

func stringField(body map[string]interface{}, key string) string {
	s, _ := body[key].(string)
	return s
}

// int64Field reads a JSON number, which the client decodes as float64.
func int64Field(body map[string]interface{}, key string) int64 {
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
