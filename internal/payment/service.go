package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Simplici0/boxquote/internal/store"
)

const defaultCurrency = "INR"

// Store is the persistence the service needs. *store.Store satisfies it.
type Store interface {
	HasLivePayment(ctx context.Context, orderID int64) (bool, error)
	CreatePayment(ctx context.Context, p store.Payment) (store.Payment, error)
	GetPayment(ctx context.Context, id int64) (store.Payment, error)
	GetPaymentByGatewayOrder(ctx context.Context, razorpayOrderID string) (store.Payment, error)
	GetPaymentByGatewayPayment(ctx context.Context, razorpayPaymentID string) (store.Payment, error)
	RecordPaymentOutcome(ctx context.Context, id int64, out store.PaymentOutcome) (store.Payment, error)
}

// Recorder receives payment events for metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	ObservePaymentEvent(event, status string)
}

type noopRecorder struct{}

func (noopRecorder) ObservePaymentEvent(string, string) {}

// Config carries the credentials the service verifies signatures with.
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// Service drives the payment lifecycle. A nil Gateway makes every gateway call fail with ErrNotConfigured.
type Service struct {
	gw       Gateway
	store    Store
	cfg      Config
	log      *zap.Logger
	recorder Recorder
}

// NewService wires a payment service. gw, log and recorder may be nil.
func NewService(gw Gateway, st Store, cfg Config, log *zap.Logger, recorder Recorder) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{gw: gw, store: st, cfg: cfg, log: log, recorder: recorder}
}

// Enabled reports whether a gateway is wired.
func (s *Service) Enabled() bool {
	return s != nil && s.gw != nil
}

// Checkout is what a client needs to open the gateway's checkout widget.
type Checkout struct {
	Payment store.Payment `json:"payment"`
	KeyID   string        `json:"key_id"`
	Amount  int64         `json:"amount"`
}

// CreateOrder opens a gateway order for the full order amount. Only one live payment per order is allowed.
func (s *Service) CreateOrder(ctx context.Context, order store.Order) (Checkout, error) {
	if !s.Enabled() {
		return Checkout{}, ErrNotConfigured
	}

	live, err := s.store.HasLivePayment(ctx, order.ID)
	if err != nil {
		return Checkout{}, err
	}
	if live {
		return Checkout{}, fmt.Errorf("order %d already has a payment in progress: %w", order.ID, store.ErrConflict)
	}

	amount := ToPaise(order.TotalAmount)
	if amount <= 0 {
		return Checkout{}, fmt.Errorf("order %d total %s: %w", order.ID, order.TotalAmount.StringFixed(2), ErrInvalidAmount)
	}

	receipt := "rcpt_" + uuid.NewString()[:8]
	gwOrder, err := s.gw.CreateOrder(ctx, amount, defaultCurrency, receipt, map[string]string{
		"order_id": strconv.FormatInt(order.ID, 10),
		"user_id":  order.UserID,
	})
	if err != nil {
		s.recorder.ObservePaymentEvent("order.create", "error")
		return Checkout{}, err
	}

	p, err := s.store.CreatePayment(ctx, store.Payment{
		OrderID:         order.ID,
		UserID:          order.UserID,
		RazorpayOrderID: gwOrder.ID,
		Receipt:         receipt,
		Amount:          FromPaise(amount),
		Currency:        defaultCurrency,
		Status:          store.PaymentCreated,
	})
	if err != nil {
		return Checkout{}, err
	}

	s.recorder.ObservePaymentEvent("order.create", string(p.Status))
	s.log.Info("payment order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("payment_id", p.ID),
		zap.String("razorpay_order_id", gwOrder.ID))
	return Checkout{Payment: p, KeyID: s.cfg.KeyID, Amount: amount}, nil
}

// Verification is the checkout callback payload.
type Verification struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

// Verify checks a checkout callback. A bad signature returns ErrInvalidSignature and marks a
// still-created payment failed; otherwise the gateway status is recorded and a capture advances the order.
func (s *Service) Verify(ctx context.Context, v Verification) (store.Payment, error) {
	if !s.Enabled() {
		return store.Payment{}, ErrNotConfigured
	}

	p, err := s.store.GetPaymentByGatewayOrder(ctx, v.RazorpayOrderID)
	if err != nil {
		return store.Payment{}, err
	}

	if err := VerifyPaymentSignature(s.cfg.KeySecret, v.RazorpayOrderID, v.RazorpayPaymentID, v.RazorpaySignature); err != nil {
		s.log.Warn("payment signature mismatch",
			zap.Int64("payment_id", p.ID),
			zap.String("razorpay_order_id", v.RazorpayOrderID),
			zap.String("status", string(p.Status)))
		s.recorder.ObservePaymentEvent("payment.verify", "invalid_signature")
		if p.Status != store.PaymentCreated {
			return store.Payment{}, err
		}
		// The unverified payment id is not stored.
		if _, recErr := s.store.RecordPaymentOutcome(ctx, p.ID, store.PaymentOutcome{Status: store.PaymentFailed}); recErr != nil {
			s.log.Error("record failed verification", zap.Int64("payment_id", p.ID), zap.Error(recErr))
		}
		return store.Payment{}, err
	}

	gwPayment, err := s.gw.FetchPayment(ctx, v.RazorpayPaymentID)
	if err != nil {
		return store.Payment{}, err
	}

	status := gatewayStatus(gwPayment.Status)
	updated, err := s.store.RecordPaymentOutcome(ctx, p.ID, store.PaymentOutcome{
		Status:            status,
		RazorpayPaymentID: v.RazorpayPaymentID,
		RazorpaySignature: v.RazorpaySignature,
		Method:            gwPayment.Method,
	})
	if err != nil {
		return store.Payment{}, err
	}

	s.recorder.ObservePaymentEvent("payment.verify", string(status))
	s.log.Info("payment verified", zap.Int64("payment_id", p.ID), zap.String("status", string(status)))
	return updated, nil
}

// Refund returns amount (or whatever has not been refunded yet when amount is nil) to the customer.
// Refunds accumulate; their total never exceeds the payment amount.
func (s *Service) Refund(ctx context.Context, paymentID int64, amount *decimal.Decimal) (store.Payment, error) {
	if !s.Enabled() {
		return store.Payment{}, ErrNotConfigured
	}

	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return store.Payment{}, err
	}
	if !p.Status.Refundable() || p.RazorpayPaymentID == "" {
		return store.Payment{}, fmt.Errorf("payment %d is %s: %w", p.ID, p.Status, ErrNotRefundable)
	}

	full := ToPaise(p.Amount)
	remaining := full - ToPaise(p.RefundedAmount)
	refundPaise := remaining
	if amount != nil {
		refundPaise = ToPaise(*amount)
	}
	if refundPaise <= 0 || refundPaise > remaining {
		return store.Payment{}, fmt.Errorf("refund of %d paise with %d of %d left: %w", refundPaise, remaining, full, ErrInvalidAmount)
	}

	refund, err := s.gw.Refund(ctx, p.RazorpayPaymentID, refundPaise)
	if err != nil {
		return store.Payment{}, err
	}

	status := p.Status
	if refundPaise == remaining {
		status = store.PaymentRefunded
	}
	updated, err := s.store.RecordPaymentOutcome(ctx, p.ID, store.PaymentOutcome{
		Status:   status,
		RefundID: refund.ID,
		Refunded: FromPaise(refundPaise),
	})
	if err != nil {
		s.log.Error("gateway refund not recorded",
			zap.Int64("payment_id", p.ID),
			zap.String("refund_id", refund.ID),
			zap.Error(err))
		return store.Payment{}, err
	}

	s.recorder.ObservePaymentEvent("payment.refund", string(status))
	s.log.Info("payment refunded",
		zap.Int64("payment_id", p.ID),
		zap.Int64("amount_paise", refundPaise),
		zap.Int64("remaining_paise", remaining-refundPaise))
	return updated, nil
}

// WebhookEvent is the part of a gateway webhook the service reads.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Amount  int64  `json:"amount"`
				Status  string `json:"status"`
				Method  string `json:"method"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// WebhookResult reports what a webhook delivery did.
type WebhookResult struct {
	Event   string `json:"event"`
	Handled bool   `json:"handled"`
}

// HandleWebhook verifies and applies a webhook delivery. Events other than payment.captured and
// payment.failed, events for unknown gateway orders, and events that would undo a settled payment
// are acknowledged without changes.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	if s.cfg.WebhookSecret == "" {
		return WebhookResult{}, ErrNotConfigured
	}
	if err := VerifyWebhookSignature(s.cfg.WebhookSecret, body, signature); err != nil {
		s.recorder.ObservePaymentEvent("webhook", "invalid_signature")
		return WebhookResult{}, err
	}

	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return WebhookResult{}, fmt.Errorf("decode webhook: %w", err)
	}
	result := WebhookResult{Event: evt.Event}

	var status store.PaymentStatus
	switch evt.Event {
	case "payment.captured":
		status = store.PaymentCaptured
	case "payment.failed":
		status = store.PaymentFailed
	default:
		s.log.Debug("ignoring webhook event", zap.String("event", evt.Event))
		return result, nil
	}

	entity := evt.Payload.Payment.Entity
	p, ok, err := s.webhookPayment(ctx, entity.ID, entity.OrderID)
	if err != nil {
		return WebhookResult{}, err
	}
	if !ok {
		s.log.Warn("webhook for unknown or settled payment",
			zap.String("event", evt.Event),
			zap.String("razorpay_order_id", entity.OrderID),
			zap.String("razorpay_payment_id", entity.ID))
		return result, nil
	}

	_, err = s.store.RecordPaymentOutcome(ctx, p.ID, store.PaymentOutcome{
		Status:            status,
		RazorpayPaymentID: entity.ID,
		Method:            entity.Method,
	})
	if errors.Is(err, store.ErrPaymentTransition) {
		s.recorder.ObservePaymentEvent(evt.Event, "ignored")
		s.log.Info("webhook ignored", zap.String("event", evt.Event), zap.Int64("payment_id", p.ID), zap.Error(err))
		return result, nil
	}
	if err != nil {
		return WebhookResult{}, err
	}

	s.recorder.ObservePaymentEvent(evt.Event, string(status))
	s.log.Info("webhook applied", zap.String("event", evt.Event), zap.Int64("payment_id", p.ID))
	result.Handled = true
	return result, nil
}

// webhookPayment finds the payment a webhook entity belongs to. An entity whose gateway payment id
// is already stored maps to that row. Otherwise the gateway order's row is used only while it has
// no payment id yet or its last attempt failed.
func (s *Service) webhookPayment(ctx context.Context, razorpayPaymentID, razorpayOrderID string) (store.Payment, bool, error) {
	if razorpayPaymentID != "" {
		p, err := s.store.GetPaymentByGatewayPayment(ctx, razorpayPaymentID)
		if err == nil {
			return p, true, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return store.Payment{}, false, err
		}
	}

	p, err := s.store.GetPaymentByGatewayOrder(ctx, razorpayOrderID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Payment{}, false, nil
	}
	if err != nil {
		return store.Payment{}, false, err
	}
	if p.RazorpayPaymentID != "" && p.Status != store.PaymentFailed {
		return store.Payment{}, false, nil
	}
	return p, true, nil
}

func gatewayStatus(raw string) store.PaymentStatus {
	switch store.PaymentStatus(raw) {
	case store.PaymentCaptured, store.PaymentFailed, store.PaymentRefunded, store.PaymentCreated:
		return store.PaymentStatus(raw)
	default:
		return store.PaymentAuthorized
	}
}
