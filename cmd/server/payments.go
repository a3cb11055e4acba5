package main

import (
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Simplici0/boxquote/internal/payment"
)

type createPaymentRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
}

type refundRequest struct {
	PaymentID int64            `json:"payment_id" validate:"required,gt=0"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

func (s *server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.store.GetOrder(r.Context(), req.OrderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := authorizeUser(r, order.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	checkout, err := s.payments.CreateOrder(r.Context(), order)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkout)
}

func (s *server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req payment.Verification
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	existing, err := s.store.GetPaymentByGatewayOrder(r.Context(), req.RazorpayOrderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := authorizeUser(r, existing.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.payments.Verify(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleRefundPayment(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.payments.Refund(r.Context(), req.PaymentID, req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.log.Info("payment refunded",
		zap.Int64("payment_id", p.ID),
		zap.String("refund_id", p.RefundID),
		zap.String("by", identityFrom(r).UserID))
	writeJSON(w, http.StatusOK, p)
}

// handleWebhook needs the raw body for signature verification, so it skips decodeJSON.
func (s *server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, badRequest("could not read request body"))
		return
	}

	result, err := s.payments.HandleWebhook(r.Context(), body, r.Header.Get("X-Razorpay-Signature"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.store.GetPayment(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := authorizeUser(r, p.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleOrderPayments(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.store.GetOrder(r.Context(), orderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := authorizeUser(r, order.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	payments, err := s.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}
