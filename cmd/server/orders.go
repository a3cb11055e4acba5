package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Simplici0/boxquote/internal/store"
)

type createOrderRequest struct {
	QuoteID int64 `json:"quote_id" validate:"required,gt=0"`
}

type updateOrderStatusRequest struct {
	Status store.OrderStatus `json:"status" validate:"required"`
}

type orderResponse struct {
	store.Order
	Payments []store.Payment `json:"payments"`
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s", key)
	}
	return id, nil
}

// handleCreateOrder turns a saved quote into an order. Quantity and amount come from the
// quote snapshot, never from the client.
func (s *server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	quote, err := s.store.GetQuote(r.Context(), req.QuoteID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := authorizeUser(r, quote.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.store.CreateOrder(r.Context(), store.Order{
		UserID:      quote.UserID,
		QuoteID:     quote.ID,
		Quantity:    quote.NumberOfBoxes,
		TotalAmount: decimal.NewFromFloat(quote.TotalCost).Round(2),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.log.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("quote_id", quote.ID),
		zap.String("user_id", order.UserID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)))
	writeJSON(w, http.StatusCreated, order)
}

func (s *server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.store.GetOrder(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := authorizeUser(r, order.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	payments, err := s.store.ListPaymentsByOrder(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: order, Payments: payments})
}

func (s *server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req updateOrderStatusRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !req.Status.Valid() {
		s.writeError(w, r, badRequest("unknown order status %q", req.Status))
		return
	}

	order, err := s.store.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.log.Info("order status updated",
		zap.Int64("order_id", id),
		zap.String("status", string(order.Status)),
		zap.String("by", identityFrom(r).UserID))
	writeJSON(w, http.StatusOK, order)
}
