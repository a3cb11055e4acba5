package main

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/boxquote/internal/store"
)

func TestCreateOrderTakesAmountsFromQuote(t *testing.T) {
	env := newTestServer(t)
	_, token := env.registerUser(t, "USR-A", "a@example.com")
	quote := env.calculate(t, token, sheetSpec())

	var order store.Order
	env.mustDo(t, http.MethodPost, "/orders", token, createOrderRequest{QuoteID: quote.QuoteID}, http.StatusCreated, &order)

	want := decimal.NewFromFloat(quote.TotalOrderCost).Round(2)
	if order.Status != store.OrderPending || order.Quantity != 1000 || !order.TotalAmount.Equal(want) {
		t.Fatalf("unexpected order: %+v (want total %s)", order, want)
	}

	var detail orderResponse
	env.mustDo(t, http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), token, nil, http.StatusOK, &detail)
	if detail.ID != order.ID || len(detail.Payments) != 0 {
		t.Fatalf("unexpected order detail: %+v", detail)
	}
}

func TestCreateOrderRequiresQuoteOwner(t *testing.T) {
	env := newTestServer(t)
	_, tokenA := env.registerUser(t, "USR-A", "a@example.com")
	_, tokenB := env.registerUser(t, "USR-B", "b@example.com")
	quote := env.calculate(t, tokenA, sheetSpec())

	if status, _ := env.do(t, http.MethodPost, "/orders", tokenB, createOrderRequest{QuoteID: quote.QuoteID}); status != http.StatusForbidden {
		t.Fatalf("status %d, want 403", status)
	}
	if status, _ := env.do(t, http.MethodPost, "/orders", tokenA, createOrderRequest{QuoteID: 999}); status != http.StatusNotFound {
		t.Fatalf("missing quote: status %d, want 404", status)
	}
	if status, _ := env.do(t, http.MethodPost, "/orders", tokenA, createOrderRequest{}); status != http.StatusBadRequest {
		t.Fatalf("missing quote id: status %d, want 400", status)
	}
}

func TestOrderStatusOnlyMovesForward(t *testing.T) {
	env := newTestServer(t)
	_, token := env.registerUser(t, "USR-A", "a@example.com")
	admin := env.adminToken(t)
	quote := env.calculate(t, token, sheetSpec())

	var order store.Order
	env.mustDo(t, http.MethodPost, "/orders", token, createOrderRequest{QuoteID: quote.QuoteID}, http.StatusCreated, &order)
	path := fmt.Sprintf("/orders/%d/status", order.ID)

	if status, _ := env.do(t, http.MethodPut, path, token, updateOrderStatusRequest{Status: store.OrderShipped}); status != http.StatusForbidden {
		t.Fatalf("non-admin update: status %d, want 403", status)
	}

	var shipped store.Order
	env.mustDo(t, http.MethodPut, path, admin, updateOrderStatusRequest{Status: store.OrderShipped}, http.StatusOK, &shipped)
	if shipped.Status != store.OrderShipped {
		t.Fatalf("status not updated: %+v", shipped)
	}

	if status, _ := env.do(t, http.MethodPut, path, admin, updateOrderStatusRequest{Status: store.OrderProcessing}); status != http.StatusConflict {
		t.Fatalf("backwards transition: status %d, want 409", status)
	}
	if status, _ := env.do(t, http.MethodPut, path, admin, updateOrderStatusRequest{Status: "Lost"}); status != http.StatusBadRequest {
		t.Fatalf("unknown status: status %d, want 400", status)
	}
}

func TestUserOrdersListsOwnOrdersNewestFirst(t *testing.T) {
	env := newTestServer(t)
	_, tokenA := env.registerUser(t, "USR-A", "a@example.com")
	_, tokenB := env.registerUser(t, "USR-B", "b@example.com")
	admin := env.adminToken(t)

	var first, second store.Order
	quote := env.calculate(t, tokenA, sheetSpec())
	env.mustDo(t, http.MethodPost, "/orders", tokenA, createOrderRequest{QuoteID: quote.QuoteID}, http.StatusCreated, &first)
	env.mustDo(t, http.MethodPost, "/orders", tokenA, createOrderRequest{QuoteID: quote.QuoteID}, http.StatusCreated, &second)

	var orders []store.Order
	env.mustDo(t, http.MethodGet, "/users/USR-A/orders", tokenA, nil, http.StatusOK, &orders)
	if len(orders) != 2 || orders[0].ID != second.ID || orders[1].ID != first.ID {
		t.Fatalf("unexpected orders: %+v", orders)
	}

	var none []store.Order
	env.mustDo(t, http.MethodGet, "/users/USR-B/orders", tokenB, nil, http.StatusOK, &none)
	if len(none) != 0 {
		t.Fatalf("expected no orders for USR-B, got %+v", none)
	}

	if status, _ := env.do(t, http.MethodGet, "/users/USR-A/orders", tokenB, nil); status != http.StatusForbidden {
		t.Fatalf("other user: status %d, want 403", status)
	}
	if status, _ := env.do(t, http.MethodGet, "/users/USR-A/orders", admin, nil); status != http.StatusOK {
		t.Fatalf("admin: status %d, want 200", status)
	}
	if status, _ := env.do(t, http.MethodGet, "/users/USR-NOPE/orders", admin, nil); status != http.StatusNotFound {
		t.Fatalf("unknown user: status %d, want 404", status)
	}
}
