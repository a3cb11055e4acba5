package main

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/boxquote/internal/payment"
	"github.com/Simplici0/boxquote/internal/store"
)

// placeOrder registers a user, quotes and orders, and returns the user token and order.
func placeOrder(t *testing.T, env *testEnv) (string, store.Order) {
	t.Helper()

	_, token := env.registerUser(t, "USR-A", "a@example.com")
	quote := env.calculate(t, token, sheetSpec())

	var order store.Order
	env.mustDo(t, http.MethodPost, "/orders", token, createOrderRequest{QuoteID: quote.QuoteID}, http.StatusCreated, &order)
	return token, order
}

func TestCheckoutVerifyAndRefund(t *testing.T) {
	env := newTestServer(t)
	token, order := placeOrder(t, env)

	var checkout payment.Checkout
	env.mustDo(t, http.MethodPost, "/payments/create-order", token, createPaymentRequest{OrderID: order.ID}, http.StatusCreated, &checkout)
	if checkout.KeyID != "rzp_test_key" || checkout.Amount != payment.ToPaise(order.TotalAmount) {
		t.Fatalf("unexpected checkout: %+v", checkout)
	}
	if checkout.Payment.Status != store.PaymentCreated || checkout.Payment.RazorpayOrderID == "" {
		t.Fatalf("unexpected payment: %+v", checkout.Payment)
	}

	if status, _ := env.do(t, http.MethodPost, "/payments/create-order", token, createPaymentRequest{OrderID: order.ID}); status != http.StatusConflict {
		t.Fatalf("second live payment: status %d, want 409", status)
	}

	gwOrder := checkout.Payment.RazorpayOrderID
	var verified store.Payment
	env.mustDo(t, http.MethodPost, "/payments/verify", token, payment.Verification{
		RazorpayOrderID:   gwOrder,
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: payment.Sign(testKeySecret, []byte(gwOrder+"|pay_1")),
	}, http.StatusOK, &verified)
	if verified.Status != store.PaymentCaptured || verified.Method != "upi" {
		t.Fatalf("unexpected verified payment: %+v", verified)
	}

	var detail orderResponse
	env.mustDo(t, http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), token, nil, http.StatusOK, &detail)
	if detail.Status != store.OrderProcessing || len(detail.Payments) != 1 {
		t.Fatalf("capture should advance order: %+v", detail)
	}

	if status, _ := env.do(t, http.MethodPost, "/payments/refund", token, refundRequest{PaymentID: verified.ID}); status != http.StatusForbidden {
		t.Fatalf("non-admin refund: status %d, want 403", status)
	}

	admin := env.adminToken(t)
	tooMuch := order.TotalAmount.Add(decimal.NewFromInt(1))
	if status, _ := env.do(t, http.MethodPost, "/payments/refund", admin, refundRequest{PaymentID: verified.ID, Amount: &tooMuch}); status != http.StatusBadRequest {
		t.Fatalf("excessive refund: status %d, want 400", status)
	}

	var refunded store.Payment
	env.mustDo(t, http.MethodPost, "/payments/refund", admin, refundRequest{PaymentID: verified.ID}, http.StatusOK, &refunded)
	if refunded.Status != store.PaymentRefunded || refunded.RefundID != "rfnd_1" {
		t.Fatalf("unexpected refund: %+v", refunded)
	}
	if len(env.gateway.refunds) != 1 || env.gateway.refunds[0] != checkout.Amount {
		t.Fatalf("gateway refunds = %v, want [%d]", env.gateway.refunds, checkout.Amount)
	}

	var byOrder []store.Payment
	env.mustDo(t, http.MethodGet, fmt.Sprintf("/payments/order/%d", order.ID), token, nil, http.StatusOK, &byOrder)
	if len(byOrder) != 1 || byOrder[0].Status != store.PaymentRefunded {
		t.Fatalf("unexpected payments for order: %+v", byOrder)
	}
}

func TestVerifyWithBadSignatureFailsPayment(t *testing.T) {
	env := newTestServer(t)
	token, order := placeOrder(t, env)

	var checkout payment.Checkout
	env.mustDo(t, http.MethodPost, "/payments/create-order", token, createPaymentRequest{OrderID: order.ID}, http.StatusCreated, &checkout)

	status, _ := env.do(t, http.MethodPost, "/payments/verify", token, payment.Verification{
		RazorpayOrderID:   checkout.Payment.RazorpayOrderID,
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: "deadbeef",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", status)
	}

	var p store.Payment
	env.mustDo(t, http.MethodGet, fmt.Sprintf("/payments/%d", checkout.Payment.ID), token, nil, http.StatusOK, &p)
	if p.Status != store.PaymentFailed {
		t.Fatalf("expected failed payment, got %+v", p)
	}

	// A failed payment no longer blocks a new checkout.
	env.mustDo(t, http.MethodPost, "/payments/create-order", token, createPaymentRequest{OrderID: order.ID}, http.StatusCreated, nil)
}

func TestWebhookCapturesPayment(t *testing.T) {
	env := newTestServer(t)
	token, order := placeOrder(t, env)

	var checkout payment.Checkout
	env.mustDo(t, http.MethodPost, "/payments/create-order", token, createPaymentRequest{OrderID: order.ID}, http.StatusCreated, &checkout)

	body := []byte(fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_9","order_id":%q,"status":"captured","method":"card"}}}}`,
		checkout.Payment.RazorpayOrderID))

	if status := postWebhook(t, env, body, ""); status != http.StatusBadRequest {
		t.Fatalf("unsigned webhook: status %d, want 400", status)
	}
	if status := postWebhook(t, env, body, payment.Sign("wrong", body)); status != http.StatusBadRequest {
		t.Fatalf("badly signed webhook: status %d, want 400", status)
	}
	if status := postWebhook(t, env, body, payment.Sign(testWebhookSecret, body)); status != http.StatusOK {
		t.Fatalf("signed webhook: status %d, want 200", status)
	}

	var p store.Payment
	env.mustDo(t, http.MethodGet, fmt.Sprintf("/payments/%d", checkout.Payment.ID), token, nil, http.StatusOK, &p)
	if p.Status != store.PaymentCaptured || p.RazorpayPaymentID != "pay_9" || p.Method != "card" {
		t.Fatalf("webhook not applied: %+v", p)
	}
}

func postWebhook(t *testing.T, env *testEnv, body []byte, signature string) int {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/payments/webhook", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if signature != "" {
		req.Header.Set("X-Razorpay-Signature", signature)
	}
	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestPaymentsWithoutGatewayAreUnavailable(t *testing.T) {
	env := newTestServerWith(t, testOptions{withoutGateway: true})
	token, order := placeOrder(t, env)

	if status, _ := env.do(t, http.MethodPost, "/payments/create-order", token, createPaymentRequest{OrderID: order.ID}); status != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", status)
	}
}

func TestPaymentAccessIsScopedToOwner(t *testing.T) {
	env := newTestServer(t)
	token, order := placeOrder(t, env)
	_, other := env.registerUser(t, "USR-B", "b@example.com")

	var checkout payment.Checkout
	env.mustDo(t, http.MethodPost, "/payments/create-order", token, createPaymentRequest{OrderID: order.ID}, http.StatusCreated, &checkout)

	for _, path := range []string{
		fmt.Sprintf("/payments/%d", checkout.Payment.ID),
		fmt.Sprintf("/payments/order/%d", order.ID),
		fmt.Sprintf("/orders/%d", order.ID),
	} {
		if status, _ := env.do(t, http.MethodGet, path, other, nil); status != http.StatusForbidden {
			t.Fatalf("GET %s as other user: status %d, want 403", path, status)
		}
	}
	if status, _ := env.do(t, http.MethodPost, "/payments/create-order", other, createPaymentRequest{OrderID: order.ID}); status != http.StatusForbidden {
		t.Fatalf("checkout for other user's order: status %d, want 403", status)
	}
}
