package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/boxquote/internal/db"
	"github.com/Simplici0/boxquote/internal/estimator"
	"github.com/Simplici0/boxquote/internal/metrics"
	"github.com/Simplici0/boxquote/internal/migrations"
	"github.com/Simplici0/boxquote/internal/payment"
	"github.com/Simplici0/boxquote/internal/seed"
	"github.com/Simplici0/boxquote/internal/store"
	"github.com/Simplici0/boxquote/internal/tiercache"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "admin-secret"
	testKeySecret     = "rzp_secret"
	testWebhookSecret = "whsec"
)

type fakeGateway struct {
	status  string
	refunds []int64
}

func (f *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string, _ map[string]string) (payment.GatewayOrder, error) {
	return payment.GatewayOrder{ID: "order_" + receipt, Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}, nil
}

func (f *fakeGateway) FetchPayment(_ context.Context, paymentID string) (payment.GatewayPayment, error) {
	return payment.GatewayPayment{ID: paymentID, Status: f.status, Method: "upi"}, nil
}

func (f *fakeGateway) Refund(_ context.Context, _ string, amount int64) (payment.GatewayRefund, error) {
	f.refunds = append(f.refunds, amount)
	return payment.GatewayRefund{ID: "rfnd_1", Amount: amount, Status: "processed"}, nil
}

type testEnv struct {
	srv     *server
	ts      *httptest.Server
	gateway *fakeGateway
	metrics *metrics.Metrics
}

type testOptions struct {
	withoutGateway bool
	loginPerMinute int
}

func newTestServer(t *testing.T) *testEnv {
	return newTestServerWith(t, testOptions{})
}

func newTestServerWith(t *testing.T, opts testOptions) *testEnv {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(ctx, database, nil); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := seed.Run(ctx, database, seed.Config{AdminEmail: testAdminEmail, AdminPassword: testAdminPassword}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	st := store.New(database)
	m := metrics.New()
	log := zap.NewNop()

	gw := &fakeGateway{status: "captured"}
	var gateway payment.Gateway = gw
	if opts.withoutGateway {
		gateway = nil
	}
	payments := payment.NewService(gateway, st, payment.Config{
		KeyID:         "rzp_test_key",
		KeySecret:     testKeySecret,
		WebhookSecret: testWebhookSecret,
	}, log, m)

	perMinute := opts.loginPerMinute
	if perMinute == 0 {
		perMinute = 1000
	}

	srv := newServer(serverDeps{
		store:          st,
		tiers:          tiercache.New(st, nil, time.Minute, log),
		payments:       payments,
		metrics:        m,
		log:            log,
		jwtSecret:      "test-secret",
		jwtTTL:         time.Hour,
		loginPerMinute: perMinute,
	})
	if err := srv.loadPricing(ctx); err != nil {
		t.Fatalf("load pricing: %v", err)
	}

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)

	return &testEnv{srv: srv, ts: ts, gateway: gw, metrics: m}
}

// do sends body (JSON-encoded unless it is already []byte) and returns status and raw response.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

func (e *testEnv) mustDo(t *testing.T, method, path, token string, body any, wantStatus int, out any) {
	t.Helper()

	status, raw := e.do(t, method, path, token, body)
	if status != wantStatus {
		t.Fatalf("%s %s: status %d, want %d, body %s", method, path, status, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode %s %s response: %v (%s)", method, path, err, raw)
		}
	}
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	var resp loginResponse
	e.mustDo(t, http.MethodPost, "/users/login", "", loginRequest{Email: email, Password: password}, http.StatusOK, &resp)
	if resp.AccessToken == "" || resp.TokenType != "bearer" {
		t.Fatalf("unexpected login response: %+v", resp)
	}
	return resp.AccessToken
}

func (e *testEnv) adminToken(t *testing.T) string {
	return e.login(t, testAdminEmail, testAdminPassword)
}

// registerUser creates a user and returns their id and token.
func (e *testEnv) registerUser(t *testing.T, userID, email string) (string, string) {
	t.Helper()

	var user store.User
	e.mustDo(t, http.MethodPost, "/users", "", registerRequest{
		UserID:   userID,
		Name:     "Test " + email,
		Email:    email,
		Password: "password1",
	}, http.StatusCreated, &user)
	return user.UserID, e.login(t, email, "password1")
}

func sheetSpec() estimator.BoxSpecification {
	return estimator.BoxSpecification{
		InputMode:     estimator.InputSheetSize,
		SheetSize:     &estimator.SheetSize{Length: 30, Width: 20, Units: "cm"},
		BoxDimensions: estimator.BoxDimensions{Length: 10, Width: 8, Height: 6, Units: "inch"},
		BoxType:       estimator.BoxUniversal,
		PaperProperties: estimator.PaperProperties{
			PaperWeight:  []float64{20, 20, 20},
			PaperQuality: []estimator.PaperQuality{estimator.QualityKraft, estimator.QualityKraft, estimator.QualityKraft},
			PlyNum:       3,
		},
		OrderDetails: estimator.OrderDetails{NumberOfBoxes: 1000, BoxPerSheet: 1},
	}
}

func (e *testEnv) calculate(t *testing.T, token string, spec estimator.BoxSpecification) calculateResponse {
	t.Helper()

	var resp calculateResponse
	e.mustDo(t, http.MethodPost, "/calculate", token, calculateRequest{BoxSpecification: spec}, http.StatusOK, &resp)
	return resp
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	env := newTestServer(t)

	var health map[string]string
	env.mustDo(t, http.MethodGet, "/healthz", "", nil, http.StatusOK, &health)
	if health["status"] != "ok" {
		t.Fatalf("unexpected health: %v", health)
	}

	status, raw := env.do(t, http.MethodGet, "/metrics", "", nil)
	if status != http.StatusOK || !bytes.Contains(raw, []byte("go_goroutines")) {
		t.Fatalf("metrics status %d body %s", status, raw)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestServer(t)

	for _, path := range []string{"/quotes", "/admin/rates", "/users/USR-ADMIN"} {
		if status, _ := env.do(t, http.MethodGet, path, "", nil); status != http.StatusUnauthorized {
			t.Fatalf("GET %s without token: status %d, want 401", path, status)
		}
	}
	if status, _ := env.do(t, http.MethodGet, "/quotes", "garbage", nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", status)
	}
}
