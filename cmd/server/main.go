package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Simplici0/boxquote/internal/config"
	"github.com/Simplici0/boxquote/internal/db"
	"github.com/Simplici0/boxquote/internal/logging"
	"github.com/Simplici0/boxquote/internal/metrics"
	"github.com/Simplici0/boxquote/internal/migrations"
	"github.com/Simplici0/boxquote/internal/payment"
	"github.com/Simplici0/boxquote/internal/seed"
	"github.com/Simplici0/boxquote/internal/store"
	"github.com/Simplici0/boxquote/internal/tiercache"
)

type server struct {
	store        *store.Store
	auth         *authService
	tiers        *tiercache.Resolver
	payments     *payment.Service
	validate     *validator.Validate
	log          *zap.Logger
	metrics      *metrics.Metrics
	pricing      atomic.Pointer[pricing]
	loginLimiter *ipRateLimiter
}

type serverDeps struct {
	store    *store.Store
	tiers    *tiercache.Resolver
	payments *payment.Service
	metrics  *metrics.Metrics
	log      *zap.Logger

	jwtSecret      string
	jwtTTL         time.Duration
	loginPerMinute int
}

func newServer(d serverDeps) *server {
	return &server{
		store:        d.store,
		auth:         newAuthService(d.store, d.jwtSecret, d.jwtTTL),
		tiers:        d.tiers,
		payments:     d.payments,
		validate:     newValidator(),
		log:          d.log,
		metrics:      d.metrics,
		loginLimiter: newIPRateLimiter(d.loginPerMinute, d.log),
	}
}

func main() {
	cfg := config.Load()

	logger := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.IsDev(),
	})
	defer func() { _ = logger.Sync() }()

	for _, w := range cfg.Warnings() {
		logger.Warn("config", zap.String("warning", w))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrations.Up(ctx, database, logger); err != nil {
		return err
	}
	stats, err := seed.Run(ctx, database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		return err
	}
	logger.Info("seed complete", zap.Int("inserts", stats.Inserts), zap.Int("updates", stats.Updates))

	st := store.New(database)

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = tiercache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
	} else {
		logger.Info("REDIS_URL not set, tier cache disabled")
	}
	tiers := tiercache.New(st, rdb, cfg.TierCacheTTL, logger)

	m := metrics.New()

	var gw payment.Gateway
	if cfg.Razorpay.Enabled() {
		gw = payment.NewRazorpay(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, logger)
	}
	payments := payment.NewService(gw, st, payment.Config{
		KeyID:         cfg.Razorpay.KeyID,
		KeySecret:     cfg.Razorpay.KeySecret,
		WebhookSecret: cfg.Razorpay.WebhookSecret,
	}, logger, m)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
		logger.Warn("using a random JWT secret, tokens will not survive a restart")
	}

	srv := newServer(serverDeps{
		store:          st,
		tiers:          tiers,
		payments:       payments,
		metrics:        m,
		log:            logger,
		jwtSecret:      secret,
		jwtTTL:         cfg.JWTTTL,
		loginPerMinute: cfg.LoginRatePerMinute,
	})
	if err := srv.loadPricing(ctx); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())
	r.Post("/payments/webhook", s.handleWebhook)
	r.Post("/users", s.handleRegister)
	r.With(s.loginLimiter.middleware).Post("/users/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.With(s.requireAdmin).Get("/users", s.handleListUsers)
		r.Get("/users/{userID}", s.handleGetUser)
		r.With(s.requireAdmin).Put("/users/{userID}/tier", s.handleUpdateTier)
		r.Get("/users/{userID}/stats", s.handleUserStats)
		r.Get("/users/{userID}/quotes", s.handleUserQuotes)
		r.Get("/users/{userID}/orders", s.handleUserOrders)

		r.Post("/calculate", s.handleCalculate)
		r.Get("/quotes", s.handleQuotesList)
		r.Get("/quotes/{id}", s.handleQuoteDetail)
		r.Get("/quotes/{id}/text", s.handleQuoteText)

		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders/{id}", s.handleGetOrder)
		r.With(s.requireAdmin).Put("/orders/{id}/status", s.handleUpdateOrderStatus)

		r.Post("/payments/create-order", s.handleCreatePayment)
		r.Post("/payments/verify", s.handleVerifyPayment)
		r.With(s.requireAdmin).Post("/payments/refund", s.handleRefundPayment)
		r.Get("/payments/{id}", s.handleGetPayment)
		r.Get("/payments/order/{orderID}", s.handleOrderPayments)

		r.Get("/admin/rates", s.handleGetRates)
		r.With(s.requireAdmin).Put("/admin/rates", s.handleUpdateRates)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
