package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Simplici0/boxquote/internal/auth"
	"github.com/Simplici0/boxquote/internal/store"
)

type identityKey struct{}

type authService struct {
	store  *store.Store
	tokens *auth.Tokens
}

func newAuthService(st *store.Store, secret string, ttl time.Duration) *authService {
	return &authService{store: st, tokens: auth.NewTokens(secret, ttl)}
}

// login checks credentials and issues a token. Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (a *authService) login(ctx context.Context, email, password string) (store.User, string, time.Time, error) {
	user, err := a.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, "", time.Time{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, "", time.Time{}, err
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return store.User{}, "", time.Time{}, err
	}

	token, expiresAt, err := a.tokens.Issue(user.UserID, string(user.Role))
	if err != nil {
		return store.User{}, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// authMiddleware rejects requests without a valid bearer token.
func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			s.writeError(w, r, errUnauthorized)
			return
		}

		id, err := s.auth.tokens.Parse(raw)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			s.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

func (s *server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identityFrom(r).IsAdmin() {
			s.writeError(w, r, errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityFrom(r *http.Request) auth.Identity {
	id, _ := r.Context().Value(identityKey{}).(auth.Identity)
	return id
}

// authorizeUser allows admins and the user themselves.
func authorizeUser(r *http.Request, userID string) error {
	id := identityFrom(r)
	if id.IsAdmin() || id.UserID == userID {
		return nil
	}
	return errForbidden
}

// ipRateLimiter keeps one token bucket per client IP.
type ipRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *zap.Logger
}

func newIPRateLimiter(perMinute int, log *zap.Logger) *ipRateLimiter {
	return &ipRateLimiter{
		rate:  rate.Limit(float64(perMinute) / 60.0),
		burst: perMinute,
		log:   log,
	}
}

func (l *ipRateLimiter) limiter(ip string) *rate.Limiter {
	if existing, ok := l.limiters.Load(ip); ok {
		return existing.(*rate.Limiter)
	}
	actual, _ := l.limiters.LoadOrStore(ip, rate.NewLimiter(l.rate, l.burst))
	return actual.(*rate.Limiter)
}

func (l *ipRateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.limiter(ip).Allow() {
			l.log.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
