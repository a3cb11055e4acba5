package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simplici0/boxquote/internal/auth"
	"github.com/Simplici0/boxquote/internal/estimator"
	"github.com/Simplici0/boxquote/internal/store"
)

type registerRequest struct {
	UserID   string `json:"user_id" validate:"omitempty,max=64,excludesall=/?#"`
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   string     `json:"expires_at"`
	User        store.User `json:"user"`
}

func newUserID() string {
	return "USR-" + strings.ToUpper(uuid.NewString()[:8])
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = newUserID()
	}

	user, err := s.store.CreateUser(r.Context(), store.User{
		UserID:       userID,
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
		Role:         store.RoleUser,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.log.Info("user registered", zap.String("user_id", user.UserID))
	writeJSON(w, http.StatusCreated, user)
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, token, expiresAt, err := s.auth.login(r.Context(), strings.ToLower(req.Email), req.Password)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt.UTC().Format("2006-01-02T15:04:05Z"),
		User:        user,
	})
}

func (s *server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	users, err := s.store.ListUsers(r.Context(), skip, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := authorizeUser(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *server) handleUpdateTier(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	raw := r.URL.Query().Get("tier")
	tier, err := strconv.Atoi(raw)
	if err != nil || tier < 0 || tier > estimator.MaxTier {
		s.writeError(w, r, badRequest("tier must be an integer between 0 and %d", estimator.MaxTier))
		return
	}

	user, err := s.store.UpdateUserTier(r.Context(), userID, tier)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.tiers.Invalidate(r.Context(), userID); err != nil {
		s.log.Warn("tier cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}

	s.log.Info("user tier updated",
		zap.String("user_id", userID),
		zap.Int("tier", tier),
		zap.String("by", identityFrom(r).UserID))
	writeJSON(w, http.StatusOK, user)
}

func (s *server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := authorizeUser(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	stats, err := s.store.UserStats(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *server) handleUserQuotes(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := authorizeUser(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.store.GetUser(r.Context(), userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	quotes, err := s.listQuotes(r.Context(), store.QuoteFilter{UserID: userID})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

// handleUserOrders lists a user's orders, newest first.
func (s *server) handleUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := authorizeUser(r, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.store.GetUser(r.Context(), userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	orders, err := s.store.ListOrdersByUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer", key)
	}
	return n, nil
}
