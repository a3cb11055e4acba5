package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Simplici0/boxquote/internal/estimator"
	"github.com/Simplici0/boxquote/internal/store"
)

// pricing pairs an estimator with the rate card version it was built from.
type pricing struct {
	estimator *estimator.Estimator
	version   int
}

type rateCardResponse struct {
	Version  int                `json:"version"`
	RateCard estimator.RateCard `json:"rate_card"`
}

// loadPricing installs the latest stored rate card. An empty table falls back to the
// built-in card at version 0.
func (s *server) loadPricing(ctx context.Context) error {
	latest, err := s.store.LatestRateCard(ctx)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("no stored rate card, using built-in defaults")
		s.pricing.Store(&pricing{estimator: estimator.Default(), version: 0})
		return nil
	}
	if err != nil {
		return err
	}

	est, err := estimator.New(latest.Card)
	if err != nil {
		return fmt.Errorf("rate card v%d: %w", latest.Version, err)
	}
	s.pricing.Store(&pricing{estimator: est, version: latest.Version})
	s.log.Info("rate card loaded", zap.Int("version", latest.Version))
	return nil
}

func (s *server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	p := s.pricing.Load()
	writeJSON(w, http.StatusOK, rateCardResponse{Version: p.version, RateCard: p.estimator.RateCard()})
}

// handleUpdateRates stores a new rate card version and swaps it in. Saved quotes keep
// the prices they were issued with.
func (s *server) handleUpdateRates(w http.ResponseWriter, r *http.Request) {
	var card estimator.RateCard
	if err := s.decodeJSON(r, &card); err != nil {
		s.writeError(w, r, err)
		return
	}

	est, err := estimator.New(card)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	saved, err := s.store.SaveRateCard(r.Context(), card, identityFrom(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.pricing.Store(&pricing{estimator: est, version: saved.Version})

	s.log.Info("rate card updated",
		zap.Int("version", saved.Version),
		zap.String("by", saved.CreatedBy))
	writeJSON(w, http.StatusOK, rateCardResponse{Version: saved.Version, RateCard: est.RateCard()})
}
