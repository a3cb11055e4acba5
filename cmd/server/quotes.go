package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/boxquote/internal/estimator"
	"github.com/Simplici0/boxquote/internal/report"
	"github.com/Simplici0/boxquote/internal/store"
)

type calculateRequest struct {
	UserID string `json:"user_id" validate:"omitempty,max=64"`
	estimator.BoxSpecification
}

type calculateResponse struct {
	QuoteID         int64 `json:"quote_id"`
	RateCardVersion int   `json:"rate_card_version"`
	estimator.Response
}

type quoteListItem struct {
	ID            int64     `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UserID        string    `json:"user_id"`
	Tier          int       `json:"tier"`
	BoxType       string    `json:"box_type"`
	NumberOfBoxes int       `json:"number_of_boxes"`
	CostPerBox    float64   `json:"cost_per_box"`
	Total         float64   `json:"total_order_cost"`
}

type quoteDetail struct {
	ID              int64                      `json:"id"`
	CreatedAt       time.Time                  `json:"created_at"`
	UserID          string                     `json:"user_id"`
	RateCardVersion int                        `json:"rate_card_version"`
	Request         estimator.BoxSpecification `json:"request"`
	Response        estimator.Response         `json:"response"`
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	userID := identityFrom(r).UserID
	if req.UserID != "" && req.UserID != userID {
		if err := authorizeUser(r, req.UserID); err != nil {
			s.writeError(w, r, err)
			return
		}
		userID = req.UserID
	}

	tier, err := s.tiers.Tier(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p := s.pricing.Load()
	result, err := p.estimator.Estimate(req.BoxSpecification, tier)
	if err != nil {
		s.metrics.ObserveEstimate(tier, "invalid")
		s.writeError(w, r, err)
		return
	}
	s.metrics.ObserveEstimate(tier, "ok")

	resp := result.Response(userID)
	quote, err := s.saveQuote(r.Context(), req.BoxSpecification, resp, p.version)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.log.Info("quote calculated",
		zap.Int64("quote_id", quote.ID),
		zap.String("user_id", userID),
		zap.Int("tier", tier),
		zap.String("box_type", string(resp.BoxType)),
		zap.Float64("total_order_cost", resp.TotalOrderCost))
	writeJSON(w, http.StatusOK, calculateResponse{QuoteID: quote.ID, RateCardVersion: p.version, Response: resp})
}

func (s *server) saveQuote(ctx context.Context, spec estimator.BoxSpecification, resp estimator.Response, version int) (store.Quote, error) {
	requestJSON, err := json.Marshal(spec)
	if err != nil {
		return store.Quote{}, fmt.Errorf("encode quote request: %w", err)
	}
	responseJSON, err := json.Marshal(resp)
	if err != nil {
		return store.Quote{}, fmt.Errorf("encode quote response: %w", err)
	}

	return s.store.CreateQuote(ctx, store.Quote{
		UserID:          resp.UserID,
		Tier:            resp.UserTier,
		BoxType:         string(resp.BoxType),
		NumberOfBoxes:   resp.NumberOfBoxes,
		RateCardVersion: version,
		Request:         requestJSON,
		Response:        responseJSON,
		CostPerBox:      resp.CostPerBox,
		TotalCost:       resp.TotalOrderCost,
	})
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	filter := store.QuoteFilter{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	if id := identityFrom(r); !id.IsAdmin() {
		filter.UserID = id.UserID
	}

	quotes, err := s.listQuotes(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (s *server) listQuotes(ctx context.Context, filter store.QuoteFilter) ([]quoteListItem, error) {
	quotes, err := s.store.ListQuotes(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]quoteListItem, 0, len(quotes))
	for _, q := range quotes {
		items = append(items, quoteListItem{
			ID:            q.ID,
			CreatedAt:     q.CreatedAt,
			UserID:        q.UserID,
			Tier:          q.Tier,
			BoxType:       q.BoxType,
			NumberOfBoxes: q.NumberOfBoxes,
			CostPerBox:    q.CostPerBox,
			Total:         q.TotalCost,
		})
	}
	return items, nil
}

func (s *server) handleQuoteDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.quoteForRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *server) handleQuoteText(w http.ResponseWriter, r *http.Request) {
	detail, err := s.quoteForRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(renderQuoteText(detail)))
}

func (s *server) quoteForRequest(r *http.Request) (quoteDetail, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return quoteDetail{}, badRequest("invalid quote id")
	}

	detail, err := s.getQuoteDetail(r.Context(), id)
	if err != nil {
		return quoteDetail{}, err
	}
	if err := authorizeUser(r, detail.UserID); err != nil {
		return quoteDetail{}, err
	}
	return detail, nil
}

// getQuoteDetail reads the stored snapshot. Prices are never recalculated.
func (s *server) getQuoteDetail(ctx context.Context, id int64) (quoteDetail, error) {
	q, err := s.store.GetQuote(ctx, id)
	if err != nil {
		return quoteDetail{}, err
	}

	detail := quoteDetail{
		ID:              q.ID,
		CreatedAt:       q.CreatedAt,
		UserID:          q.UserID,
		RateCardVersion: q.RateCardVersion,
	}
	if err := json.Unmarshal(q.Request, &detail.Request); err != nil {
		return quoteDetail{}, fmt.Errorf("decode quote %d request: %w", id, err)
	}
	if err := json.Unmarshal(q.Response, &detail.Response); err != nil {
		return quoteDetail{}, fmt.Errorf("decode quote %d response: %w", id, err)
	}
	return detail, nil
}

func renderQuoteText(d quoteDetail) string {
	return report.Text(d.Response, report.Meta{
		QuoteID:         d.ID,
		CreatedAt:       d.CreatedAt,
		RateCardVersion: d.RateCardVersion,
	})
}
