package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Quote is a persisted estimate. Request and Response are the exact JSON documents
// exchanged at calculation time and are served back without recalculation.
type Quote struct {
	ID              int64           `json:"id"`
	UserID          string          `json:"user_id"`
	Tier            int             `json:"tier"`
	BoxType         string          `json:"box_type"`
	NumberOfBoxes   int             `json:"number_of_boxes"`
	RateCardVersion int             `json:"rate_card_version"`
	Request         json.RawMessage `json:"request"`
	Response        json.RawMessage `json:"response"`
	CostPerBox      float64         `json:"cost_per_box"`
	TotalCost       float64         `json:"total_cost"`
	CreatedAt       time.Time       `json:"created_at"`
}

// QuoteFilter narrows ListQuotes. Empty fields match everything.
type QuoteFilter struct {
	UserID string
	Query  string
	Limit  int
}

var quoteColumns = `id, user_id, tier, box_type, number_of_boxes, rate_card_version, request_json, response_json, cost_per_box, total_cost, ` +
	selectTimestamp("created_at")

func scanQuote(row rowScanner) (Quote, error) {
	var (
		q                 Quote
		request, response string
		createdAt         string
	)
	if err := row.Scan(&q.ID, &q.UserID, &q.Tier, &q.BoxType, &q.NumberOfBoxes, &q.RateCardVersion,
		&request, &response, &q.CostPerBox, &q.TotalCost, &createdAt); err != nil {
		return Quote{}, err
	}
	q.Request = json.RawMessage(request)
	q.Response = json.RawMessage(response)
	q.CreatedAt = parseTimestamp(createdAt)
	return q, nil
}

// CreateQuote stores a quote snapshot and returns it with its id and timestamp.
func (s *Store) CreateQuote(ctx context.Context, q Quote) (Quote, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (
			user_id, tier, box_type, number_of_boxes, rate_card_version,
			request_json, response_json, cost_per_box, total_cost
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, q.UserID, q.Tier, q.BoxType, q.NumberOfBoxes, q.RateCardVersion,
		string(q.Request), string(q.Response), q.CostPerBox, q.TotalCost)
	if err != nil {
		return Quote{}, fmt.Errorf("insert quote: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Quote{}, fmt.Errorf("insert quote: %w", err)
	}
	return s.GetQuote(ctx, id)
}

// GetQuote returns the stored snapshot for id.
func (s *Store) GetQuote(ctx context.Context, id int64) (Quote, error) {
	q, err := scanQuote(s.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, id))
	if err != nil {
		return Quote{}, notFound(err, fmt.Sprintf("quote %d", id))
	}
	return q, nil
}

// ListQuotes returns quotes newest first. Query matches box type or user id.
func (s *Store) ListQuotes(ctx context.Context, f QuoteFilter) ([]Quote, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	search := "%" + f.Query + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+quoteColumns+`
		FROM quotes
		WHERE (? = '' OR user_id = ?)
		  AND (? = '' OR box_type LIKE ? OR user_id LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
		LIMIT ?
	`, f.UserID, f.UserID, f.Query, search, search, limit)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return quotes, nil
}
