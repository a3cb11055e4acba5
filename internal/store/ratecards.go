package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Simplici0/boxquote/internal/estimator"
)

// RateCardVersion is one immutable snapshot of pricing constants.
type RateCardVersion struct {
	Version   int                `json:"version"`
	Card      estimator.RateCard `json:"rate_card"`
	CreatedBy string             `json:"created_by"`
	CreatedAt time.Time          `json:"created_at"`
}

// LatestRateCard returns the highest stored version, or ErrNotFound when none was saved yet.
func (s *Store) LatestRateCard(ctx context.Context) (RateCardVersion, error) {
	var (
		v         RateCardVersion
		cardJSON  string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT version, card_json, created_by, `+selectTimestamp("created_at")+`
		FROM rate_cards
		ORDER BY version DESC
		LIMIT 1
	`).Scan(&v.Version, &cardJSON, &v.CreatedBy, &createdAt)
	if err != nil {
		return RateCardVersion{}, notFound(err, "rate card")
	}

	if err := json.Unmarshal([]byte(cardJSON), &v.Card); err != nil {
		return RateCardVersion{}, fmt.Errorf("decode rate card version %d: %w", v.Version, err)
	}
	v.CreatedAt = parseTimestamp(createdAt)
	return v, nil
}

// SaveRateCard validates card and stores it as the next version. Existing versions are never rewritten.
func (s *Store) SaveRateCard(ctx context.Context, card estimator.RateCard, createdBy string) (RateCardVersion, error) {
	if err := card.Validate(); err != nil {
		return RateCardVersion{}, err
	}

	payload, err := json.Marshal(card)
	if err != nil {
		return RateCardVersion{}, fmt.Errorf("encode rate card: %w", err)
	}

	var version int
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM rate_cards`).Scan(&version); err != nil {
			return fmt.Errorf("next rate card version: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rate_cards (version, card_json, created_by)
			VALUES (?, ?, ?)
		`, version, string(payload), createdBy)
		if isUniqueViolation(err) {
			return fmt.Errorf("rate card version %d: %w", version, ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert rate card: %w", err)
		}
		return nil
	})
	if err != nil {
		return RateCardVersion{}, err
	}

	return RateCardVersion{Version: version, Card: card.Clone(), CreatedBy: createdBy, CreatedAt: time.Now().UTC()}, nil
}
