package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Simplici0/boxquote/internal/auth"
	"github.com/Simplici0/boxquote/internal/estimator"
)

const (
	adminUserID = "USR-ADMIN"
	adminName   = "Administrator"
	seedAuthor  = "seed"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := seedAdmin(ctx, tx, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureRateCard(ctx, tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func seedAdmin(ctx context.Context, tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var role string
	err := tx.QueryRowContext(ctx, `SELECT role FROM users WHERE email = ?`, email).Scan(&role)
	if err == nil {
		if role == "admin" {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET role = 'admin', updated_at = CURRENT_TIMESTAMP WHERE email = ?
		`, email); err != nil {
			return fmt.Errorf("promote admin user: %w", err)
		}
		stats.Updates++
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check admin user existence: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (user_id, name, email, password_hash, role, tier)
		VALUES (?, ?, ?, ?, 'admin', 0)
	`, adminUserID, adminName, email, hash); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureRateCard(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rate_cards)`).Scan(&exists); err != nil {
		return fmt.Errorf("check rate card existence: %w", err)
	}
	if exists {
		return nil
	}

	payload, err := json.Marshal(estimator.DefaultRateCard())
	if err != nil {
		return fmt.Errorf("encode default rate card: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rate_cards (version, card_json, created_by)
		VALUES (1, ?, ?)
	`, string(payload), seedAuthor); err != nil {
		return fmt.Errorf("insert default rate card: %w", err)
	}
	stats.Inserts++
	return nil
}
