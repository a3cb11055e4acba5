package store

import (
	"context"
	"fmt"
	"time"
)

// Role is a user's access level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a registered customer or administrator.
type User struct {
	ID           int64     `json:"-"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Tier         int       `json:"tier"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserStats summarises a user's activity.
type UserStats struct {
	UserID       string `json:"user_id"`
	Tier         int    `json:"tier"`
	TotalQuotes  int    `json:"total_quotes"`
	ActiveOrders int    `json:"active_orders"`
}

var userColumns = `id, user_id, name, email, password_hash, role, tier, ` +
	selectTimestamp("created_at") + `, ` + selectTimestamp("updated_at")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var role, createdAt, updatedAt string
	if err := row.Scan(&u.ID, &u.UserID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Tier, &createdAt, &updatedAt); err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	u.CreatedAt = parseTimestamp(createdAt)
	u.UpdatedAt = parseTimestamp(updatedAt)
	return u, nil
}

// CreateUser inserts a user. Duplicate user ids or emails yield ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	if u.Role == "" {
		u.Role = RoleUser
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, name, email, password_hash, role, tier)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.UserID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.Tier)
	if isUniqueViolation(err) {
		return User{}, fmt.Errorf("user %s or email %s already registered: %w", u.UserID, u.Email, ErrConflict)
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUser(ctx, u.UserID)
}

// GetUser returns the user with the given public id.
func (s *Store) GetUser(ctx context.Context, userID string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID))
	if err != nil {
		return User{}, notFound(err, "user "+userID)
	}
	return u, nil
}

// GetUserByEmail returns the user registered with email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return User{}, notFound(err, "user with email "+email)
	}
	return u, nil
}

// ListUsers returns users in registration order.
func (s *Store) ListUsers(ctx context.Context, skip, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// UserTier returns only the tier of a user.
func (s *Store) UserTier(ctx context.Context, userID string) (int, error) {
	var tier int
	if err := s.db.QueryRowContext(ctx, `SELECT tier FROM users WHERE user_id = ?`, userID).Scan(&tier); err != nil {
		return 0, notFound(err, "user "+userID)
	}
	return tier, nil
}

// UpdateUserTier sets a user's pricing tier. Range checks are the caller's job; the schema rejects values outside 0..4.
func (s *Store) UpdateUserTier(ctx context.Context, userID string, tier int) (User, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET tier = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`, tier, userID)
	if err != nil {
		return User{}, fmt.Errorf("update user tier: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return User{}, fmt.Errorf("update user tier: %w", err)
	}
	if affected == 0 {
		return User{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	return s.GetUser(ctx, userID)
}

// UserStats counts the user's quotes and the orders not yet delivered.
func (s *Store) UserStats(ctx context.Context, userID string) (UserStats, error) {
	stats := UserStats{UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			u.tier,
			(SELECT COUNT(*) FROM quotes q WHERE q.user_id = u.user_id),
			(SELECT COUNT(*) FROM orders o WHERE o.user_id = u.user_id AND o.status != 'Delivered')
		FROM users u
		WHERE u.user_id = ?
	`, userID).Scan(&stats.Tier, &stats.TotalQuotes, &stats.ActiveOrders)
	if err != nil {
		return UserStats{}, notFound(err, "user "+userID)
	}
	return stats, nil
}
