// Package tiercache resolves a user's pricing tier, reading through Redis when one is configured.
package tiercache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Source is the authoritative tier lookup, normally the user store.
type Source interface {
	UserTier(ctx context.Context, userID string) (int, error)
}

// Resolver caches tiers in Redis. A nil Redis client disables caching.
type Resolver struct {
	src Source
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// NewRedisClient builds a client from a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

// New returns a Resolver. rdb and log may be nil.
func New(src Source, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{src: src, rdb: rdb, ttl: ttl, log: log}
}

// Cached tiers live under a per-user generation. Invalidate bumps the generation, so a lookup that
// started before an invalidation writes under a key that is never read again.
func genKey(userID string) string { return "tier:gen:" + userID }

func valueKey(userID, gen string) string { return "tier:" + userID + ":" + gen }

// generation returns the user's current cache generation, "0" before the first invalidation.
func (r *Resolver) generation(ctx context.Context, userID string) (string, error) {
	gen, err := r.rdb.Get(ctx, genKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

// Tier returns the user's tier. Cache failures are logged and fall through to the source.
func (r *Resolver) Tier(ctx context.Context, userID string) (int, error) {
	var gen string
	if r.rdb != nil {
		var err error
		gen, err = r.generation(ctx, userID)
		if err != nil {
			r.log.Warn("tier cache read failed", zap.String("user_id", userID), zap.Error(err))
			gen = ""
		}
	}

	if gen != "" {
		raw, err := r.rdb.Get(ctx, valueKey(userID, gen)).Result()
		switch {
		case err == nil:
			if tier, convErr := strconv.Atoi(raw); convErr == nil {
				return tier, nil
			}
			r.log.Warn("discarding malformed cached tier", zap.String("user_id", userID), zap.String("value", raw))
		case errors.Is(err, redis.Nil):
		default:
			r.log.Warn("tier cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	tier, err := r.src.UserTier(ctx, userID)
	if err != nil {
		return 0, err
	}

	if gen != "" {
		if err := r.rdb.Set(ctx, valueKey(userID, gen), strconv.Itoa(tier), r.ttl).Err(); err != nil {
			r.log.Warn("tier cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return tier, nil
}

// Invalidate retires every tier cached for userID so far.
func (r *Resolver) Invalidate(ctx context.Context, userID string) error {
	if r.rdb == nil {
		return nil
	}
	if err := r.rdb.Incr(ctx, genKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached tier: %w", err)
	}
	return nil
}
