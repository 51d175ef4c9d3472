package dedup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dedup:webhook:"

// Guard remembers webhook invoices that were already applied.
type Guard interface {
	Seen(ctx context.Context, invoiceID int64) (bool, error)
	Mark(ctx context.Context, invoiceID int64) error
}

type cmdable interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisGuard keeps markers in redis with a TTL.
type RedisGuard struct {
	store cmdable
	ttl   time.Duration
}

// NewRedisGuard wraps a redis client.
func NewRedisGuard(store cmdable, ttl time.Duration) *RedisGuard {
	return &RedisGuard{store: store, ttl: ttl}
}

// Key returns the redis key for an invoice marker.
func Key(invoiceID int64) string {
	return keyPrefix + strconv.FormatInt(invoiceID, 10)
}

func (g *RedisGuard) Seen(ctx context.Context, invoiceID int64) (bool, error) {
	n, err := g.store.Exists(ctx, Key(invoiceID)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup exists: %w", err)
	}
	return n > 0, nil
}

func (g *RedisGuard) Mark(ctx context.Context, invoiceID int64) error {
	if err := g.store.Set(ctx, Key(invoiceID), "1", g.ttl).Err(); err != nil {
		return fmt.Errorf("dedup set: %w", err)
	}
	return nil
}

// Noop never reports duplicates. Used when redis is not configured.
type Noop struct{}

func (Noop) Seen(context.Context, int64) (bool, error) { return false, nil }

func (Noop) Mark(context.Context, int64) error { return nil }
