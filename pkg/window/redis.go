package window

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter shares a fixed one-hour bucket across instances. Buckets are
// keyed by UTC hour and expire shortly after the hour ends.
type RedisCounter struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis creates a RedisCounter using keys "<prefix>:<YYYYMMDDHH>".
func NewRedis(rdb redis.UniversalClient, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "tripgen:hourly"
	}
	return &RedisCounter{rdb: rdb, prefix: prefix, ttl: 2 * time.Hour}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return rdb, nil
}

func (c *RedisCounter) key(now time.Time) string {
	return c.prefix + ":" + now.UTC().Format("2006010215")
}

// Count returns the current bucket's value.
func (c *RedisCounter) Count(ctx context.Context, now time.Time) (int, error) {
	n, err := c.rdb.Get(ctx, c.key(now)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read hourly window: %w", err)
	}
	return n, nil
}

// Add increments the current bucket and refreshes its expiry.
func (c *RedisCounter) Add(ctx context.Context, now time.Time) error {
	key := c.key(now)
	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment hourly window: %w", err)
	}
	return nil
}
