// Package redis caches per subject counts in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis provides caching in Redis.
type Redis struct {
	cli *redis.Client
	ttl time.Duration
}

// Connect connects to the Redis server and pings the server to ensure the
// connection is working. Cached counts expire after ttl.
func Connect(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli: cli,
		ttl: ttl,
	}, nil
}

const countPrefix = "holocron"

func countKey(collection, name string) string {
	return fmt.Sprintf("%s:%s:%s:count", countPrefix, collection, name)
}

// Count returns the cached count for name in collection. ok is false on a
// cache miss.
func (r *Redis) Count(ctx context.Context, collection, name string) (int, bool, error) {
	n, err := r.cli.Get(ctx, countKey(collection, name)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get: %w", err)
	}
	return n, true, nil
}

// SetCount caches the count for name in collection.
func (r *Redis) SetCount(ctx context.Context, collection, name string, n int) error {
	if err := r.cli.Set(ctx, countKey(collection, name), n, r.ttl).Err(); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}

// Invalidate drops the cached count for name in collection.
func (r *Redis) Invalidate(ctx context.Context, collection, name string) error {
	if err := r.cli.Del(ctx, countKey(collection, name)).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.cli.Close()
}
