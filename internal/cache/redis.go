// Package cache provides the read-side cache store. The cache is a
// performance layer only: every operation fails open, so a Redis outage
// degrades to uncached reads and never surfaces to callers.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedis(client *redis.Client, prefix string, logger *slog.Logger) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "cache"),
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logger.Warn("cache get failed", "key", key, "error", err)
		return nil, false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, r.fullKey(key), value, ttl).Err(); err != nil {
		r.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.fullKey(key)).Err(); err != nil {
		r.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

// DeleteByPattern evicts every key matching the glob pattern. SCAN is used
// instead of KEYS so large key sets do not block the server.
func (r *Redis) DeleteByPattern(ctx context.Context, pattern string) {
	var (
		cursor  uint64
		deleted int
	)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.fullKey(pattern), 100).Result()
		if err != nil {
			r.logger.Warn("cache scan failed", "pattern", pattern, "error", err)
			return
		}

		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				r.logger.Warn("cache pattern delete failed", "pattern", pattern, "error", err)
				return
			}
			deleted += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if deleted > 0 {
		r.logger.Debug("cache pattern deleted", "pattern", pattern, "keys", deleted)
	}
}

func (r *Redis) fullKey(key string) string {
	return r.prefix + ":" + key
}
