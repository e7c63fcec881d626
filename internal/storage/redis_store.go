package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists values in Redis under an optional key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration // 0 keeps keys forever
	logger *slog.Logger
}

type RedisOption func(*RedisStore)

func WithPrefix(prefix string) RedisOption {
	return func(r *RedisStore) { r.prefix = prefix }
}

func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisStore) { r.ttl = ttl }
}

func NewRedisStore(client *redis.Client, logger *slog.Logger, opts ...RedisOption) *RedisStore {
	r := &RedisStore{
		client: client,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		r.logger.Error("Failed to read key from redis", "key", key, "error", err)
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to write key to redis", "key", key, "error", err)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		r.logger.Error("Failed to delete key from redis", "key", key, "error", err)
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
