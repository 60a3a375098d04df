package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores JSON-encoded values under a key prefix so several
// processes can share computed reports. Redis errors degrade to cache misses.
type RedisCache[T any] struct {
	client    redis.UniversalClient
	prefix    string
	ttl       time.Duration
	opTimeout time.Duration
}

var _ Cache[int] = (*RedisCache[int])(nil)

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewRedisCache[T any](client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache[T] {
	return &RedisCache[T]{
		client:    client,
		prefix:    prefix,
		ttl:       ttl,
		opTimeout: 2 * time.Second,
	}
}

func (c *RedisCache[T]) key(k string) string { return c.prefix + k }

func (c *RedisCache[T]) Get(key string) (T, bool) {
	var zero T
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Redis cache get failed", "component", "cache", "key", key, "error", err)
		}
		return zero, false
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		slog.Warn("Redis cache entry undecodable, dropping", "component", "cache", "key", key, "error", err)
		c.client.Del(ctx, c.key(key))
		return zero, false
	}
	return value, true
}

func (c *RedisCache[T]) Set(key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("Redis cache encode failed", "component", "cache", "key", key, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		slog.Warn("Redis cache set failed", "component", "cache", "key", key, "error", err)
	}
}

func (c *RedisCache[T]) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		slog.Warn("Redis cache delete failed", "component", "cache", "key", key, "error", err)
	}
}

// Size counts keys under the prefix. It scans the keyspace and is meant for
// diagnostics, not hot paths.
func (c *RedisCache[T]) Size() int {
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()
	n := 0
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		slog.Warn("Redis cache scan failed", "component", "cache", "error", err)
	}
	return n
}
