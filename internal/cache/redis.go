package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisConfig defines the connection for the shared cache tier.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	Database int
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.Database,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// Redis is a Store shared between processes. Values are JSON encoded and
// expire server-side after ttl. Capacity is left to the server's eviction
// policy. Backend failures degrade to cache misses.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis[T any](client *redis.Client, prefix string, ttl time.Duration) *Redis[T] {
	return &Redis[T]{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return value, false
	}
	if err != nil {
		slog.Warn("redis cache get", slog.String("key", key), slog.Any("error", err))
		return value, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		slog.Warn("redis cache decode", slog.String("key", key), slog.Any("error", err))
		return value, false
	}
	return value, true
}

func (r *Redis[T]) Set(ctx context.Context, key string, value T) {
	raw, err := json.Marshal(value)
	if err != nil {
		slog.Warn("redis cache encode", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		slog.Warn("redis cache set", slog.String("key", key), slog.Any("error", err))
	}
}
