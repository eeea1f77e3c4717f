// Package rediscache implements the session cache on top of Redis.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores sessions in a Redis database.
type RedisCache struct {
	client      *redis.Client
	pingTimeout time.Duration
}

type initOptions struct {
	password    string
	db          int
	pingTimeout time.Duration
}

// InitOption customizes New.
type InitOption func(*initOptions)

func WithPassword(password string) InitOption {
	return func(options *initOptions) {
		options.password = password
	}
}

func WithDB(db int) InitOption {
	return func(options *initOptions) {
		options.db = db
	}
}

// WithPingTimeout bounds the liveness check.
func WithPingTimeout(timeout time.Duration) InitOption {
	return func(options *initOptions) {
		options.pingTimeout = timeout
	}
}

// New connects lazily; use Ping to verify the server is reachable.
func New(addr string, optionsProto ...InitOption) *RedisCache {
	options := &initOptions{
		pingTimeout: 2 * time.Second,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: options.password,
			DB:       options.db,
		}),
		pingTimeout: options.pingTimeout,
	}
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("in internal/cache/rediscache/rediscache.go/Set(): error while `c.client.Set()` calling: %w", err)
	}

	return nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("in internal/cache/rediscache/rediscache.go/Get(): error while `c.client.Get()` calling: %w", err)
	}

	return value, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("in internal/cache/rediscache/rediscache.go/Delete(): error while `c.client.Del()` calling: %w", err)
	}

	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()

	return c.client.Ping(ctxWithTimeout).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
