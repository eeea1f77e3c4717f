// Package cache declares the key-value store used for session tokens.
package cache

import (
	"context"
	"time"
)

// SessionCache is a string key-value store with per-key expiry.
// Only single-key operations are atomic.
type SessionCache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get reports found=false for absent and expired keys alike.
	Get(ctx context.Context, key string) (string, bool, error)

	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error

	Close() error
}
