// Package memorycache is an in-process session cache for single-node
// deployments and tests.
package memorycache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache keeps entries in a map and evicts expired ones periodically.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type initOptions struct {
	cleanupInterval time.Duration
	now             func() time.Time
}

// InitOption customizes New.
type InitOption func(*initOptions)

func WithCleanupInterval(interval time.Duration) InitOption {
	return func(options *initOptions) {
		options.cleanupInterval = interval
	}
}

// WithClock replaces time.Now, which tests use to move time forward.
func WithClock(now func() time.Time) InitOption {
	return func(options *initOptions) {
		options.now = now
	}
}

func New(optionsProto ...InitOption) *MemoryCache {
	options := &initOptions{
		cleanupInterval: time.Minute,
		now:             time.Now,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	c := &MemoryCache{
		entries: map[string]entry{},
		now:     options.now,
		done:    make(chan struct{}),
	}

	go c.cleanupLoop(options.cleanupInterval)

	return c
}

func (c *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}

	return nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, found := c.entries[key]
	if !found || !c.now().Before(e.expiresAt) {
		return "", false, nil
	}

	return e.value, true, nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)

	return nil
}

func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine.
func (c *MemoryCache) Close() error {
	c.once.Do(func() {
		close(c.done)
	})

	return nil
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.done:
			return
		}
	}
}

func (c *MemoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
