package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	theCache := New(server.Addr(), WithPingTimeout(time.Second))
	t.Cleanup(func() {
		require.NoError(t, theCache.Close())
	})
	return theCache, server
}

func TestSetGetDelete(t *testing.T) {
	theCache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, theCache.Set(ctx, "auth_token", "42", time.Hour))

	value, found, err := theCache.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "42", value)

	require.NoError(t, theCache.Delete(ctx, "auth_token"))

	_, found, err = theCache.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiry(t *testing.T) {
	theCache, server := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, theCache.Set(ctx, "auth_token", "42", time.Minute))
	assert.Equal(t, time.Minute, server.TTL("auth_token"))

	server.FastForward(2 * time.Minute)

	_, found, err := theCache.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPing(t *testing.T) {
	theCache, server := newTestCache(t)

	assert.NoError(t, theCache.Ping(context.Background()))

	server.Close()
	assert.Error(t, theCache.Ping(context.Background()))
}

func TestGetFailsWhenServerIsDown(t *testing.T) {
	theCache, server := newTestCache(t)
	server.Close()

	_, _, err := theCache.Get(context.Background(), "auth_token")
	assert.Error(t, err)
}
