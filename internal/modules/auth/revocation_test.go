package auth

import (
	"context"
	"testing"
	"time"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/clock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationRegistry(t *testing.T) {
	ctx := context.Background()
	clk := &clock.FixedClock{T: testEpoch}
	reg := NewMemoryRevocationRegistry(clk)

	revoked, err := reg.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, reg.Revoke(ctx, "token-a", testEpoch.Add(10*time.Minute)))
	require.NoError(t, reg.Revoke(ctx, "token-a", testEpoch.Add(5*time.Minute)))
	assert.Equal(t, 1, reg.Len())

	revoked, err = reg.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	// a second revoke with an earlier expiry does not shorten retention
	clk.Advance(6 * time.Minute)
	assert.Equal(t, 0, reg.Prune())

	revoked, err = reg.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	clk.Advance(4 * time.Minute)
	assert.Equal(t, 1, reg.Prune())
	assert.Equal(t, 0, reg.Len())
}

func TestMemoryRevocationRegistry_RunStopsOnCancel(t *testing.T) {
	reg := NewMemoryRevocationRegistry(&clock.FixedClock{T: testEpoch})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		reg.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedisRevocationRegistry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clk := &clock.FixedClock{T: testEpoch}
	reg := NewRedisRevocationRegistry(client, clk)

	require.NoError(t, reg.Revoke(ctx, "token-a", testEpoch.Add(time.Minute)))

	revoked, err := reg.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = reg.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, revoked)

	key := revokedKeyPrefix + hashToken("token-a")
	assert.Equal(t, time.Minute, mr.TTL(key))
	assert.False(t, mr.Exists(revokedKeyPrefix+"token-a"), "raw token must not be used as key")

	mr.FastForward(time.Minute)
	revoked, err = reg.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevocationRegistry_AlreadyExpiredKeepsMinimumTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reg := NewRedisRevocationRegistry(client, &clock.FixedClock{T: testEpoch})
	require.NoError(t, reg.Revoke(ctx, "token-a", testEpoch.Add(-time.Minute)))

	assert.Equal(t, time.Second, mr.TTL(revokedKeyPrefix+hashToken("token-a")))
}
