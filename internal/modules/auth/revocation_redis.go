package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/clock"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked_token:"

var _ RevocationRegistry = (*RedisRevocationRegistry)(nil)

// RedisRevocationRegistry stores one key per revoked token, expiring together with the token
type RedisRevocationRegistry struct {
	client redis.UniversalClient
	clock  clock.Clock
}

func NewRedisRevocationRegistry(client redis.UniversalClient, clk clock.Clock) *RedisRevocationRegistry {
	return &RedisRevocationRegistry{client: client, clock: clk}
}

func (r *RedisRevocationRegistry) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.clock.Now())
	if ttl < time.Second {
		ttl = time.Second
	}

	if err := r.client.Set(ctx, revokedKeyPrefix+hashToken(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revoked token: %w", err)
	}
	return nil
}

func (r *RedisRevocationRegistry) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := r.client.Get(ctx, revokedKeyPrefix+hashToken(token)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return true, nil
}
