package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// refreshKeyPrefix carries a hash tag, so every refresh key maps to one cluster
// slot and the rotation script may touch the old and the new key together
const refreshKeyPrefix = "refresh_token:{rt}:"

// rotateRefreshScript moves the owner of KEYS[1] onto KEYS[2] in one step.
// Returns false (redis.Nil on the client side) when KEYS[1] does not exist
const rotateRefreshScript = `
local uid = redis.call("GET", KEYS[1])
if not uid then
  return false
end
redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], uid, "PX", ARGV[1])
return uid
`

// revokeRefreshScript deletes KEYS[1] only when it still maps to ARGV[1]
const revokeRefreshScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	rotateRefreshLua = redis.NewScript(rotateRefreshScript)
	revokeRefreshLua = redis.NewScript(revokeRefreshScript)
)

var _ RefreshStore = (*RedisRefreshStore)(nil)

// RedisRefreshStore keeps refresh tokens in Redis with native key expiry.
// Rotation runs as a Lua script, so it stays atomic across processes
type RedisRefreshStore struct {
	client  redis.UniversalClient
	ttl     time.Duration
	entropy io.Reader
}

func NewRedisRefreshStore(client redis.UniversalClient, ttl time.Duration) *RedisRefreshStore {
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}
	return &RedisRefreshStore{client: client, ttl: ttl, entropy: rand.Reader}
}

func (s *RedisRefreshStore) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := generateOpaqueToken(s.entropy)
	if err != nil {
		return "", err
	}

	ok, err := s.client.SetNX(ctx, refreshKey(token), userID.String(), s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	if !ok {
		return "", errors.New("refresh token collision")
	}

	return token, nil
}

func (s *RedisRefreshStore) Rotate(ctx context.Context, token string) (uuid.UUID, string, error) {
	if token == "" {
		return uuid.Nil, "", ErrInvalidRefreshToken
	}

	next, err := generateOpaqueToken(s.entropy)
	if err != nil {
		return uuid.Nil, "", err
	}

	keys := []string{refreshKey(token), refreshKey(next)}
	raw, err := rotateRefreshLua.Run(ctx, s.client, keys, s.ttl.Milliseconds()).Text()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, "", ErrInvalidRefreshToken
	}
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("corrupt refresh token entry: %w", err)
	}

	return userID, next, nil
}

func (s *RedisRefreshStore) Revoke(ctx context.Context, userID uuid.UUID, token string) error {
	keys := []string{refreshKey(token)}
	if err := revokeRefreshLua.Run(ctx, s.client, keys, userID.String()).Err(); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func refreshKey(token string) string {
	return refreshKeyPrefix + hashToken(token)
}
