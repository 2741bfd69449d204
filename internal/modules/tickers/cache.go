package tickers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores serialized price histories. Get reports a miss with found=false
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = NopCache{}
)

type RedisCache struct {
	client redis.UniversalClient
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return b, true, nil
}

// SetNX keeps the first writer's value when two requests race on the same key
func (c *RedisCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.SetNX(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// NopCache is used when no Redis is configured: every lookup misses
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NopCache) SetNX(context.Context, string, []byte, time.Duration) error {
	return nil
}

func historyCacheKey(symbol string, from, to time.Time, freq Frequency) string {
	return fmt.Sprintf("price_history:%s:%s:%s:%s", symbol, from.Format(DateLayout), to.Format(DateLayout), freq)
}
