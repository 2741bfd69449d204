package redis

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"

	"github.com/Guizzs26/tradebook/internal/platform/config"
	goredis "github.com/redis/go-redis/v9"
)

type Redis struct {
	Client *goredis.Client
}

// NewRedisConnection opens a pooled client and checks it with PING
func NewRedisConnection(ctx context.Context, cfg config.Config) (*Redis, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     net.JoinHostPort(cfg.Redis.Host, strconv.Itoa(cfg.Redis.Port)),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Printf("✅ Redis connection established successfully")
	return &Redis{Client: client}, nil
}

func (r *Redis) Close() {
	if r.Client != nil {
		if err := r.Client.Close(); err != nil {
			log.Printf("failed to close redis client: %v\n", err)
			return
		}
		log.Printf("Redis connection closed\n")
	}
}
