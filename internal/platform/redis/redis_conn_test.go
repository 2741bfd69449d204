package redis

import (
	"context"
	"strconv"
	"testing"

	"github.com/Guizzs26/tradebook/internal/platform/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisConnection(t *testing.T) {
	mr := miniredis.RunT(t)

	var cfg config.Config
	cfg.Redis.Host = mr.Host()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg.Redis.Port = port

	conn, err := NewRedisConnection(context.Background(), cfg)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedisConnection_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	var cfg config.Config
	cfg.Redis.Host = host
	cfg.Redis.Port, _ = strconv.Atoi(port)

	_, err := NewRedisConnection(context.Background(), cfg)
	assert.Error(t, err)
}
