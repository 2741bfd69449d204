package ctxlogger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogger_FallsBackToDefault(t *testing.T) {
	assert.Same(t, slog.Default(), GetLogger(context.Background()))
}

func TestWith_EnrichesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil)).With(slog.String("request_id", "req-1"))

	ctx := SetLogger(context.Background(), base)
	ctx = With(ctx, slog.String("user_id", "u-42"))

	GetLogger(ctx).Info("hello")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"user_id":"u-42"`)
}
