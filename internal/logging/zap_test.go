package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_WritesFieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewZapLogger(zap.New(core))
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "dbg", entries[0].Message)
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
	assert.Equal(t, int64(4), entries[3].ContextMap()["d"])
}

func TestZapLogger_With_AddsAttributes(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := NewZapLogger(zap.New(core)).With("module", "tracks")

	log.Info(context.Background(), "hello", "username", "alice")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "tracks", fields["module"])
	assert.Equal(t, "alice", fields["username"])
}

func TestNew_Backends(t *testing.T) {
	var buf bytes.Buffer

	l, err := New(BackendSlog, "debug", &buf)
	require.NoError(t, err)
	l.Info(context.Background(), "from-slog", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"from-slog"`)

	buf.Reset()
	l, err = New(BackendZap, "info", &buf)
	require.NoError(t, err)
	l.Info(context.Background(), "from-zap", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"from-zap"`)

	_, err = New("logrus", "info", &buf)
	require.Error(t, err)

	_, err = New(BackendSlog, "loud", &buf)
	require.Error(t, err)
}

func TestZapLogger_RequestIDFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := NewZapLogger(zap.New(core))
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-7")

	log.Warn(ctx, "slow", "ms", 1200)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
}
