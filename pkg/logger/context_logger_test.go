package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextLogger_LogRequest_IncludesRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cl := NewContextLogger(zap.New(core))

	ctx := WithRequestID(context.Background(), "req-1")
	cl.LogRequest(ctx, "POST", "/api/v1/rooms/x/request-entry", 200, 12)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "http_request", entry.Message)
	assert.Equal(t, "req-1", entry.ContextMap()["request_id"])
	assert.Equal(t, int64(200), entry.ContextMap()["status_code"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l := New("loud", "json")
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}
