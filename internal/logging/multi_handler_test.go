package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiHandlerFansOutByLevel(t *testing.T) {
	var all, errs bytes.Buffer
	h := NewMultiHandler(
		slog.NewJSONHandler(&all, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h).With("component", "test")

	logger.Info("hello")
	logger.Error("boom", "request_id", "r1")

	assert.Equal(t, 2, bytes.Count(all.Bytes(), []byte("\n")))
	require.Equal(t, 1, bytes.Count(errs.Bytes(), []byte("\n")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(errs.Bytes(), &rec))
	assert.Equal(t, "boom", rec["msg"])
	assert.Equal(t, "test", rec["component"])
	assert.Equal(t, "r1", rec["request_id"])
}

func TestMultiHandlerEnabled(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}), NewSentryHandler())
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestSentryHandlerWithoutClientIsNoop(t *testing.T) {
	h := NewSentryHandler().WithAttrs([]slog.Attr{slog.String("request_id", "abc")}).WithGroup("g")
	logger := slog.New(h)
	// No client is bound to the hub, so capture is dropped silently.
	logger.Error("unreported", "error", assert.AnError)
}
