package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/hecrelay/common/middleware"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output: %s", buf.String())
	return entry
}

func TestNewWithWriter_Formats(t *testing.T) {
	var jsonBuf bytes.Buffer
	NewWithWriter(&jsonBuf, slog.LevelInfo, "json").Info("hello", "k", "v")
	entry := decodeLine(t, &jsonBuf)
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "v", entry["k"])

	var textBuf bytes.Buffer
	NewWithWriter(&textBuf, slog.LevelInfo, "text").Info("hello", "k", "v")
	assert.Contains(t, textBuf.String(), "msg=hello")
	assert.Contains(t, textBuf.String(), "k=v")
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelWarn, "json")

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestWithContext_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	logger.InfoContext(ctx, "with id")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-42", entry["request_id"])

	buf.Reset()
	logger.InfoContext(context.Background(), "without id")
	entry = decodeLine(t, &buf)
	assert.NotContains(t, entry, "request_id")
}

func TestContextLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelDebug, "json")
	ctx := context.Background()

	tests := []struct {
		level string
		log   func()
	}{
		{"DEBUG", func() { logger.DebugContext(ctx, "m") }},
		{"INFO", func() { logger.InfoContext(ctx, "m") }},
		{"WARN", func() { logger.WarnContext(ctx, "m") }},
		{"ERROR", func() { logger.ErrorContext(ctx, "m") }},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf.Reset()
			tt.log()
			assert.Equal(t, tt.level, decodeLine(t, &buf)["level"])
		})
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json").With(Service("hecrelay"))
	logger.Info("started")
	assert.Equal(t, "hecrelay", decodeLine(t, &buf)[FieldService])
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	require.NotNil(t, logger)
	logger.InfoContext(context.Background(), "nothing")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	logger := Discard()
	SetDefault(logger)
	assert.Same(t, logger.Logger, slog.Default())
}
