// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkwell/inkwell/internal/auth"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "failed to parse JSON: %s", buf.String())
	return entry
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("inkwell", "1.0.0", "json", slog.LevelInfo, &buf)

	logger.Info("test message")

	entry := decode(t, &buf)
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "inkwell", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "level")
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("inkwell", "1.0.0", "text", slog.LevelInfo, &buf)

	logger.Info("test message")

	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), "service=inkwell")
}

func TestSetup_DefaultFormatIsJSON(t *testing.T) {
	var buf bytes.Buffer
	Setup("inkwell", "1.0.0", "", slog.LevelInfo, &buf).Info("test message")
	decode(t, &buf)
}

func TestSetup_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("inkwell", "1.0.0", "json", slog.LevelWarn, &buf)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Equal(t, "kept", decode(t, &buf)["msg"])
}

func TestHandler_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("inkwell", "1.0.0", "json", slog.LevelInfo, &buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.InfoContext(ctx, "traced message")

	entry := decode(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestHandler_RequestAndSubject(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("inkwell", "1.0.0", "json", slog.LevelInfo, &buf)

	id := auth.Identity{Subject: ulid.Make(), Email: "jake@jake.jake", Username: "jake"}
	ctx := auth.WithIdentity(WithRequestID(context.Background(), "req-1"), id)

	logger.InfoContext(ctx, "request handled")

	entry := decode(t, &buf)
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, id.Subject.String(), entry["subject"])
	assert.NotContains(t, buf.String(), "jake@jake.jake")
}

func TestHandler_NoContext(t *testing.T) {
	var buf bytes.Buffer
	Setup("inkwell", "1.0.0", "json", slog.LevelInfo, &buf).Info("plain")

	entry := decode(t, &buf)
	for _, key := range []string{"trace_id", "span_id", "request_id", "subject"} {
		assert.NotContains(t, entry, key)
	}
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("inkwell", "1.0.0", "json", slog.LevelInfo, &buf).
		With("component", "web").
		WithGroup("http")

	logger.InfoContext(WithRequestID(context.Background(), "req-2"), "grouped", "status", 200)

	entry := decode(t, &buf)
	assert.Equal(t, "web", entry["component"])
	group, ok := entry["http"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 200, group["status"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	logger := SetDefault("inkwell", "2.0.0", "json", slog.LevelDebug)
	assert.Equal(t, logger, slog.Default())
}
