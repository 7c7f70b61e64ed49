package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var lines []map[string]interface{}
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestNew_WritesJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "sequencer")

	logger.Info(context.Background(), "running command", "step", "migrate")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "running command", lines[0]["msg"])
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "sequencer", lines[0]["component"])
	assert.Equal(t, "migrate", lines[0]["step"])
}

func TestNew_OmitsEmptyComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "")

	logger.Info(context.Background(), "hello")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["component"]
	assert.False(t, ok)
}

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "test")

	logger.Debug(context.Background(), "hidden")
	logger.Info(context.Background(), "shown")
	logger.Error(context.Background(), "also shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.Equal(t, "ERROR", lines[1]["level"])
}

func TestLogger_WithRun(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelDebug, "test").WithRun("run-123")

	logger.Debug(context.Background(), "tagged")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "run-123", lines[0]["run_id"])
}

func TestLogger_WithRunEmptyIsNoop(t *testing.T) {
	logger := New(&bytes.Buffer{}, slog.LevelInfo, "test")

	assert.Same(t, logger, logger.WithRun(""))
	assert.Same(t, logger, logger.WithComponent(""))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
