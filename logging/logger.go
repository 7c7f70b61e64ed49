// Package logging provides the structured logger used by devboot's components.
//
// Components depend on the es.Logger interface and treat a nil logger as
// "logging disabled". Logger is the concrete implementation: JSON lines written
// through log/slog, tagged with the emitting component and the pipeline run.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/getpup/pupsourcing/es"
)

// Logger writes structured JSON log lines and satisfies es.Logger.
type Logger struct {
	logger *slog.Logger
}

// Compile-time check that Logger implements es.Logger.
var _ es.Logger = (*Logger)(nil)

// New returns a JSON logger writing to w at the given level.
// A non-empty component is attached to every line.
func New(w io.Writer, level slog.Level, component string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	if component != "" {
		logger = logger.With("component", component)
	}
	return &Logger{logger: logger}
}

// ParseLevel converts a level name into a slog level.
// Accepted names are debug, info, warn, and error, case-insensitively.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// With returns a logger that adds args to every line.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// WithComponent returns a logger tagged with a different component.
func (l *Logger) WithComponent(component string) *Logger {
	if component == "" {
		return l
	}
	return l.With("component", component)
}

// WithRun returns a logger tagged with the pipeline run ID.
func (l *Logger) WithRun(runID string) *Logger {
	if runID == "" {
		return l
	}
	return l.With("run_id", runID)
}

// Debug implements es.Logger.
func (l *Logger) Debug(ctx context.Context, msg string, args ...interface{}) {
	l.logger.DebugContext(ctx, msg, args...)
}

// Info implements es.Logger.
func (l *Logger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.logger.InfoContext(ctx, msg, args...)
}

// Error implements es.Logger.
func (l *Logger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.logger.ErrorContext(ctx, msg, args...)
}
