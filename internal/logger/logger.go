package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

// New creates a new structured logger with default configuration.
// Logs go to stderr so that table output on stdout stays clean.
func New() zerolog.Logger {
	return NewConsole(os.Stderr)
}

// NewConsole creates a human-readable logger writing to w. Writes are
// serialized, so the logger may be shared between goroutines.
func NewConsole(w io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    w != os.Stderr,
	}
	return zerolog.New(zerolog.SyncWriter(output)).With().Timestamp().Caller().Logger()
}

// NewWithWriter creates a new structured logger with a custom writer.
// Writes are serialized, so the logger may be shared between goroutines.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.SyncWriter(w)).With().Timestamp().Caller().Logger()
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context or returns a default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return New()
}

// ParseLevel maps a LOG_LEVEL value to a zerolog level. An empty string
// means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("ParseLevel: %w", err)
	}
	return lvl, nil
}

// WithRun tags a logger with the pipeline run id and the entity it is
// working on. An empty entity is omitted.
func WithRun(logger zerolog.Logger, runID, entity string) zerolog.Logger {
	ctx := logger.With().Str("run_id", runID)
	if entity != "" {
		ctx = ctx.Str("entity", entity)
	}
	return ctx.Logger()
}

// WithFields adds structured fields to a logger
func WithFields(logger zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	ctx := logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}
