// Package observability provides structured logging helpers for Kotoba.
//
// It wraps log/slog with trace ID propagation so that every log line emitted
// while handling a message carries the trace context.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/bdobrica/Kotoba/common/redact"
	"github.com/bdobrica/Kotoba/common/trace"
)

// ParseLevel maps "debug", "warn" and "error" to their slog levels. Anything
// else is Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a text or JSON logger writing to w.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Setup configures the global slog logger according to the provided level and
// format strings (e.g. level="info", format="json"). Logs go to stderr so the
// repl can keep stdout for replies.
func Setup(level, format string) *slog.Logger {
	logger := NewLogger(os.Stderr, level, format)
	slog.SetDefault(logger)
	return logger
}

// WithTrace returns a child logger that always includes the trace_id from ctx.
func WithTrace(ctx context.Context) *slog.Logger {
	return trace.Logger(ctx, slog.Default())
}

// RedactSecrets replaces known-sensitive values in a log message with "[REDACTED]".
func RedactSecrets(msg string, sensitiveValues ...string) string {
	return redact.String(msg, sensitiveValues...)
}

// ConfigAttrs turns a flat configuration map into log attributes, with
// token-like keys redacted.
func ConfigAttrs(cfg map[string]any) []any {
	safe := redact.Map(cfg)
	attrs := make([]any, 0, len(safe)*2)
	for _, k := range sortedKeys(safe) {
		attrs = append(attrs, k, safe[k])
	}
	return attrs
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
