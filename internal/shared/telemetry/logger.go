package telemetry

import (
	"context"
	"log/slog"
	"os"
	"sort"
)

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write(slog.LevelInfo, msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	write(slog.LevelWarn, msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write(slog.LevelError, msg, fields)
}

// write resolves os.Stdout on every call so tests can swap it.
func write(level slog.Level, msg string, fields map[string]any) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}
