package logging

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps LOG_LEVEL values onto slog levels; unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Setup installs a JSON logger on w as the slog default. When reportErrors is
// set, ERROR records are also forwarded to Sentry.
func Setup(w io.Writer, level string, reportErrors bool) *slog.Logger {
	var h slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	if reportErrors {
		h = NewMultiHandler(h, NewSentryHandler())
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
