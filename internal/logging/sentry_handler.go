package logging

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
)

// SentryHandler forwards ERROR records to Sentry. Attributes become event
// context; request_id becomes a tag, and an "error" attribute holding an error
// is captured as an exception.
type SentryHandler struct {
	attrs []slog.Attr
	group string
}

func NewSentryHandler() *SentryHandler { return &SentryHandler{} }

func (h *SentryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *SentryHandler) Handle(_ context.Context, record slog.Record) error {
	fields := sentry.Context{}
	var cause error
	collect := func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		if err, ok := a.Value.Any().(error); ok && a.Key == "error" {
			cause = err
		}
		fields[key] = a.Value.String()
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	record.Attrs(collect)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		if rid, ok := fields["request_id"].(string); ok && rid != "" {
			scope.SetTag("request_id", rid)
		}
		scope.SetContext("log", fields)
		if cause != nil {
			scope.SetTag("message", record.Message)
			sentry.CaptureException(cause)
			return
		}
		sentry.CaptureMessage(record.Message)
	})
	return nil
}

func (h *SentryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &SentryHandler{group: h.group}
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return next
}

func (h *SentryHandler) WithGroup(name string) slog.Handler {
	next := &SentryHandler{attrs: h.attrs, group: name}
	if h.group != "" {
		next.group = h.group + "." + name
	}
	return next
}
