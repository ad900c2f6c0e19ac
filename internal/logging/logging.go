// Package logging provides the structured logger used across pdfqa, built on
// [log/slog]. A logger is constructed once per process via [New] and passed to
// components through context values using [WithLogger] / [FromContext].
//
// Environment variables:
//
//	LOG_LEVEL  = debug | info | warn | error  (default: info)
//	LOG_FORMAT = json | text                  (default: json)
//	LOG_SOURCE = true                         (add file:line to records)
//
// String attributes whose key names a credential (api_key, secret, a
// trailing token, password) are written as "[redacted]".
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// contextKey is an unexported type for context keys in this package.
type contextKey struct{}

// redacted replaces credential values in log output.
const redacted = "[redacted]"

// Options selects the handler built by [NewWithOptions].
type Options struct {
	// Level is a level name; unknown names mean info.
	Level string
	// Format "text" selects the text handler; anything else selects JSON.
	Format string
	// AddSource adds the calling file and line to every record.
	AddSource bool
}

// New constructs a [*slog.Logger] on stderr from the LOG_* variables.
func New() *slog.Logger {
	source, _ := strconv.ParseBool(os.Getenv("LOG_SOURCE"))
	return NewWithOptions(os.Stderr, Options{
		Level:     os.Getenv("LOG_LEVEL"),
		Format:    os.Getenv("LOG_FORMAT"),
		AddSource: source,
	})
}

// NewWithOptions constructs a logger writing to w.
func NewWithOptions(w io.Writer, o Options) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(o.Level),
		AddSource:   o.AddSource,
		ReplaceAttr: redactSecrets,
	}

	var handler slog.Handler
	if strings.EqualFold(o.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(slog.String("service", "pdfqa"))
}

// Discard returns a logger that drops every record. Tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// With returns a copy of ctx whose logger carries args in addition to the
// attributes it already had.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}

// FromContext returns the [*slog.Logger] stored in ctx.
// If no logger is present it returns [slog.Default] so callers never
// need to nil-check.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// parseLevel converts a string to a [slog.Level], defaulting to Info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// redactSecrets masks string attributes whose key looks like a credential.
// The audit presence markers "set" and "unset" pass through.
func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString || !isSecretKey(a.Key) {
		return a
	}
	switch a.Value.String() {
	case "", "set", "unset":
		return a
	}
	return slog.String(a.Key, redacted)
}

func isSecretKey(key string) bool {
	k := strings.ToLower(key)
	if strings.HasSuffix(k, "token") {
		return true
	}
	for _, frag := range []string{"api_key", "apikey", "secret", "password"} {
		if strings.Contains(k, frag) {
			return true
		}
	}
	return false
}
