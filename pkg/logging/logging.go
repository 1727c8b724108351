// Package logging builds the structured logger used across formstudio and
// carries it through context.Context.
package logging

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// New creates a logger writing to w at the given level, with timestamps in
// "HH:MM:SS.ms" form.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// Discard returns a logger that drops everything. Used as the default for
// library types constructed without a logger.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// ParseLevel maps a config value ("debug", "info", "warn", "error") to a
// level. Empty or unknown values fall back to info.
func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

type ctxKey int

const loggerKey ctxKey = 0

// WithLogger returns a new context carrying l.
func WithLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger attached to ctx, or log.Default().
func FromContext(ctx context.Context) *log.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
			return l
		}
	}
	return log.Default()
}
