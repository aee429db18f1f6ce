// Package log provides the overlay's logging API: a thin wrapper around
// log/slog, used directly rather than behind a bespoke interface.
package log

import (
	"io"
	"log/slog"
	"os"
)

var defaultLogger = slog.Default()

// Level constants re-exported from slog for callers that don't want to
// import log/slog directly.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Logger returns a named sub-logger. Packages in this module that log call
// this once at init to get a consistently-tagged logger, e.g.
// var logger = log.Logger("dht").
func Logger(component string) *slog.Logger {
	return defaultLogger.With("component", component)
}

// SetDefault replaces the package default logger.
func SetDefault(l *slog.Logger) {
	defaultLogger = l
	slog.SetDefault(l)
}

// SetOutput redirects the default logger to w at info level.
func SetOutput(w io.Writer) {
	defaultLogger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: LevelInfo}))
	slog.SetDefault(defaultLogger)
}

// SetOutputWithLevel redirects the default logger to w at the given level.
func SetOutputWithLevel(w io.Writer, level slog.Level) {
	defaultLogger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(defaultLogger)
}

func init() {
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: LevelInfo}))
}
