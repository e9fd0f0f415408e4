// Package logging builds the slog loggers used by the command line tools.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New returns a logger writing to w. Verbosity 0 logs at info and above,
// 1 or more at debug, and a negative verbosity only logs warnings and
// errors. Format is "json" or "text".
func New(w io.Writer, verbosity int, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFor(verbosity)}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func levelFor(verbosity int) slog.Level {
	switch {
	case verbosity < 0:
		return slog.LevelWarn
	case verbosity == 0:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
