// Package logx builds the structured logger shared by every component.
package logx

import (
	"log/slog"
	"os"
	"strings"
)

// New creates a JSON logger at the given level. Supported levels:
// "debug", "info", "warn", "error". Defaults to "info" if the level
// string is not recognised.
func New(level string) *slog.Logger {
	var slevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slevel = slog.LevelDebug
	case "info":
		slevel = slog.LevelInfo
	case "warn":
		slevel = slog.LevelWarn
	case "error":
		slevel = slog.LevelError
	default:
		slevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slevel,
	})

	return slog.New(handler)
}
