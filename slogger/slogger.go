package slogger

import (
	"log/slog"
	"os"
	"strings"
)

var level = new(slog.LevelVar)

var handler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: level,
})

// New returns a logger tagged with the given module name.
func New(module string) *slog.Logger {
	return slog.New(handler).With(slog.String("module", module))
}

// SetLevel changes the level of every logger created by New.
// Unknown names fall back to info.
func SetLevel(name string) {
	level.Set(ParseLevel(name))
}

func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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
