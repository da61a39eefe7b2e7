package sqlmap

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
)

// Logger returns the package logger. Its level comes from the LOG_LEVEL
// environment variable (debug, info, warn, error); the default is info.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		logger = NewLogger(os.Getenv("LOG_LEVEL"))
	})
	return logger
}

// NewLogger returns a text logger writing to stderr at the named level.
func NewLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(s string) slog.Level {
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
