// Package logger builds the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Level defaults to info;
// CERTPASS_LOG_LEVEL=debug lowers it.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("CERTPASS_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
