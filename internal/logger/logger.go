// Package logger builds the structured logger shared by every service
// binary: slog backed by tint for readable console output, used across
// every cmd/*/main.go.
package logger

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// New builds a tint-backed slog.Logger writing to stderr. verbose selects
// debug-level output; otherwise info-level.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
	})
	return slog.New(handler)
}
