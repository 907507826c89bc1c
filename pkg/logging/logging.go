// Package logging builds the process-wide slog handler.
//
// Formats:
//
//	json: one JSON object per line on stdout (default)
//	text: colored, human-readable output on stderr via tint
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Log formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New returns a logger writing in format at level. An unknown format falls
// back to JSON.
func New(format string, level slog.Level) *slog.Logger {
	if strings.EqualFold(format, FormatText) {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return newJSON(os.Stdout, level)
}

// Setup installs New(format, level) as the default logger and returns it.
func Setup(format string, level slog.Level) *slog.Logger {
	logger := New(format, level)
	slog.SetDefault(logger)
	return logger
}

// Discard returns a logger that drops everything. Handy in tests and for the
// MCP stdio mode, where stdout belongs to the protocol.
func Discard() *slog.Logger {
	return newJSON(io.Discard, slog.LevelError)
}

func newJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
