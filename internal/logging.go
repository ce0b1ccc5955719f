package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the operational logger writing to an append-opened log
// file. When the file cannot be opened, it falls back to stderr instead of
// failing: the logger must never take the process down with it.
func NewLogger(path, level string) *slog.Logger {
	out := io.Writer(os.Stderr)
	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open log file %s, logging to stderr: %v\n", path, err)
		} else {
			out = file
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps a config string to a slog level, defaulting to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
