// Package logger builds the slog instances used across both binaries.
package logger

import (
	"io"
	"log/slog"
)

// New returns a text-handler logger writing to w. Debug switches the level
// from Info to Debug.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
