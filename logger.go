package main

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates the diagnostic logger. Output to a terminal uses the
// text handler; files and pipes get JSON. verbose lowers the level from
// WARN to DEBUG.
//
// Diagnostics never go to the transcript, and while the session holds the
// terminal in raw mode only warnings reach stderr unless --log-file moves
// them elsewhere.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}
