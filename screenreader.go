package main

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/x/vt"
)

// ScreenReader wraps a virtual terminal emulator that follows the session's
// display output, so the screen the program last painted can be read back
// as plain text when the session ends.
type ScreenReader struct {
	emu *vt.SafeEmulator

	drained   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewScreenReader creates a virtual terminal with the given dimensions.
// Dimensions should match the PTY size for correct cursor positioning.
func NewScreenReader(cols, rows int) *ScreenReader {
	sr := &ScreenReader{
		emu:     vt.NewSafeEmulator(cols, rows),
		drained: make(chan struct{}),
	}

	// The emulator answers terminal queries (device attributes, cursor
	// position) on its read side. Nobody consumes those answers here, and
	// an unread answer would stall Write.
	go func() {
		defer close(sr.drained)
		io.Copy(io.Discard, sr.emu)
	}()

	return sr
}

// Close stops draining emulator replies and waits for the drain to end.
// Screen still works afterwards. Safe to call more than once.
func (sr *ScreenReader) Close() error {
	sr.closeOnce.Do(func() {
		// Emulator.Close sets a flag that Read checks without a lock;
		// closing the reply pipe ends Read with EOF instead.
		if c, ok := sr.emu.InputPipe().(io.Closer); ok {
			sr.closeErr = c.Close()
			<-sr.drained
		}
	})
	return sr.closeErr
}

// Write feeds raw PTY output into the virtual terminal. It never fails, so
// it can sit behind a display tee without ending the session.
func (sr *ScreenReader) Write(data []byte) (int, error) {
	sr.emu.Write(data)
	return len(data), nil
}

// Screen returns the current screen content as plain text.
// Trailing whitespace is trimmed from each line and trailing empty lines
// are removed. This is what a human would see on a terminal.
func (sr *ScreenReader) Screen() string {
	raw := sr.emu.String()

	lines := strings.Split(raw, "\n")
	lastNonEmpty := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimRight(lines[i], " \t\r") != "" {
			lastNonEmpty = i
			break
		}
	}

	if lastNonEmpty < 0 {
		return ""
	}

	trimmed := make([]string, lastNonEmpty+1)
	for i := 0; i <= lastNonEmpty; i++ {
		trimmed[i] = strings.TrimRight(lines[i], " \t\r")
	}

	return strings.Join(trimmed, "\n")
}

// tailLines returns the last n lines of s, or all of s when n <= 0.
func tailLines(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Resize changes the virtual terminal dimensions.
func (sr *ScreenReader) Resize(cols, rows int) {
	sr.emu.Resize(cols, rows)
}
