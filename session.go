package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"
)

// SessionOptions configures one recorded session.
type SessionOptions struct {
	// Command is the program and its arguments, passed through unmodified.
	Command []string

	// TranscriptPath is opened for appending and created if missing.
	TranscriptPath string

	// ChunkSize is the read size of the output loop. Zero means
	// DefaultChunkSize.
	ChunkSize int

	// ScreenPath, if set, receives the final screen as plain text.
	ScreenPath string

	// Stdin and Stdout are the user's side of the session. When Stdin is a
	// terminal it is put in raw mode for the session and its size is
	// followed.
	Stdin  io.Reader
	Stdout io.Writer

	// Watch, if set, receives a copy of everything sent to Stdout. It is
	// closed at the end of the session when it is an io.Closer.
	Watch io.Writer

	// Notifier, if set, is told about the session when it ends.
	Notifier Notifier

	Logger *slog.Logger
}

// SessionResult describes how a session ended.
type SessionResult struct {
	ID              string
	ExitCode        int
	Duration        time.Duration
	TranscriptBytes int64
	Screen          string
}

// OpenTranscript opens path for appending, creating it if needed. Existing
// content is never truncated.
func OpenTranscript(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open transcript %s: %w", path, err)
	}
	return f, nil
}

// countingWriter counts bytes that reached w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// RunSession runs the program on a PTY, relays the user's input to it and
// its output to Stdout, and transcodes the output into the transcript. It
// returns when the program's output ends, or after ctx is cancelled and
// the program has been killed.
//
// The returned error is a transport failure; the program's own exit status
// is in SessionResult.ExitCode.
func RunSession(ctx context.Context, opts SessionOptions) (SessionResult, error) {
	result := SessionResult{ID: uuid.NewString()}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("session", result.ID)

	transcript, err := OpenTranscript(opts.TranscriptPath)
	if err != nil {
		return result, err
	}
	defer transcript.Close()

	terminal, err := StartTerminal(opts.Command)
	if err != nil {
		return result, err
	}
	defer terminal.Close()

	started := time.Now()
	logger.Debug("program started", "pid", terminal.Pid(), "command", opts.Command,
		"transcript", opts.TranscriptPath)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-runCtx.Done()
		if ctx.Err() != nil {
			logger.Warn("session interrupted, stopping program", "cause", context.Cause(ctx))
			terminal.Kill()
		}
	}()

	var screen *ScreenReader
	if opts.ScreenPath != "" || opts.Notifier != nil {
		rows, cols, err := terminal.Size()
		if err != nil || rows == 0 || cols == 0 {
			rows, cols = 24, 80
		}
		screen = NewScreenReader(cols, rows)
		defer screen.Close()
	}

	var raw *rawMode
	if f, ok := opts.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if err := terminal.InheritSize(f); err != nil {
			logger.Debug("copy window size", "error", err)
		}
		if screen != nil {
			if rows, cols, err := terminal.Size(); err == nil && rows > 0 && cols > 0 {
				screen.Resize(cols, rows)
			}
		}
		var onResize func(rows, cols int)
		if screen != nil {
			onResize = func(rows, cols int) { screen.Resize(cols, rows) }
		}
		watchResize(runCtx, f, terminal, onResize, logger)

		raw, err = enterRawMode(int(f.Fd()))
		if err != nil {
			return result, err
		}
		defer raw.Restore()
	}

	display := []io.Writer{opts.Stdout}
	if screen != nil {
		display = append(display, screen)
	}
	if opts.Watch != nil {
		display = append(display, opts.Watch)
	}

	counter := &countingWriter{w: transcript}
	transcoder := NewTranscoder(counter)

	outputDone := make(chan error, 1)
	go func() {
		outputDone <- RelayOutput(terminal, transcoder, io.MultiWriter(display...), opts.ChunkSize)
	}()

	inputDone := make(chan error, 1)
	go func() {
		inputDone <- RelayInput(opts.Stdin, terminal)
	}()

	var sessionErr error
	select {
	case sessionErr = <-outputDone:
	case inErr := <-inputDone:
		// Input running dry is normal (piped stdin); the session lasts as
		// long as the program's output. A broken input stream is not.
		if inErr != nil && !isPTYClosed(inErr) {
			sessionErr = inErr
			terminal.Kill()
		}
		if outErr := <-outputDone; sessionErr == nil {
			sessionErr = outErr
		}
	}
	if sessionErr != nil {
		terminal.Kill()
	}

	exitCode, waitErr := terminal.Wait()
	if sessionErr == nil {
		sessionErr = waitErr
	}
	result.ExitCode = exitCode
	result.Duration = time.Since(started)
	result.TranscriptBytes = counter.n

	if err := raw.Restore(); err != nil {
		logger.Warn("terminal mode not restored", "error", err)
	}

	logger.Debug("program exited", "exit_code", exitCode, "duration", result.Duration,
		"transcript_bytes", result.TranscriptBytes)

	if screen != nil {
		result.Screen = screen.Screen()
		if opts.ScreenPath != "" {
			if err := os.WriteFile(opts.ScreenPath, []byte(result.Screen+"\n"), 0644); err != nil {
				logger.Warn("write screen snapshot", "path", opts.ScreenPath, "error", err)
			}
		}
	}

	if c, ok := opts.Watch.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("close watch mirror", "error", err)
		}
	}

	if opts.Notifier != nil {
		summary := SessionSummary{
			ID:         result.ID,
			Command:    opts.Command,
			ExitCode:   exitCode,
			Duration:   result.Duration,
			Transcript: opts.TranscriptPath,
			Screen:     tailLines(result.Screen, screenTailLines),
			Err:        sessionErr,
		}
		if err := opts.Notifier.Notify(summary); err != nil {
			logger.Warn("session notification failed", "error", err)
		}
	}

	return result, sessionErr
}
