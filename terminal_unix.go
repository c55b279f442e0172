//go:build !windows

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"
)

// setProcAttr sets Unix-specific process attributes for TTY support
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true, // Create new session (TTY requirement)
		Setctty: true, // Make this the controlling terminal
	}
}

// killProcessGroup terminates the process and its children using Unix signals.
// Since we used Setsid, killing the negative PID targets the entire session group.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil || cmd.Process.Pid <= 0 {
		return
	}

	// SIGHUP is what the session would get if its terminal went away
	syscall.Kill(-cmd.Process.Pid, syscall.SIGHUP)

	time.Sleep(100 * time.Millisecond)

	cmd.Process.Signal(syscall.SIGTERM)
	time.Sleep(50 * time.Millisecond)
	cmd.Process.Kill()
}

// isPTYClosed reports whether a read error from the PTY master means the
// slave side has been closed. Linux returns EIO here rather than EOF.
func isPTYClosed(err error) bool {
	return errors.Is(err, syscall.EIO)
}

// watchResize keeps the PTY size in step with the user's terminal until ctx
// is done. onResize, if not nil, is called with the new size.
func watchResize(ctx context.Context, from *os.File, t *Terminal, onResize func(rows, cols int), logger *slog.Logger) {
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)

	go func() {
		defer signal.Stop(winch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-winch:
				if err := t.InheritSize(from); err != nil {
					logger.Debug("resize pty", "error", err)
					continue
				}
				if onResize == nil {
					continue
				}
				if rows, cols, err := t.Size(); err == nil && rows > 0 && cols > 0 {
					onResize(rows, cols)
				}
			}
		}
	}()
}

// terminationSignals are the signals that end a session early.
var terminationSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}
