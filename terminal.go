package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"
)

// Terminal is a program running on the slave side of a PTY. Reads return
// what the program writes to its terminal; writes arrive as its keyboard
// input.
type Terminal struct {
	ptmx *os.File
	cmd  *exec.Cmd

	mu     sync.Mutex
	exited bool
}

// sessionEnvironment returns the environment for the hosted program. It is
// the caller's environment, with a TERM fallback for callers that have none
// (cron, a service manager) so the program still emits escape sequences.
func sessionEnvironment() []string {
	env := os.Environ()
	for _, e := range env {
		if strings.HasPrefix(e, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}

// StartTerminal starts argv[0] with arguments argv[1:] attached to a new
// PTY. The program is looked up in PATH.
func StartTerminal(argv []string) (*Terminal, error) {
	if len(argv) == 0 {
		return nil, errors.New("no program given")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = sessionEnvironment()
	setProcAttr(cmd)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	return &Terminal{ptmx: ptmx, cmd: cmd}, nil
}

// Pid returns the process id of the hosted program.
func (t *Terminal) Pid() int {
	return t.cmd.Process.Pid
}

// Read reads program output. The PTY master reports EIO once the program
// and everything else holding the slave side has gone; that is returned as
// io.EOF.
func (t *Terminal) Read(p []byte) (int, error) {
	n, err := t.ptmx.Read(p)
	if err != nil && isPTYClosed(err) {
		err = io.EOF
	}
	return n, err
}

// Write sends input to the program.
func (t *Terminal) Write(p []byte) (int, error) {
	return t.ptmx.Write(p)
}

// Resize changes the PTY window size
func (t *Terminal) Resize(rows, cols int) error {
	ws := &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	}
	return pty.Setsize(t.ptmx, ws)
}

// InheritSize copies the window size of the user's terminal to the PTY.
func (t *Terminal) InheritSize(from *os.File) error {
	return pty.InheritSize(from, t.ptmx)
}

// Size returns the PTY window size as rows and columns.
func (t *Terminal) Size() (rows, cols int, err error) {
	return pty.Getsize(t.ptmx)
}

// Wait waits for the program to exit and returns its exit code. A program
// killed by a signal reports 1.
func (t *Terminal) Wait() (int, error) {
	err := t.cmd.Wait()

	t.mu.Lock()
	t.exited = true
	t.mu.Unlock()

	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			code = 1
		}
		return code, nil
	}
	return 1, fmt.Errorf("wait for program: %w", err)
}

// Kill terminates the program and its session if it is still running.
func (t *Terminal) Kill() {
	t.mu.Lock()
	exited := t.exited
	t.mu.Unlock()

	if !exited {
		killProcessGroup(t.cmd)
	}
}

// Close kills the program if needed and closes the PTY master.
func (t *Terminal) Close() error {
	t.Kill()
	return t.ptmx.Close()
}
