//go:build windows

package main

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// setProcAttr is a no-op on Windows; ConPTY handles terminal setup
func setProcAttr(cmd *exec.Cmd) {}

// killProcessGroup terminates the process tree on Windows using taskkill
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	// taskkill /F (force) /T (whole tree) /PID <pid>
	kill := exec.Command("taskkill", "/F", "/T", "/PID",
		strconv.Itoa(cmd.Process.Pid))
	kill.Run()

	time.Sleep(100 * time.Millisecond)

	cmd.Process.Kill()
}

func isPTYClosed(err error) bool {
	return false
}

// watchResize is a no-op: there is no SIGWINCH on Windows.
func watchResize(ctx context.Context, from *os.File, t *Terminal, onResize func(rows, cols int), logger *slog.Logger) {}

var terminationSignals = []os.Signal{os.Interrupt}
