package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setTempConfigPath sets configPathOverride to a temp directory and registers cleanup.
// Returns the temp directory path (the parent of the fake config file).
func setTempConfigPath(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPathOverride = filepath.Join(tmpDir, "config.json")
	t.Cleanup(func() {
		configPathOverride = ""
	})
	return tmpDir
}
