package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// defaultTranscript is where the transcript goes when neither the config
// nor -o names a file. It is relative to the working directory.
const defaultTranscript = ".ttylog"

// Config holds the optional settings file. Every field has a usable zero
// value; flags override anything set here.
type Config struct {
	Transcript        string  `json:"transcript,omitempty"`
	ChunkSize         int     `json:"chunk_size,omitempty"`
	WatchAddr         string  `json:"watch_addr,omitempty"`
	WatchPasswordHash string  `json:"watch_password_hash,omitempty"`
	BotToken          string  `json:"bot_token,omitempty"`
	NotifyChats       []int64 `json:"notify_chats,omitempty"`
}

// configPathOverride allows tests to redirect config to a temp directory
var configPathOverride string

func getConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ttylog", "config.json")
}

// loadConfig reads the config file. The file may contain // and /* */
// comments and trailing commas. A missing file is not an error.
func loadConfig() (*Config, error) {
	path := getConfigPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var config Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &config); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if config.ChunkSize < 0 {
		return nil, fmt.Errorf("parse config %s: chunk_size must not be negative", path)
	}
	return &config, nil
}

func saveConfig(config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	path := getConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
