// Copyright (C) 2025 the deskhand authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package config owns the persisted application settings, most
// importantly the user-authorized allowed directory set.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config represents the application configuration.
type Config struct {
	AllowedDirectories   []string       `json:"allowed_directories"`
	ConfirmationRequired bool           `json:"confirmation_required"`
	HistoryFile          string         `json:"history_file,omitempty"`
	Agent                AgentSettings  `json:"agent,omitempty"`
	Intent               IntentSettings `json:"intent,omitempty"`
}

// AgentSettings configures how the worker agent is reached and started.
type AgentSettings struct {
	BaseURL             string `json:"base_url,omitempty"`
	Command             string `json:"command,omitempty"`
	Script              string `json:"script,omitempty"`
	Dir                 string `json:"dir,omitempty"`
	ProbeTimeoutSeconds int    `json:"probe_timeout_seconds,omitempty"`
	PollIntervalMillis  int    `json:"poll_interval_ms,omitempty"`
	PollAttempts        int    `json:"poll_attempts,omitempty"`
}

// ProbeTimeout returns the health probe timeout as a duration.
func (a AgentSettings) ProbeTimeout() time.Duration {
	return time.Duration(a.ProbeTimeoutSeconds) * time.Second
}

// PollInterval returns the startup poll interval as a duration.
func (a AgentSettings) PollInterval() time.Duration {
	return time.Duration(a.PollIntervalMillis) * time.Millisecond
}

// IntentSettings configures the natural-language intent backend.
type IntentSettings struct {
	APIKey string `json:"api_key,omitempty"`
	APIURL string `json:"api_url,omitempty"`
	Model  string `json:"model,omitempty"`
}

// DefaultConfig returns a config with default values. The default
// allowlist covers the user's Desktop, Documents and Downloads folders.
func DefaultConfig() *Config {
	cfg := &Config{
		ConfirmationRequired: true,
		HistoryFile:          ".deskhand_history",
		Agent: AgentSettings{
			BaseURL:             "http://localhost:8765",
			Command:             defaultAgentCommand(),
			Script:              "server.py",
			ProbeTimeoutSeconds: 2,
			PollIntervalMillis:  500,
			PollAttempts:        30,
		},
		Intent: IntentSettings{
			Model: "gpt-4o-mini",
		},
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.AllowedDirectories = []string{
			filepath.Join(home, "Desktop"),
			filepath.Join(home, "Documents"),
			filepath.Join(home, "Downloads"),
		}
	}
	return cfg
}

func defaultAgentCommand() string {
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

// DefaultPath returns the default config file location under the user
// config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "deskhand", "config.json"), nil
}

// Load reads the config file at path. A missing file yields the default
// config, persisted so the user has something to edit. Unknown keys are
// rejected so typos do not silently disable settings.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
