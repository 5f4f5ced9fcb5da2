// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	appName        = "voicedrop"
	configFileName = "config.json"
)

// Defaults applied when the config file is missing or a field is empty.
const (
	DefaultModel    = "google/gemini-2.5-flash"
	DefaultShortcut = "Ctrl+Shift+V"
	DefaultProvider = "openrouter"
)

// Config represents the application configuration.
type Config struct {
	APIKey      string `json:"api_key"`
	AudioDevice string `json:"audio_device,omitempty"` // empty selects the system default input
	Model       string `json:"model"`
	Shortcut    string `json:"shortcut"`
	Provider    string `json:"provider"`
	WhisperURL  string `json:"whisper_url,omitempty"`

	Notifications  bool `json:"notifications"`
	HistoryEnabled bool `json:"history_enabled"`

	// path is where this config was loaded from; Save writes back to it.
	path string
}

// Load loads configuration from the default config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultConfig()
			cfg.path = path
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.path = path
	cfg.fillDefaults()

	return cfg, nil
}

// Save persists the configuration to the path it was loaded from.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := configPath()
		if err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// DataDir returns the directory for application state such as the
// transcription history, creating it if necessary.
func DataDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	path := filepath.Join(dir, appName)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return path, nil
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

func defaultConfig() *Config {
	return &Config{
		Model:          DefaultModel,
		Shortcut:       DefaultShortcut,
		Provider:       DefaultProvider,
		Notifications:  true,
		HistoryEnabled: true,
	}
}

// fillDefaults restores required fields a hand-edited file may have
// blanked out. Boolean settings are left as written.
func (c *Config) fillDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Shortcut == "" {
		c.Shortcut = DefaultShortcut
	}
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
}
