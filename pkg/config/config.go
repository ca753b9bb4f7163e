// Package config handles loading and saving pick configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/pick/config.yaml
//   - State:   ~/.local/state/pick/ (selection history)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/pick/pkg/hooks"
)

// Source describes where candidates come from.
type Source struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Format string `yaml:"format,omitempty"` // lines, json, jsonl, yaml, sqlite; empty = by extension
	Field  string `yaml:"field,omitempty"`  // object field holding the label (json, jsonl, yaml)
	Query  string `yaml:"query,omitempty"`  // sqlite only, must return one text column
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	Prompt      string `yaml:"prompt,omitempty"`
	Placeholder string `yaml:"placeholder,omitempty"`
	Width       int    `yaml:"width,omitempty"` // Widget width in cells (0 = fit terminal)
	Mouse       *bool  `yaml:"mouse,omitempty"`
	AltScreen   *bool  `yaml:"alt_screen,omitempty"`
}

// HistoryConfig controls the selection history store.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Limit   int    `yaml:"limit,omitempty"` // Rows kept per source
	Path    string `yaml:"path,omitempty"`  // Default: StateDir()/history.db
}

// Config is the top-level configuration for pick.
type Config struct {
	UI      UIConfig           `yaml:"ui,omitempty"`
	Sources []Source           `yaml:"sources,omitempty"`
	History HistoryConfig      `yaml:"history,omitempty"`
	Hooks   hooks.HooksByPhase `yaml:"hooks,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			Prompt:      "> ",
			Placeholder: "type to filter...",
		},
		History: HistoryConfig{
			Limit: 200,
		},
	}
}

// MouseEnabled reports whether mouse support is on (default true).
func (c Config) MouseEnabled() bool {
	return c.UI.Mouse == nil || *c.UI.Mouse
}

// AltScreenEnabled reports whether the picker takes the whole screen
// (default true).
func (c Config) AltScreenEnabled() bool {
	return c.UI.AltScreen == nil || *c.UI.AltScreen
}

// HistoryEnabled reports whether selections are recorded (default true).
func (c Config) HistoryEnabled() bool {
	return c.History.Enabled == nil || *c.History.Enabled
}

// HistoryPath returns where the history database lives.
func (c Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "history.db")
}

// ConfigDir returns the XDG config directory for pick.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "pick")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pick")
}

// StateDir returns the XDG state directory for pick.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "pick")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "pick")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	for i := range cfg.Sources {
		cfg.Sources[i].Path = expandHome(cfg.Sources[i].Path)
	}
	cfg.History.Path = expandHome(cfg.History.Path)
	if cfg.History.Limit <= 0 {
		cfg.History.Limit = DefaultConfig().History.Limit
	}
	cfg.Hooks = hooks.Normalize(cfg.Hooks)

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindSource returns the source with the given name, or nil.
func (c Config) FindSource(name string) *Source {
	for i := range c.Sources {
		if strings.EqualFold(c.Sources[i].Name, name) {
			return &c.Sources[i]
		}
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
