// Package hooks runs user commands when a value is picked.
// Hooks are configured under hooks.on-select in the pick config file or in
// .pick/hooks.yaml in the working directory.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HookPhase represents when a hook runs
type HookPhase string

const (
	// OnSelect runs after the user confirmed a value.
	OnSelect HookPhase = "on-select"
)

// Error handling modes for a hook.
const (
	OnErrorFail     = "fail"
	OnErrorContinue = "continue"
)

// Hook defines a single hook configuration
type Hook struct {
	Name    string            `yaml:"name" json:"name"`                             // Human-readable name
	Command string            `yaml:"command" json:"command"`                       // Shell command to run
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`   // Execution timeout (default: 30s)
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`           // Additional environment variables
	OnError string            `yaml:"on_error,omitempty" json:"on_error,omitempty"` // "fail" or "continue" (default)
}

// Config holds all hook configurations
type Config struct {
	Hooks HooksByPhase `yaml:"hooks" json:"hooks"`
}

// HooksByPhase organizes hooks by their execution phase
type HooksByPhase struct {
	OnSelect []Hook `yaml:"on-select,omitempty" json:"on-select,omitempty"`
}

// SelectContext contains information passed to hooks via environment variables
type SelectContext struct {
	Value     string    // PICK_VALUE: the picked value
	Source    string    // PICK_SOURCE: name of the source it came from
	Timestamp time.Time // PICK_TIMESTAMP: selection time (RFC3339)
}

// ToEnv converts the selection context to environment variables
func (c SelectContext) ToEnv() []string {
	return []string{
		fmt.Sprintf("PICK_VALUE=%s", c.Value),
		fmt.Sprintf("PICK_SOURCE=%s", c.Source),
		fmt.Sprintf("PICK_TIMESTAMP=%s", c.Timestamp.Format(time.RFC3339)),
	}
}

// DefaultTimeout is the default hook execution timeout
const DefaultTimeout = 30 * time.Second

// Loader loads hook configuration from .pick/hooks.yaml
type Loader struct {
	projectDir string
	config     *Config
	warnings   []string
}

// LoaderOption configures the loader
type LoaderOption func(*Loader)

// WithProjectDir sets the project directory (default: current directory)
func WithProjectDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.projectDir = dir
	}
}

// NewLoader creates a new hook loader with options
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}

	for _, opt := range opts {
		opt(l)
	}

	if l.projectDir == "" {
		l.projectDir, _ = os.Getwd()
	}

	return l
}

// Load loads hook configuration from .pick/hooks.yaml
func (l *Loader) Load() error {
	configPath := filepath.Join(l.projectDir, ".pick", "hooks.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file means no hooks - this is OK
			l.config = &Config{}
			return nil
		}
		return fmt.Errorf("reading hooks config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing %s: %w", configPath, err)
	}

	config.Hooks.OnSelect, l.warnings = normalizeHooks(config.Hooks.OnSelect, OnSelect, l.warnings)

	l.config = &config
	return nil
}

// Normalize applies defaults to hooks read from another file (the main
// config). Hooks with an empty command are dropped.
func Normalize(h HooksByPhase) HooksByPhase {
	h.OnSelect, _ = normalizeHooks(h.OnSelect, OnSelect, nil)
	return h
}

// normalizeHooks applies defaults, drops empty commands, and accumulates warnings.
func normalizeHooks(hooks []Hook, phase HookPhase, warnings []string) ([]Hook, []string) {
	var out []Hook
	for i := range hooks {
		hook := hooks[i]
		if strings.TrimSpace(hook.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if hook.Timeout == 0 {
			hook.Timeout = DefaultTimeout
		}
		if hook.OnError == "" {
			hook.OnError = OnErrorContinue
		}
		if hook.Name == "" {
			hook.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		out = append(out, hook)
	}
	return out, warnings
}

// Config returns the loaded configuration (or empty if not loaded)
func (l *Loader) Config() *Config {
	if l.config == nil {
		return &Config{}
	}
	return l.config
}

// HasHooks returns true if any hooks are configured
func (l *Loader) HasHooks() bool {
	if l.config == nil {
		return false
	}
	return len(l.config.Hooks.OnSelect) > 0
}

// Warnings returns any warnings from loading
func (l *Loader) Warnings() []string {
	return l.warnings
}

// Merge appends hooks from the main config after the project-local ones.
func (l *Loader) Merge(extra HooksByPhase) {
	if l.config == nil {
		l.config = &Config{}
	}
	l.config.Hooks.OnSelect = append(l.config.Hooks.OnSelect, Normalize(extra).OnSelect...)
}

// MarshalYAML writes Timeout in Go duration syntax so the file can be read
// back by UnmarshalYAML.
func (h Hook) MarshalYAML() (any, error) {
	type hookDTO struct {
		Name    string            `yaml:"name,omitempty"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
	}
	dto := hookDTO{Name: h.Name, Command: h.Command, Env: h.Env, OnError: h.OnError}
	if h.Timeout > 0 {
		dto.Timeout = h.Timeout.String()
	}
	return dto, nil
}

// UnmarshalYAML implements custom YAML unmarshalling for Duration
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	// WARNING: This struct must match Hook definition exactly, except for Timeout which is string.
	// If you add a field to Hook, you MUST add it here too.
	type hookDTO struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
	}

	var dto hookDTO
	if err := node.Decode(&dto); err != nil {
		return err
	}

	h.Name = dto.Name
	h.Command = dto.Command
	h.Env = dto.Env
	h.OnError = dto.OnError

	if dto.Timeout != "" {
		d, err := time.ParseDuration(dto.Timeout)
		if err == nil {
			h.Timeout = d
		} else {
			// "timeout: 30" arrives as the string "30"; treat bare numbers as seconds.
			var seconds float64
			if _, scanErr := fmt.Sscanf(dto.Timeout, "%f", &seconds); scanErr == nil {
				h.Timeout = time.Duration(seconds * float64(time.Second))
			} else {
				return fmt.Errorf("invalid timeout %q: %w", dto.Timeout, err)
			}
		}
	}

	return nil
}
