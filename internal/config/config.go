// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for loom.
//
// Configuration lives in TOML at ~/.loom/config.toml, with sensible
// defaults, environment variable overrides, and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete loom configuration.
type Config struct {
	// General settings
	Version string `toml:"version"`

	// Provider configuration
	Provider ProviderConfig `toml:"provider"`

	// Chat behavior configuration
	Chat ChatConfig `toml:"chat"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ProviderConfig selects the upstream LLM provider and model.
type ProviderConfig struct {
	// Default is the provider used at startup: "openai", "groq",
	// "openrouter", "perplexity"
	Default string `toml:"default"`
	// Model is the model identifier sent to the provider (empty = the
	// provider's default model)
	Model string `toml:"model"`
	// TimeoutSecs bounds a single streaming request
	TimeoutSecs int `toml:"timeout_secs"`
	// RequestsPerMinute rate-limits outgoing chat requests (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// ChatConfig contains chat behavior configuration.
type ChatConfig struct {
	// MultiAgent routes each prompt through the multi-agent pipeline
	MultiAgent bool `toml:"multi_agent"`
	// HistoryLimit caps messages replayed on session switch (0 = all)
	HistoryLimit int `toml:"history_limit"`
	// UploadDir overrides the attachment directory (empty = ~/.loom/uploads)
	UploadDir string `toml:"upload_dir"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// ShowSidebar displays the checkpoint rail at startup
	ShowSidebar bool `toml:"show_sidebar"`
	// WrapWidth caps rendered message width (0 = follow terminal)
	WrapWidth int `toml:"wrap_width"`
	// MouseEnabled turns on mouse wheel scrolling
	MouseEnabled bool `toml:"mouse_enabled"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Provider: ProviderConfig{
			Default:           "openai",
			Model:             "",
			TimeoutSecs:       120,
			RequestsPerMinute: 20,
		},

		Chat: ChatConfig{
			MultiAgent:   false,
			HistoryLimit: 0,
		},

		UI: UIConfig{
			Theme:        "dark",
			ShowSidebar:  true,
			WrapWidth:    0,
			MouseEnabled: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// AppDir returns the loom application directory path.
func AppDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".loom"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureAppDir ensures the application directory exists.
func EnsureAppDir() error {
	dir, err := AppDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on the config file.
// Config may hold API keys, so anything looser than 0600 gets tightened.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file, falling back to
// defaults when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation. A missing file is not an error; defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# loom configuration file")
	fmt.Fprintln(file, "# Generated by loom - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// validProviders are the upstream providers loom knows how to talk to.
var validProviders = map[string]bool{
	"openai":     true,
	"groq":       true,
	"openrouter": true,
	"perplexity": true,
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if !validProviders[strings.ToLower(c.Provider.Default)] {
		errs = append(errs, ValidationError{
			Field:   "provider.default",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: openai, groq, openrouter, perplexity", c.Provider.Default),
		})
	}

	if c.Provider.TimeoutSecs < 1 || c.Provider.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "provider.timeout_secs",
			Message: fmt.Sprintf("must be 1-600 seconds, got %d", c.Provider.TimeoutSecs),
		})
	}

	if c.Provider.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "provider.requests_per_minute",
			Message: "cannot be negative",
		})
	}

	if c.Chat.HistoryLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.history_limit",
			Message: "cannot be negative",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if c.UI.WrapWidth < 0 {
		errs = append(errs, ValidationError{
			Field:   "ui.wrap_width",
			Message: "cannot be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills in any missing or zero-value configuration fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Provider.Default == "" {
		c.Provider.Default = defaults.Provider.Default
	}
	if c.Provider.TimeoutSecs == 0 {
		c.Provider.TimeoutSecs = defaults.Provider.TimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// Timeout returns the provider request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSecs) * time.Second
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - DEFAULT_PROVIDER: overrides provider.default
//   - LOOM_MODEL: overrides provider.model
//   - LOOM_THEME: overrides ui.theme
//   - LOOM_MULTI_AGENT: set to "1" or "true" to enable multi-agent mode
//   - LOOM_UPLOAD_DIR: overrides chat.upload_dir
func (c *Config) ApplyEnvOverrides() {
	if provider := os.Getenv("DEFAULT_PROVIDER"); provider != "" {
		c.Provider.Default = strings.ToLower(provider)
	}

	if model := os.Getenv("LOOM_MODEL"); model != "" {
		c.Provider.Model = model
	}

	if theme := os.Getenv("LOOM_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	if multi := os.Getenv("LOOM_MULTI_AGENT"); multi != "" {
		c.Chat.MultiAgent = multi == "1" || strings.ToLower(multi) == "true"
	}

	if dir := os.Getenv("LOOM_UPLOAD_DIR"); dir != "" {
		c.Chat.UploadDir = dir
	}
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
