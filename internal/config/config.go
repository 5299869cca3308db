// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/jeranaias/ochat/internal/ollama"
	"github.com/jeranaias/ochat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ochat configuration.
type Config struct {
	// Model is the model identifier sent with every request.
	Model string `toml:"model"`

	// Endpoint is the full chat URL, e.g. http://localhost:11434/api/chat.
	Endpoint string `toml:"endpoint"`

	// Stream selects newline-delimited streaming replies.
	Stream bool `toml:"stream"`

	// SystemPrompt seeds every new conversation when non-empty.
	SystemPrompt string `toml:"system_prompt"`

	// TurnTimeoutSecs bounds one request/reply cycle. 0 disables the limit.
	TurnTimeoutSecs int `toml:"turn_timeout_secs"`

	// ShowStats prints token counts and speed after each reply.
	ShowStats bool `toml:"show_stats"`

	// HistoryFile stores REPL input history. Empty disables it.
	HistoryFile string `toml:"history_file"`

	Log LogConfig `toml:"log"`

	// Options are sent unvalidated; only keys present in the file are sent.
	Options ollama.Options `toml:"options"`
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	Level  string `toml:"level"`  // trace, debug, info, warn, error, disabled
	Format string `toml:"format"` // console or json
	File   string `toml:"file"`   // empty means stderr
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Model:    ollama.DefaultModel,
		Endpoint: ollama.DefaultEndpoint,
		Stream:   true,
		Log: LogConfig{
			Level:  "error",
			Format: "console",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ochat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ochat"), nil
}

// ConfigPath returns the path to the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultHistoryPath returns where REPL history is kept unless configured.
func DefaultHistoryPath() string {
	dir, err := ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "history")
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from path, or from the default location when
// path is empty. A missing default file is not an error; a missing explicit
// file is. Environment overrides are applied last, then the result is
// validated.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the file at path over cfg. Keys missing from the file
// keep their current values.
func LoadTOML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// fillDefaults fills in values the file set to empty.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
}

// =============================================================================
// SAVE
// =============================================================================

const fileHeader = `# ochat configuration file
#
# [options] takes any Ollama generation option, e.g.
#   temperature = 0.8
#   num_ctx = 4096
#   stop = ["###"]

`

// Encode renders cfg as TOML with the file header.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveTOML writes cfg to path with 0600 permissions, creating parent
// directories as needed.
func SaveTOML(cfg *Config, path string) error {
	data, err := cfg.Encode()
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the settings ochat itself interprets. Generation options
// are passed through untouched.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, ValidationError{Field: "model", Message: "must not be empty"})
	}

	if u, err := url.Parse(c.Endpoint); err != nil {
		errs = append(errs, ValidationError{Field: "endpoint", Message: fmt.Sprintf("invalid URL: %v", err)})
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "endpoint",
			Message: fmt.Sprintf("'%s' must be an absolute http or https URL", c.Endpoint),
		})
	}

	if c.TurnTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "turn_timeout_secs",
			Message: fmt.Sprintf("must be >= 0, got %d", c.TurnTimeoutSecs),
		})
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Log.Level),
		})
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: console, json", c.Log.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - OCHAT_MODEL: overrides model
//   - OCHAT_ENDPOINT: overrides endpoint
//   - OCHAT_LOG_LEVEL: overrides log.level
//   - OCHAT_STREAM: overrides stream ("1"/"true" or "0"/"false")
func (c *Config) ApplyEnvOverrides() {
	if model := os.Getenv("OCHAT_MODEL"); model != "" {
		c.Model = model
	}

	if endpoint := os.Getenv("OCHAT_ENDPOINT"); endpoint != "" {
		c.Endpoint = endpoint
	}

	if level := os.Getenv("OCHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}

	if stream := os.Getenv("OCHAT_STREAM"); stream != "" {
		if v, err := strconv.ParseBool(stream); err == nil {
			c.Stream = v
		}
	}
}
