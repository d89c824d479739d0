// Package config handles configuration loading and validation for livepad.
//
// Values are resolved in tiers: command-line flags override environment
// variables, which override the YAML config file, which overrides defaults.
// Flags are applied by the caller; this package handles the rest.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/patrickward/livepad/internal/logging"
	"github.com/patrickward/livepad/internal/scrollsync"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "LIVEPAD_"

// Config holds the application configuration.
type Config struct {
	Addr       string           `yaml:"addr"`
	Port       int              `yaml:"port"`
	DataDir    string           `yaml:"data_dir"`
	LogLevel   string           `yaml:"log_level"`
	LogFile    string           `yaml:"log_file"`
	Sync       SyncConfig       `yaml:"sync"`
	Encryption EncryptionConfig `yaml:"encryption"`
}

// SyncConfig holds the scroll sync delays. Durations are written the way
// time.ParseDuration reads them, e.g. "150ms".
type SyncConfig struct {
	EditorDebounce    time.Duration `yaml:"editor_debounce"`
	RebuildSettle     time.Duration `yaml:"rebuild_settle"`
	ReentryGuard      time.Duration `yaml:"reentry_guard"`
	HighlightDuration time.Duration `yaml:"highlight_duration"`
}

// EncryptionConfig points at age key files. Both must be set for
// encryption to be enabled.
type EncryptionConfig struct {
	IdentityFile  string `yaml:"identity_file"`
	RecipientFile string `yaml:"recipient_file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	opts := scrollsync.DefaultOptions()
	return Config{
		Addr:     "localhost",
		Port:     8080,
		DataDir:  DefaultDataDir(),
		LogLevel: "info",
		Sync: SyncConfig{
			EditorDebounce:    opts.EditorDebounce,
			RebuildSettle:     opts.RebuildSettle,
			ReentryGuard:      opts.ReentryGuard,
			HighlightDuration: opts.HighlightDuration,
		},
	}
}

// DefaultDataDir returns XDG_DATA_HOME/livepad, falling back to
// $HOME/.local/share/livepad.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "livepad-data"
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "livepad")
}

// Load reads configuration from the given path on top of the defaults.
// A missing file is not an error; an empty path skips the file entirely.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// ApplyEnv overrides values from LIVEPAD_* variables found by lookup,
// typically os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ADDR":           &c.Addr,
		"DATA_DIR":       &c.DataDir,
		"LOG_LEVEL":      &c.LogLevel,
		"LOG_FILE":       &c.LogFile,
		"IDENTITY_FILE":  &c.Encryption.IdentityFile,
		"RECIPIENT_FILE": &c.Encryption.RecipientFile,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", EnvPrefix, err)
		}
		c.Port = port
	}

	durations := map[string]*time.Duration{
		"EDITOR_DEBOUNCE":    &c.Sync.EditorDebounce,
		"REBUILD_SETTLE":     &c.Sync.RebuildSettle,
		"REENTRY_GUARD":      &c.Sync.ReentryGuard,
		"HIGHLIGHT_DURATION": &c.Sync.HighlightDuration,
	}
	for name, dst := range durations {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}
	return nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.DataDir == "" {
		c.DataDir = defaults.DataDir
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q is not one of trace, debug, info, warn, error", c.LogLevel)
	}

	for name, d := range map[string]time.Duration{
		"sync.editor_debounce":    c.Sync.EditorDebounce,
		"sync.rebuild_settle":     c.Sync.RebuildSettle,
		"sync.reentry_guard":      c.Sync.ReentryGuard,
		"sync.highlight_duration": c.Sync.HighlightDuration,
	} {
		if d < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}

	if (c.Encryption.IdentityFile == "") != (c.Encryption.RecipientFile == "") {
		return fmt.Errorf("encryption.identity_file and encryption.recipient_file must be set together")
	}
	return nil
}

// ListenAddr returns the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Addr, c.Port)
}

// KeysDir is where generated key pairs are written.
func (c *Config) KeysDir() string {
	return filepath.Join(c.DataDir, "keys")
}

// Logging returns the logger configuration. Without an explicit log file
// logs rotate under the data directory.
func (c *Config) Logging() logging.Config {
	lc := logging.DefaultConfig(c.DataDir)
	lc.Level = c.LogLevel
	if c.LogFile != "" {
		lc.LogFile = c.LogFile
	}
	return lc
}

// SessionOptions returns scroll sync options for a new session. Zero
// durations fall back to the session defaults.
func (c *Config) SessionOptions() scrollsync.Options {
	return scrollsync.Options{
		EditorDebounce:    c.Sync.EditorDebounce,
		RebuildSettle:     c.Sync.RebuildSettle,
		ReentryGuard:      c.Sync.ReentryGuard,
		HighlightDuration: c.Sync.HighlightDuration,
	}
}
