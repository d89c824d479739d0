// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level      string // debug, info, warn, error
	LogFile    string // Log file path, empty for stdout only
	MaxSize    int    // Max size in megabytes
	MaxBackups int    // Max number of backups
	MaxAge     int    // Max age in days
	Compress   bool   // Compress backups
	Console    bool   // Human readable stdout instead of JSON
}

func DefaultConfig(dataDir string) Config {
	return Config{
		Level:      "info",
		LogFile:    filepath.Join(dataDir, "service", "livepad.log"),
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
		Console:    true,
	}
}

// New returns a logger that writes to stdout and, when a log file is
// configured, to a rotating file. The returned func closes the file.
func New(config Config) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return zerolog.Logger{}, closer, fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}

	var stdout io.Writer = os.Stdout
	if config.Console {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	writer := stdout
	if config.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.LogFile), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create logs dir: %w", err)
		}

		rotating := &lumberjack.Logger{
			Filename:   config.LogFile,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		}
		closer = func() { _ = rotating.Close() }
		writer = zerolog.MultiLevelWriter(stdout, rotating)
	}

	l := zerolog.New(writer).
		With().
		Timestamp().
		Logger().
		Level(lvl)

	return l, closer, nil
}

// Setup replaces the global logger with one built from config.
func Setup(config Config) (func(), error) {
	logger, closer, err := New(config)
	if err != nil {
		return closer, err
	}
	log.Logger = logger
	return closer, nil
}

// Component creates a new logger with a component identifier.
// Uses the "cmp" key for consistency with zerolog conventions.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}
