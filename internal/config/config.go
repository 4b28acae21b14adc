// Package config loads elfload settings from an optional TOML file and the
// environment. Command line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/isseis/go-elf-loader/internal/loader"
)

// Error definitions for the config package
var (
	// ErrInvalidLogLevel is returned when an invalid log level is provided
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidDisassembleCount is returned for a negative instruction count.
	ErrInvalidDisassembleCount = errors.New("invalid disassemble count")

	// ErrInvalidEnvValue is returned when an environment override cannot be parsed.
	ErrInvalidEnvValue = errors.New("invalid environment value")
)

// LogLevel represents the log level for the application.
type LogLevel string

// Log levels accepted in the config file, the environment and -log-level.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// UnmarshalText implements encoding.TextUnmarshaler for LogLevel.
func (l *LogLevel) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	switch LogLevel(s) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		*l = LogLevel(s)
		return nil
	case "":
		*l = LogLevelInfo
		return nil
	default:
		return fmt.Errorf("%w: %q (must be one of: debug, info, warn, error)", ErrInvalidLogLevel, string(text))
	}
}

// ToSlogLevel converts LogLevel to slog.Level for use with the slog package.
func (l LogLevel) ToSlogLevel() (slog.Level, error) {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug, nil
	case LogLevelInfo, "":
		return slog.LevelInfo, nil
	case LogLevelWarn:
		return slog.LevelWarn, nil
	case LogLevelError:
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, string(l))
	}
}

// LoaderConfig is the [loader] table.
type LoaderConfig struct {
	Strict         bool `toml:"strict"`
	RejectSymlinks bool `toml:"reject_symlinks"`
	Disassemble    int  `toml:"disassemble"`
}

// LogConfig is the [log] table.
type LogConfig struct {
	Level LogLevel `toml:"level"`
	Dir   string   `toml:"dir"`
}

// Config is the complete elfload configuration.
type Config struct {
	Loader LoaderConfig `toml:"loader"`
	Log    LogConfig    `toml:"log"`
}

// Default returns the configuration used when no file or override is given.
func Default() *Config {
	return &Config{
		Loader: LoaderConfig{
			Strict:      true,
			Disassemble: loader.DefaultDisassembleCount,
		},
		Log: LogConfig{
			Level: LogLevelInfo,
		},
	}
}

// Validate checks values that decoding alone does not constrain.
func (c *Config) Validate() error {
	if c.Loader.Disassemble < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDisassembleCount, c.Loader.Disassemble)
	}
	if _, err := c.Log.Level.ToSlogLevel(); err != nil {
		return err
	}
	return nil
}

// LoaderOptions converts the [loader] table into loader.Options.
func (c *Config) LoaderOptions() loader.Options {
	count := c.Loader.Disassemble
	if count == 0 {
		count = -1
	}
	return loader.Options{
		Strict:           c.Loader.Strict,
		RejectSymlinks:   c.Loader.RejectSymlinks,
		DisassembleCount: count,
	}
}
