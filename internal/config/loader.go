package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/xyproto/env/v2"

	"github.com/isseis/go-elf-loader/internal/safefileio"
)

// Environment variables that override the config file.
const (
	EnvLogLevel = "ELFLOAD_LOG_LEVEL"
	EnvLogDir   = "ELFLOAD_LOG_DIR"
	EnvStrict   = "ELFLOAD_STRICT"
)

// maxConfigSize bounds how much of a config file is read.
const maxConfigSize = 1 << 20

// LookupFunc returns the value of an environment variable and whether it is set.
type LookupFunc func(name string) (string, bool)

// Loader reads configuration files and environment overrides.
type Loader struct {
	fs     safefileio.FileSystem
	lookup LookupFunc
}

// NewLoader creates a new config loader reading the process environment.
func NewLoader() *Loader {
	return NewLoaderWithEnv(safefileio.NewFileSystem(safefileio.FileSystemConfig{}), lookupEnv)
}

// NewLoaderWithEnv creates a config loader with a custom FileSystem and environment.
func NewLoaderWithEnv(fs safefileio.FileSystem, lookup LookupFunc) *Loader {
	return &Loader{fs: fs, lookup: lookup}
}

// lookupEnv treats an empty variable as unset.
func lookupEnv(name string) (string, bool) {
	v := env.Str(name)
	return v, v != ""
}

// Load builds the configuration: defaults, then the file at path (if not
// empty), then environment overrides.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		content, err := l.readFile(path)
		if err != nil {
			return nil, err
		}
		if err := decode(content, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML content over the defaults without consulting the environment.
func Parse(content []byte) (*Config, error) {
	cfg := Default()
	if err := decode(content, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays content onto cfg; keys absent from content keep their value.
func decode(content []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := l.fs.SafeOpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(content) > maxConfigSize {
		return nil, fmt.Errorf("%w: %s", safefileio.ErrFileTooLarge, path)
	}
	return content, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.lookup(EnvLogLevel); ok {
		if err := cfg.Log.Level.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
	}
	if v, ok := l.lookup(EnvLogDir); ok {
		cfg.Log.Dir = v
	}
	if v, ok := l.lookup(EnvStrict); ok {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnvValue, EnvStrict, v)
		}
		cfg.Loader.Strict = strict
	}
	return nil
}
