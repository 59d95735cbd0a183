// Package config loads the passd configuration. Settings come from a YAML
// file and are overridden by the PASSWORD_STORE_* environment variables used
// by pass itself. The resolved store settings are handed to the store as an
// immutable store.Options value.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/passd/pkg/errors"
	"github.com/glorpus-work/passd/pkg/fsutil"
	"github.com/glorpus-work/passd/pkg/gpg"
	"github.com/glorpus-work/passd/pkg/store"
)

// Config represents the application configuration.
type Config struct {
	// StoreDir is the password store root. Defaults to ~/.password-store.
	StoreDir string `yaml:"store_dir,omitempty"`

	// GPGBinary is the encryption tool to run.
	GPGBinary string `yaml:"gpg_binary"`
	// GPGOpts are extra tool arguments, split on whitespace.
	GPGOpts string `yaml:"gpg_opts,omitempty"`

	// Umask is the octal mask used to derive file and directory modes.
	Umask string `yaml:"umask"`

	// IndexPath is the sqlite database holding non-secret bookkeeping.
	IndexPath string `yaml:"index_path,omitempty"`

	LogLevel string `yaml:"log_level"` // error, warn, info, debug

	// Hooks maps an event name to a tengo script path.
	Hooks map[string]string `yaml:"hooks,omitempty"`
}

// Environment variables understood in addition to the config file.
const (
	EnvStoreDir = "PASSWORD_STORE_DIR"
	EnvGPGOpts  = "PASSWORD_STORE_GPG_OPTS"
	EnvUmask    = "PASSWORD_STORE_UMASK"
)

// Default configuration values.
const (
	// DefaultUmask is the umask used when none or an invalid one is configured.
	DefaultUmask = "077"

	// DefaultIndexFile is the index database name inside the data directory.
	DefaultIndexFile = "index.db"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	indexPath := DefaultIndexFile
	if dataDir, err := fsutil.GetDataDir(); err == nil {
		indexPath = filepath.Join(dataDir, DefaultIndexFile)
	}

	return &Config{
		GPGBinary: gpg.DefaultBinary,
		Umask:     DefaultUmask,
		IndexPath: indexPath,
		LogLevel:  "info",
	}
}

// Load reads the configuration file at path and applies the process
// environment on top of it.
func Load(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// LoadConfig loads configuration from a file. A missing file yields the
// default configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig writes the configuration to path, replacing it atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := fsutil.EnsureFileDir(absPath, fsutil.DirModePrivate); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := c.ToYAML()
	if err != nil {
		return err
	}

	tempPath := absPath + ".tmp"
	if err := fsutil.WriteFile(tempPath, data, fsutil.FileModePrivate); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to write config file")
	}

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to replace config file")
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	var sb strings.Builder
	encoder := yaml.NewEncoder(&sb)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		return nil, errors.Wrap(err, "failed to marshal config")
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to marshal config")
	}
	return []byte(sb.String()), nil
}

// ApplyEnv overrides settings from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if dir, ok := lookup(EnvStoreDir); ok && dir != "" {
		c.StoreDir = dir
	}
	if opts, ok := lookup(EnvGPGOpts); ok {
		c.GPGOpts = opts
	}
	if umask, ok := lookup(EnvUmask); ok {
		c.Umask = umask
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateLogLevel(c.LogLevel); err != nil {
		return err
	}
	for event := range c.Hooks {
		switch event {
		case store.EventPostWrite, store.EventPostDelete:
		default:
			return errors.ErrUnknownHookEventWithName(event)
		}
	}
	return nil
}

func validateLogLevel(level string) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(level)] {
		return errors.ErrInvalidLogLevelWithDetails(level)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// UmaskValue returns the configured umask, falling back to the default when
// the setting is not valid octal.
func (c *Config) UmaskValue() uint32 {
	if umask, ok := fsutil.ParseUmask(c.Umask); ok {
		return umask
	}
	return fsutil.DefaultUmask
}

// Resolve produces the store options. It fails only when no store directory
// is configured and the home directory cannot be determined.
func (c *Config) Resolve() (store.Options, error) {
	dir := c.StoreDir
	if dir == "" {
		storeDir, err := fsutil.GetStoreDir()
		if err != nil || storeDir == "" {
			return store.Options{}, errors.Wrap(errors.ErrNoStoreDir, "no store directory configured and no home directory")
		}
		dir = storeDir
	}
	return store.NewOptions(dir, c.GPGOpts, c.UmaskValue()), nil
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.GPGBinary == "" {
		c.GPGBinary = defaults.GPGBinary
	}
	if c.Umask == "" {
		c.Umask = defaults.Umask
	}
	if c.IndexPath == "" {
		c.IndexPath = defaults.IndexPath
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
}
