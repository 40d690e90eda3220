package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads a configuration file on top of the defaults.
	LoadFromFile(path string) (*Config, error)

	// Source returns the file Load read, or "" when only defaults applied.
	Source() string
}

// loader implements the Loader interface.
type loader struct {
	configPath string
	source     string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, the first existing file of SearchPaths is used.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()

	configPath := l.configPath
	if configPath == "" {
		configPath = l.findConfigFile()
	}

	if configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			// An explicit path must load; a discovered one may be skipped.
			if l.configPath != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		} else {
			cfg = fileCfg
			l.source = configPath
		}
	}

	cfg = l.applyEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
//
// Keys missing from the file keep their default values.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return cfg, nil
}

// Source implements Loader.Source.
func (l *loader) Source() string {
	return l.source
}

// findConfigFile returns the first existing file of SearchPaths, or "".
func (l *loader) findConfigFile() string {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - DIRMON_WATCH_DIRS: Comma-separated list of directories
//   - DIRMON_BACKEND: Notification backend
//   - DIRMON_QUEUE_LIMIT: Per-monitor event queue limit
//   - DIRMON_DB: Path to watch set database
//   - DIRMON_LOG_LEVEL: Log level
func (l *loader) applyEnvVars(cfg *Config) *Config {
	result := *cfg

	if envDirs := os.Getenv("DIRMON_WATCH_DIRS"); envDirs != "" {
		var dirs []string
		for _, dir := range strings.Split(envDirs, ",") {
			if dir = strings.TrimSpace(dir); dir != "" {
				dirs = append(dirs, dir)
			}
		}
		result.WatchDirs = dirs
	}

	if name := os.Getenv("DIRMON_BACKEND"); name != "" {
		result.Monitor.Backend = strings.ToLower(name)
	}

	if limit := os.Getenv("DIRMON_QUEUE_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			result.Monitor.QueueLimit = n
		}
	}

	if dbPath := os.Getenv("DIRMON_DB"); dbPath != "" {
		result.Storage.DBPath = dbPath
	}

	if logLevel := os.Getenv("DIRMON_LOG_LEVEL"); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	return &result
}

// Load is a convenience function that creates a loader and loads configuration.
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads configuration from a file
// with environment overrides and validation applied.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// File is created with 0600 permissions (read/write for owner only).
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
