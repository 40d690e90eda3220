// Package config provides configuration management for dirmon.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Watching: %v\n", cfg.WatchDirs)
package config

import (
	"fmt"

	"github.com/0xmhha/dirmon/pkg/backend"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Monitor.Backend names a known backend
// - Monitor.QueueLimit must be >= 0
// - Display.Format and the logging settings must be recognized values.
type Config struct {
	// Directories watched when none are given on the command line
	WatchDirs []string `yaml:"watch_dirs" json:"watch_dirs"`

	// Monitor settings
	Monitor MonitorConfig `yaml:"monitor" json:"monitor"`

	// Display settings
	Display DisplayConfig `yaml:"display" json:"display"`

	// Storage settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// MonitorConfig contains directory monitor settings.
type MonitorConfig struct {
	// Notification backend (auto, fsnotify, inotify)
	Backend string `yaml:"backend" json:"backend"`

	// Maximum undelivered events per monitor, 0 for no limit
	QueueLimit int `yaml:"queue_limit" json:"queue_limit"`
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	// Output format (auto, table, simple, json)
	Format string `yaml:"format" json:"format"`

	// Enable colored output
	ColorEnabled bool `yaml:"color_enabled" json:"color_enabled"`
}

// StorageConfig contains storage-related settings.
type StorageConfig struct {
	// Path to the BoltDB watch set database
	DBPath string `yaml:"db_path" json:"db_path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if _, err := backend.ByName(c.Monitor.Backend); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidBackend, c.Monitor.Backend)
	}
	if c.Monitor.QueueLimit < 0 {
		return ErrInvalidQueueLimit
	}

	validFormats := map[string]bool{
		"auto":   true,
		"table":  true,
		"simple": true,
		"json":   true,
	}
	if !validFormats[c.Display.Format] {
		return ErrInvalidDisplayFormat
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		WatchDirs: []string{},
		Monitor: MonitorConfig{
			Backend:    backend.NameAuto,
			QueueLimit: 1024,
		},
		Display: DisplayConfig{
			Format:       "auto",
			ColorEnabled: true,
		},
		Storage: StorageConfig{
			DBPath: DefaultDBPath(),
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Output: "stderr",
			Format: "text",
		},
	}
}
