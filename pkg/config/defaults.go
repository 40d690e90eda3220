package config

import (
	"os"
	"path/filepath"
)

// configDir returns ~/.config/dirmon, or "." without a home directory.
func configDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".config", "dirmon")
}

// DefaultDBPath returns the default watch set database path.
//
// Returns: ~/.config/dirmon/watchsets.db.
func DefaultDBPath() string {
	return filepath.Join(configDir(), "watchsets.db")
}

// DefaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/dirmon/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// SearchPaths returns the locations Load looks for a config file, in order.
func SearchPaths() []string {
	return []string{
		"./dirmon.yaml",
		DefaultConfigPath(),
	}
}
