package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrInvalidBackend is returned when the monitor backend is not recognized.
	ErrInvalidBackend = errors.New("invalid monitor backend: must be auto, fsnotify, or inotify")

	// ErrInvalidQueueLimit is returned when the queue limit is negative.
	ErrInvalidQueueLimit = errors.New("invalid queue limit: must be >= 0")

	// ErrInvalidDisplayFormat is returned when display format is not recognized.
	ErrInvalidDisplayFormat = errors.New("invalid display format: must be auto, table, simple, or json")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
