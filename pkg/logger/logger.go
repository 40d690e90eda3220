// Package logger provides structured logging for dirmon.
//
// Loggers write through log/slog in text or JSON form. Every long-lived
// piece of dirmon tags its lines with a component, and monitor-scoped lines
// also carry the monitor handle:
//
//	log, closeLog, err := logger.Open(logger.Config{
//	    Level:  "debug",
//	    Output: "/var/log/dirmon.log",
//	    Format: "json",
//	})
//	if err != nil {
//	    return err
//	}
//	defer closeLog.Close()
//
//	svcLog := logger.Component(log, "dirmon")
//	svcLog.With(logger.MonitorKey, "monitor-1").Debug("event queued", "kind", "added")
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Attribute keys shared by dirmon components.
const (
	ComponentKey = "component"
	MonitorKey   = "monitor"
)

// Logger is the logging surface dirmon packages depend on. Arguments after
// msg are alternating keys and values.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})

	// With returns a child logger that adds keysAndValues to every line.
	With(keysAndValues ...interface{}) Logger
}

// Config contains logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string

	// Output is "stdout", "stderr" or a file path. Empty means stderr.
	Output string

	// Format is the output format (text, json).
	Format string
}

type slogLogger struct {
	slogger *slog.Logger
}

// Open creates a logger for cfg and returns the closer for its output.
// Closing a standard stream is a no-op. Fails if a file output cannot be
// opened.
func Open(cfg Config) (Logger, io.Closer, error) {
	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, nil, err
	}
	return NewWithWriter(cfg, out), out, nil
}

// New is Open for callers that cannot report an error: an output that fails
// to open falls back to stderr, and a log file stays open for the life of
// the process.
func New(cfg Config) Logger {
	log, _, err := Open(cfg)
	if err != nil {
		return NewWithWriter(cfg, os.Stderr)
	}
	return log
}

// NewWithWriter creates a logger that writes to w, ignoring cfg.Output.
func NewWithWriter(cfg Config, w io.Writer) Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &slogLogger{slogger: slog.New(handler)}
}

// Component returns a child of log tagged with the component name.
func Component(log Logger, name string) Logger {
	return log.With(ComponentKey, name)
}

// Noop returns a logger that discards everything.
func Noop() Logger {
	return &slogLogger{slogger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *slogLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.slogger.Debug(msg, keysAndValues...)
}

func (l *slogLogger) Info(msg string, keysAndValues ...interface{}) {
	l.slogger.Info(msg, keysAndValues...)
}

func (l *slogLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.slogger.Warn(msg, keysAndValues...)
}

func (l *slogLogger) Error(msg string, keysAndValues ...interface{}) {
	l.slogger.Error(msg, keysAndValues...)
}

func (l *slogLogger) With(keysAndValues ...interface{}) Logger {
	return &slogLogger{slogger: l.slogger.With(keysAndValues...)}
}

// ParseLevel converts a level name to slog.Level. Matching ignores case;
// unrecognized names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// stdStream is a standard stream that Close leaves open.
type stdStream struct {
	io.Writer
}

func (stdStream) Close() error { return nil }

// openOutput resolves an output name. Files are opened for appending,
// owner read/write only.
func openOutput(output string) (io.WriteCloser, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return stdStream{os.Stdout}, nil
	case "stderr", "":
		return stdStream{os.Stderr}, nil
	}

	// #nosec G304: output path comes from trusted config
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", output, err)
	}
	return f, nil
}
