package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/0xmhha/dirmon/pkg/dirmon"
	"golang.org/x/term"
)

// New creates a new formatter based on configuration. FormatAuto is treated
// as FormatTable; resolve it with Detect first.
func New(cfg Config) Formatter {
	if cfg.Format == "" {
		cfg.Format = FormatTable
	}

	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	case FormatSimple:
		return &simpleFormatter{config: cfg}
	case FormatTable, FormatAuto:
		fallthrough
	default:
		return &tableFormatter{config: cfg}
	}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatTable, FormatJSON, FormatSimple:
		return f, nil
	default:
		return "", fmt.Errorf("unknown display format %q: must be auto, table, simple, or json", s)
	}
}

// Detect resolves FormatAuto for output to f and fills in the terminal
// width. Colors are turned off when f is not a terminal.
func Detect(cfg Config, f *os.File) Config {
	isTTY := f != nil && term.IsTerminal(int(f.Fd()))

	if cfg.Format == "" || cfg.Format == FormatAuto {
		if isTTY {
			cfg.Format = FormatTable
		} else {
			cfg.Format = FormatSimple
		}
	}

	if !isTTY {
		cfg.ColorEnabled = false
		return cfg
	}

	if cfg.Width == 0 {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			cfg.Width = width
		}
	}
	return cfg
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiGray   = "\x1b[90m"
)

// kindColor returns the escape used for a kind.
func kindColor(k dirmon.Kind) string {
	switch k {
	case dirmon.Added:
		return ansiGreen
	case dirmon.Modified:
		return ansiYellow
	case dirmon.Removed:
		return ansiRed
	case dirmon.RenamedOld, dirmon.RenamedNew:
		return ansiBlue
	default:
		return ansiGray
	}
}

// colorize wraps s in the color for k, padding to width first so escapes do
// not break alignment.
func colorize(s string, k dirmon.Kind, width int, enabled bool) string {
	if n := utf8.RuneCountInString(s); width > n {
		s += strings.Repeat(" ", width-n)
	}
	if !enabled {
		return s
	}
	return kindColor(k) + s + ansiReset
}

// truncate shortens s to max runes, keeping the tail which is usually the
// interesting part of a path.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return tail(s, max)
	}
	return "..." + tail(s, max-3)
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	i := len(s)
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}

// writeHeader writes a section header.
func writeHeader(w io.Writer, title string, compact bool) error {
	if compact {
		_, err := fmt.Fprintf(w, "%s\n", title)
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	return err
}
