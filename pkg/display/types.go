// Package display formats directory events and watch sets for output.
//
// It supports multiple output formats (table, simple text, JSON). The auto
// format picks table for an interactive terminal and simple text otherwise.
package display

import (
	"io"
	"time"

	"github.com/0xmhha/dirmon/pkg/dirmon"
	"github.com/0xmhha/dirmon/pkg/watchset"
)

// Format represents an output format.
type Format string

const (
	// FormatAuto selects table on a terminal, simple otherwise.
	FormatAuto Format = "auto"

	// FormatTable displays aligned columns.
	FormatTable Format = "table"

	// FormatJSON displays one JSON object per event.
	FormatJSON Format = "json"

	// FormatSimple displays one plain line per event.
	FormatSimple Format = "simple"
)

// Record is one event as it is displayed.
type Record struct {
	// Time is when the event was delivered.
	Time time.Time `json:"time"`

	// Seq numbers events from 1 in delivery order.
	Seq int `json:"seq"`

	dirmon.Event
}

// Formatter formats events and watch sets.
type Formatter interface {
	// FormatEvent writes one event. Formatters that print a header do so
	// before the first event.
	FormatEvent(w io.Writer, rec Record) error

	// FormatSets writes a summary of watch sets.
	FormatSets(w io.Writer, sets []*watchset.Set) error

	// FormatSet writes one watch set with its directories.
	FormatSet(w io.Writer, set *watchset.Set) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// ColorEnabled colors event kinds with ANSI escapes (table and simple).
	ColorEnabled bool

	// Compact enables compact output (less whitespace).
	Compact bool

	// Width truncates table rows to this many columns. Zero means no limit.
	Width int
}
