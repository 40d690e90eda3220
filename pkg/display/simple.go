package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/0xmhha/dirmon/pkg/watchset"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatEvent implements Formatter.FormatEvent.
func (f *simpleFormatter) FormatEvent(w io.Writer, rec Record) error {
	_, err := fmt.Fprintf(w, "%s %s %s\n",
		rec.Time.Format("15:04:05.000"),
		colorize(rec.Kind.String(), rec.Kind, 0, f.config.ColorEnabled),
		rec.FullPath())
	return err
}

// FormatSets implements Formatter.FormatSets.
func (f *simpleFormatter) FormatSets(w io.Writer, sets []*watchset.Set) error {
	for _, set := range sets {
		if _, err := fmt.Fprintf(w, "%s: %d directories\n", set.Name, len(set.Directories)); err != nil {
			return err
		}
	}
	return nil
}

// FormatSet implements Formatter.FormatSet.
func (f *simpleFormatter) FormatSet(w io.Writer, set *watchset.Set) error {
	_, err := fmt.Fprintf(w, "%s: %s\n", set.Name, strings.Join(set.Directories, ", "))
	return err
}
