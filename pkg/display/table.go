package display

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/0xmhha/dirmon/pkg/watchset"
)

// Event table column widths. The path column takes what is left.
const (
	seqWidth  = 5
	timeWidth = 12
	kindWidth = 11
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config      Config
	wroteHeader bool
}

// FormatEvent implements Formatter.FormatEvent.
func (f *tableFormatter) FormatEvent(w io.Writer, rec Record) error {
	widths := []int{seqWidth, timeWidth, kindWidth}

	if !f.wroteHeader {
		f.wroteHeader = true
		header := []string{"#", "TIME", "KIND", "PATH"}
		if err := f.writeRow(w, header, widths); err != nil {
			return err
		}
		if !f.config.Compact {
			sep := []string{
				strings.Repeat("-", seqWidth),
				strings.Repeat("-", timeWidth),
				strings.Repeat("-", kindWidth),
				strings.Repeat("-", 4),
			}
			if err := f.writeRow(w, sep, widths); err != nil {
				return err
			}
		}
	}

	row := []string{
		fmt.Sprintf("%d", rec.Seq),
		rec.Time.Format("15:04:05.000"),
		colorize(rec.Kind.String(), rec.Kind, kindWidth, f.config.ColorEnabled),
		truncate(rec.FullPath(), f.pathWidth()),
	}
	return f.writeRow(w, row, widths)
}

// pathWidth returns the room left for the path column, or 0 for no limit.
func (f *tableFormatter) pathWidth() int {
	if f.config.Width <= 0 {
		return 0
	}
	used := seqWidth + timeWidth + kindWidth + 3*f.gap()
	if f.config.Width-used < 8 {
		return 8
	}
	return f.config.Width - used
}

// FormatSets implements Formatter.FormatSets.
func (f *tableFormatter) FormatSets(w io.Writer, sets []*watchset.Set) error {
	if err := writeHeader(w, "Watch Sets", f.config.Compact); err != nil {
		return err
	}

	rows := make([][]string, len(sets))
	for i, set := range sets {
		rows[i] = []string{
			set.Name,
			fmt.Sprintf("%d", len(set.Directories)),
			set.UpdatedAt.Format("2006-01-02 15:04:05"),
			set.Description,
		}
	}

	return f.writeTable(w, []string{"Name", "Dirs", "Updated", "Description"}, rows)
}

// FormatSet implements Formatter.FormatSet.
func (f *tableFormatter) FormatSet(w io.Writer, set *watchset.Set) error {
	if err := writeHeader(w, "Watch Set: "+set.Name, f.config.Compact); err != nil {
		return err
	}

	if set.Description != "" {
		if _, err := fmt.Fprintf(w, "%s\n\n", set.Description); err != nil {
			return err
		}
	}

	rows := make([][]string, len(set.Directories))
	for i, dir := range set.Directories {
		rows[i] = []string{fmt.Sprintf("%d", i+1), dir}
	}

	return f.writeTable(w, []string{"#", "Directory"}, rows)
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	// Calculate column widths.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}

// writeRow writes a single table row. Cells past the end of widths are
// written as is, and trailing padding is trimmed.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(strings.Repeat(" ", f.gap()))
		}
		if i < len(widths) && i < len(cells)-1 {
			fmt.Fprintf(&b, "%-*s", widths[i], cell)
		} else {
			b.WriteString(cell)
		}
	}

	_, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	return err
}

func (f *tableFormatter) gap() int {
	if f.config.Compact {
		return 1
	}
	return 2
}
