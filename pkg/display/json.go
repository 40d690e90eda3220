package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/dirmon/pkg/watchset"
)

// jsonFormatter formats output as JSON. Events are always one object per
// line so the stream can be piped into line-oriented tools.
type jsonFormatter struct {
	config Config
}

// FormatEvent implements Formatter.FormatEvent.
func (f *jsonFormatter) FormatEvent(w io.Writer, rec Record) error {
	return json.NewEncoder(w).Encode(rec)
}

// FormatSets implements Formatter.FormatSets.
func (f *jsonFormatter) FormatSets(w io.Writer, sets []*watchset.Set) error {
	return f.encoder(w).Encode(sets)
}

// FormatSet implements Formatter.FormatSet.
func (f *jsonFormatter) FormatSet(w io.Writer, set *watchset.Set) error {
	return f.encoder(w).Encode(set)
}

func (f *jsonFormatter) encoder(w io.Writer) *json.Encoder {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder
}
