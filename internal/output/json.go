package output

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/inodb/vibe-carrier/internal/match"
)

// JSONWriter writes a match summary as a single JSON document.
type JSONWriter struct {
	w      io.Writer
	indent bool
}

// NewJSONWriter creates a JSON writer. When indent is set the document is
// pretty-printed.
func NewJSONWriter(w io.Writer, indent bool) *JSONWriter {
	return &JSONWriter{w: w, indent: indent}
}

// WriteSummary encodes s followed by a newline.
func (jw *JSONWriter) WriteSummary(s match.Summary) error {
	if s.Findings == nil {
		s.Findings = []*match.Finding{}
	}
	enc := json.NewEncoder(jw.w)
	if jw.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(s)
}

// Flush is a no-op; the encoder writes through.
func (jw *JSONWriter) Flush() error { return nil }

// SummaryWriter renders a match summary in one output format.
type SummaryWriter interface {
	WriteSummary(s match.Summary) error
	Flush() error
}

// NewSummaryWriter returns the writer for format ("tab" or "json").
// Unknown formats yield nil.
func NewSummaryWriter(format string, w io.Writer) SummaryWriter {
	switch format {
	case "tab", "":
		return NewTabWriter(w)
	case "json":
		return NewJSONWriter(w, true)
	}
	return nil
}
