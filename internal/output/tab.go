// Package output provides report hand-off writers for match findings.
package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/inodb/vibe-carrier/internal/match"
)

// TabWriter writes findings in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#rsid",
			"Genotype",
			"Location",
			"Gene",
			"Disease",
			"Significance",
			"Ref",
			"Alt",
			"Zygosity",
			"Variation_ID",
			"Review_status",
			"Consequence",
			"Origin",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single finding.
func (tw *TabWriter) Write(f *match.Finding) error {
	location := "-"
	if f.Chrom != "" && f.Pos != "" {
		location = f.Chrom + ":" + f.Pos
	}

	values := []string{
		f.RSID,
		orDash(f.Genotype),
		location,
		orDash(f.Gene),
		orDash(f.Disease),
		orDash(f.Significance),
		orDash(f.Ref),
		orDash(f.Alt),
		orDash(f.Zygosity),
		orDash(f.VariationID),
		orDash(f.ReviewStatus),
		orDash(f.MolecularConsequence),
		orDash(f.Origin),
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteSummary writes the header followed by every finding in order.
func (tw *TabWriter) WriteSummary(s match.Summary) error {
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, f := range s.Findings {
		if err := tw.Write(f); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// orDash replaces empty or whitespace-only values, which would otherwise
// break column alignment, with "-".
func orDash(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
}
