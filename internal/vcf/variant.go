// Package vcf provides VCF file parsing functionality.
package vcf

// Variant represents a single data line from a VCF file.
type Variant struct {
	Chrom  string                 // Chromosome name (e.g., "12", "chr12")
	Pos    int64                  // 1-based genomic position
	ID     string                 // Variant identifier (e.g., ClinVar variation ID)
	Ref    string                 // Reference allele
	Alt    string                 // Alternate allele(s), comma-separated
	Qual   float64                // Quality score
	Filter string                 // Filter status (PASS or filter name)
	Info   map[string]interface{} // INFO field key-value pairs
}

// InfoString returns the string value of an INFO key.
// Flag-type keys and missing keys return "".
func (v *Variant) InfoString(key string) string {
	if s, ok := v.Info[key].(string); ok {
		return s
	}
	return ""
}

// VariantParser is the interface for parsers that read variants.
type VariantParser interface {
	// Next reads the next variant.
	// Returns nil, nil when there are no more variants.
	Next() (*Variant, error)

	// Close closes the parser and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}
