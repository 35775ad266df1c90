// Package clinvar provides the pathogenic variant index built from ClinVar:
// the record schema, the index loader and the VCF-to-index builder.
package clinvar

import "strings"

// Classification is the ClinVar clinical significance tier of a record.
// Only the two pathogenic tiers are retained in an index.
type Classification string

const (
	Pathogenic       Classification = "5"
	LikelyPathogenic Classification = "4"
)

// IsPathogenic reports whether c is the Pathogenic tier.
func (c Classification) IsPathogenic() bool {
	return c == Pathogenic
}

// Significance returns the human-readable label for the tier.
func (c Classification) Significance() string {
	if c.IsPathogenic() {
		return "Pathogenic"
	}
	return "Likely pathogenic"
}

// Record is a single indexed ClinVar variant.
//
// The JSON tags are the compact field names of the index artifact; they are
// only used when the artifact is decoded or written.
type Record struct {
	Gene                 string         `json:"g"`
	Disease              string         `json:"d"`
	Chrom                string         `json:"c"`
	Pos                  string         `json:"p"`
	Ref                  string         `json:"r"`
	Alt                  string         `json:"a"` // comma-separated alleles
	Class                Classification `json:"s"`
	VariationID          string         `json:"v,omitempty"`
	AlleleID             string         `json:"al,omitempty"`
	HGVS                 string         `json:"h,omitempty"`
	ReviewStatus         string         `json:"rv,omitempty"`
	MolecularConsequence string         `json:"mc,omitempty"`
	Origin               string         `json:"o,omitempty"`
}

// AltAlleles splits the comma-separated alternate allele field.
func (r *Record) AltAlleles() []string {
	if r.Alt == "" {
		return nil
	}
	return strings.Split(r.Alt, ",")
}

// Index maps a lowercase variant identifier (rs<digits> or i<digits>)
// to its record. An Index is read-only once loaded.
type Index map[string]*Record

// Lookup returns the record for id, matching case-insensitively.
func (idx Index) Lookup(id string) (*Record, bool) {
	r, ok := idx[strings.ToLower(id)]
	return r, ok
}

// Counts returns the number of Pathogenic and Likely pathogenic records.
func (idx Index) Counts() (pathogenic, likely int) {
	for _, r := range idx {
		switch r.Class {
		case Pathogenic:
			pathogenic++
		case LikelyPathogenic:
			likely++
		}
	}
	return pathogenic, likely
}
