package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAlleles(t *testing.T) {
	tests := []struct {
		genotype string
		a1, a2   byte
		ok       bool
	}{
		{"AG", 'A', 'G', true},
		{"ag", 'A', 'G', true},
		{"A/G", 'A', 'G', true},
		{" C T ", 'C', 'T', true},
		{"A", 0, 0, false},
		{"--", 0, 0, false},
		{"AGT", 0, 0, false},
		{"DI", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.genotype, func(t *testing.T) {
			a1, a2, ok := ExtractAlleles(tt.genotype)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.a1, a1)
			assert.Equal(t, tt.a2, a2)
		})
	}
}

// TestMatches_Exhaustive checks every diploid call against the rule:
// accepted iff both alleles are in {ref} ∪ alts and at least one is an alt.
func TestMatches_Exhaustive(t *testing.T) {
	bases := "ACGT"
	sites := []struct{ ref, alt string }{
		{"A", "G"},
		{"C", "T"},
		{"A", "G,T"},
		{"G", "A,C,T"},
		{"t", "c"},
	}

	for _, site := range sites {
		ref := strings.ToUpper(site.ref)
		alts := strings.ToUpper(site.alt)
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				a1, a2 := bases[i], bases[j]
				inSet := func(b byte) bool { return b == ref[0] || strings.IndexByte(alts, b) >= 0 }
				isAlt := func(b byte) bool { return strings.IndexByte(alts, b) >= 0 }
				want := inSet(a1) && inSet(a2) && (isAlt(a1) || isAlt(a2))

				gt := string([]byte{a1, a2})
				assert.Equal(t, want, Matches(gt, site.ref, site.alt), "%s ref=%s alt=%s", gt, site.ref, site.alt)
			}
		}
	}
}

func TestZygosity(t *testing.T) {
	tests := []struct {
		name         string
		gt, ref, alt string
		want         string
	}{
		{"heterozygous", "AG", "A", "G", ZygosityRefAlt},
		{"heterozygous reversed", "GA", "A", "G", ZygosityRefAlt},
		{"homozygous alt", "GG", "A", "G", ZygosityAltAlt},
		{"homozygous ref", "AA", "A", "G", ZygosityRefRef},
		{"two different alts", "GT", "A", "G,T", ZygosityAltAlt},
		{"ref and second alt", "AT", "A", "G,T", ZygosityRefAlt},
		{"allele outside set", "CC", "A", "G", ZygosityOther},
		{"unusable genotype", "A", "A", "G", ""},
		{"unusable record", "AG", "AT", "G", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Zygosity(tt.gt, tt.ref, tt.alt))
		})
	}
}
