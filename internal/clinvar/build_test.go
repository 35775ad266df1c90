package clinvar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-carrier/internal/vcf"
)

func TestBuild_ClinVarSample(t *testing.T) {
	parser, err := vcf.NewParser(findTestFile(t, "clinvar_sample.vcf"))
	require.NoError(t, err)
	defer parser.Close()

	idx, stats, err := NewBuilder(nil).Build(parser)
	require.NoError(t, err)

	assert.Equal(t, 7, stats.Variants)
	assert.Equal(t, 3, stats.Retained)
	assert.Equal(t, 4, stats.Keys)
	assert.Len(t, idx, 4)

	lct := idx["rs4988235"]
	require.NotNil(t, lct)
	assert.Equal(t, "MCM6", lct.Gene)
	assert.Equal(t, "Lactose intolerance", lct.Disease)
	assert.Equal(t, "2", lct.Chrom)
	assert.Equal(t, "136608646", lct.Pos)
	assert.Equal(t, "A", lct.Ref)
	assert.Equal(t, "G", lct.Alt)
	assert.Equal(t, Pathogenic, lct.Class)
	assert.Equal(t, "17658", lct.VariationID)
	assert.Equal(t, "32697", lct.AlleleID)
	assert.Equal(t, "criteria provided, single submitter", lct.ReviewStatus)
	assert.Equal(t, "intron variant", lct.MolecularConsequence)
	assert.Equal(t, "germline", lct.Origin)

	// One VCF line with two rsIDs produces two keys sharing a record.
	cf1, cf2 := idx["rs113993960"], idx["rs397508256"]
	require.NotNil(t, cf1)
	assert.Same(t, cf1, cf2)
	assert.Equal(t, "G,T", cf1.Alt)
	assert.Equal(t, LikelyPathogenic, cf1.Class)

	brca := idx["rs80357906"]
	require.NotNil(t, brca)
	assert.Equal(t, Pathogenic, brca.Class)
	assert.Equal(t, "missense variant", brca.MolecularConsequence)
	assert.Equal(t, "unknown", brca.Origin)

	for _, skipped := range []string{"rs1", "rs3", "rs80359550"} {
		assert.NotContains(t, idx, skipped)
	}
}

func TestParseSignificance(t *testing.T) {
	tests := []struct {
		clnsig string
		want   Classification
		ok     bool
	}{
		{"Pathogenic", Pathogenic, true},
		{"Likely_pathogenic", LikelyPathogenic, true},
		{"Pathogenic/Likely_pathogenic", Pathogenic, true},
		{"Pathogenic|Likely_pathogenic", Pathogenic, true},
		{"Pathogenic,_low_penetrance", Pathogenic, true},
		{"Likely_pathogenic,_low_penetrance", LikelyPathogenic, true},
		{"drug_response|pathogenic", "", false},
		{"other|likely_pathogenic", "", false},
		{"Conflicting_interpretations_of_pathogenicity", "", false},
		{"Uncertain_significance", "", false},
		{"Likely_benign", "", false},
		{"Pathogenic/Likely_benign", "", false},
		{"risk_factor", "", false},
		{"Pathogenic|association", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.clnsig, func(t *testing.T) {
			got, ok := ParseSignificance(tt.clnsig)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeRefAlt(t *testing.T) {
	tests := []struct {
		name             string
		ref, alt         string
		wantRef, wantAlt string
	}{
		{"snv", "a", "g", "A", "G"},
		{"multi-allelic sorted and deduplicated", "A", "T,G,T", "A", "G,T"},
		{"ref carries alt", "C/A", "", "C", "A"},
		{"indel alt dropped", "A", "AT", "A", ""},
		{"mixed alts keep bases", "A", "AT,C", "A", "C"},
		{"indel ref", "AT", "A", "", ""},
		{"empty", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, alt := NormalizeRefAlt(tt.ref, tt.alt)
			assert.Equal(t, tt.wantRef, ref)
			assert.Equal(t, tt.wantAlt, alt)
		})
	}
}

func TestRecordFromVariant_Defaults(t *testing.T) {
	v := &vcf.Variant{
		Chrom: "1", Pos: 10, ID: "1", Ref: "C", Alt: "T",
		Info: map[string]interface{}{"CLNSIG": "Pathogenic", "RS": "42"},
	}

	ids, rec := RecordFromVariant(v)
	require.NotNil(t, rec)
	assert.Equal(t, []string{"rs42"}, ids)
	assert.Equal(t, "Unknown", rec.Gene)
	assert.Equal(t, "Unknown", rec.Disease)
	assert.Equal(t, "unknown", rec.Origin)
	assert.Empty(t, rec.MolecularConsequence)
}

func TestRecordFromVariant_MissingRS(t *testing.T) {
	for _, rs := range []string{"", ".", "-1"} {
		v := &vcf.Variant{
			Ref: "C", Alt: "T",
			Info: map[string]interface{}{"CLNSIG": "Pathogenic", "RS": rs},
		}
		_, rec := RecordFromVariant(v)
		assert.Nil(t, rec, "RS=%q", rs)
	}
}

func findTestFile(t *testing.T, name string) string {
	t.Helper()
	for _, p := range []string{
		filepath.Join("testdata", name),
		filepath.Join("..", "..", "testdata", name),
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	t.Fatalf("Test file not found: %s", name)
	return ""
}
