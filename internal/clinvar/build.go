package clinvar

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-carrier/internal/progress"
	"github.com/inodb/vibe-carrier/internal/vcf"
)

// Terms in CLNSIG that disqualify a record regardless of other tiers present.
var excludedSignificance = []string{
	"conflicting", "uncertain", "benign", "not provided",
	"no classification", "association", "protective",
	"affects", "confers sensitivity",
}

// originLabels maps the ClinVar ORIGIN bit value to a label.
var originLabels = map[string]string{
	"0":   "unknown",
	"1":   "germline",
	"2":   "somatic",
	"4":   "inherited",
	"8":   "paternal",
	"16":  "maternal",
	"32":  "de-novo",
	"64":  "biparental",
	"128": "uniparental",
}

var alleleSeparators = regexp.MustCompile(`[,/;|\s]+`)

// BuildStats summarises an index build.
type BuildStats struct {
	Variants int // VCF data lines read
	Retained int // lines that produced at least one index entry
	Keys     int // distinct identifiers in the index
}

// Builder converts ClinVar VCF records into an Index.
type Builder struct {
	observer progress.Observer
	logger   *zap.Logger
}

// NewBuilder creates a builder that reports scanned line counts to obs.
func NewBuilder(obs progress.Observer) *Builder {
	return &Builder{
		observer: progress.OrNop(obs),
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (b *Builder) SetLogger(l *zap.Logger) {
	b.logger = l
}

// Build reads every variant from parser and keeps the pathogenic and likely
// pathogenic single-nucleotide records that carry an rsID.
func (b *Builder) Build(parser vcf.VariantParser) (Index, BuildStats, error) {
	idx := make(Index)
	var stats BuildStats

	if m, ok := parser.(interface{ Meta(string) string }); ok {
		b.logger.Info("reading ClinVar release",
			zap.String("source", m.Meta("source")),
			zap.String("file_date", m.Meta("fileDate")),
			zap.String("reference", m.Meta("reference")))
	}

	for {
		v, err := parser.Next()
		if err != nil {
			return nil, stats, fmt.Errorf("read variant: %w", err)
		}
		if v == nil {
			break
		}
		stats.Variants++
		b.observer.Progress(progress.StageIndex, stats.Variants, false)

		ids, rec := RecordFromVariant(v)
		if rec == nil {
			continue
		}
		stats.Retained++
		for _, id := range ids {
			idx[id] = rec
		}
	}

	stats.Keys = len(idx)
	b.observer.Progress(progress.StageIndex, stats.Variants, true)
	b.logger.Info("built clinvar index",
		zap.Int("variants", stats.Variants),
		zap.Int("retained", stats.Retained),
		zap.Int("keys", stats.Keys))

	return idx, stats, nil
}

// RecordFromVariant converts a ClinVar VCF line into an index record and the
// identifiers it should be stored under. It returns a nil record when the
// line has no rsID, is not pathogenic or likely pathogenic, or has no
// single-nucleotide alternate allele.
func RecordFromVariant(v *vcf.Variant) ([]string, *Record) {
	ids := rsIDs(v.InfoString("RS"))
	if len(ids) == 0 {
		return nil, nil
	}

	class, ok := ParseSignificance(v.InfoString("CLNSIG"))
	if !ok {
		return nil, nil
	}

	ref, alt := NormalizeRefAlt(v.Ref, v.Alt)
	if alt == "" {
		return nil, nil
	}

	rec := &Record{
		Gene:                 geneSymbol(v.InfoString("GENEINFO")),
		Disease:              diseaseName(v),
		Chrom:                v.Chrom,
		Pos:                  fmt.Sprintf("%d", v.Pos),
		Ref:                  ref,
		Alt:                  alt,
		Class:                class,
		VariationID:          v.ID,
		AlleleID:             v.InfoString("ALLELEID"),
		HGVS:                 v.InfoString("CLNHGVS"),
		ReviewStatus:         strings.ReplaceAll(v.InfoString("CLNREVSTAT"), "_", " "),
		MolecularConsequence: molecularConsequence(v.InfoString("MC")),
		Origin:               originLabel(v.InfoString("ORIGIN")),
	}
	return ids, rec
}

// ParseSignificance maps a CLNSIG value to a retained classification.
func ParseSignificance(clnsig string) (Classification, bool) {
	if clnsig == "" {
		return "", false
	}
	txt := strings.ReplaceAll(strings.ToLower(clnsig), "_", " ")

	for _, term := range excludedSignificance {
		if strings.Contains(txt, term) {
			return "", false
		}
	}

	if strings.HasPrefix(txt, "pathogenic") {
		if !strings.Contains(txt, "likely") ||
			strings.HasPrefix(txt, "pathogenic/likely pathogenic") ||
			strings.HasPrefix(txt, "pathogenic|likely pathogenic") {
			return Pathogenic, true
		}
	}

	if strings.HasPrefix(txt, "likely pathogenic") {
		return LikelyPathogenic, true
	}

	if first, _, found := strings.Cut(txt, "|"); found {
		switch strings.TrimSpace(first) {
		case "pathogenic":
			return Pathogenic, true
		case "likely pathogenic":
			return LikelyPathogenic, true
		}
	}

	return "", false
}

// NormalizeRefAlt reduces REF/ALT to single-nucleotide alleles. The alternate
// alleles are deduplicated, sorted and comma-joined. When REF holds several
// alleles and ALT is empty (e.g. "C/A"), the first is taken as reference.
// ref is "" when no valid reference allele exists; alt is "" when no valid
// alternate allele exists.
func NormalizeRefAlt(ref, alt string) (string, string) {
	refParts := alleleTokens(ref)
	altParts := alleleTokens(alt)

	var refNorm string
	if len(refParts) >= 2 && len(altParts) == 0 {
		refNorm = refParts[0]
		altParts = refParts[1:]
	} else if len(refParts) > 0 {
		refNorm = refParts[0]
	}

	if !isBase(refNorm) {
		return "", ""
	}

	seen := make(map[string]bool)
	var alts []string
	for _, a := range altParts {
		if isBase(a) && !seen[a] {
			seen[a] = true
			alts = append(alts, a)
		}
	}
	if len(alts) == 0 {
		return refNorm, ""
	}
	sort.Strings(alts)

	return refNorm, strings.Join(alts, ",")
}

func alleleTokens(s string) []string {
	var out []string
	for _, t := range alleleSeparators.Split(strings.ToUpper(strings.TrimSpace(s)), -1) {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func isBase(s string) bool {
	switch s {
	case "A", "C", "G", "T":
		return true
	}
	return false
}

func rsIDs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "." || raw == "-1" {
		return nil
	}
	var ids []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			ids = append(ids, strings.ToLower("rs"+r))
		}
	}
	return ids
}

// geneSymbol returns the first gene of a GENEINFO value ("MCM6:4175|LCT:3938").
func geneSymbol(geneinfo string) string {
	if geneinfo == "" {
		return "Unknown"
	}
	gene, _, _ := strings.Cut(geneinfo, ":")
	gene, _, _ = strings.Cut(gene, "|")
	return gene
}

// diseaseName returns the first CLNDN condition with underscores as spaces.
func diseaseName(v *vcf.Variant) string {
	if _, ok := v.Info["CLNDN"]; !ok {
		return "Unknown"
	}
	name, _, _ := strings.Cut(strings.ReplaceAll(v.InfoString("CLNDN"), "_", " "), "|")
	return name
}

// molecularConsequence extracts the term of the first MC entry
// ("SO:0001583|missense_variant,SO:...").
func molecularConsequence(mc string) string {
	_, rest, found := strings.Cut(mc, "|")
	if !found {
		return ""
	}
	term, _, _ := strings.Cut(rest, ",")
	term, _, _ = strings.Cut(term, "|")
	return strings.ReplaceAll(term, "_", " ")
}

func originLabel(code string) string {
	if label, ok := originLabels[code]; ok {
		return label
	}
	return "unknown"
}
