package match

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/inodb/vibe-carrier/internal/clinvar"
)

// Sort orders findings with Pathogenic before Likely pathogenic and, within
// a tier, by disease name using English collation. Ties are broken by
// identifier so the order is fully determined by the findings.
func Sort(findings []*Finding) {
	col := collate.New(language.English)

	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if ta, tb := tier(a.Class), tier(b.Class); ta != tb {
			return ta < tb
		}
		if c := col.CompareString(a.Disease, b.Disease); c != 0 {
			return c < 0
		}
		return a.RSID < b.RSID
	})
}

func tier(c clinvar.Classification) int {
	if c.IsPathogenic() {
		return 0
	}
	return 1
}

// Summary is the hand-off to report rendering: the ordered findings and
// their counts per classification tier.
type Summary struct {
	Findings         []*Finding `json:"findings"`
	Total            int        `json:"total"`
	Pathogenic       int        `json:"pathogenic"`
	LikelyPathogenic int        `json:"likely_pathogenic"`
}

// Summarize counts findings per tier. The findings are expected to be
// ordered by Sort already.
func Summarize(findings []*Finding) Summary {
	s := Summary{Findings: findings, Total: len(findings)}
	if s.Findings == nil {
		s.Findings = []*Finding{}
	}
	for _, f := range findings {
		if f.Class.IsPathogenic() {
			s.Pathogenic++
		} else {
			s.LikelyPathogenic++
		}
	}
	return s
}
