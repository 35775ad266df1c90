// Package match finds the indexed pathogenic variants a genotype file carries.
package match

import (
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/inodb/vibe-carrier/internal/clinvar"
	"github.com/inodb/vibe-carrier/internal/genotype"
	"github.com/inodb/vibe-carrier/internal/progress"
)

// Finding is a genotype call that is consistent with carrying an indexed
// pathogenic or likely pathogenic allele.
type Finding struct {
	RSID                 string                 `json:"rsid"`
	Genotype             string                 `json:"genotype"`
	Chrom                string                 `json:"chromosome"`
	Pos                  string                 `json:"position"`
	Gene                 string                 `json:"gene"`
	Disease              string                 `json:"disease"`
	Class                clinvar.Classification `json:"class"`
	Significance         string                 `json:"significance"`
	Ref                  string                 `json:"ref"`
	Alt                  string                 `json:"alt"`
	Zygosity             string                 `json:"zygosity"`
	VariationID          string                 `json:"variation_id,omitempty"`
	AlleleID             string                 `json:"allele_id,omitempty"`
	HGVS                 string                 `json:"hgvs,omitempty"`
	ReviewStatus         string                 `json:"review_status,omitempty"`
	MolecularConsequence string                 `json:"molecular_consequence,omitempty"`
	Origin               string                 `json:"origin,omitempty"`
}

// Matcher joins parsed genotypes against a ClinVar index.
type Matcher struct {
	workers  int
	observer progress.Observer
	logger   *zap.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithWorkers sets the number of goroutines scanning genotypes.
// Values below 2 scan sequentially.
func WithWorkers(n int) Option {
	return func(m *Matcher) { m.workers = n }
}

// WithObserver sets the observer that receives processed genotype counts.
// With WithWorkers above 1 the observer is called from several goroutines
// at once and must be safe for concurrent use; progress.Throttle is.
func WithObserver(obs progress.Observer) Option {
	return func(m *Matcher) { m.observer = progress.OrNop(obs) }
}

// WithLogger sets the logger for debug and info messages.
func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) { m.logger = l }
}

// NewMatcher creates a matcher.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		workers:  1,
		observer: progress.Nop(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match is shorthand for NewMatcher(opts...).Match(idx, gts).
func Match(idx clinvar.Index, gts genotype.Genotypes, opts ...Option) []*Finding {
	return NewMatcher(opts...).Match(idx, gts)
}

// Match returns the findings for every genotype whose identifier is in idx
// and whose call passes the allele check, ordered by Sort. It does not
// modify its inputs and returns the same result for the same inputs.
func (m *Matcher) Match(idx clinvar.Index, gts genotype.Genotypes) []*Finding {
	ids := make([]string, 0, len(gts))
	for id := range gts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var processed atomic.Int64
	eval := func(id string) *Finding {
		f := evaluate(id, gts[id], idx)
		n := processed.Add(1)
		m.observer.Progress(progress.StageMatch, int(n), false)
		return f
	}

	var findings []*Finding
	if m.workers < 2 {
		for _, id := range ids {
			if f := eval(id); f != nil {
				findings = append(findings, f)
			}
		}
	} else {
		findings = m.matchParallel(ids, eval)
	}
	m.observer.Progress(progress.StageMatch, len(ids), true)

	Sort(findings)
	m.logger.Info("matched genotypes",
		zap.Int("genotypes", len(ids)),
		zap.Int("findings", len(findings)))
	return findings
}

// evaluate returns the finding for one genotype call, or nil.
func evaluate(id string, g *genotype.Record, idx clinvar.Index) *Finding {
	if g == nil {
		return nil
	}
	rec, ok := idx.Lookup(id)
	if !ok || rec == nil {
		return nil
	}

	set, ok := newAlleleSet(rec.Ref, rec.Alt)
	if !ok {
		return nil
	}
	a1, a2, ok := ExtractAlleles(g.Genotype)
	if !ok || !set.matches(a1, a2) {
		return nil
	}

	return &Finding{
		RSID:                 strings.ToLower(id),
		Genotype:             g.Genotype,
		Chrom:                orDefault(g.Chrom, rec.Chrom),
		Pos:                  orDefault(g.Pos, rec.Pos),
		Gene:                 orDefault(rec.Gene, "Unknown"),
		Disease:              orDefault(rec.Disease, "Unknown"),
		Class:                rec.Class,
		Significance:         rec.Class.Significance(),
		Ref:                  rec.Ref,
		Alt:                  rec.Alt,
		Zygosity:             set.zygosity(a1, a2),
		VariationID:          rec.VariationID,
		AlleleID:             rec.AlleleID,
		HGVS:                 rec.HGVS,
		ReviewStatus:         rec.ReviewStatus,
		MolecularConsequence: rec.MolecularConsequence,
		Origin:               rec.Origin,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
