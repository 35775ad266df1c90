package match

import "strings"

// Zygosity labels.
const (
	ZygosityAltAlt = "Alt/Alt"
	ZygosityRefAlt = "Ref/Alt"
	ZygosityRefRef = "Ref/Ref"
	ZygosityOther  = "Other"
)

// alleleSet is the normalized reference/alternate allele pair of a record.
type alleleSet struct {
	ref  byte
	alts map[byte]bool
}

func isBase(b byte) bool {
	switch b {
	case 'A', 'C', 'G', 'T':
		return true
	}
	return false
}

// newAlleleSet validates ref and the comma-separated alt field. It fails
// when ref is not a single base or when alt contains no single-base allele.
func newAlleleSet(ref, alt string) (alleleSet, bool) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if len(ref) != 1 || !isBase(ref[0]) {
		return alleleSet{}, false
	}

	set := alleleSet{ref: ref[0], alts: make(map[byte]bool)}
	for _, a := range strings.Split(alt, ",") {
		a = strings.ToUpper(strings.TrimSpace(a))
		if len(a) == 1 && isBase(a[0]) {
			set.alts[a[0]] = true
		}
	}
	if len(set.alts) == 0 {
		return alleleSet{}, false
	}
	return set, true
}

func (s alleleSet) valid(b byte) bool {
	return b == s.ref || s.alts[b]
}

// ExtractAlleles returns the two nucleotide letters of a genotype call,
// uppercased. Any character other than A, C, G or T is ignored. ok is false
// unless exactly two letters are found.
func ExtractAlleles(genotype string) (a1, a2 byte, ok bool) {
	var found [2]byte
	n := 0
	for i := 0; i < len(genotype); i++ {
		c := genotype[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if !isBase(c) {
			continue
		}
		if n == 2 {
			return 0, 0, false
		}
		found[n] = c
		n++
	}
	if n != 2 {
		return 0, 0, false
	}
	return found[0], found[1], true
}

// Matches reports whether a genotype is consistent with carrying a
// documented alternate allele: both alleles must be the reference or one of
// the alternates, and at least one must be an alternate.
func Matches(genotype, ref, alt string) bool {
	set, ok := newAlleleSet(ref, alt)
	if !ok {
		return false
	}
	a1, a2, ok := ExtractAlleles(genotype)
	if !ok {
		return false
	}
	return set.matches(a1, a2)
}

func (s alleleSet) matches(a1, a2 byte) bool {
	return s.valid(a1) && s.valid(a2) && (s.alts[a1] || s.alts[a2])
}

// Zygosity labels which combination of reference and alternate alleles a
// genotype carries. It returns "" when the record or genotype is unusable.
func Zygosity(genotype, ref, alt string) string {
	set, ok := newAlleleSet(ref, alt)
	if !ok {
		return ""
	}
	a1, a2, ok := ExtractAlleles(genotype)
	if !ok {
		return ""
	}
	return set.zygosity(a1, a2)
}

func (s alleleSet) zygosity(a1, a2 byte) string {
	switch {
	case s.alts[a1] && s.alts[a2]:
		return ZygosityAltAlt
	case (s.alts[a1] && a2 == s.ref) || (s.alts[a2] && a1 == s.ref):
		return ZygosityRefAlt
	case a1 == s.ref && a2 == s.ref:
		return ZygosityRefRef
	}
	return ZygosityOther
}
