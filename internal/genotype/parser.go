// Package genotype parses consumer genotyping raw-data files (23andMe,
// AncestryDNA and similar exports) into a map of per-variant genotype calls.
package genotype

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-carrier/internal/fileio"
	"github.com/inodb/vibe-carrier/internal/progress"
)

var (
	// ErrNoHeaderFound is returned when no line looks like an rsid header.
	ErrNoHeaderFound = errors.New("no genotype header found")
	// ErrMissingRequiredColumns is returned when the header lacks an rsid
	// or genotype column.
	ErrMissingRequiredColumns = errors.New("missing required columns")
	// ErrIO is returned when the underlying input cannot be read.
	ErrIO = errors.New("genotype file read failed")
)

// noCalls are genotype values that mean the assay produced no call.
// Matching is case-sensitive.
var noCalls = map[string]bool{
	"--": true,
	"II": true,
	"DD": true,
	"NN": true,
}

// Record is the observed genotype for one variant identifier.
type Record struct {
	Genotype string // raw call, e.g. "AG"
	Chrom    string // as reported by the file, may be empty
	Pos      string // as reported by the file, may be empty
}

// Genotypes maps a lowercase variant identifier to its call.
type Genotypes map[string]*Record

// Delimiter is the field separator inferred from the header line.
type Delimiter int

const (
	DelimWhitespace Delimiter = iota
	DelimTab
	DelimComma
)

func (d Delimiter) String() string {
	switch d {
	case DelimTab:
		return "tab"
	case DelimComma:
		return "comma"
	}
	return "whitespace"
}

// Columns holds the resolved column indices of a header. Optional columns
// are -1 when absent.
type Columns struct {
	RSID     int
	Genotype int
	Allele1  int
	Allele2  int
	Chrom    int
	Pos      int
}

// Parser reads genotype files.
type Parser struct {
	observer progress.Observer
	logger   *zap.Logger
}

// NewParser creates a parser that reports processed row counts to obs.
// A nil observer is allowed.
func NewParser(obs progress.Observer) *Parser {
	return &Parser{
		observer: progress.OrNop(obs),
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for info messages.
func (p *Parser) SetLogger(l *zap.Logger) {
	p.logger = l
}

// ParseFile parses the genotype file at path. Gzip input is detected
// automatically and "-" reads stdin.
func (p *Parser) ParseFile(path string) (Genotypes, error) {
	r, err := fileio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer r.Close()

	gts, err := p.Parse(r)
	if err != nil {
		return nil, err
	}
	p.logger.Info("parsed genotype file",
		zap.String("path", path),
		zap.Int("genotypes", len(gts)))
	return gts, nil
}

// Parse reads a genotype file from r.
//
// The header is the first line whose first token is "rsid" (an optional
// leading '#' is ignored) and that also mentions "genotype" or "chromosome".
// Rows without a usable identifier or with a no-call genotype are skipped.
// Later rows overwrite earlier rows with the same identifier.
func (p *Parser) Parse(r io.Reader) (Genotypes, error) {
	lr := &lineReader{r: bufio.NewReader(r)}

	header, err := findHeader(lr)
	if err != nil {
		return nil, err
	}

	delim := inferDelimiter(header)
	cols, err := resolveColumns(splitFields(stripComment(header), delim))
	if err != nil {
		return nil, &ParseError{Line: lr.n, Err: err, Message: "header needs rsid and genotype columns"}
	}
	p.logger.Debug("genotype header",
		zap.Int("line", lr.n),
		zap.Stringer("delimiter", delim))

	gts := make(Genotypes)
	rows := 0
	for {
		line, ok, err := lr.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		rows++
		if id, rec := parseRow(splitFields(line, delim), cols); rec != nil {
			gts[id] = rec
		}
		p.observer.Progress(progress.StageGenotype, rows, false)
	}
	p.observer.Progress(progress.StageGenotype, rows, true)

	return gts, nil
}

// byteOrderMark is left by Windows editors at the start of re-saved exports.
const byteOrderMark = "\ufeff"

// lineReader yields lines without their line terminators and counts them.
type lineReader struct {
	r *bufio.Reader
	n int
}

func (lr *lineReader) next() (string, bool, error) {
	line, err := lr.r.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", false, fmt.Errorf("%w: %w", ErrIO, err)
		}
		if line == "" {
			return "", false, nil
		}
	}
	lr.n++
	if lr.n == 1 {
		line = strings.TrimPrefix(line, byteOrderMark)
	}
	return strings.TrimRight(line, "\r\n"), true, nil
}

func findHeader(lr *lineReader) (string, error) {
	for {
		line, ok, err := lr.next()
		if err != nil {
			return "", err
		}
		if !ok {
			return "", &ParseError{Line: lr.n, Err: ErrNoHeaderFound, Message: "expected a header line starting with rsid"}
		}
		if isHeader(line) {
			return line, nil
		}
	}
}

// isHeader reports whether line is an rsid header line.
func isHeader(line string) bool {
	body := strings.TrimSpace(stripComment(line))
	end := strings.IndexAny(body, "\t, ")
	first, rest := body, ""
	if end >= 0 {
		first, rest = body[:end], body[end:]
	}
	if normalizeToken(first) != "rsid" {
		return false
	}
	rest = strings.ToLower(rest)
	return strings.Contains(rest, "genotype") || strings.Contains(rest, "chromosome")
}

// stripComment removes leading comment markers and the spaces after them.
func stripComment(line string) string {
	return strings.TrimLeft(strings.TrimLeft(line, "#"), " ")
}

func inferDelimiter(header string) Delimiter {
	switch {
	case strings.Contains(header, "\t"):
		return DelimTab
	case strings.Contains(header, ","):
		return DelimComma
	}
	return DelimWhitespace
}

func splitFields(line string, d Delimiter) []string {
	switch d {
	case DelimTab:
		return strings.Split(line, "\t")
	case DelimComma:
		return strings.Split(line, ",")
	}
	return strings.Fields(line)
}

// normalizeToken strips comment markers, quotes and whitespace and lowercases.
func normalizeToken(tok string) string {
	tok = strings.TrimSpace(tok)
	tok = strings.TrimLeft(tok, "#")
	tok = strings.Trim(strings.TrimSpace(tok), `"'`)
	return strings.ToLower(strings.TrimSpace(tok))
}

// cleanValue trims whitespace and surrounding quotes from a data field.
func cleanValue(v string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(v), `"'`))
}

func resolveColumns(fields []string) (Columns, error) {
	cols := Columns{RSID: -1, Genotype: -1, Allele1: -1, Allele2: -1, Chrom: -1, Pos: -1}
	rsidSuffix := -1

	for i, f := range fields {
		tok := normalizeToken(f)
		switch {
		case tok == "rsid":
			if cols.RSID < 0 {
				cols.RSID = i
			}
		case strings.HasSuffix(tok, "rsid"):
			if rsidSuffix < 0 {
				rsidSuffix = i
			}
		}
		if cols.Genotype < 0 && strings.Contains(tok, "genotype") {
			cols.Genotype = i
		}
		if cols.Allele1 < 0 && tok == "allele1" {
			cols.Allele1 = i
		}
		if cols.Allele2 < 0 && tok == "allele2" {
			cols.Allele2 = i
		}
		if cols.Chrom < 0 && strings.Contains(tok, "chromosome") {
			cols.Chrom = i
		}
		if cols.Pos < 0 && strings.Contains(tok, "position") {
			cols.Pos = i
		}
	}
	if cols.RSID < 0 {
		cols.RSID = rsidSuffix
	}

	hasAlleles := cols.Allele1 >= 0 && cols.Allele2 >= 0
	if cols.RSID < 0 || (cols.Genotype < 0 && !hasAlleles) {
		return cols, ErrMissingRequiredColumns
	}
	return cols, nil
}

func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return cleanValue(fields[i])
}

// parseRow returns the identifier and record for a data row, or a nil record
// when the row is rejected.
func parseRow(fields []string, cols Columns) (string, *Record) {
	id := strings.ToLower(field(fields, cols.RSID))
	if id == "" || !(strings.HasPrefix(id, "rs") || strings.HasPrefix(id, "i")) {
		return "", nil
	}

	gt := field(fields, cols.Genotype)
	if cols.Genotype < 0 {
		gt = field(fields, cols.Allele1) + field(fields, cols.Allele2)
	}
	if gt == "" || noCalls[gt] {
		return "", nil
	}

	return id, &Record{
		Genotype: gt,
		Chrom:    field(fields, cols.Chrom),
		Pos:      field(fields, cols.Pos),
	}
}

// ParseError reports a header problem with line context. It wraps
// ErrNoHeaderFound or ErrMissingRequiredColumns.
type ParseError struct {
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("genotype parse error at line %d: %v: %s", e.Line, e.Err, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
