package vcf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-carrier/internal/fileio"
)

// Parser reads the fixed columns of a sites-only VCF such as a ClinVar
// release. FORMAT and sample columns, if present, are ignored.
type Parser struct {
	reader     *bufio.Reader
	input      *fileio.Reader
	lineNumber int
	header     []string
	meta       map[string]string
}

// NewParser opens the VCF at path. Gzip input is detected from its magic
// bytes and "-" reads stdin.
func NewParser(path string) (*Parser, error) {
	in, err := fileio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p, err := newParser(in)
	if err != nil {
		in.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser over r, which may be gzipped.
// The caller keeps ownership of r.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	in, err := fileio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open vcf stream: %w", err)
	}
	return newParser(in)
}

func newParser(in *fileio.Reader) (*Parser, error) {
	p := &Parser{
		reader: bufio.NewReader(in),
		input:  in,
		meta:   make(map[string]string),
	}
	if err := p.readHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

// readLine returns the next line without its terminator. ok is false at
// end of input. A final line without a newline is still returned.
func (p *Parser) readLine() (line string, ok bool, err error) {
	line, err = p.reader.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", false, err
		}
		if line == "" {
			return "", false, nil
		}
	}
	p.lineNumber++
	return strings.TrimRight(line, "\r\n"), true, nil
}

// readHeader consumes the ## meta lines and the #CHROM line.
func (p *Parser) readHeader() error {
	for {
		line, ok, err := p.readLine()
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if !ok {
			return &ParseError{Line: p.lineNumber, Message: "no #CHROM header line found"}
		}

		switch {
		case strings.HasPrefix(line, "##"):
			p.header = append(p.header, line)
			// Structured lines (##INFO=<...>) are kept verbatim only.
			if k, v, found := strings.Cut(line[2:], "="); found && !strings.HasPrefix(v, "<") {
				p.meta[k] = v
			}
		case strings.HasPrefix(line, "#CHROM"):
			p.header = append(p.header, line)
			return nil
		default:
			return &ParseError{Line: p.lineNumber, Message: "expected #CHROM header line"}
		}
	}
}

// Next reads the next variant. It returns nil, nil at end of input.
// Blank lines are skipped.
func (p *Parser) Next() (*Variant, error) {
	for {
		line, ok, err := p.readLine()
		if err != nil {
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		if !ok {
			return nil, nil
		}
		if line == "" {
			continue
		}
		return p.parseLine(line)
	}
}

// parseLine parses the first eight columns of a data line.
func (p *Parser) parseLine(line string) (*Variant, error) {
	fields := strings.SplitN(line, "\t", 9)
	if len(fields) < 8 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	var qual float64
	if fields[5] != "." {
		qual, _ = strconv.ParseFloat(fields[5], 64)
	}

	return &Variant{
		Chrom:  fields[0],
		Pos:    pos,
		ID:     fields[2],
		Ref:    fields[3],
		Alt:    fields[4],
		Qual:   qual,
		Filter: fields[6],
		Info:   parseInfo(fields[7]),
	}, nil
}

// parseInfo splits an INFO column into key/value pairs. Flag keys map to
// true.
func parseInfo(info string) map[string]interface{} {
	result := make(map[string]interface{})
	if info == "." || info == "" {
		return result
	}

	for _, kv := range strings.Split(info, ";") {
		if kv == "" {
			continue
		}
		if k, v, found := strings.Cut(kv, "="); found {
			result[k] = v
		} else {
			result[kv] = true
		}
	}
	return result
}

// Header returns the raw header lines, ending with the #CHROM line.
func (p *Parser) Header() []string {
	return p.header
}

// Meta returns the value of a simple "##key=value" header line such as
// fileDate, source or reference. Unknown keys return "".
func (p *Parser) Meta(key string) string {
	return p.meta[key]
}

// LineNumber returns the number of lines read so far.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close releases the decompressor and the underlying file, if any.
func (p *Parser) Close() error {
	if p.input != nil {
		return p.input.Close()
	}
	return nil
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
