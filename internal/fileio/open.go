// Package fileio opens input files, transparently decompressing gzip data.
package fileio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// Reader is an input stream that releases the underlying file and
// decompressor on Close.
type Reader struct {
	io.Reader
	file *os.File
	gz   *gzip.Reader
}

// Open opens path for reading. "-" reads from stdin. Gzip input is detected
// by its magic bytes rather than the file extension.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

// NewReader wraps r, decompressing it if it starts with the gzip magic
// number (0x1f, 0x8b). The caller keeps ownership of r.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)

	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return &Reader{Reader: gz, gz: gz}, nil
	}

	return &Reader{Reader: br}, nil
}

// Close closes the decompressor and the underlying file, if any.
func (r *Reader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
