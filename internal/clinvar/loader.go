package clinvar

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/inodb/vibe-carrier/internal/fileio"
	"github.com/inodb/vibe-carrier/internal/progress"
)

// ErrIndexUnavailable is returned when the index artifact cannot be read
// or is not a well-formed mapping.
var ErrIndexUnavailable = errors.New("clinvar index unavailable")

// Loader reads serialized index artifacts.
type Loader struct {
	observer progress.Observer
	logger   *zap.Logger
}

// NewLoader creates a loader that reports record counts to obs.
// A nil observer is allowed.
func NewLoader(obs progress.Observer) *Loader {
	return &Loader{
		observer: progress.OrNop(obs),
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for info messages.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// LoadFile loads a JSON index artifact, optionally gzipped. "-" reads stdin.
func (l *Loader) LoadFile(path string) (Index, error) {
	r, err := fileio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIndexUnavailable, path, err)
	}
	defer r.Close()

	idx, err := l.Load(r)
	if err != nil {
		return nil, err
	}
	l.logger.Info("loaded clinvar index",
		zap.String("path", path),
		zap.Int("records", len(idx)))
	return idx, nil
}

// Load decodes a JSON index artifact from r. Gzip input is detected
// automatically. Keys are lowercased; records are not validated.
func (l *Loader) Load(r io.Reader) (Index, error) {
	in, err := fileio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	defer in.Close()

	dec := json.NewDecoder(in)
	var raw map[string]*Record
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrIndexUnavailable, err)
	}
	if raw == nil {
		// A literal JSON null is not a mapping.
		return nil, fmt.Errorf("%w: artifact is not a mapping", ErrIndexUnavailable)
	}
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after the index mapping", ErrIndexUnavailable)
	}

	// Sorted keys make case collisions resolve the same way on every load.
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	idx := make(Index, len(raw))
	source := make(map[string]string, len(raw))
	n := 0
	for _, id := range ids {
		rec := raw[id]
		if rec == nil {
			continue
		}
		n++
		l.observer.Progress(progress.StageIndex, n, false)

		key := strings.ToLower(id)
		if prev, dup := source[key]; dup {
			kept, dropped := prev, id
			if id == key {
				kept, dropped = id, prev
			}
			l.logger.Warn("duplicate clinvar identifier differing only in case",
				zap.String("kept", kept),
				zap.String("dropped", dropped))
			if kept == prev {
				continue
			}
		}
		idx[key] = rec
		source[key] = id
	}
	l.observer.Progress(progress.StageIndex, len(idx), true)

	return idx, nil
}

// WriteJSON writes idx as a compact JSON index artifact.
func WriteJSON(w io.Writer, idx Index) error {
	if err := json.NewEncoder(w).Encode(idx); err != nil {
		return fmt.Errorf("encode clinvar index: %w", err)
	}
	return nil
}
