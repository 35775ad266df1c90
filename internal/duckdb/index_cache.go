package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/vibe-carrier/internal/clinvar"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// IndexCache manages a gob-serialized copy of a decoded index next to its
// source artifact:
//
//	clinvar_index.json.gz           (source artifact)
//	clinvar_index.json.gz.gob       (decoded index)
//	clinvar_index.json.gz.gob.meta  (source fingerprint)
type IndexCache struct {
	source string
}

// NewIndexCache creates a cache for the artifact at source.
func NewIndexCache(source string) *IndexCache {
	return &IndexCache{source: source}
}

func (ic *IndexCache) gobPath() string {
	return ic.source + ".gob"
}

func (ic *IndexCache) metaPath() string {
	return ic.source + ".gob.meta"
}

// Valid checks whether the cached index matches the source fingerprint.
func (ic *IndexCache) Valid(src FileFingerprint) bool {
	meta, err := ic.readMeta()
	if err != nil {
		return false
	}

	if meta["source_size"] != strconv.FormatInt(src.Size, 10) ||
		meta["source_modtime"] != src.ModTime.UTC().Format(time.RFC3339Nano) {
		return false
	}

	if _, err := os.Stat(ic.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads the cached index from disk.
func (ic *IndexCache) Load() (clinvar.Index, error) {
	f, err := os.Open(ic.gobPath())
	if err != nil {
		return nil, fmt.Errorf("open index cache: %w", err)
	}
	defer f.Close()

	var idx clinvar.Index
	if err := gob.NewDecoder(f).Decode(&idx); err != nil {
		return nil, fmt.Errorf("decode index cache: %w", err)
	}
	if idx == nil {
		idx = clinvar.Index{}
	}
	return idx, nil
}

// Write serializes idx to disk and records the source fingerprint.
func (ic *IndexCache) Write(idx clinvar.Index, src FileFingerprint) error {
	f, err := os.Create(ic.gobPath())
	if err != nil {
		return fmt.Errorf("create index cache: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(idx); err != nil {
		f.Close()
		os.Remove(ic.gobPath())
		return fmt.Errorf("encode index cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index cache: %w", err)
	}

	return ic.writeMeta(src)
}

// Clear removes the cached index files.
func (ic *IndexCache) Clear() {
	os.Remove(ic.gobPath())
	os.Remove(ic.metaPath())
}

func (ic *IndexCache) writeMeta(src FileFingerprint) error {
	lines := []string{
		"source_size=" + strconv.FormatInt(src.Size, 10),
		"source_modtime=" + src.ModTime.UTC().Format(time.RFC3339Nano),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	return os.WriteFile(ic.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (ic *IndexCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(ic.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
