package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"os"
	"sort"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-carrier/internal/clinvar"
	"github.com/inodb/vibe-carrier/internal/progress"
)

// WriteIndex replaces the stored index with idx using the Appender API.
// Identifiers are lowercased and written in sorted order.
func (s *Store) WriteIndex(idx clinvar.Index) error {
	if s.readOnly {
		return fmt.Errorf("write index: %s is opened read-only", s.path)
	}
	if err := s.ClearIndex(); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	if len(idx) == 0 {
		return nil
	}

	ids := make([]string, 0, len(idx))
	for id := range idx {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "clinvar_index")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		r := idx[id]
		key := strings.ToLower(id)
		if r == nil || seen[key] {
			continue
		}
		seen[key] = true
		if err := appender.AppendRow(
			key, r.Gene, r.Disease, r.Chrom, r.Pos, r.Ref, r.Alt, string(r.Class),
			r.VariationID, r.AlleleID, r.HGVS, r.ReviewStatus,
			r.MolecularConsequence, r.Origin,
		); err != nil {
			return fmt.Errorf("append index record: %w", err)
		}
	}

	return appender.Flush()
}

// ClearIndex removes all stored index records.
func (s *Store) ClearIndex() error {
	_, err := s.db.Exec("DELETE FROM clinvar_index")
	return err
}

// IndexCount returns the number of stored index records.
func (s *Store) IndexCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM clinvar_index").Scan(&n); err != nil {
		return 0, fmt.Errorf("count index: %w", err)
	}
	return n, nil
}

const selectIndex = `SELECT
		rsid, gene, disease, chrom, pos, ref, alt, class,
		variation_id, allele_id, hgvs, review_status,
		molecular_consequence, origin
		FROM clinvar_index`

// LoadIndex reads the whole stored index into memory, reporting loaded
// record counts to obs. Read failures are reported as
// clinvar.ErrIndexUnavailable.
func (s *Store) LoadIndex(obs progress.Observer) (clinvar.Index, error) {
	obs = progress.OrNop(obs)

	rows, err := s.db.Query(selectIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: query index: %v", clinvar.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	idx, err := scanIndex(rows, obs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clinvar.ErrIndexUnavailable, err)
	}
	obs.Progress(progress.StageIndex, len(idx), true)

	return idx, nil
}

// SearchByGene returns the stored records for a gene symbol, keyed by rsid.
func (s *Store) SearchByGene(gene string) (clinvar.Index, error) {
	rows, err := s.db.Query(selectIndex+" WHERE gene=?", gene)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	return scanIndex(rows, progress.Nop())
}

// scanIndex scans clinvar_index rows into an Index.
func scanIndex(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}, obs progress.Observer) (clinvar.Index, error) {
	idx := make(clinvar.Index)
	for rows.Next() {
		var id, class string
		var r clinvar.Record
		if err := rows.Scan(
			&id, &r.Gene, &r.Disease, &r.Chrom, &r.Pos, &r.Ref, &r.Alt, &class,
			&r.VariationID, &r.AlleleID, &r.HGVS, &r.ReviewStatus,
			&r.MolecularConsequence, &r.Origin,
		); err != nil {
			return nil, fmt.Errorf("scan index record: %w", err)
		}
		r.Class = clinvar.Classification(class)
		idx[id] = &r
		obs.Progress(progress.StageIndex, len(idx), false)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index: %w", err)
	}
	return idx, nil
}

// LoadFile loads the index stored in an existing DuckDB artifact.
func LoadFile(path string, obs progress.Observer) (clinvar.Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", clinvar.ErrIndexUnavailable, err)
	}

	s, err := OpenReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clinvar.ErrIndexUnavailable, err)
	}
	defer s.Close()
	return s.LoadIndex(obs)
}

// IsArtifact reports whether path names a DuckDB index artifact.
func IsArtifact(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".duckdb") || strings.HasSuffix(lower, ".db")
}
