// Package duckdb stores ClinVar index artifacts.
// Indexes can be kept in a DuckDB table (queryable, shareable) and loaded
// indexes are cached as gob files next to their source artifact.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

const schema = `CREATE TABLE IF NOT EXISTS clinvar_index (
		rsid VARCHAR PRIMARY KEY,
		gene VARCHAR,
		disease VARCHAR,
		chrom VARCHAR,
		pos VARCHAR,
		ref VARCHAR,
		alt VARCHAR,
		class VARCHAR,
		variation_id VARCHAR,
		allele_id VARCHAR,
		hgvs VARCHAR,
		review_status VARCHAR,
		molecular_consequence VARCHAR,
		origin VARCHAR
	)`

// Store is a DuckDB database holding one clinvar_index table.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// Open opens or creates a writable index database at path, creating the
// parent directory and the table as needed. An empty path opens an
// in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// OpenReadOnly opens an existing index database without taking the write
// lock, so several scans can share one artifact.
func OpenReadOnly(path string) (*Store, error) {
	db, err := sql.Open("duckdb", path+"?access_mode=READ_ONLY")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path, readOnly: true}
	if _, err := s.IndexCount(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s is not a clinvar index: %w", path, err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}
