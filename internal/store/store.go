// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists extracted page images and converted Markdown in a
// single SQLite database. Images are keyed by (document, file basename); the
// PDF cache is keyed by the SHA-256 of the source URL.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/smartpaper/pkg/types"
)

const (
	dbFile       = "smartpaper.db"
	defaultDBDir = "db"
)

// ErrNotFound is returned when an image key is absent from the store.
var ErrNotFound = errors.New("not found")

// Store manages the SQLite database holding images and cached Markdown.
// It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at cfg.DBDir/smartpaper.db and creates
// the schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.DBDir
	if dir == "" {
		dir = defaultDBDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	path := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS images (
			doc_id TEXT NOT NULL,
			key TEXT NOT NULL,
			mime TEXT,
			data BLOB NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (doc_id, key)
		)`,
		`CREATE TABLE IF NOT EXISTS pdf_cache (
			url_hash TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			markdown TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
