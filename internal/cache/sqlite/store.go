// Package sqlite persists popularity cache entries in a single-table SQLite file so
// that later runs reuse earlier lookups.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DefaultPath is the cache file name used in the working directory.
const DefaultPath = "MALCache.db"

// Config selects the database file.
type Config struct {
	Path string `mapstructure:"path"`
}

// Store is a durable cache.KeyValueStore. Each Put is committed on its own so a
// killed process keeps every entry written before it died.
type Store struct {
	db *sql.DB
}

// Open opens or creates the cache file and its schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS popularity (
			url   TEXT PRIMARY KEY,
			entry BLOB NOT NULL
		);`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite cache: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Get returns the raw entry for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT entry FROM popularity WHERE url = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select entry: %w", err)
	}
	return value, true, nil
}

// Put upserts the raw entry for key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO popularity (url, entry) VALUES (?, ?)
		ON CONFLICT(url) DO UPDATE SET entry = excluded.entry`, key, value)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

// Close checkpoints the WAL into the main file and closes the database.
func (s *Store) Close() error {
	if _, err := s.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE);`); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("checkpoint sqlite cache: %w", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite cache: %w", err)
	}
	return nil
}
