// Package postgres mirrors harvested character rows into Postgres.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/malcrawl/internal/output"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// CharacterStoreConfig controls the Postgres connection pool used for character rows.
type CharacterStoreConfig struct {
	DSN             string
	Table           string
	RunID           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// CharacterStore upserts output rows keyed by character id. It expects:
//
//	CREATE TABLE characters (
//	  id           INTEGER PRIMARY KEY,
//	  name         TEXT NOT NULL,
//	  url          TEXT NOT NULL,
//	  favorites    INTEGER NOT NULL,
//	  mpe_title    TEXT,
//	  mpe_url      TEXT,
//	  mpe_members  INTEGER,
//	  mpe_type     TEXT,
//	  mpe_source   TEXT,
//	  run_id       TEXT NOT NULL,
//	  harvested_at TIMESTAMPTZ NOT NULL
//	);
type CharacterStore struct {
	pool  execCloser
	table string
	runID string
	now   func() time.Time
}

// NewCharacterStore creates a Postgres-backed CharacterStore using the provided config.
func NewCharacterStore(ctx context.Context, cfg CharacterStoreConfig) (*CharacterStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store, err := NewCharacterStoreWithPool(pool, cfg.Table, cfg.RunID)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewCharacterStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewCharacterStoreWithPool(pool execCloser, table, runID string) (*CharacterStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "characters"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &CharacterStore{
		pool:  pool,
		table: table,
		runID: runID,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// WriteRow upserts row.
func (s *CharacterStore) WriteRow(ctx context.Context, row output.Row) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("character store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, name, url, favorites, mpe_title, mpe_url, mpe_members, mpe_type, mpe_source, run_id, harvested_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	url = EXCLUDED.url,
	favorites = EXCLUDED.favorites,
	mpe_title = EXCLUDED.mpe_title,
	mpe_url = EXCLUDED.mpe_url,
	mpe_members = EXCLUDED.mpe_members,
	mpe_type = EXCLUDED.mpe_type,
	mpe_source = EXCLUDED.mpe_source,
	run_id = EXCLUDED.run_id,
	harvested_at = EXCLUDED.harvested_at`, s.table)

	args := []any{
		row.ID,
		row.Name,
		row.URL,
		row.Favorites,
		nullable(row.MostPopularEntry),
		nullable(row.MPEURL),
		nullableInt(row.MPEMembers),
		nullable(row.MPEType),
		nullable(row.MPESource),
		s.runID,
		s.now(),
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert character %d: %w", row.ID, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *CharacterStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func nullableInt(v string) *int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}
