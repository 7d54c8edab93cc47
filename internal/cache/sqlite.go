// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is stored in PRAGMA user_version. Older cache tables are
// dropped rather than migrated.
const schemaVersion = 2

// SQLiteStore keeps cache entries in a single SQLite table. Times are Unix
// milliseconds. Expired rows are deleted lazily when read.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates the cache database at path and ensures the
// schema exists.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	o := buildOptions(opts)
	s := &SQLiteStore{db: db, now: o.now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	var statements []string
	if version < schemaVersion {
		statements = append(statements, `DROP TABLE IF EXISTS cache_entries`)
	}
	statements = append(statements,
		`CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			ttl_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_entries_created_at ON cache_entries(created_at)`,
		fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion),
	)
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the payload stored under key, or ErrMiss.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		payload   []byte
		createdAt int64
		ttlMs     int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, created_at, ttl_ms FROM cache_entries WHERE key = ?`, key,
	).Scan(&payload, &createdAt, &ttlMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	if expired(s.now(), createdAt, ttlMs) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ? AND created_at = ?`, key, createdAt); err != nil {
			return nil, fmt.Errorf("purging expired entry: %w", err)
		}
		return nil, ErrMiss
	}
	return payload, nil
}

// Put stores payload under key, replacing any previous entry.
func (s *SQLiteStore) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := checkTTL(ttl); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, payload, created_at, ttl_ms) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload,
			created_at = excluded.created_at, ttl_ms = excluded.ttl_ms`,
		key, payload, s.now().UnixMilli(), ttlMillis(ttl),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Clear deletes every entry.
func (s *SQLiteStore) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared entries: %w", err)
	}
	return int(n), nil
}

// Stats counts live and expired entries.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Backend: "sqlite"}
	var expiredCount sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*), sum(CASE WHEN ? - created_at >= ttl_ms THEN 1 ELSE 0 END) FROM cache_entries`,
		s.now().UnixMilli(),
	).Scan(&st.Entries, &expiredCount)
	if err != nil {
		return st, fmt.Errorf("reading cache stats: %w", err)
	}
	st.Expired = int(expiredCount.Int64)
	return st, nil
}

// expired reports whether an entry created at createdAt has outlived its
// TTL at now. Both are in milliseconds.
func expired(now time.Time, createdAt, ttlMs int64) bool {
	return now.UnixMilli()-createdAt >= ttlMs
}

// ttlMillis rounds sub-millisecond TTLs up so a positive TTL never stores as
// zero.
func ttlMillis(ttl time.Duration) int64 {
	ms := ttl.Milliseconds()
	if ttl%time.Millisecond != 0 {
		ms++
	}
	return ms
}
