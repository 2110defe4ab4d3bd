// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache keeps raw Materials Project responses and a history of
// export runs in a local SQLite database, so repeated exports of the same
// query do not hit the API again.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/mp-export/pkg/types"
)

const dbFile = "mp-export.db"

// timeLayout is fixed-width so timestamps sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the cache database.
type Store struct {
	db  *sql.DB
	dir string
}

// Open opens or creates cfg.Dir/mp-export.db and its schema.
func Open(cfg types.CacheConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = ".mp-cache"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	s := &Store{db: db, dir: dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, dbFile)
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS responses (
			key TEXT PRIMARY KEY,
			endpoint TEXT NOT NULL,
			criteria TEXT NOT NULL,
			properties TEXT NOT NULL,
			body BLOB NOT NULL,
			records INTEGER NOT NULL,
			fetched_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			profile TEXT NOT NULL,
			output TEXT NOT NULL,
			format TEXT NOT NULL,
			cache_key TEXT,
			fetched INTEGER NOT NULL,
			written INTEGER NOT NULL,
			invalid INTEGER NOT NULL,
			duplicates INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Key derives the cache key of a query from its endpoint and encoded
// criteria and properties.
func Key(endpoint, criteria, properties string) string {
	h := sha256.New()
	for _, part := range []string{endpoint, criteria, properties} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Entry describes a cached response.
type Entry struct {
	Key        string
	Endpoint   string
	Criteria   string
	Properties string
	Body       []byte
	Records    int
	FetchedAt  time.Time
}

// Get returns the cached entry for key. found is false on a miss.
func (s *Store) Get(ctx context.Context, key string) (entry Entry, found bool, err error) {
	var fetchedAt string
	err = s.db.QueryRowContext(ctx,
		`SELECT key, endpoint, criteria, properties, body, records, fetched_at FROM responses WHERE key = ?`, key,
	).Scan(&entry.Key, &entry.Endpoint, &entry.Criteria, &entry.Properties, &entry.Body, &entry.Records, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading cached response: %w", err)
	}
	entry.FetchedAt, _ = time.Parse(time.RFC3339Nano, fetchedAt)
	return entry, true, nil
}

// Put stores or replaces the response for e.Key. A zero FetchedAt is set
// to the current time.
func (s *Store) Put(ctx context.Context, e Entry) error {
	if e.FetchedAt.IsZero() {
		e.FetchedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO responses (key, endpoint, criteria, properties, body, records, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			endpoint=excluded.endpoint, criteria=excluded.criteria, properties=excluded.properties,
			body=excluded.body, records=excluded.records, fetched_at=excluded.fetched_at`,
		e.Key, e.Endpoint, e.Criteria, e.Properties, e.Body, e.Records,
		e.FetchedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("storing response: %w", err)
	}
	return nil
}

// Entries lists cached responses, newest first. Bodies are not loaded.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, endpoint, criteria, properties, records, fetched_at FROM responses ORDER BY fetched_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing cached responses: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var fetchedAt string
		if err := rows.Scan(&e.Key, &e.Endpoint, &e.Criteria, &e.Properties, &e.Records, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scanning cached response: %w", err)
		}
		e.FetchedAt, _ = time.Parse(time.RFC3339Nano, fetchedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear deletes every cached response and returns how many were removed.
// Run history is kept.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM responses`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	return res.RowsAffected()
}

// Run records one export.
type Run struct {
	ID         string
	Profile    string
	Output     string
	Format     types.OutputFormat
	CacheKey   string
	Fetched    int
	Written    int
	Invalid    int
	Duplicates int
	StartedAt  time.Time
	FinishedAt time.Time
}

// RecordRun inserts r, assigning a new ID when r.ID is empty, and returns the ID.
func (s *Store) RecordRun(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, profile, output, format, cache_key, fetched, written, invalid, duplicates, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Profile, r.Output, string(r.Format), r.CacheKey,
		r.Fetched, r.Written, r.Invalid, r.Duplicates,
		r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return r.ID, nil
}

// Runs returns up to limit runs, newest first. A non-positive limit returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, profile, output, format, COALESCE(cache_key, ''), fetched, written, invalid, duplicates, started_at, finished_at
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var format, started, finished string
		if err := rows.Scan(&r.ID, &r.Profile, &r.Output, &format, &r.CacheKey,
			&r.Fetched, &r.Written, &r.Invalid, &r.Duplicates, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Format = types.OutputFormat(format)
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
