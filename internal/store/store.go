// Package store persists resolution runs in SQLite so declarations and
// diagnostics can be queried without re-parsing the workspace.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"scopenerd/internal/logging"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNoRuns is returned when the store holds no run for a workspace.
var ErrNoRuns = errors.New("no stored runs")

// Options configures Open.
type Options struct {
	// Driver is "sqlite3" (mattn, cgo) or "sqlite" (modernc, pure Go).
	Driver      string
	Path        string
	BusyTimeout time.Duration
}

// Store is a SQLite-backed archive of resolution runs.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	path   string
	driver string
}

// Open opens (creating if needed) the database at opts.Path.
func Open(ctx context.Context, opts Options) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if opts.Driver == "" {
		opts.Driver = "sqlite3"
	}
	logging.Store("Opening %s store at %s", opts.Driver, opts.Path)

	if opts.Path != ":memory:" {
		dir := filepath.Dir(opts.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(opts.Driver, opts.Path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", opts.Path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			logging.StoreDebug("Failed to apply %q: %v", p, err)
		}
	}

	s := &Store{db: db, path: opts.Path, driver: opts.Driver}
	if err := s.initialize(ctx); err != nil {
		logging.StoreError("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := RunMigrations(ctx, s.db); err != nil {
		return err
	}
	if GetSchemaVersion(ctx, s.db) < CurrentSchemaVersion {
		_, err := s.db.ExecContext(ctx, "INSERT INTO schema_versions (version, applied_at) VALUES (?, ?)",
			CurrentSchemaVersion, time.Now().UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}
	logging.StoreDebug("Schema initialized (version %d)", CurrentSchemaVersion)
	return nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
