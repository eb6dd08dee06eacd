package store

import (
	"context"
	"database/sql"
	"fmt"

	"scopenerd/internal/logging"
)

// Schema versions:
// v1: runs, declarations, refs, diagnostics
// v2: runs.duration_ms, refs.role
const CurrentSchemaVersion = 2

// Migration adds a column missing from an older database.
type Migration struct {
	Table  string
	Column string
	Def    string
}

var pendingMigrations = []Migration{
	{"runs", "duration_ms", "INTEGER DEFAULT 0"},
	{"refs", "role", "TEXT DEFAULT ''"},
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_versions (
	version INTEGER NOT NULL,
	applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	root TEXT NOT NULL,
	created_at TEXT NOT NULL,
	declarations INTEGER NOT NULL DEFAULT 0,
	refs INTEGER NOT NULL DEFAULT 0,
	errors INTEGER NOT NULL DEFAULT 0,
	warnings INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root, created_at);

CREATE TABLE IF NOT EXISTS declarations (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	decl_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	qualified TEXT NOT NULL,
	file TEXT NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL,
	parent_id INTEGER NOT NULL DEFAULT -1,
	PRIMARY KEY (run_id, decl_id)
);
CREATE INDEX IF NOT EXISTS idx_declarations_name ON declarations(run_id, name);

CREATE TABLE IF NOT EXISTS refs (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	ref_id INTEGER NOT NULL,
	path TEXT NOT NULL,
	file TEXT NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL,
	role TEXT DEFAULT '',
	decl_id INTEGER,
	PRIMARY KEY (run_id, ref_id)
);
CREATE INDEX IF NOT EXISTS idx_refs_decl ON refs(run_id, decl_id);

CREATE TABLE IF NOT EXISTS diagnostics (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	severity TEXT NOT NULL,
	file TEXT NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL,
	message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_diagnostics_run ON diagnostics(run_id);
`

// RunMigrations applies column migrations to an existing database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	applied := 0
	for _, m := range pendingMigrations {
		if !tableExists(ctx, db, m.Table) {
			logging.StoreDebug("Table missing, skipping migration: %s.%s", m.Table, m.Column)
			continue
		}
		if columnExists(ctx, db, m.Table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migration %s.%s: %w", m.Table, m.Column, err)
		}
		logging.Store("Migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}
	logging.StoreDebug("Schema migrations complete: applied=%d", applied)
	return nil
}

// GetSchemaVersion returns the recorded schema version, or 0.
func GetSchemaVersion(ctx context.Context, db *sql.DB) int {
	if !tableExists(ctx, db, "schema_versions") {
		return 0
	}
	var version int
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_versions ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil {
		return 0
	}
	return version
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) bool {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

func tableExists(ctx context.Context, db *sql.DB, table string) bool {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	if err != nil {
		logging.StoreDebug("Table existence check failed for %s: %v", table, err)
		return false
	}
	return count > 0
}
