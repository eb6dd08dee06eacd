package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scopenerd/internal/logging"
	"scopenerd/internal/resolve"

	"github.com/google/uuid"
)

// Run summarizes one stored resolution.
type Run struct {
	ID           string        `json:"id"`
	Root         string        `json:"root"`
	CreatedAt    time.Time     `json:"created_at"`
	Declarations int           `json:"declarations"`
	References   int           `json:"references"`
	Errors       int           `json:"errors"`
	Warnings     int           `json:"warnings"`
	Duration     time.Duration `json:"duration"`
}

// SaveRun stores every declaration, reference and diagnostic of idx under a
// new run ID.
func (s *Store) SaveRun(ctx context.Context, root string, idx *resolve.Index, took time.Duration) (string, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SaveRun")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return "", sql.ErrConnDone
	}

	diags := idx.Diagnostics()
	errCount := resolve.CountErrors(diags)
	run := Run{
		ID:           uuid.NewString(),
		Root:         root,
		CreatedAt:    time.Now().UTC(),
		Declarations: len(idx.Declarations()),
		References:   len(idx.References()),
		Errors:       errCount,
		Warnings:     len(diags) - errCount,
		Duration:     took,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, root, created_at, declarations, refs, errors, warnings, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.CreatedAt.Format(timeLayout), run.Declarations, run.References,
		run.Errors, run.Warnings, run.Duration.Milliseconds())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	if err := insertDeclarations(ctx, tx, run.ID, idx); err != nil {
		return "", err
	}
	if err := insertRefs(ctx, tx, run.ID, idx); err != nil {
		return "", err
	}
	if err := insertDiagnostics(ctx, tx, run.ID, diags); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	logging.Get(logging.CategoryStore).StructuredLog("info", "run saved", map[string]interface{}{
		"run_id":       run.ID,
		"root":         root,
		"declarations": run.Declarations,
		"references":   run.References,
		"diagnostics":  len(diags),
	})
	return run.ID, nil
}

func insertDeclarations(ctx context.Context, tx *sql.Tx, runID string, idx *resolve.Index) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO declarations (run_id, decl_id, kind, name, qualified, file, line, col, parent_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range idx.Declarations() {
		parent := int(resolve.NoDecl)
		if d.Parent != nil {
			parent = int(d.Parent.ID)
		}
		_, err := stmt.ExecContext(ctx, runID, int(d.ID), d.Kind.String(), d.Name, idx.QualifiedName(d),
			d.Loc.File, d.Loc.Line, d.Loc.Column, parent)
		if err != nil {
			return fmt.Errorf("insert declaration %s: %w", d, err)
		}
	}
	return nil
}

func insertRefs(ctx context.Context, tx *sql.Tx, runID string, idx *resolve.Index) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO refs (run_id, ref_id, path, file, line, col, role, decl_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ref := range idx.References() {
		var target sql.NullInt64
		if id := idx.Binding(ref.ID); id != resolve.NoDecl {
			target = sql.NullInt64{Int64: int64(id), Valid: true}
		}
		_, err := stmt.ExecContext(ctx, runID, int(ref.ID), ref.Path.String(), ref.Loc.File, ref.Loc.Line,
			ref.Loc.Column, ref.Role.String(), target)
		if err != nil {
			return fmt.Errorf("insert reference %s: %w", ref, err)
		}
	}
	return nil
}

func insertDiagnostics(ctx context.Context, tx *sql.Tx, runID string, diags []resolve.Diagnostic) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO diagnostics (run_id, kind, severity, file, line, col, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range diags {
		_, err := stmt.ExecContext(ctx, runID, string(d.Kind), string(d.Severity), d.Loc.File, d.Loc.Line,
			d.Loc.Column, d.Message)
		if err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}
	return nil
}

// LatestRun returns the newest run for root, or ErrNoRuns.
func (s *Store) LatestRun(ctx context.Context, root string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, sql.ErrConnDone
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, root, created_at, declarations, refs, errors, warnings, duration_ms
		 FROM runs WHERE root = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, root)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", root, ErrNoRuns)
	}
	return run, err
}

// Runs lists stored runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, sql.ErrConnDone
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, root, created_at, declarations, refs, errors, warnings, duration_ms
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything stored under it.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return sql.ErrConnDone
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, table := range []string{"declarations", "refs", "diagnostics"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNoRuns)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var created string
	var durMS int64
	err := row.Scan(&run.ID, &run.Root, &created, &run.Declarations, &run.References, &run.Errors, &run.Warnings, &durMS)
	if err != nil {
		return nil, err
	}
	run.CreatedAt, err = time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad created_at %q: %w", run.ID, created, err)
	}
	run.Duration = time.Duration(durMS) * time.Millisecond
	return &run, nil
}
