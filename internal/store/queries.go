package store

import (
	"context"
	"database/sql"

	"scopenerd/internal/logging"
)

// Declaration is a stored declaration row.
type Declaration struct {
	ID        int    `json:"id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Qualified string `json:"qualified"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	ParentID  int    `json:"parent_id"`
}

// Reference is a stored reference row. DeclID is -1 when unresolved.
type Reference struct {
	ID     int    `json:"id"`
	Path   string `json:"path"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Role   string `json:"role"`
	DeclID int    `json:"decl_id"`
}

// Diagnostic is a stored diagnostic row.
type Diagnostic struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
}

const declColumns = "decl_id, kind, name, qualified, file, line, col, parent_id"

// Declarations lists the declarations of a run, optionally of one kind.
func (s *Store) Declarations(ctx context.Context, runID, kind string) ([]Declaration, error) {
	query := "SELECT " + declColumns + " FROM declarations WHERE run_id = ?"
	args := []interface{}{runID}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY decl_id"
	return s.queryDeclarations(ctx, query, args...)
}

// SearchDefinitions finds declarations by name. A `*` in name matches any
// run of characters; matching is case-insensitive.
func (s *Store) SearchDefinitions(ctx context.Context, runID, name, kind string) ([]Declaration, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SearchDefinitions")
	defer timer.Stop()

	q := &Query{Terms: []Term{{Filter: FilterDef, Arg: name}}}
	if kind != "" {
		q.Terms = append(q.Terms, Term{Filter: FilterType, Arg: kind})
	}
	return s.searchDeclarations(ctx, runID, q)
}

func (s *Store) queryDeclarations(ctx context.Context, query string, args ...interface{}) ([]Declaration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, sql.ErrConnDone
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Declaration
	for rows.Next() {
		var d Declaration
		if err := rows.Scan(&d.ID, &d.Kind, &d.Name, &d.Qualified, &d.File, &d.Line, &d.Column, &d.ParentID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ReferencesTo lists the references bound to the declaration with the given
// qualified name.
func (s *Store) ReferencesTo(ctx context.Context, runID, qualified string) ([]Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, sql.ErrConnDone
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.ref_id, r.path, r.file, r.line, r.col, r.role, r.decl_id
		 FROM refs r JOIN declarations d ON d.run_id = r.run_id AND d.decl_id = r.decl_id
		 WHERE r.run_id = ? AND d.qualified = ?
		 ORDER BY r.file, r.line, r.col`, runID, qualified)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reference
	for rows.Next() {
		var r Reference
		var decl sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Path, &r.File, &r.Line, &r.Column, &r.Role, &decl); err != nil {
			return nil, err
		}
		r.DeclID = -1
		if decl.Valid {
			r.DeclID = int(decl.Int64)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Diagnostics lists the diagnostics of a run in source order.
func (s *Store) Diagnostics(ctx context.Context, runID string) ([]Diagnostic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, sql.ErrConnDone
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, severity, file, line, col, message FROM diagnostics
		 WHERE run_id = ? ORDER BY file, line, col, kind`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Diagnostic
	for rows.Next() {
		var d Diagnostic
		if err := rows.Scan(&d.Kind, &d.Severity, &d.File, &d.Line, &d.Column, &d.Message); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
