package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"scopenerd/internal/logging"
	"scopenerd/internal/resolve"

	"github.com/anmitsu/go-shlex"
)

// Query filters. A term without a known filter prefix is text.
const (
	FilterText = "text"
	FilterDef  = "def"
	FilterRef  = "ref"
	FilterType = "type"
	FilterPath = "path"
)

var filterNames = []string{FilterDef, FilterRef, FilterType, FilterPath}

// Term is one query term, such as `-path:tests/` or `+def:demo::Point`.
type Term struct {
	Filter    string `json:"filter"`
	Arg       string `json:"arg"`
	Not       bool   `json:"not"`
	Qualified bool   `json:"qualified"`
}

func (t Term) String() string {
	var b strings.Builder
	if t.Not {
		b.WriteByte('-')
	}
	if t.Qualified {
		b.WriteByte('+')
	}
	if t.Filter != FilterText {
		b.WriteString(t.Filter)
		b.WriteByte(':')
	}
	b.WriteString(t.Arg)
	return b.String()
}

// Query is a parsed search query. Its terms are ANDed.
//
//	def:Point path:shapes -type:trait
//
// def: and bare text match declaration names, ref: lists the references to
// the declarations it matches, type: restricts the declaration kind and
// path: the file. A leading `-` negates a term; a leading `+` makes def: and
// ref: match the qualified name only. `*` matches any run of characters.
type Query struct {
	Terms []Term
}

// ParseQuery parses a query string. Arguments containing spaces can be
// quoted.
func ParseQuery(s string) (*Query, error) {
	words, err := shlex.Split(s, true)
	if err != nil {
		return nil, fmt.Errorf("parse query %q: %w", s, err)
	}
	q := &Query{}
	for _, w := range words {
		t, err := parseTerm(w)
		if err != nil {
			return nil, fmt.Errorf("parse query %q: %w", s, err)
		}
		q.Terms = append(q.Terms, t)
	}
	if len(q.Terms) == 0 {
		return nil, fmt.Errorf("empty query")
	}
	if q.refs() {
		for _, t := range q.Terms {
			if t.Filter == FilterDef {
				return nil, fmt.Errorf("parse query %q: def: and ref: cannot be combined", s)
			}
		}
	}
	return q, nil
}

func parseTerm(w string) (Term, error) {
	t := Term{Filter: FilterText}
	if strings.HasPrefix(w, "-") && len(w) > 1 {
		t.Not = true
		w = w[1:]
	}
	if strings.HasPrefix(w, "+") && len(w) > 1 {
		t.Qualified = true
		w = w[1:]
	}
	for _, name := range filterNames {
		if strings.HasPrefix(w, name+":") && !strings.HasPrefix(w, name+"::") {
			t.Filter = name
			w = w[len(name)+1:]
			break
		}
	}
	t.Arg = w
	if t.Arg == "" {
		return t, fmt.Errorf("term %s has no argument", t)
	}
	if t.Filter == FilterType {
		if _, err := resolve.ParseKind(t.Arg); err != nil {
			return t, err
		}
	}
	return t, nil
}

// refs reports whether the query lists references rather than declarations.
func (q *Query) refs() bool {
	for _, t := range q.Terms {
		if t.Filter == FilterRef {
			return true
		}
	}
	return false
}

func (q *Query) String() string {
	parts := make([]string, len(q.Terms))
	for i, t := range q.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// where renders the terms as SQL conditions over declarations `d` and, for
// reference queries, refs `r`.
func (q *Query) where() (string, []interface{}) {
	var conds []string
	var args []interface{}
	refs := q.refs()
	for _, t := range q.Terms {
		var cond string
		switch {
		case t.Filter == FilterType:
			cond = "d.kind = ?"
			args = append(args, t.Arg)
		case t.Filter == FilterPath:
			file := "d.file"
			if refs {
				file = "r.file"
			}
			cond = file + ` LIKE ? ESCAPE '\'`
			args = append(args, likePattern(t.Arg, true))
		case t.Filter == FilterText && refs:
			cond = `r.path LIKE ? ESCAPE '\'`
			args = append(args, likePattern(t.Arg, false))
		case t.Qualified:
			cond = `d.qualified LIKE ? ESCAPE '\'`
			args = append(args, likePattern(t.Arg, false))
		default:
			p := likePattern(t.Arg, false)
			cond = `(d.name LIKE ? ESCAPE '\' OR d.qualified LIKE ? ESCAPE '\')`
			args = append(args, p, p)
		}
		if t.Not {
			cond = "NOT " + cond
		}
		conds = append(conds, cond)
	}
	return strings.Join(conds, " AND "), args
}

// likePattern escapes s for LIKE and turns `*` into `%`. Patterns without a
// `*` match exactly, or as a substring when substr is set.
func likePattern(s string, substr bool) string {
	p := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
	if substr && !strings.Contains(s, "*") {
		return "%" + p + "%"
	}
	return strings.ReplaceAll(p, "*", "%")
}

// Hit is one search result: a declaration, or a reference together with the
// declaration it is bound to.
type Hit struct {
	Kind      string `json:"kind"`
	Qualified string `json:"qualified"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	// Set on references.
	Path string `json:"path,omitempty"`
	Role string `json:"role,omitempty"`
}

// IsRef reports whether the hit is a reference.
func (h Hit) IsRef() bool { return h.Path != "" }

// Search runs q against a stored run.
func (s *Store) Search(ctx context.Context, runID string, q *Query) ([]Hit, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Search")
	defer timer.Stop()
	logging.StoreDebug("Search run=%s query=%q", runID, q)

	if !q.refs() {
		decls, err := s.searchDeclarations(ctx, runID, q)
		if err != nil {
			return nil, err
		}
		hits := make([]Hit, len(decls))
		for i, d := range decls {
			hits[i] = Hit{Kind: d.Kind, Qualified: d.Qualified, File: d.File, Line: d.Line, Column: d.Column}
		}
		return hits, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, sql.ErrConnDone
	}

	cond, args := q.where()
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.kind, d.qualified, r.file, r.line, r.col, r.path, r.role
		 FROM refs r JOIN declarations d ON d.run_id = r.run_id AND d.decl_id = r.decl_id
		 WHERE r.run_id = ? AND `+cond+`
		 ORDER BY r.file, r.line, r.col`, append([]interface{}{runID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Kind, &h.Qualified, &h.File, &h.Line, &h.Column, &h.Path, &h.Role); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *Store) searchDeclarations(ctx context.Context, runID string, q *Query) ([]Declaration, error) {
	cond, args := q.where()
	query := "SELECT " + declColumns + ` FROM declarations d
		WHERE d.run_id = ? AND d.kind != 'impl' AND ` + cond + `
		ORDER BY file, line, col`
	return s.queryDeclarations(ctx, query, append([]interface{}{runID}, args...)...)
}
