package facts

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"scopenerd/internal/logging"
	"scopenerd/internal/resolve"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

//go:embed schema.mg
var schema string

// Engine holds base facts and the rules deriving new ones from them.
type Engine struct {
	mu        sync.RWMutex
	fragments []parse.SourceUnit
	info      *analysis.ProgramInfo
	store     factstore.FactStoreWithRemove
	preds     map[string]ast.PredicateSym
	base      []ast.Atom
	evaluated bool
}

// NewEngine creates an engine with the built-in schema and rules loaded.
func NewEngine() (*Engine, error) {
	e := &Engine{
		store: factstore.NewSimpleInMemoryStore(),
		preds: make(map[string]ast.PredicateSym),
	}
	if err := e.LoadRules(schema); err != nil {
		return nil, fmt.Errorf("built-in rules: %w", err)
	}
	return e, nil
}

// LoadRules parses additional declarations and rules and re-analyzes the
// program. Derived facts are recomputed on the next Eval.
func (e *Engine) LoadRules(src string) error {
	unit, err := parse.Unit(bytes.NewReader([]byte(src)))
	if err != nil {
		return fmt.Errorf("failed to parse rules: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fragments := append(append([]parse.SourceUnit(nil), e.fragments...), unit)
	var merged parse.SourceUnit
	for _, f := range fragments {
		merged.Clauses = append(merged.Clauses, f.Clauses...)
		merged.Decls = append(merged.Decls, f.Decls...)
	}
	info, err := analysis.AnalyzeOneUnit(merged, nil)
	if err != nil {
		return fmt.Errorf("failed to analyze rules: %w", err)
	}

	e.fragments = fragments
	e.info = info
	e.preds = make(map[string]ast.PredicateSym, len(info.Decls))
	for sym := range info.Decls {
		e.preds[sym.Symbol] = sym
	}
	e.evaluated = false
	logging.FactsDebug("Engine: %d predicates, %d rules", len(e.preds), len(info.Rules))
	return nil
}

// LoadRulesFile appends the rules in a .mg file.
func (e *Engine) LoadRulesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	return e.LoadRules(string(data))
}

// AddFacts inserts base facts. Every predicate must be declared.
func (e *Engine) AddFacts(facts []Fact) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, f := range facts {
		sym, ok := e.preds[f.Predicate]
		if !ok {
			return fmt.Errorf("predicate %s is not declared", f.Predicate)
		}
		if sym.Arity != len(f.Args) {
			return fmt.Errorf("%s: expected %d arguments, got %d", f.Predicate, sym.Arity, len(f.Args))
		}
		atom, err := f.ToAtom()
		if err != nil {
			return err
		}
		if e.store.Add(atom) {
			e.base = append(e.base, atom)
		}
	}
	e.evaluated = false
	return nil
}

// Eval runs the rules to a fixpoint over the base facts. Derived facts from
// an earlier Eval are discarded first.
func (e *Engine) Eval(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := logging.StartTimer(logging.CategoryFacts, "Eval")
	defer timer.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evaluated {
		return nil
	}
	store := factstore.NewSimpleInMemoryStore()
	for _, atom := range e.base {
		store.Add(atom)
	}
	stats, err := mengine.EvalProgramWithStats(e.info, store)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	e.store = store
	e.evaluated = true
	logging.FactsDebug("Engine: evaluated %d base facts, stats %+v", len(e.base), stats)
	return nil
}

// Facts returns every fact of a predicate, sorted by their Datalog form.
func (e *Engine) Facts(predicate string) ([]Fact, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sym, ok := e.preds[predicate]
	if !ok {
		return nil, fmt.Errorf("predicate %s is not declared", predicate)
	}
	var out []Fact
	err := e.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		out = append(out, fromAtom(predicate, atom))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// Predicates lists the declared predicate names.
func (e *Engine) Predicates() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.preds))
	for name := range e.preds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Analyze exports idx, loads the optional rules file and evaluates.
func Analyze(ctx context.Context, idx *resolve.Index, rulesPath string) (*Engine, error) {
	e, err := NewEngine()
	if err != nil {
		return nil, err
	}
	if rulesPath != "" {
		if err := e.LoadRulesFile(rulesPath); err != nil {
			return nil, err
		}
	}
	base := Export(idx)
	if err := e.AddFacts(base); err != nil {
		return nil, err
	}
	if err := e.Eval(ctx); err != nil {
		return nil, err
	}
	logging.Facts("Analyze: %d base facts", len(base))
	return e, nil
}
