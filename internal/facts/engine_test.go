package facts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scopenerd/internal/resolve"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loc(line int) resolve.Location {
	return resolve.Location{File: "main.rs", Line: line, Column: 1}
}

func typeRef(path string, line int) resolve.RefSite {
	return resolve.RefSite{Path: resolve.ParsePath(path), Loc: loc(line), Namespace: resolve.NamespaceType}
}

// hierarchyIndex builds:
//
//	trait Base {}  trait Mid: Base {}  trait Top: Mid {}
//	struct Full; impl Top, Mid, Base for Full
//	struct Partial; impl Top for Partial
//	fn used() {}  fn unused() { used(); missing(); }
func hierarchyIndex(t *testing.T) *resolve.Index {
	t.Helper()
	mid := typeRef("Base", 3)
	top := typeRef("Mid", 4)
	impl := func(self, trait string, line int) *resolve.Node {
		s, tr := typeRef(self, line), typeRef(trait, line)
		return &resolve.Node{Kind: resolve.KindImpl, Loc: loc(line), SelfType: &s, Trait: &tr}
	}
	root := &resolve.Node{Kind: resolve.KindModule, Name: "main", Loc: loc(1)}
	root.Add(
		&resolve.Node{Kind: resolve.KindTrait, Name: "Base", Loc: loc(2)},
		&resolve.Node{Kind: resolve.KindTrait, Name: "Mid", Loc: loc(3), Supertraits: []resolve.RefSite{mid}},
		&resolve.Node{Kind: resolve.KindTrait, Name: "Top", Loc: loc(4), Supertraits: []resolve.RefSite{top}},
		&resolve.Node{Kind: resolve.KindStruct, Name: "Full", Loc: loc(5)},
		&resolve.Node{Kind: resolve.KindStruct, Name: "Partial", Loc: loc(6)},
		impl("Full", "Top", 7),
		impl("Full", "Mid", 8),
		impl("Full", "Base", 9),
		impl("Partial", "Top", 10),
		&resolve.Node{Kind: resolve.KindFunction, Name: "used", Loc: loc(11)},
		(&resolve.Node{Kind: resolve.KindFunction, Name: "unused", Loc: loc(12)}).
			Ref(resolve.RefSite{Path: resolve.Path{"used"}, Loc: loc(13), Namespace: resolve.NamespaceValue, Role: resolve.RoleCall}).
			Ref(resolve.RefSite{Path: resolve.Path{"missing"}, Loc: loc(14), Namespace: resolve.NamespaceValue, Role: resolve.RoleCall}),
	)
	r := resolve.New()
	require.NoError(t, r.Ingest(root))
	return r.Resolve()
}

func qualified(t *testing.T, e *Engine, predicate string, idx *resolve.Index) []string {
	t.Helper()
	facts, err := e.Facts(predicate)
	require.NoError(t, err)
	var out []string
	for _, f := range facts {
		parts := make([]string, 0, len(f.Args))
		for _, a := range f.Args {
			id, ok := a.(int64)
			require.True(t, ok, "%s: non-numeric arg %v", f, a)
			parts = append(parts, idx.Declaration(resolve.DeclID(id)).Name)
		}
		out = append(out, strings.Join(parts, " "))
	}
	return out
}

func TestExport_BaseFacts(t *testing.T) {
	idx := hierarchyIndex(t)
	counts := make(map[string]int)
	for _, f := range Export(idx) {
		counts[f.Predicate]++
	}
	want := map[string]int{
		"decl":        12,
		"parent":      11,
		"supertrait":  2,
		"implements":  4,
		"ref":         12,
		"resolves_to": 11,
		"diagnostic":  1,
	}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("fact counts mismatch (-want +got):\n%s", diff)
	}
}

func TestExport_AliasTargets(t *testing.T) {
	target := typeRef("S", 3)
	broken := typeRef("Missing", 4)
	root := (&resolve.Node{Kind: resolve.KindModule, Name: "main", Loc: loc(1)}).Add(
		&resolve.Node{Kind: resolve.KindStruct, Name: "S", Loc: loc(2)},
		&resolve.Node{Kind: resolve.KindAlias, Name: "A", Loc: loc(3), Target: &target},
		&resolve.Node{Kind: resolve.KindAlias, Name: "B", Loc: loc(4), Target: &broken},
		&resolve.Node{Kind: resolve.KindAlias, Name: "Opaque", Loc: loc(5)},
	)
	r := resolve.New()
	require.NoError(t, r.Ingest(root))
	idx := r.Resolve()

	e, err := Analyze(context.Background(), idx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A S"}, qualified(t, e, "alias_of", idx))
}

func TestAnalyze_DerivedPredicates(t *testing.T) {
	idx := hierarchyIndex(t)
	e, err := Analyze(context.Background(), idx, "")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Mid Base", "Top Mid", "Top Base"}, qualified(t, e, "ancestor_trait", idx))
	assert.ElementsMatch(t, []string{"Partial Top Mid", "Partial Top Base"}, qualified(t, e, "missing_supertrait_impl", idx))
	assert.Contains(t, qualified(t, e, "implements_transitively", idx), "Partial Base")
	assert.ElementsMatch(t, []string{"unused"}, qualified(t, e, "unreferenced", idx))

	diags, err := e.Facts("diagnostic")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, string(resolve.UnresolvedReference), diags[0].Args[0])
	assert.Equal(t, int64(14), diags[0].Args[2])
}

func TestEngine_ExtraRules(t *testing.T) {
	idx := hierarchyIndex(t)
	rules := filepath.Join(t.TempDir(), "extra.mg")
	src := `Decl trait_name(Name).
trait_name(N) :- decl(_, /trait, N, _, _, _).
`
	require.NoError(t, os.WriteFile(rules, []byte(src), 0644))

	e, err := Analyze(context.Background(), idx, rules)
	require.NoError(t, err)
	facts, err := e.Facts("trait_name")
	require.NoError(t, err)
	var names []string
	for _, f := range facts {
		names = append(names, f.Args[0].(string))
	}
	assert.Equal(t, []string{"Base", "Mid", "Top"}, names)
	assert.Contains(t, e.Predicates(), "trait_name")
}

func TestEngine_Errors(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	assert.Error(t, e.LoadRules("this is not datalog("))
	assert.Error(t, e.AddFacts([]Fact{{Predicate: "nope", Args: []interface{}{1}}}))
	assert.Error(t, e.AddFacts([]Fact{{Predicate: "parent", Args: []interface{}{1}}}))
	_, err = e.Facts("nope")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Eval(ctx), context.Canceled)
}

func TestEngine_ReevaluatesAfterNewFacts(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)
	require.NoError(t, e.AddFacts([]Fact{
		{Predicate: "decl", Args: []interface{}{1, Name("/function"), "f", "main::f", "main.rs", 1}},
	}))
	require.NoError(t, e.Eval(context.Background()))
	got, err := e.Facts("unreferenced")
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, e.AddFacts([]Fact{{Predicate: "resolves_to", Args: []interface{}{7, 1}}}))
	require.NoError(t, e.Eval(context.Background()))
	got, err = e.Facts("unreferenced")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFact_String(t *testing.T) {
	f := Fact{Predicate: "decl", Args: []interface{}{3, Name("/struct"), "Point", int64(9)}}
	assert.Equal(t, `decl(3, /struct, "Point", 9).`, f.String())

	atom, err := f.ToAtom()
	require.NoError(t, err)
	assert.Equal(t, "decl", atom.Predicate.Symbol)
	assert.Len(t, atom.Args, 4)

	_, err = Fact{Predicate: "bad", Args: []interface{}{Name("not a name")}}.ToAtom()
	assert.Error(t, err)
}
