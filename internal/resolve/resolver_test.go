package resolve

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func at(line int) Location {
	return Location{File: "main.rs", Line: line, Column: 1}
}

func node(kind Kind, name string, line int, children ...*Node) *Node {
	return (&Node{Kind: kind, Name: name, Loc: at(line)}).Add(children...)
}

func site(path string, line int) RefSite {
	return RefSite{Path: ParsePath(path), Loc: at(line)}
}

func alias(name, target string, line int) *Node {
	n := node(KindAlias, name, line)
	t := site(target, line)
	n.Target = &t
	return n
}

func trait(name string, line int, bounds ...string) *Node {
	n := node(KindTrait, name, line)
	for _, b := range bounds {
		n.Supertraits = append(n.Supertraits, site(b, line))
	}
	return n
}

func impl(selfType, traitName string, line int, items ...*Node) *Node {
	n := node(KindImpl, "", line, items...)
	st := site(selfType, line)
	n.SelfType = &st
	if traitName != "" {
		tr := site(traitName, line)
		n.Trait = &tr
	}
	return n
}

// refAt returns the reference recorded at line.
func refAt(t *testing.T, r *Resolver, line int) *Reference {
	t.Helper()
	for _, ref := range r.References() {
		if ref.Loc.Line == line && ref.Role != RoleAliasTarget {
			return ref
		}
	}
	t.Fatalf("no reference at line %d", line)
	return nil
}

func declAt(t *testing.T, r *Resolver, line int) *Declaration {
	t.Helper()
	for _, d := range r.Declarations() {
		if d.Loc.Line == line {
			return d
		}
	}
	t.Fatalf("no declaration at line %d", line)
	return nil
}

func mustIngest(t *testing.T, trees ...*Node) *Resolver {
	t.Helper()
	r := New()
	if err := r.Ingest(trees...); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	return r
}

func diagKinds(diags []Diagnostic) []DiagnosticKind {
	var out []DiagnosticKind
	for _, d := range diags {
		out = append(out, d.Kind)
	}
	return out
}

func TestResolveReference_InnermostWins(t *testing.T) {
	user := node(KindFunction, "user", 5).Ref(site("foo", 6))
	top := node(KindFunction, "top", 8).Ref(site("foo", 9))
	tree := node(KindModule, "main", 1,
		node(KindFunction, "foo", 2),
		node(KindModule, "inner", 3,
			node(KindFunction, "foo", 4),
			user,
		),
		top,
	)
	r := mustIngest(t, tree)

	tests := []struct {
		name    string
		refLine int
		want    int
	}{
		{"inner declaration shadows outer", 6, 4},
		{"outer scope sees its own declaration", 9, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveReference(refAt(t, r, tt.refLine))
			if err != nil {
				t.Fatalf("ResolveReference: %v", err)
			}
			if got != declAt(t, r, tt.want) {
				t.Errorf("resolved to %v declared at line %d, want line %d", got, got.Loc.Line, tt.want)
			}
		})
	}
}

func TestResolveReference_DirectDeclarationsBeforeAliases(t *testing.T) {
	tree := node(KindModule, "main", 1,
		node(KindModule, "other", 2, node(KindStruct, "T", 3)),
		node(KindStruct, "X", 4),
		alias("X", "other::T", 5),
		node(KindFunction, "f", 6).Ref(site("X", 7)),
		node(KindModule, "inner", 8,
			alias("X", "crate::other::T", 9),
			node(KindFunction, "g", 10).Ref(site("X", 11)),
		),
		node(KindStruct, "U", 12),
		alias("Z", "U", 13),
		alias("Z", "other::T", 14),
		node(KindFunction, "h", 15).Ref(site("Z", 16)),
	)
	r := New()
	err := r.Ingest(tree)
	var re *Error
	if !errors.As(err, &re) || re.Kind != DuplicateDeclaration || re.Loc != at(14) {
		t.Fatalf("expected one duplicate alias at line 14, got %v", err)
	}
	idx := r.Resolve()

	tests := []struct {
		name    string
		refLine int
		want    int
	}{
		{"direct declaration beats alias in the same scope", 7, 4},
		{"inner alias beats outer direct declaration", 11, 3},
		{"first of two same-named aliases wins", 16, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.ResolveReference(refAt(t, r, tt.refLine))
			if err != nil {
				t.Fatalf("ResolveReference: %v", err)
			}
			if got != declAt(t, r, tt.want) {
				t.Errorf("resolved to %v declared at line %d, want line %d", got, got.Loc.Line, tt.want)
			}
		})
	}

	if diff := cmp.Diff([]DiagnosticKind{DuplicateDeclaration}, diagKinds(idx.Diagnostics())); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_WellFormedTreeBindsEveryReference(t *testing.T) {
	tree := node(KindModule, "main", 1,
		node(KindModule, "sub", 2,
			node(KindModule, "sub2", 3,
				node(KindFunction, "hello", 4),
				node(KindStruct, "nested_struct", 5, node(KindField, "field2", 6)),
			),
		),
		alias("msalias", "sub::sub2", 7),
		alias("sub2", "sub::sub2", 8),
		node(KindStruct, "some_fields", 9, node(KindField, "field1", 10)),
		node(KindFunction, "main", 11).
			Ref(site("sub::sub2::hello", 12)).
			Ref(site("sub2::hello", 13)).
			Ref(site("msalias::nested_struct", 14)).
			Ref(site("some_fields", 15)).
			Ref(site("crate::sub::sub2", 16)).
			Ref(site("self::some_fields::field1", 17)),
	)
	r := mustIngest(t, tree)
	idx := r.Resolve()

	if diags := idx.Diagnostics(); len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if got := idx.Unresolved(); len(got) != 0 {
		t.Fatalf("unresolved references: %v", got)
	}

	want := map[int]int{12: 4, 13: 4, 14: 5, 15: 9, 16: 3, 17: 10}
	for refLine, declLine := range want {
		ref := refAt(t, r, refLine)
		if got := idx.Binding(ref.ID); got != declAt(t, r, declLine).ID {
			t.Errorf("%s bound to #%d, want declaration at line %d", ref.Path, got, declLine)
		}
	}
}

func TestResolve_SuperPaths(t *testing.T) {
	tree := node(KindModule, "main", 1,
		node(KindFunction, "helper", 2),
		node(KindModule, "a", 3,
			node(KindModule, "b", 4,
				node(KindFunction, "f", 5).
					Ref(site("super::super::helper", 6)).
					Ref(site("super::g", 7)),
			),
			node(KindFunction, "g", 8),
		),
	)
	r := mustIngest(t, tree)
	r.Resolve()

	for refLine, declLine := range map[int]int{6: 2, 7: 8} {
		got, err := r.ResolveReference(refAt(t, r, refLine))
		if err != nil {
			t.Fatalf("line %d: %v", refLine, err)
		}
		if got.Loc.Line != declLine {
			t.Errorf("line %d resolved to %v, want declaration at line %d", refLine, got, declLine)
		}
	}
}

func TestResolveReference_Unresolved(t *testing.T) {
	tree := node(KindModule, "main", 1,
		node(KindFunction, "f", 2).Ref(site("missing::thing", 3)),
	)
	r := mustIngest(t, tree)

	_, err := r.ResolveReference(refAt(t, r, 3))
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}

	idx := r.Resolve()
	diags := idx.Diagnostics()
	if len(diags) != 1 || diags[0].Kind != UnresolvedReference || diags[0].Loc != at(3) {
		t.Fatalf("diagnostics = %v", diags)
	}
	if CountErrors(diags) != 1 {
		t.Errorf("CountErrors = %d, want 1", CountErrors(diags))
	}
}

func TestResolve_AliasCycle(t *testing.T) {
	tree := node(KindModule, "main", 1,
		alias("a", "b", 2),
		alias("b", "a", 3),
		node(KindFunction, "f", 4).Ref(site("a", 5)),
		alias("c", "c", 6),
	)
	r := mustIngest(t, tree)

	_, err := r.ResolveReference(refAt(t, r, 5))
	if !errors.Is(err, ErrCyclicAlias) {
		t.Fatalf("expected ErrCyclicAlias, got %v", err)
	}

	idx := r.Resolve()
	var got []Location
	for _, d := range idx.Diagnostics() {
		if d.Kind != CyclicAlias {
			t.Errorf("unexpected diagnostic %v", d)
			continue
		}
		got = append(got, d.Loc)
	}
	want := []Location{at(2), at(3), at(5), at(6)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cyclic alias locations mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_AliasChainAndOpaqueAlias(t *testing.T) {
	tree := node(KindModule, "main", 1,
		node(KindStruct, "Point", 2),
		alias("P1", "Point", 3),
		alias("P2", "P1", 4),
		node(KindAlias, "Pair", 5),
		node(KindFunction, "f", 6).
			Ref(site("P2", 7)).
			Ref(site("Pair", 8)),
	)
	r := mustIngest(t, tree)
	idx := r.Resolve()

	if d, _ := idx.ResolveReference(refAt(t, r, 7)); d != declAt(t, r, 2) {
		t.Errorf("P2 resolved to %v, want Point", d)
	}
	pair := declAt(t, r, 5)
	if !pair.IsOpaqueAlias() {
		t.Fatalf("Pair should be opaque")
	}
	if d, _ := idx.ResolveReference(refAt(t, r, 8)); d != pair {
		t.Errorf("opaque alias resolved to %v, want itself", d)
	}
}

func TestIngest_DuplicateDeclaration(t *testing.T) {
	tree := node(KindModule, "main", 1,
		node(KindFunction, "x", 2),
		node(KindFunction, "x", 3),
		node(KindModule, "x", 4),
		node(KindFunction, "f", 5).Ref(RefSite{Path: Path{"x"}, Loc: at(6), Namespace: NamespaceValue}),
	)
	r := New()
	err := r.Ingest(tree)
	if !errors.Is(err, ErrDuplicateDeclaration) {
		t.Fatalf("expected ErrDuplicateDeclaration, got %v", err)
	}
	var re *Error
	if !errors.As(err, &re) || re.Loc != at(3) {
		t.Fatalf("duplicate reported at %v, want %v", re, at(3))
	}

	if got := len(declAt(t, r, 1).Body().Declarations()); got != 4 {
		t.Errorf("duplicate must still be owned by its scope: got %d declarations", got)
	}

	idx := r.Resolve()
	d, err := idx.ResolveReference(refAt(t, r, 6))
	if err != nil {
		t.Fatalf("ResolveReference: %v", err)
	}
	if d != declAt(t, r, 2) {
		t.Errorf("first declaration must win, got %v", d)
	}
	if diff := cmp.Diff([]DiagnosticKind{DuplicateDeclaration}, diagKinds(idx.Diagnostics())); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_AmbiguousReferenceIsWarning(t *testing.T) {
	tree := node(KindModule, "main", 1,
		node(KindStruct, "S", 2),
		node(KindFunction, "S", 3),
		node(KindFunction, "f", 4).Ref(site("S", 5)),
	)
	r := mustIngest(t, tree)
	idx := r.Resolve()

	diags := idx.Diagnostics()
	if len(diags) != 1 || diags[0].Kind != AmbiguousReference || diags[0].Severity != SeverityWarning {
		t.Fatalf("diagnostics = %v", diags)
	}
	if CountErrors(diags) != 0 {
		t.Errorf("ambiguity must not count as an error")
	}
	if d := idx.Declaration(idx.Binding(refAt(t, r, 5).ID)); d != declAt(t, r, 2) {
		t.Errorf("ambiguous reference bound to %v, want the first declaration", d)
	}
}

func TestResolve_AmbiguityThroughAliasReachesUseSite(t *testing.T) {
	tree := node(KindModule, "main", 1,
		node(KindStruct, "S", 2),
		node(KindFunction, "S", 3),
		alias("A", "S", 4),
		node(KindFunction, "f", 5).Ref(site("A", 6)),
	)
	r := mustIngest(t, tree)
	idx := r.Resolve()

	var locs []Location
	for _, d := range idx.Diagnostics() {
		if d.Kind != AmbiguousReference {
			t.Errorf("unexpected diagnostic %v", d)
			continue
		}
		locs = append(locs, d.Loc)
	}
	if diff := cmp.Diff([]Location{at(4), at(6)}, locs); diff != "" {
		t.Errorf("ambiguous reference locations mismatch (-want +got):\n%s", diff)
	}
	if d, _ := idx.ResolveReference(refAt(t, r, 6)); d != declAt(t, r, 2) {
		t.Errorf("A resolved to %v, want the struct", d)
	}
}

func TestResolveReference_Idempotent(t *testing.T) {
	tree := node(KindModule, "main", 1,
		node(KindStruct, "S", 2),
		alias("T", "S", 3),
		node(KindFunction, "f", 4).Ref(site("T", 5)),
	)
	r := mustIngest(t, tree)
	ref := refAt(t, r, 5)

	first, err := r.ResolveReference(ref)
	if err != nil {
		t.Fatalf("ResolveReference: %v", err)
	}
	second, _ := r.ResolveReference(ref)
	idx := r.Resolve()
	third, _ := idx.ResolveReference(ref)
	if first != second || second != third {
		t.Fatalf("resolution is not stable: %p %p %p", first, second, third)
	}
	if idx != r.Resolve() {
		t.Errorf("Resolve should return the same index")
	}
}

func TestIngest_AfterResolveFails(t *testing.T) {
	r := mustIngest(t, node(KindModule, "main", 1))
	r.Resolve()
	if err := r.Ingest(node(KindModule, "late", 2)); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
}

func TestResolveReference_ForeignReference(t *testing.T) {
	a := mustIngest(t, node(KindModule, "main", 1, node(KindFunction, "f", 2).Ref(site("f", 3))))
	b := New()
	if _, err := b.ResolveReference(refAt(t, a, 3)); err == nil {
		t.Fatal("expected an error for a reference from another resolver")
	}
}

func TestResolve_MultipleRootsAndCrateRelativePaths(t *testing.T) {
	lib := node(KindModule, "lib", 1,
		node(KindFunction, "shared", 2),
		node(KindModule, "inner", 3,
			node(KindFunction, "f", 4).Ref(site("crate::shared", 5)),
		),
	)
	bin := node(KindModule, "bin", 10,
		node(KindFunction, "main", 11).Ref(site("lib::shared", 12)),
	)
	r := mustIngest(t, lib, bin)
	idx := r.Resolve()

	if len(idx.Roots()) != 2 {
		t.Fatalf("roots = %v", idx.Roots())
	}
	shared := declAt(t, r, 2)
	if got := idx.ReferencesTo(shared); len(got) != 2 {
		t.Fatalf("ReferencesTo(shared) = %v, want 2 references", got)
	}
}
