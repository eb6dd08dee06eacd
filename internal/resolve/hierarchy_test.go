package resolve

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func names(decls []*Declaration) []string {
	out := make([]string, 0, len(decls))
	for _, d := range decls {
		out = append(out, d.Name)
	}
	return out
}

func TestResolveSupertraits_DepthFirstPreOrder(t *testing.T) {
	tree := node(KindModule, "main", 1,
		trait("A", 2, "B", "C"),
		trait("B", 3, "D"),
		trait("C", 4, "D"),
		trait("D", 5),
	)
	r := mustIngest(t, tree)

	got, err := r.ResolveSupertraits(declAt(t, r, 2))
	if err != nil {
		t.Fatalf("ResolveSupertraits: %v", err)
	}
	if diff := cmp.Diff([]string{"B", "D", "C"}, names(got)); diff != "" {
		t.Errorf("supertraits mismatch (-want +got):\n%s", diff)
	}

	if got, _ := r.ResolveSupertraits(declAt(t, r, 5)); len(got) != 0 {
		t.Errorf("D has no supertraits, got %v", names(got))
	}
}

func TestResolveSupertraits_Cycle(t *testing.T) {
	tests := []struct {
		name    string
		tree    *Node
		trait   int
		partial []string
	}{
		{
			name:    "two traits",
			tree:    node(KindModule, "main", 1, trait("A", 2, "B"), trait("B", 3, "A")),
			trait:   2,
			partial: []string{"B"},
		},
		{
			name:    "self bound",
			tree:    node(KindModule, "main", 1, trait("Loop", 2, "Loop")),
			trait:   2,
			partial: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustIngest(t, tt.tree)
			got, err := r.ResolveSupertraits(declAt(t, r, tt.trait))
			if !errors.Is(err, ErrCyclicHierarchy) {
				t.Fatalf("expected ErrCyclicHierarchy, got %v", err)
			}
			if diff := cmp.Diff(tt.partial, names(got)); diff != "" {
				t.Errorf("partial result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveSupertraits_AboveCycle(t *testing.T) {
	tree := node(KindModule, "main", 1,
		trait("Top", 2, "X"),
		trait("X", 3, "Y"),
		trait("Y", 4, "X"),
	)
	r := mustIngest(t, tree)

	got, err := r.ResolveSupertraits(declAt(t, r, 2))
	if err != nil {
		t.Fatalf("Top is not its own ancestor, got %v", err)
	}
	if diff := cmp.Diff([]string{"X", "Y"}, names(got)); diff != "" {
		t.Errorf("supertraits mismatch (-want +got):\n%s", diff)
	}
	if _, err := r.ResolveSupertraits(declAt(t, r, 3)); !errors.Is(err, ErrCyclicHierarchy) {
		t.Errorf("X: expected ErrCyclicHierarchy, got %v", err)
	}

	var locs []Location
	for _, d := range r.Resolve().Diagnostics() {
		if d.Kind == CyclicHierarchy {
			locs = append(locs, d.Loc)
		}
	}
	if diff := cmp.Diff([]Location{at(3), at(4)}, locs); diff != "" {
		t.Errorf("cyclic hierarchy locations mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_ReportsHierarchyCyclesPerTrait(t *testing.T) {
	r := mustIngest(t, node(KindModule, "main", 1, trait("A", 2, "B"), trait("B", 3, "A")))
	idx := r.Resolve()

	var locs []Location
	for _, d := range idx.Diagnostics() {
		if d.Kind == CyclicHierarchy {
			locs = append(locs, d.Loc)
		}
	}
	if diff := cmp.Diff([]Location{at(2), at(3)}, locs); diff != "" {
		t.Errorf("cyclic hierarchy locations mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveSupertraits_SkipsUnresolvedAndNonTraitBounds(t *testing.T) {
	tree := node(KindModule, "main", 1,
		node(KindStruct, "NotATrait", 2),
		trait("Base", 3),
		trait("T", 4, "Missing", "NotATrait", "Base"),
	)
	r := mustIngest(t, tree)

	got, err := r.ResolveSupertraits(declAt(t, r, 4))
	if err != nil {
		t.Fatalf("ResolveSupertraits: %v", err)
	}
	if diff := cmp.Diff([]string{"Base"}, names(got)); diff != "" {
		t.Errorf("supertraits mismatch (-want +got):\n%s", diff)
	}

	idx := r.Resolve()
	if diff := cmp.Diff([]DiagnosticKind{UnresolvedReference, UnresolvedReference}, diagKinds(idx.Diagnostics())); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveSupertraits_NotATrait(t *testing.T) {
	r := mustIngest(t, node(KindModule, "main", 1, node(KindStruct, "S", 2)))
	if _, err := r.ResolveSupertraits(declAt(t, r, 2)); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
}

func TestAttachImpl_RejectsNonTrait(t *testing.T) {
	tree := node(KindModule, "main", 1,
		node(KindStruct, "S", 2),
		node(KindStruct, "Other", 3),
		impl("S", "Other", 4),
	)
	r := mustIngest(t, tree)
	idx := r.Resolve()

	diags := idx.Diagnostics()
	if len(diags) != 1 || diags[0].Kind != UnresolvedReference {
		t.Fatalf("diagnostics = %v", diags)
	}
	im := declAt(t, r, 4)
	if im.ImplFor() != declAt(t, r, 2) || im.ImplTrait() != nil {
		t.Errorf("impl attached to %v implementing %v", im.ImplFor(), im.ImplTrait())
	}
}

func TestIngest_AfterLookupsAttachesNewImpls(t *testing.T) {
	use := node(KindModule, "main", 1,
		node(KindFunction, "run", 2).Ref(RefSite{Path: ParsePath("lib::S::new"), Loc: at(3), Namespace: NamespaceValue, Role: RoleCall}),
	)
	r := mustIngest(t, use)
	ref := refAt(t, r, 3)
	if _, err := r.ResolveReference(ref); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("before lib is ingested: expected ErrUnresolved, got %v", err)
	}

	lib := node(KindModule, "lib", 10,
		node(KindStruct, "S", 11),
		impl("S", "", 12, node(KindFunction, "new", 13)),
	)
	if err := r.Ingest(lib); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	d, err := r.ResolveReference(ref)
	if err != nil {
		t.Fatalf("after lib is ingested: %v", err)
	}
	if d != declAt(t, r, 13) {
		t.Errorf("lib::S::new bound to %v", d)
	}

	idx := r.Resolve()
	if len(idx.Diagnostics()) != 0 {
		t.Errorf("unexpected diagnostics: %v", idx.Diagnostics())
	}
	if got := idx.ImplsOf(declAt(t, r, 11)); len(got) != 1 {
		t.Errorf("ImplsOf(S) = %v, want the impl at line 12", got)
	}
}

func TestIngest_AfterLookupsDoesNotRepeatImplErrors(t *testing.T) {
	r := mustIngest(t, node(KindModule, "main", 1, impl("Missing", "", 2)))
	r.ensureAttached()
	if err := r.Ingest(node(KindModule, "other", 10)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if diff := cmp.Diff([]DiagnosticKind{UnresolvedReference}, diagKinds(r.Resolve().Diagnostics())); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}
