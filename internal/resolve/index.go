package resolve

import (
	"fmt"
	"sort"
	"strings"
)

// Index is the frozen result of Resolve. Every method is read-only and
// safe for concurrent use.
type Index struct {
	r        *Resolver
	bindings map[RefID]DeclID
	refsTo   map[DeclID][]*Reference
}

func newIndex(r *Resolver, bindings map[RefID]DeclID) *Index {
	refsTo := make(map[DeclID][]*Reference)
	for _, ref := range r.refs {
		if id, ok := bindings[ref.ID]; ok {
			refsTo[id] = append(refsTo[id], ref)
		}
	}
	return &Index{r: r, bindings: bindings, refsTo: refsTo}
}

// Bindings returns a copy of the reference ID to declaration ID mapping.
// Unresolved references are absent.
func (x *Index) Bindings() map[RefID]DeclID {
	out := make(map[RefID]DeclID, len(x.bindings))
	for k, v := range x.bindings {
		out[k] = v
	}
	return out
}

// Binding returns the declaration ref was bound to, or NoDecl.
func (x *Index) Binding(ref RefID) DeclID {
	if id, ok := x.bindings[ref]; ok {
		return id
	}
	return NoDecl
}

// Diagnostics returns every diagnostic sorted by location.
func (x *Index) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), x.r.diags...)
}

func (x *Index) Roots() []*Declaration        { return x.r.roots }
func (x *Index) Declarations() []*Declaration { return x.r.decls }
func (x *Index) References() []*Reference     { return x.r.refs }

// Declaration returns the declaration with the given ID, or nil.
func (x *Index) Declaration(id DeclID) *Declaration {
	if id < 0 || int(id) >= len(x.r.decls) {
		return nil
	}
	return x.r.decls[id]
}

// Unresolved returns the references that failed to bind.
func (x *Index) Unresolved() []*Reference {
	var out []*Reference
	for _, ref := range x.r.refs {
		if _, ok := x.bindings[ref.ID]; !ok {
			out = append(out, ref)
		}
	}
	return out
}

// ResolveReference returns the declaration ref was bound to during Resolve.
func (x *Index) ResolveReference(ref *Reference) (*Declaration, error) {
	if ref == nil || ref.ID < 0 || int(ref.ID) >= len(x.r.refs) || x.r.refs[ref.ID] != ref {
		return nil, fmt.Errorf("reference %v does not belong to this index", ref)
	}
	d, _, err := x.r.bindRef(ref)
	return d, err
}

// Lookup resolves a qualified name such as `main::sub::sub2::hello`. The path
// is tried from the universe first and then from inside each root, so both
// root-qualified and crate-relative names work.
func (x *Index) Lookup(qualified string) (*Declaration, error) {
	path := ParsePath(qualified)
	if len(path) == 0 {
		return nil, fmt.Errorf("lookup %q: %w", qualified, ErrUnresolved)
	}

	var firstErr error
	try := func(scope *Scope) *Declaration {
		d, _, err := x.r.resolvePath(path, scope, NamespaceAny, Location{}, nil)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return nil
		}
		return d
	}

	if path[0] != "crate" && path[0] != "" {
		if d := try(x.r.universe); d != nil {
			return d, nil
		}
	}
	for _, root := range x.r.roots {
		if d := try(root.body); d != nil {
			return d, nil
		}
	}
	if firstErr == nil {
		firstErr = newError(UnresolvedReference, Location{}, qualified, "no roots to search")
	}
	return nil, fmt.Errorf("lookup %q: %w", qualified, firstErr)
}

// QualifiedName returns the `::` joined path from the root to d. Items of
// an impl block are qualified through the type the impl was attached to.
func (x *Index) QualifiedName(d *Declaration) string {
	return qualifiedName(d)
}

func qualifiedName(d *Declaration) string {
	if d == nil {
		return ""
	}
	var parts []string
	for cur := d; cur != nil; cur = cur.Parent {
		if cur.Kind != KindImpl {
			parts = append(parts, cur.Name)
			continue
		}
		if cur.implFor != nil {
			parts = append(parts, qualifiedName(cur.implFor))
		} else {
			parts = append(parts, "<impl>")
		}
		break
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, PathSeparator)
}

// ReferencesTo returns the references bound to d in arena order.
func (x *Index) ReferencesTo(d *Declaration) []*Reference {
	if d == nil {
		return nil
	}
	return x.refsTo[d.ID]
}

// Implementors returns the types with an impl of trait, deduplicated.
func (x *Index) Implementors(trait *Declaration) []*Declaration {
	if trait == nil {
		return nil
	}
	return dedupe(trait.implementors)
}

// ImplsOf returns the impl blocks attached to a type.
func (x *Index) ImplsOf(d *Declaration) []*Declaration {
	if d == nil {
		return nil
	}
	return d.impls
}

// Supertraits returns the supertrait closure computed during Resolve.
func (x *Index) Supertraits(trait *Declaration) ([]*Declaration, error) {
	return x.r.ResolveSupertraits(trait)
}

// FindByName returns the declarations called name, optionally restricted to
// the given kinds, ordered by location.
func (x *Index) FindByName(name string, kinds ...Kind) []*Declaration {
	var out []*Declaration
	for _, d := range x.r.decls {
		if d.Name != name || !kindIn(d.Kind, kinds) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Loc.Less(out[j].Loc) })
	return out
}

func kindIn(k Kind, kinds []Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func dedupe(in []*Declaration) []*Declaration {
	seen := make(map[*Declaration]bool, len(in))
	out := make([]*Declaration, 0, len(in))
	for _, d := range in {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}
