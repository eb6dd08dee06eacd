package facts

import (
	"scopenerd/internal/resolve"
)

// Export converts a resolved index to base facts: decl, parent, ref,
// resolves_to, supertrait, implements, alias_of and diagnostic.
func Export(idx *resolve.Index) []Fact {
	var out []Fact
	add := func(pred string, args ...interface{}) {
		out = append(out, Fact{Predicate: pred, Args: args})
	}

	for _, d := range idx.Declarations() {
		add("decl", int(d.ID), Name("/"+d.Kind.String()), d.Name, idx.QualifiedName(d), d.Loc.File, d.Loc.Line)
		if d.Parent != nil {
			add("parent", int(d.ID), int(d.Parent.ID))
		}
		switch d.Kind {
		case resolve.KindTrait:
			for _, s := range d.Supertraits() {
				if st := idx.Declaration(idx.Binding(s.ID)); st != nil && st.Kind == resolve.KindTrait {
					add("supertrait", int(d.ID), int(st.ID))
				}
			}
		case resolve.KindAlias:
			if t := d.Target(); t != nil {
				if id := idx.Binding(t.ID); id != resolve.NoDecl {
					add("alias_of", int(d.ID), int(id))
				}
			}
		case resolve.KindImpl:
			if d.ImplFor() != nil && d.ImplTrait() != nil {
				add("implements", int(d.ImplFor().ID), int(d.ImplTrait().ID))
			}
		}
	}

	for _, ref := range idx.References() {
		add("ref", int(ref.ID), ref.Path.String(), ref.Loc.File, ref.Loc.Line)
		if id := idx.Binding(ref.ID); id != resolve.NoDecl {
			add("resolves_to", int(ref.ID), int(id))
		}
	}

	for _, diag := range idx.Diagnostics() {
		add("diagnostic", string(diag.Kind), diag.Loc.File, diag.Loc.Line, diag.Message)
	}
	return out
}
