package resolve

import "scopenerd/internal/logging"

// ensureAttached resolves every impl header once and links impl blocks to
// the types and traits they name. It runs before any reference is bound so
// that member lookups through a type see its impl items.
func (r *Resolver) ensureAttached() {
	if r.attached {
		return
	}
	r.attached = true

	attached := 0
	for _, d := range r.decls {
		if d.Kind == KindImpl && r.attachImpl(d) {
			attached++
		}
	}
	logging.Hierarchy("attached %d impl blocks", attached)
}

func (r *Resolver) attachImpl(impl *Declaration) bool {
	if impl.selfType != nil {
		target, _, err := r.bindRef(impl.selfType)
		if err != nil {
			r.attachErrs = append(r.attachErrs, err)
		} else {
			impl.implFor = target
			target.impls = append(target.impls, impl)
			logging.HierarchyDebug("impl at %s attached to %s", impl.Loc, target.Name)
		}
	}
	if impl.implTrait != nil {
		trait, _, err := r.bindRef(impl.implTrait)
		switch {
		case err != nil:
			r.attachErrs = append(r.attachErrs, err)
		case trait.Kind != KindTrait:
			r.attachErrs = append(r.attachErrs, newError(UnresolvedReference, impl.implTrait.Loc, impl.implTrait.Path.String(),
				"impl of %s: %s is a %s, not a trait", impl.implTrait.Path, trait.Name, trait.Kind))
		default:
			impl.implOf = trait
			if impl.implFor != nil {
				trait.implementors = append(trait.implementors, impl.implFor)
			}
		}
	}
	return impl.implFor != nil
}

// ResolveSupertraits returns the transitive supertraits of trait in
// depth-first pre-order without duplicates. When trait is its own ancestor
// the closure is returned together with a CyclicHierarchy error. A trait that
// only reaches a cycle further up gets its closure and no error.
func (r *Resolver) ResolveSupertraits(trait *Declaration) ([]*Declaration, error) {
	if trait == nil || trait.Kind != KindTrait {
		return nil, newError(UnresolvedReference, Location{}, "", "%v is not a trait", trait)
	}
	if res, ok := r.superMemo[trait]; ok {
		return res.decls, res.err
	}
	r.ensureAttached()

	var (
		out     []*Declaration
		cycle   *Error
		seen    = make(map[*Declaration]bool)
		onStack = make(map[*Declaration]bool)
	)
	var visit func(t *Declaration)
	visit = func(t *Declaration) {
		onStack[t] = true
		for _, bound := range t.supertraits {
			st, _, err := r.bindRef(bound)
			if err != nil || st.Kind != KindTrait {
				continue
			}
			if onStack[st] {
				if st == trait && cycle == nil {
					cycle = newError(CyclicHierarchy, trait.Loc, trait.Name,
						"trait %s: bound %s on %s closes a cycle", trait.Name, bound.Path, t.Name)
				}
				continue
			}
			if seen[st] {
				continue
			}
			seen[st] = true
			out = append(out, st)
			visit(st)
		}
		delete(onStack, t)
	}
	visit(trait)

	var err error
	if cycle != nil {
		err = cycle
		logging.Get(logging.CategoryHierarchy).Warn("%s", cycle.Error())
	}
	if !r.frozen {
		r.superMemo[trait] = superResult{decls: out, err: err}
	}
	return out, err
}
