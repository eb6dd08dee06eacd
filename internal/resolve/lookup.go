package resolve

// bindRef resolves a reference once and remembers the outcome until the
// resolver is frozen. A reference re-entered while it is being resolved
// (a supertrait bound reached through its own trait) fails as unresolved.
func (r *Resolver) bindRef(ref *Reference) (*Declaration, bool, error) {
	if res, ok := r.refMemo[ref]; ok {
		if res.state == refPending {
			return nil, false, newError(UnresolvedReference, ref.Loc, ref.Path.String(),
				"%s depends on itself", ref.Path)
		}
		return res.decl, res.ambiguous, res.err
	}
	if !r.frozen {
		r.refMemo[ref] = refResult{state: refPending}
	}
	d, ambiguous, err := r.resolvePath(ref.Path, ref.Scope, ref.Namespace, ref.Loc, nil)
	if re, ok := asError(err); ok && re.Loc != ref.Loc {
		// failures inside an alias are reported where the alias was used
		err = newError(re.Kind, ref.Loc, ref.Path.String(), "%s: %s", ref.Path, re.Message)
	}
	if !r.frozen {
		r.refMemo[ref] = refResult{state: refDone, decl: d, ambiguous: ambiguous, err: err}
	}
	return d, ambiguous, err
}

// resolveAlias follows an alias to the declaration it stands for. Opaque
// aliases stand for themselves. visiting holds the aliases on the current
// chain; meeting one again is a cycle. ambiguous is set when any path on the
// chain matched several declarations.
func (r *Resolver) resolveAlias(d *Declaration, visiting map[*Declaration]bool) (*Declaration, bool, error) {
	if res, ok := r.aliasMemo[d]; ok {
		return res.decl, res.ambiguous, res.err
	}
	if d.target == nil {
		return d, false, nil
	}
	if visiting == nil {
		visiting = make(map[*Declaration]bool)
	}
	if visiting[d] {
		return nil, false, newError(CyclicAlias, d.Loc, d.Name, "alias %s refers back to itself", d.Name)
	}

	visiting[d] = true
	target, ambiguous, err := r.resolvePath(d.target.Path, d.target.Scope, d.target.Namespace, d.target.Loc, visiting)
	delete(visiting, d)

	if err != nil {
		if re, ok := asError(err); ok && re.Kind == CyclicAlias {
			err = newError(CyclicAlias, d.Loc, d.Name, "alias %s = %s is cyclic", d.Name, d.target.Path)
		} else {
			err = newError(UnresolvedReference, d.target.Loc, d.target.Path.String(),
				"alias %s: cannot resolve %s", d.Name, d.target.Path)
		}
		target, ambiguous = nil, false
	}
	if !r.frozen {
		r.aliasMemo[d] = aliasResult{decl: target, ambiguous: ambiguous, err: err}
	}
	return target, ambiguous, err
}

// follow resolves d when it is an alias.
func (r *Resolver) follow(d *Declaration, visiting map[*Declaration]bool) (*Declaration, bool, error) {
	if d.Kind != KindAlias {
		return d, false, nil
	}
	return r.resolveAlias(d, visiting)
}

// resolvePath binds path as seen from scope. The first segment is found by
// the lexical walk (or by crate/self/super); every later segment is a member
// lookup on the previous result.
func (r *Resolver) resolvePath(path Path, scope *Scope, ns Namespace, loc Location, visiting map[*Declaration]bool) (*Declaration, bool, error) {
	if len(path) == 0 {
		return nil, false, newError(UnresolvedReference, loc, "", "empty path")
	}

	var (
		cur       *Declaration
		ambiguous bool
		i         int
	)
	segNS := func(i int) Namespace {
		if i == len(path)-1 {
			return ns
		}
		return NamespaceType
	}

	switch path[0] {
	case "", "crate":
		cur = scope.root()
		if cur == nil {
			return nil, false, newError(UnresolvedReference, loc, path.String(), "%s: no enclosing crate", path)
		}
		i = 1
	case "self":
		cur = scope.enclosingModule()
		if cur == nil {
			return nil, false, newError(UnresolvedReference, loc, path.String(), "%s: self outside a module", path)
		}
		i = 1
	case "super":
		cur = scope.enclosingModule()
		if cur == nil {
			return nil, false, newError(UnresolvedReference, loc, path.String(), "%s: super outside a module", path)
		}
	default:
		d, amb := r.lookupLexical(scope, path[0], segNS(0))
		if d == nil {
			return nil, false, newError(UnresolvedReference, loc, path.String(),
				"cannot find %s in scope", path[0])
		}
		next, viaAlias, err := r.follow(d, visiting)
		if err != nil {
			return nil, false, err
		}
		cur, ambiguous, i = next, amb || viaAlias, 1
	}

	for ; i < len(path); i++ {
		seg := path[i]
		switch seg {
		case "self":
			continue
		case "super":
			if cur.Kind != KindModule || cur.Scope == nil {
				return nil, false, newError(UnresolvedReference, loc, path.String(),
					"%s: super applied to %s", path, cur)
			}
			parent := cur.Scope.enclosingModule()
			if parent == nil {
				return nil, false, newError(UnresolvedReference, loc, path.String(),
					"%s: super of crate root", path)
			}
			cur = parent
			continue
		}
		d, amb := r.member(cur, seg, segNS(i))
		if d == nil {
			return nil, false, newError(UnresolvedReference, loc, path.String(),
				"%s %s has no member %s", cur.Kind, cur.Name, seg)
		}
		next, viaAlias, err := r.follow(d, visiting)
		if err != nil {
			return nil, false, err
		}
		cur = next
		ambiguous = ambiguous || amb || viaAlias
	}
	return cur, ambiguous, nil
}

// lookupLexical walks the scope chain outward, skipping member-only scopes.
// The innermost match wins.
func (r *Resolver) lookupLexical(scope *Scope, name string, ns Namespace) (*Declaration, bool) {
	for s := scope; s != nil; s = s.Parent {
		if !s.lexical() {
			continue
		}
		if d, ambiguous := s.local(name, ns); d != nil {
			return d, ambiguous
		}
	}
	return nil, false
}

// member finds name inside the declaration d, the target of a path prefix.
func (r *Resolver) member(d *Declaration, name string, ns Namespace) (*Declaration, bool) {
	switch d.Kind {
	case KindModule:
		return d.body.local(name, ns)
	case KindTrait:
		return r.traitMember(d, name, ns, make(map[*Declaration]bool))
	case KindStruct, KindEnum:
		if m, amb := d.body.local(name, ns); m != nil {
			return m, amb
		}
	case KindAlias, KindFunction, KindField, KindVariant, KindConst, KindStatic, KindImpl:
		return nil, false
	}

	for _, impl := range d.impls {
		if m, amb := impl.body.local(name, ns); m != nil {
			return m, amb
		}
	}
	visited := make(map[*Declaration]bool)
	for _, impl := range d.impls {
		if impl.implOf == nil {
			continue
		}
		if m, amb := r.traitMember(impl.implOf, name, ns, visited); m != nil {
			return m, amb
		}
	}
	return nil, false
}

// traitMember looks through a trait's items and then its supertraits'.
func (r *Resolver) traitMember(t *Declaration, name string, ns Namespace, visited map[*Declaration]bool) (*Declaration, bool) {
	if visited[t] {
		return nil, false
	}
	visited[t] = true
	if m, amb := t.body.local(name, ns); m != nil {
		return m, amb
	}
	for _, bound := range t.supertraits {
		st, _, err := r.bindRef(bound)
		if err != nil || st.Kind != KindTrait {
			continue
		}
		if m, amb := r.traitMember(st, name, ns, visited); m != nil {
			return m, amb
		}
	}
	return nil, false
}
