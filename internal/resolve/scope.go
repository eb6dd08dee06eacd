package resolve

// Scope is an ordered set of declarations with a back-reference to its
// enclosing scope. Direct declarations and aliases are indexed separately
// so lookups can prefer the former.
type Scope struct {
	Owner  *Declaration
	Parent *Scope

	decls   []*Declaration
	byName  map[string][]*Declaration
	aliases map[string]*Declaration
}

func newScope(owner *Declaration, parent *Scope) *Scope {
	return &Scope{
		Owner:   owner,
		Parent:  parent,
		byName:  make(map[string][]*Declaration),
		aliases: make(map[string]*Declaration),
	}
}

// Declarations returns the declarations owned by the scope in declaration order.
func (s *Scope) Declarations() []*Declaration {
	return s.decls
}

// lexical reports whether the outward walk inspects this scope.
func (s *Scope) lexical() bool {
	return s.Owner == nil || !s.Owner.Kind.opensMemberScope()
}

// declare adds d to the scope. It returns the earlier sibling with the same
// name and kind when d is a duplicate; duplicates are owned but not indexed.
func (s *Scope) declare(d *Declaration) *Declaration {
	s.decls = append(s.decls, d)
	d.Scope = s
	if d.Kind == KindImpl || d.Name == "" {
		return nil
	}
	if d.Kind == KindAlias {
		if prev, ok := s.aliases[d.Name]; ok {
			return prev
		}
		s.aliases[d.Name] = d
		return nil
	}
	for _, prev := range s.byName[d.Name] {
		if prev.Kind == d.Kind {
			return prev
		}
	}
	s.byName[d.Name] = append(s.byName[d.Name], d)
	return nil
}

// local finds name among the scope's own declarations, direct declarations
// first, then aliases. ambiguous is set when more than one direct
// declaration of different kinds matches.
func (s *Scope) local(name string, ns Namespace) (d *Declaration, ambiguous bool) {
	for _, cand := range s.byName[name] {
		if !ns.admits(cand.Kind) {
			continue
		}
		if d == nil {
			d = cand
			continue
		}
		ambiguous = true
	}
	if d != nil {
		return d, ambiguous
	}
	if a, ok := s.aliases[name]; ok {
		return a, false
	}
	return nil, false
}

// enclosingModule returns the innermost module declaration whose body
// contains s, or nil at the universe.
func (s *Scope) enclosingModule() *Declaration {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Owner != nil && cur.Owner.Kind == KindModule {
			return cur.Owner
		}
	}
	return nil
}

// root returns the top-level module declaration enclosing s.
func (s *Scope) root() *Declaration {
	var top *Declaration
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Owner != nil {
			top = cur.Owner
		}
	}
	return top
}
