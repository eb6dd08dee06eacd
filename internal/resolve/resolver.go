package resolve

import (
	"errors"
	"fmt"

	"scopenerd/internal/logging"
)

type aliasResult struct {
	decl      *Declaration
	ambiguous bool
	err       error
}

type refState uint8

const (
	refPending refState = iota + 1
	refDone
)

type refResult struct {
	state     refState
	decl      *Declaration
	ambiguous bool
	err       error
}

type superResult struct {
	decls []*Declaration
	err   error
}

// Resolver owns the declaration arena and performs both passes.
// It is not safe for concurrent use until Resolve has returned; the Index
// it returns is.
type Resolver struct {
	universe *Scope
	decls    []*Declaration
	refs     []*Reference
	roots    []*Declaration
	diags    []Diagnostic

	aliasMemo map[*Declaration]aliasResult
	refMemo   map[*Reference]refResult
	superMemo map[*Declaration]superResult

	attached   bool
	attachErrs []error
	frozen     bool
	index    *Index
}

// New creates an empty Resolver.
func New() *Resolver {
	return &Resolver{
		universe:  newScope(nil, nil),
		aliasMemo: make(map[*Declaration]aliasResult),
		refMemo:   make(map[*Reference]refResult),
		superMemo: make(map[*Declaration]superResult),
	}
}

// Roots returns the top-level declarations in ingestion order.
func (r *Resolver) Roots() []*Declaration { return r.roots }

// Declarations returns the declaration arena; a declaration's ID is its index.
func (r *Resolver) Declarations() []*Declaration { return r.decls }

// References returns the reference arena; a reference's ID is its index.
func (r *Resolver) References() []*Reference { return r.refs }

// Diagnostics returns the diagnostics collected so far.
func (r *Resolver) Diagnostics() []Diagnostic { return r.diags }

// Ingest adds declaration trees to the graph. Sibling declarations sharing a
// name and kind are reported as DuplicateDeclaration; ingestion continues
// and the joined duplicate errors are returned.
func (r *Resolver) Ingest(trees ...*Node) error {
	if r.frozen {
		return ErrFrozen
	}
	r.invalidate()
	timer := logging.StartTimer(logging.CategoryIngest, "Ingest")
	defer timer.Stop()

	var errs []error
	for _, tree := range trees {
		if tree == nil {
			continue
		}
		root := r.ingestNode(tree, nil, r.universe, &errs)
		r.roots = append(r.roots, root)
		logging.IngestDebug("ingested root %s: %d declarations so far", root.Name, len(r.decls))
	}
	if len(errs) > 0 {
		logging.IngestWarn("ingest produced %d duplicate declarations", len(errs))
	}
	return errors.Join(errs...)
}

// invalidate drops everything computed by earlier ResolveReference or
// ResolveSupertraits calls; new trees can change any of it.
func (r *Resolver) invalidate() {
	if !r.attached && len(r.refMemo) == 0 && len(r.aliasMemo) == 0 && len(r.superMemo) == 0 {
		return
	}
	logging.ResolveDebug("ingest after lookups: dropping %d memoized references", len(r.refMemo))
	r.aliasMemo = make(map[*Declaration]aliasResult)
	r.refMemo = make(map[*Reference]refResult)
	r.superMemo = make(map[*Declaration]superResult)
	for _, d := range r.decls {
		d.implFor, d.implOf = nil, nil
		d.impls, d.implementors = nil, nil
	}
	r.attached = false
	r.attachErrs = nil
}

func (r *Resolver) ingestNode(n *Node, parent *Declaration, scope *Scope, errs *[]error) *Declaration {
	d := &Declaration{
		ID:     DeclID(len(r.decls)),
		Kind:   n.Kind,
		Name:   n.Name,
		Loc:    n.Loc,
		Parent: parent,
	}
	r.decls = append(r.decls, d)

	if prev := scope.declare(d); prev != nil {
		err := newError(DuplicateDeclaration, n.Loc, n.Name,
			"%s %q already declared at %s", n.Kind, n.Name, prev.Loc)
		r.diags = append(r.diags, diagnosticFrom(err))
		*errs = append(*errs, err)
	}
	if parent != nil {
		parent.Children = append(parent.Children, d)
	}
	d.body = newScope(d, scope)

	switch n.Kind {
	case KindAlias:
		if n.Target != nil && len(n.Target.Path) > 0 {
			site := *n.Target
			site.Role = RoleAliasTarget
			d.target = r.newRef(site, scope, d)
		}
	case KindTrait:
		for _, bound := range n.Supertraits {
			bound.Role = RoleSupertrait
			bound.Namespace = NamespaceType
			d.supertraits = append(d.supertraits, r.newRef(bound, scope, d))
		}
	case KindImpl:
		if n.SelfType != nil {
			site := *n.SelfType
			site.Role = RoleImplType
			site.Namespace = NamespaceType
			d.selfType = r.newRef(site, scope, d)
		}
		if n.Trait != nil {
			site := *n.Trait
			site.Role = RoleImplTrait
			site.Namespace = NamespaceType
			d.implTrait = r.newRef(site, scope, d)
		}
	}

	for _, site := range n.Refs {
		r.newRef(site, d.body, d)
	}
	for _, child := range n.Children {
		r.ingestNode(child, d, d.body, errs)
	}
	return d
}

func (r *Resolver) newRef(site RefSite, scope *Scope, owner *Declaration) *Reference {
	ref := &Reference{
		ID:        RefID(len(r.refs)),
		Path:      site.Path,
		Loc:       site.Loc,
		Namespace: site.Namespace,
		Role:      site.Role,
		Scope:     scope,
		Owner:     owner,
	}
	r.refs = append(r.refs, ref)
	return ref
}

func (r *Resolver) report(err error) {
	if re, ok := asError(err); ok {
		r.diags = append(r.diags, diagnosticFrom(re))
		return
	}
	r.diags = append(r.diags, Diagnostic{
		Kind:     UnresolvedReference,
		Severity: SeverityError,
		Message:  err.Error(),
	})
}

// ResolveReference binds ref, which must belong to this resolver, to its
// declaration. The scope chain is walked outward from the reference's
// scope; the innermost match wins. Repeated calls return the same
// declaration.
func (r *Resolver) ResolveReference(ref *Reference) (*Declaration, error) {
	if ref == nil || int(ref.ID) < 0 || int(ref.ID) >= len(r.refs) || r.refs[ref.ID] != ref {
		return nil, fmt.Errorf("reference %v does not belong to this resolver", ref)
	}
	r.ensureAttached()
	d, _, err := r.bindRef(ref)
	return d, err
}

// Resolve runs the resolution pass over every reference, alias and trait,
// freezes the resolver and returns the read-only Index. Calling Resolve
// again returns the same Index.
func (r *Resolver) Resolve() *Index {
	if r.frozen {
		return r.index
	}
	timer := logging.StartTimer(logging.CategoryResolve, "Resolve")
	defer timer.StopWithInfo()

	r.ensureAttached()
	for _, err := range r.attachErrs {
		r.report(err)
	}

	for _, d := range r.decls {
		if d.Kind != KindAlias || d.target == nil {
			continue
		}
		if _, _, err := r.resolveAlias(d, nil); err != nil {
			r.report(err)
		}
	}

	bindings := make(map[RefID]DeclID, len(r.refs))
	for _, ref := range r.refs {
		d, ambiguous, err := r.bindRef(ref)
		if err != nil {
			switch ref.Role {
			case RoleAliasTarget, RoleImplType, RoleImplTrait:
				// reported by the alias and impl passes
			default:
				r.report(err)
			}
			continue
		}
		bindings[ref.ID] = d.ID
		if ambiguous {
			r.report(newError(AmbiguousReference, ref.Loc, ref.Path.String(),
				"%s matches several declarations; using %s declared at %s", ref.Path, d.Kind, d.Loc))
		}
		if ref.Role == RoleSupertrait && d.Kind != KindTrait {
			r.report(newError(UnresolvedReference, ref.Loc, ref.Path.String(),
				"bound %s resolves to %s, not a trait", ref.Path, d.Kind))
		}
	}

	for _, d := range r.decls {
		if d.Kind != KindTrait {
			continue
		}
		if _, err := r.ResolveSupertraits(d); err != nil {
			r.report(err)
		}
	}

	sortDiagnostics(r.diags)
	r.frozen = true
	r.index = newIndex(r, bindings)

	logging.Resolve("resolved %d/%d references across %d declarations, %d diagnostics",
		len(bindings), len(r.refs), len(r.decls), len(r.diags))
	if n := CountErrors(r.diags); n > 0 {
		logging.ResolveWarn("%d resolution errors", n)
	}
	return r.index
}
