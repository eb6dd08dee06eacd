package resolve

// Node is one entry of an input declaration tree, as produced by a front end.
//
// The fields that apply depend on Kind:
//   - KindAlias: Target is the aliased path; nil makes the alias opaque.
//   - KindTrait: Supertraits lists the trait bounds.
//   - KindImpl: SelfType and (for trait impls) Trait name the header.
//
// Refs lists the references occurring directly in the scope the node opens.
type Node struct {
	Kind        Kind
	Name        string
	Loc         Location
	Target      *RefSite
	Supertraits []RefSite
	SelfType    *RefSite
	Trait       *RefSite
	Refs        []RefSite
	Children    []*Node
}

// RefSite is an unresolved reference in an input tree.
type RefSite struct {
	Path      Path
	Loc       Location
	Namespace Namespace
	Role      Role
}

// Add appends child nodes and returns n for chaining.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Ref appends a reference and returns n for chaining.
func (n *Node) Ref(site RefSite) *Node {
	n.Refs = append(n.Refs, site)
	return n
}

// Walk visits n and its descendants depth-first, stopping early when fn
// returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the tree rooted at n.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}
