// Package resolve connects identifier references in declaration trees to
// the declarations that define them.
//
// Resolution runs in two passes. Ingest builds an arena of Declarations and
// the Scope graph that owns them; Resolve walks every Reference, follows
// aliases, attaches impl blocks to their types and computes supertrait
// closures. The resulting Index is immutable and safe to share.
package resolve

import (
	"fmt"
	"strings"
)

// Kind classifies a declaration.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindModule
	KindStruct
	KindEnum
	KindTrait
	KindFunction
	KindField
	KindAlias
	KindVariant
	KindConst
	KindStatic
	KindImpl
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindModule:   "module",
	KindStruct:   "struct",
	KindEnum:     "enum",
	KindTrait:    "trait",
	KindFunction: "function",
	KindField:    "field",
	KindAlias:    "alias",
	KindVariant:  "variant",
	KindConst:    "const",
	KindStatic:   "static",
	KindImpl:     "impl",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s && Kind(i) != KindInvalid {
			return Kind(i), nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown declaration kind %q", s)
}

// opensMemberScope reports whether declarations of this kind own a scope that
// is only reachable through paths (Type::item), never by the lexical walk.
func (k Kind) opensMemberScope() bool {
	switch k {
	case KindStruct, KindEnum, KindTrait, KindImpl:
		return true
	}
	return false
}

// Namespace narrows which declaration kinds a reference may bind to.
type Namespace uint8

const (
	NamespaceAny Namespace = iota
	NamespaceType
	NamespaceValue
)

func (ns Namespace) String() string {
	switch ns {
	case NamespaceType:
		return "type"
	case NamespaceValue:
		return "value"
	default:
		return "any"
	}
}

// admits reports whether a declaration of kind k lives in namespace ns.
// Aliases are admitted everywhere; their target decides.
func (ns Namespace) admits(k Kind) bool {
	switch k {
	case KindImpl, KindInvalid:
		return false
	case KindAlias:
		return true
	}
	switch ns {
	case NamespaceType:
		switch k {
		case KindModule, KindStruct, KindEnum, KindTrait:
			return true
		}
		return false
	case NamespaceValue:
		switch k {
		case KindFunction, KindConst, KindStatic, KindStruct, KindVariant:
			return true
		}
		return false
	default:
		return true
	}
}

// Role records where a reference came from.
type Role uint8

const (
	RoleUse Role = iota
	RoleType
	RoleCall
	RoleAliasTarget
	RoleSupertrait
	RoleImplType
	RoleImplTrait
)

var roleNames = [...]string{
	RoleUse:         "use",
	RoleType:        "type",
	RoleCall:        "call",
	RoleAliasTarget: "alias_target",
	RoleSupertrait:  "supertrait",
	RoleImplType:    "impl_type",
	RoleImplTrait:   "impl_trait",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", r)
}

// Location is a 1-based source position.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Less orders locations by file, line, then column.
func (l Location) Less(o Location) bool {
	if l.File != o.File {
		return l.File < o.File
	}
	if l.Line != o.Line {
		return l.Line < o.Line
	}
	return l.Column < o.Column
}

// Path is a `::` separated name path. An empty leading segment denotes a
// path rooted at the crate (`::a::b`).
type Path []string

// PathSeparator joins path segments.
const PathSeparator = "::"

// ParsePath splits a `::` separated path. Whitespace around segments is
// trimmed.
func ParsePath(s string) Path {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, PathSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return Path(parts)
}

func (p Path) String() string {
	return strings.Join(p, PathSeparator)
}

// Last returns the final segment, or "" for an empty path.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// DeclID is the arena index of a Declaration.
type DeclID int

// RefID is the arena index of a Reference.
type RefID int

// NoDecl marks an unbound reference.
const NoDecl DeclID = -1

// Declaration is a named definition owned by exactly one Scope.
type Declaration struct {
	ID       DeclID
	Kind     Kind
	Name     string
	Loc      Location
	Parent   *Declaration
	Scope    *Scope
	Children []*Declaration

	// body is the scope this declaration opens for its children.
	body *Scope

	// alias target; nil for opaque aliases.
	target *Reference

	// trait bounds in source order.
	supertraits []*Reference

	// impl header.
	selfType  *Reference
	implTrait *Reference

	// filled while attaching impls.
	implFor      *Declaration
	implOf       *Declaration
	impls        []*Declaration
	implementors []*Declaration
}

// Body returns the scope opened by this declaration, or nil.
func (d *Declaration) Body() *Scope { return d.body }

// Target returns the alias target reference, or nil.
func (d *Declaration) Target() *Reference { return d.target }

// Supertraits returns the declared trait bound references.
func (d *Declaration) Supertraits() []*Reference { return d.supertraits }

// ImplHeader returns the self-type and trait references of an impl block.
func (d *Declaration) ImplHeader() (selfType, trait *Reference) {
	return d.selfType, d.implTrait
}

// ImplFor returns the type an impl block was attached to.
func (d *Declaration) ImplFor() *Declaration { return d.implFor }

// ImplTrait returns the trait an impl block implements, or nil.
func (d *Declaration) ImplTrait() *Declaration { return d.implOf }

// IsOpaqueAlias reports whether an alias stands for itself.
func (d *Declaration) IsOpaqueAlias() bool {
	return d.Kind == KindAlias && d.target == nil
}

func (d *Declaration) String() string {
	name := d.Name
	if d.Kind == KindImpl {
		name = "impl"
		if d.selfType != nil {
			name = "impl " + d.selfType.Path.String()
		}
	}
	return fmt.Sprintf("%s %s (#%d)", d.Kind, name, d.ID)
}

// Reference is a use-site path waiting to be bound to a Declaration.
type Reference struct {
	ID        RefID
	Path      Path
	Loc       Location
	Namespace Namespace
	Role      Role

	// Scope is where the reference occurs; Owner is the declaration
	// whose body contains it.
	Scope *Scope
	Owner *Declaration
}

func (r *Reference) String() string {
	return fmt.Sprintf("%s@%s", r.Path, r.Loc)
}
