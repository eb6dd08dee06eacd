package world

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"scopenerd/internal/logging"
	"scopenerd/internal/resolve"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// preludeNames are the std prelude items a crate can name without a use.
var preludeNames = map[string]bool{
	"Option": true, "Some": true, "None": true,
	"Result": true, "Ok": true, "Err": true,
	"Box": true, "Vec": true, "String": true, "ToString": true, "ToOwned": true,
	"Clone": true, "Copy": true, "Send": true, "Sync": true, "Sized": true, "Unpin": true,
	"Default": true, "Drop": true, "Eq": true, "PartialEq": true, "Ord": true, "PartialOrd": true,
	"Fn": true, "FnMut": true, "FnOnce": true, "From": true, "Into": true, "TryFrom": true, "TryInto": true,
	"Iterator": true, "IntoIterator": true, "DoubleEndedIterator": true, "ExactSizeIterator": true, "Extend": true,
	"AsRef": true, "AsMut": true, "Debug": true, "Display": true, "Hash": true,
	"drop": true, "Self": true,
}

var pathAttrRe = regexp.MustCompile(`^#\[\s*path\s*=\s*"([^"]*)"\s*\]$`)

// ModDecl is an out-of-line `mod name;` waiting for its file.
type ModDecl struct {
	Node *resolve.Node
	// Inline lists the inline modules enclosing the declaration within its file.
	Inline []string
	// PathAttr is the value of a `#[path = "..."]` attribute, if any.
	PathAttr string
}

// ParsedFile is one Rust source file converted to a module tree.
type ParsedFile struct {
	Path      string
	RelPath   string
	Module    *resolve.Node
	OutOfLine []ModDecl
	HasErrors bool
}

// RustParser converts Rust source files into resolve.Node trees using
// tree-sitter. A RustParser is not safe for concurrent use.
type RustParser struct {
	projectRoot string
	parser      *sitter.Parser
	externs     map[string]bool
	prelude     bool
}

// NewRustParser creates a parser. Paths whose first segment is one of
// externCrates are not recorded.
func NewRustParser(projectRoot string, externCrates []string, skipPrelude bool) *RustParser {
	parser := sitter.NewParser()
	parser.SetLanguage(rust.GetLanguage())
	externs := make(map[string]bool, len(externCrates))
	for _, c := range externCrates {
		externs[c] = true
	}
	return &RustParser{
		projectRoot: projectRoot,
		parser:      parser,
		externs:     externs,
		prelude:     skipPrelude,
	}
}

// Language returns "rs".
func (p *RustParser) Language() string {
	return "rs"
}

// SupportedExtensions returns [".rs"].
func (p *RustParser) SupportedExtensions() []string {
	return []string{".rs"}
}

// Parse converts one file into a module node named after the file.
func (p *RustParser) Parse(ctx context.Context, path string, content []byte) (*ParsedFile, error) {
	start := time.Now()
	logging.WorldDebug("RustParser: parsing file: %s", filepath.Base(path))

	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		logging.WorldError("RustParser: parse failed: %s - %v", path, err)
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	relPath := p.relativePath(path)
	root := tree.RootNode()
	module := &resolve.Node{
		Kind: resolve.KindModule,
		Name: moduleNameForFile(path),
		Loc:  resolve.Location{File: relPath, Line: 1, Column: 1},
	}

	w := &rustWalker{
		content: content,
		file:    relPath,
		externs: make(map[string]bool, len(p.externs)),
		prelude: p.prelude,
	}
	for name := range p.externs {
		w.externs[name] = true
	}
	w.items(root, module, nil, nil)

	pf := &ParsedFile{
		Path:      path,
		RelPath:   relPath,
		Module:    module,
		OutOfLine: w.mods,
		HasErrors: root.HasError(),
	}
	if pf.HasErrors {
		logging.WorldWarn("RustParser: %s contains syntax errors; declarations inside them are skipped", relPath)
	}
	logging.WorldDebug("RustParser: parsed %s - %d nodes in %v", filepath.Base(path), module.Count(), time.Since(start))
	return pf, nil
}

func (p *RustParser) relativePath(absPath string) string {
	if p.projectRoot == "" {
		return filepath.ToSlash(absPath)
	}
	rel, err := filepath.Rel(p.projectRoot, absPath)
	if err != nil {
		return filepath.ToSlash(absPath)
	}
	return filepath.ToSlash(rel)
}

// moduleNameForFile names the module a file defines: the stem, or the
// directory name for mod.rs.
func moduleNameForFile(path string) string {
	base := filepath.Base(path)
	if base == "mod.rs" {
		return filepath.Base(filepath.Dir(path))
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type generics map[string]bool

func (g generics) with(names ...string) generics {
	if len(names) == 0 {
		return g
	}
	out := make(generics, len(g)+len(names))
	for k := range g {
		out[k] = true
	}
	for _, n := range names {
		out[n] = true
	}
	return out
}

type rustWalker struct {
	content []byte
	file    string
	externs map[string]bool
	prelude bool
	mods    []ModDecl
}

func (w *rustWalker) text(n *sitter.Node) string {
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *rustWalker) loc(n *sitter.Node) resolve.Location {
	p := n.StartPoint()
	return resolve.Location{File: w.file, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func (w *rustWalker) named(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// items converts the item list of a file, module, trait or impl body.
func (w *rustWalker) items(list *sitter.Node, parent *resolve.Node, inline []string, g generics) {
	pendingPath := ""
	for _, child := range w.named(list) {
		if child.Type() == "attribute_item" {
			if m := pathAttrRe.FindStringSubmatch(strings.TrimSpace(w.text(child))); m != nil {
				pendingPath = m[1]
			}
			continue
		}
		w.item(child, parent, inline, g, pendingPath)
		pendingPath = ""
	}
}

func (w *rustWalker) item(n *sitter.Node, parent *resolve.Node, inline []string, g generics, pathAttr string) {
	switch n.Type() {
	case "mod_item":
		w.modItem(n, parent, inline, pathAttr)
	case "struct_item", "union_item":
		w.structItem(n, parent, g)
	case "enum_item":
		w.enumItem(n, parent, g)
	case "trait_item":
		w.traitItem(n, parent, inline, g)
	case "impl_item":
		w.implItem(n, parent, inline, g)
	case "function_item", "function_signature_item":
		w.functionItem(n, parent, inline, g)
	case "const_item":
		w.valueItem(n, parent, resolve.KindConst, g)
	case "static_item":
		w.valueItem(n, parent, resolve.KindStatic, g)
	case "type_item":
		w.typeItem(n, parent, g)
	case "associated_type":
		if name := n.ChildByFieldName("name"); name != nil {
			parent.Add(&resolve.Node{Kind: resolve.KindAlias, Name: w.text(name), Loc: w.loc(n)})
		}
	case "use_declaration":
		if arg := n.ChildByFieldName("argument"); arg != nil {
			w.useTree(arg, nil, parent)
		}
	case "extern_crate_declaration":
		w.externCrate(n)
	case "foreign_mod_item":
		if body := n.ChildByFieldName("body"); body != nil {
			w.items(body, parent, inline, g)
		}
	case "macro_invocation", "macro_definition", "line_comment", "block_comment", "inner_attribute_item":
	default:
		// expression statements at item level only occur in blocks
		w.refs(n, parent, g, nil)
	}
}

func (w *rustWalker) modItem(n *sitter.Node, parent *resolve.Node, inline []string, pathAttr string) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	m := &resolve.Node{Kind: resolve.KindModule, Name: w.text(name), Loc: w.loc(n)}
	parent.Add(m)
	if body := n.ChildByFieldName("body"); body != nil {
		inner := append(append([]string(nil), inline...), m.Name)
		w.items(body, m, inner, nil)
		return
	}
	w.mods = append(w.mods, ModDecl{Node: m, Inline: append([]string(nil), inline...), PathAttr: pathAttr})
}

func (w *rustWalker) structItem(n *sitter.Node, parent *resolve.Node, g generics) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	s := &resolve.Node{Kind: resolve.KindStruct, Name: w.text(name), Loc: w.loc(n)}
	parent.Add(s)
	g = w.typeParameters(n, s, g)
	if where := findChild(n, "where_clause"); where != nil {
		w.refs(where, s, g, nil)
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	w.fields(body, s, g)
}

func (w *rustWalker) fields(body *sitter.Node, owner *resolve.Node, g generics) {
	switch body.Type() {
	case "field_declaration_list":
		for _, f := range w.named(body) {
			if f.Type() != "field_declaration" {
				continue
			}
			if name := f.ChildByFieldName("name"); name != nil {
				owner.Add(&resolve.Node{Kind: resolve.KindField, Name: w.text(name), Loc: w.loc(f)})
			}
			if t := f.ChildByFieldName("type"); t != nil {
				w.refs(t, owner, g, nil)
			}
		}
	case "ordered_field_declaration_list":
		index := 0
		for _, f := range w.named(body) {
			if f.Type() == "attribute_item" || f.Type() == "visibility_modifier" {
				continue
			}
			owner.Add(&resolve.Node{Kind: resolve.KindField, Name: fmt.Sprint(index), Loc: w.loc(f)})
			index++
			w.refs(f, owner, g, nil)
		}
	}
}

func (w *rustWalker) enumItem(n *sitter.Node, parent *resolve.Node, g generics) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	e := &resolve.Node{Kind: resolve.KindEnum, Name: w.text(name), Loc: w.loc(n)}
	parent.Add(e)
	g = w.typeParameters(n, e, g)
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for _, v := range w.named(body) {
		if v.Type() != "enum_variant" {
			continue
		}
		vname := v.ChildByFieldName("name")
		if vname == nil {
			continue
		}
		e.Add(&resolve.Node{Kind: resolve.KindVariant, Name: w.text(vname), Loc: w.loc(v)})
		if vb := v.ChildByFieldName("body"); vb != nil {
			w.fieldTypes(vb, e, g)
		}
		if val := v.ChildByFieldName("value"); val != nil {
			w.refs(val, e, g, nil)
		}
	}
}

// fieldTypes records the types of variant payloads on the enum itself.
func (w *rustWalker) fieldTypes(body *sitter.Node, owner *resolve.Node, g generics) {
	for _, f := range w.named(body) {
		if f.Type() == "field_declaration" {
			if t := f.ChildByFieldName("type"); t != nil {
				w.refs(t, owner, g, nil)
			}
			continue
		}
		w.refs(f, owner, g, nil)
	}
}

func (w *rustWalker) traitItem(n *sitter.Node, parent *resolve.Node, inline []string, g generics) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	t := &resolve.Node{Kind: resolve.KindTrait, Name: w.text(name), Loc: w.loc(n)}
	parent.Add(t)
	g = w.typeParameters(n, t, g)
	if bounds := n.ChildByFieldName("bounds"); bounds != nil {
		for _, b := range w.named(bounds) {
			if path := w.boundPath(b); path != nil && w.keep(path, g) {
				t.Supertraits = append(t.Supertraits, resolve.RefSite{Path: path, Loc: w.loc(b)})
			}
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		w.items(body, t, inline, g)
	}
}

func (w *rustWalker) implItem(n *sitter.Node, parent *resolve.Node, inline []string, g generics) {
	im := &resolve.Node{Kind: resolve.KindImpl, Loc: w.loc(n)}
	parent.Add(im)
	g = w.typeParameters(n, im, g)

	if typ := n.ChildByFieldName("type"); typ != nil {
		if path := w.typePath(typ); path != nil && w.keep(path, g) {
			im.SelfType = &resolve.RefSite{Path: path, Loc: w.loc(typ)}
			if args := findChild(typ, "type_arguments"); args != nil {
				w.refs(args, im, g, nil)
			}
		} else {
			w.refs(typ, im, g, nil)
		}
	}
	if tr := n.ChildByFieldName("trait"); tr != nil {
		if path := w.typePath(tr); path != nil && w.keep(path, g) {
			im.Trait = &resolve.RefSite{Path: path, Loc: w.loc(tr)}
		}
	}
	if where := findChild(n, "where_clause"); where != nil {
		w.refs(where, im, g, nil)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		w.items(body, im, inline, g)
	}
}

func (w *rustWalker) functionItem(n *sitter.Node, parent *resolve.Node, inline []string, g generics) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	fn := &resolve.Node{Kind: resolve.KindFunction, Name: w.text(name), Loc: w.loc(n)}
	parent.Add(fn)
	g = w.typeParameters(n, fn, g)

	locals := make(map[string]bool)
	if params := n.ChildByFieldName("parameters"); params != nil {
		w.bindPatterns(params, locals)
		w.refs(params, fn, g, locals)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		w.refs(ret, fn, g, locals)
	}
	if where := findChild(n, "where_clause"); where != nil {
		w.refs(where, fn, g, locals)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		w.bindPatterns(body, locals)
		w.block(body, fn, inline, g, locals)
	}
}

// block walks a function body: nested items become children of fn, the
// rest contributes references.
func (w *rustWalker) block(n *sitter.Node, fn *resolve.Node, inline []string, g generics, locals map[string]bool) {
	for _, child := range w.named(n) {
		switch child.Type() {
		case "mod_item", "struct_item", "union_item", "enum_item", "trait_item", "impl_item",
			"function_item", "const_item", "static_item", "type_item", "use_declaration":
			w.item(child, fn, inline, g, "")
		case "block", "expression_statement", "if_expression", "loop_expression", "while_expression",
			"for_expression", "match_expression", "match_block", "match_arm", "unsafe_block", "async_block",
			"else_clause":
			w.block(child, fn, inline, g, locals)
		default:
			w.refs(child, fn, g, locals)
		}
	}
}

func (w *rustWalker) valueItem(n *sitter.Node, parent *resolve.Node, kind resolve.Kind, g generics) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	v := &resolve.Node{Kind: kind, Name: w.text(name), Loc: w.loc(n)}
	parent.Add(v)
	if t := n.ChildByFieldName("type"); t != nil {
		w.refs(t, v, g, nil)
	}
	if val := n.ChildByFieldName("value"); val != nil {
		w.refs(val, v, g, nil)
	}
}

// typeItem records `type Name = Target;`. Path-shaped targets make a
// transparent alias; anything else (tuples, references, arrays) is opaque
// and only contributes references.
func (w *rustWalker) typeItem(n *sitter.Node, parent *resolve.Node, g generics) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	a := &resolve.Node{Kind: resolve.KindAlias, Name: w.text(name), Loc: w.loc(n)}
	parent.Add(a)
	g = w.typeParameters(n, a, g)
	typ := n.ChildByFieldName("type")
	if typ == nil {
		return
	}
	if path := w.typePath(typ); path != nil && w.keep(path, g) {
		a.Target = &resolve.RefSite{Path: path, Loc: w.loc(typ), Namespace: resolve.NamespaceType}
		if args := findChild(typ, "type_arguments"); args != nil {
			w.refs(args, a, g, nil)
		}
		return
	}
	w.refs(typ, a, g, nil)
}

func (w *rustWalker) externCrate(n *sitter.Node) {
	if name := n.ChildByFieldName("name"); name != nil {
		w.externs[w.text(name)] = true
	}
	if alias := n.ChildByFieldName("alias"); alias != nil {
		w.externs[w.text(alias)] = true
	}
}

// useTree expands a use declaration into alias nodes. prefix carries the
// path of an enclosing `a::b::{...}` list.
func (w *rustWalker) useTree(n *sitter.Node, prefix resolve.Path, parent *resolve.Node) {
	switch n.Type() {
	case "use_as_clause":
		pathNode, aliasNode := n.ChildByFieldName("path"), n.ChildByFieldName("alias")
		if pathNode == nil || aliasNode == nil {
			return
		}
		name := w.text(aliasNode)
		if name == "_" {
			return
		}
		w.useAlias(name, join(prefix, w.valuePath(pathNode)), pathNode, parent)
	case "scoped_use_list":
		next := prefix
		if pathNode := n.ChildByFieldName("path"); pathNode != nil {
			next = join(prefix, w.valuePath(pathNode))
		}
		if list := n.ChildByFieldName("list"); list != nil {
			w.useTree(list, next, parent)
		}
	case "use_list":
		for _, item := range w.named(n) {
			w.useTree(item, prefix, parent)
		}
	case "use_wildcard":
		// globs import nothing by name
	case "self":
		if len(prefix) > 0 {
			w.useAlias(prefix.Last(), prefix, n, parent)
		}
	default:
		path := join(prefix, w.valuePath(n))
		if len(path) == 0 {
			return
		}
		w.useAlias(path.Last(), path, n, parent)
	}
}

func (w *rustWalker) useAlias(name string, target resolve.Path, at *sitter.Node, parent *resolve.Node) {
	if len(target) == 0 || name == "" || w.externs[target[0]] {
		return
	}
	if len(target) == 1 && target[0] == name {
		// `use foo;` names an extern crate
		return
	}
	if target.Last() == "self" {
		target = target[:len(target)-1]
		if len(target) == 0 {
			return
		}
	}
	parent.Add(&resolve.Node{
		Kind:   resolve.KindAlias,
		Name:   name,
		Loc:    w.loc(at),
		Target: &resolve.RefSite{Path: target, Loc: w.loc(at)},
	})
}

// typeParameters declares nothing (generic parameters are not items) but
// records their bounds as references and returns the extended set of names
// that must not be treated as references.
func (w *rustWalker) typeParameters(n *sitter.Node, owner *resolve.Node, g generics) generics {
	params := n.ChildByFieldName("type_parameters")
	if params == nil {
		return g
	}
	var names []string
	for _, p := range w.named(params) {
		switch p.Type() {
		case "type_identifier":
			names = append(names, w.text(p))
		case "constrained_type_parameter":
			if left := p.ChildByFieldName("left"); left != nil && left.Type() == "type_identifier" {
				names = append(names, w.text(left))
			}
		case "optional_type_parameter":
			if name := p.ChildByFieldName("name"); name != nil {
				names = append(names, w.text(name))
			}
		case "const_parameter":
			if name := p.ChildByFieldName("name"); name != nil {
				names = append(names, w.text(name))
			}
		}
	}
	g = g.with(names...)
	for _, p := range w.named(params) {
		switch p.Type() {
		case "constrained_type_parameter":
			if bounds := p.ChildByFieldName("bounds"); bounds != nil {
				w.refs(bounds, owner, g, nil)
			}
		case "optional_type_parameter":
			if def := p.ChildByFieldName("default_type"); def != nil {
				w.refs(def, owner, g, nil)
			}
		}
	}
	return g
}

// refs records the references inside an expression, type or pattern.
func (w *rustWalker) refs(n *sitter.Node, owner *resolve.Node, g generics, locals map[string]bool) {
	switch n.Type() {
	case "type_identifier":
		w.addRef(owner, resolve.Path{w.text(n)}, n, resolve.NamespaceType, resolve.RoleType, g)
		return
	case "scoped_type_identifier":
		if path := w.typePath(n); path != nil {
			w.addRef(owner, path, n, resolve.NamespaceType, resolve.RoleType, g)
			return
		}
	case "scoped_identifier":
		if path := w.valuePath(n); path != nil {
			w.addRef(owner, path, n, resolve.NamespaceAny, resolve.RoleUse, g)
			return
		}
	case "call_expression":
		if fn := n.ChildByFieldName("function"); fn != nil {
			switch fn.Type() {
			case "identifier":
				name := w.text(fn)
				if !locals[name] {
					w.addRef(owner, resolve.Path{name}, fn, resolve.NamespaceValue, resolve.RoleCall, g)
				}
			case "scoped_identifier":
				if path := w.valuePath(fn); path != nil {
					w.addRef(owner, path, fn, resolve.NamespaceValue, resolve.RoleCall, g)
				}
			default:
				w.refs(fn, owner, g, locals)
			}
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			w.refs(args, owner, g, locals)
		}
		return
	case "struct_expression":
		if name := n.ChildByFieldName("name"); name != nil {
			if path := w.typePath(name); path != nil {
				w.addRef(owner, path, name, resolve.NamespaceType, resolve.RoleType, g)
			}
		}
		if body := n.ChildByFieldName("body"); body != nil {
			w.refs(body, owner, g, locals)
		}
		return
	case "field_expression":
		if v := n.ChildByFieldName("value"); v != nil {
			w.refs(v, owner, g, locals)
		}
		return
	case "primitive_type", "lifetime", "macro_invocation", "token_tree", "string_literal",
		"raw_string_literal", "char_literal", "integer_literal", "float_literal", "line_comment", "block_comment":
		return
	case "closure_expression":
		inner := make(map[string]bool, len(locals))
		for k := range locals {
			inner[k] = true
		}
		w.bindPatterns(n, inner)
		locals = inner
	}
	for _, child := range w.named(n) {
		w.refs(child, owner, g, locals)
	}
}

func (w *rustWalker) addRef(owner *resolve.Node, path resolve.Path, at *sitter.Node, ns resolve.Namespace, role resolve.Role, g generics) {
	if !w.keep(path, g) {
		return
	}
	owner.Ref(resolve.RefSite{Path: path, Loc: w.loc(at), Namespace: ns, Role: role})
}

// keep filters paths that cannot name a workspace declaration.
func (w *rustWalker) keep(path resolve.Path, g generics) bool {
	if len(path) == 0 {
		return false
	}
	first := path[0]
	switch {
	case w.externs[first]:
		return false
	case first == "Self" || first == "self" && len(path) == 1:
		return false
	case g[first]:
		return false
	case w.prelude && preludeNames[first]:
		return false
	}
	return true
}

// bindPatterns collects every identifier bound by a pattern below n.
func (w *rustWalker) bindPatterns(n *sitter.Node, locals map[string]bool) {
	switch n.Type() {
	case "let_declaration", "parameter", "for_expression", "let_condition", "match_pattern":
		if pat := n.ChildByFieldName("pattern"); pat != nil {
			w.patternNames(pat, locals)
		}
	case "closure_parameters":
		w.patternNames(n, locals)
	case "match_arm":
		if pat := n.ChildByFieldName("pattern"); pat != nil {
			w.patternNames(pat, locals)
		}
	}
	for _, child := range w.named(n) {
		w.bindPatterns(child, locals)
	}
}

func (w *rustWalker) patternNames(n *sitter.Node, locals map[string]bool) {
	if n.Type() == "identifier" {
		locals[w.text(n)] = true
		return
	}
	for _, child := range w.named(n) {
		w.patternNames(child, locals)
	}
}

// valuePath converts identifier and scoped_identifier nodes to a path.
func (w *rustWalker) valuePath(n *sitter.Node) resolve.Path {
	switch n.Type() {
	case "identifier", "type_identifier", "self", "super", "crate", "metavariable":
		return resolve.Path{w.text(n)}
	case "scoped_identifier", "scoped_type_identifier":
		name := n.ChildByFieldName("name")
		if name == nil {
			return nil
		}
		var prefix resolve.Path
		if p := n.ChildByFieldName("path"); p != nil {
			prefix = w.valuePath(p)
			if prefix == nil {
				return nil
			}
		} else if strings.HasPrefix(strings.TrimSpace(w.text(n)), "::") {
			prefix = resolve.Path{""}
		}
		return join(prefix, resolve.Path{w.text(name)})
	case "generic_type", "generic_type_with_turbofish":
		if t := n.ChildByFieldName("type"); t != nil {
			return w.valuePath(t)
		}
	}
	return nil
}

// typePath is valuePath for type positions; generic arguments are dropped.
func (w *rustWalker) typePath(n *sitter.Node) resolve.Path {
	return w.valuePath(n)
}

// boundPath extracts the trait path from one entry of a trait_bounds list.
func (w *rustWalker) boundPath(n *sitter.Node) resolve.Path {
	switch n.Type() {
	case "type_identifier", "scoped_type_identifier", "generic_type":
		return w.typePath(n)
	case "higher_ranked_trait_bound":
		if v := n.ChildByFieldName("value"); v != nil {
			return w.typePath(v)
		}
	}
	return nil
}

func findChild(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

func join(a, b resolve.Path) resolve.Path {
	out := make(resolve.Path, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
