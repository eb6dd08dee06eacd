package world

import (
	"context"
	"testing"

	"scopenerd/internal/resolve"
)

func parseRust(t *testing.T, path, src string) *ParsedFile {
	t.Helper()
	parser := NewRustParser("/ws", []string{"std", "core", "alloc"}, true)
	pf, err := parser.Parse(context.Background(), path, []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return pf
}

func child(t *testing.T, n *resolve.Node, name string) *resolve.Node {
	t.Helper()
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("%s has no child %q", n.Name, name)
	return nil
}

func refPaths(n *resolve.Node) []string {
	var out []string
	for _, r := range n.Refs {
		out = append(out, r.Path.String())
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestRustParser_Basics(t *testing.T) {
	parser := NewRustParser("/ws", nil, true)
	if parser.Language() != "rs" {
		t.Errorf("Expected 'rs', got %s", parser.Language())
	}
	if exts := parser.SupportedExtensions(); len(exts) != 1 || exts[0] != ".rs" {
		t.Errorf("Expected [.rs], got %v", exts)
	}
}

func TestRustParser_Items(t *testing.T) {
	src := `
const LIMIT: u32 = 10;
static COUNTER: u32 = 0;

pub struct Point { x: i32, y: i32 }
struct Pair(u32, Point);

enum Shape {
    Circle(Point),
    Square { side: u32 },
}

trait Named: Clone + Describe {
    type Output;
    fn name(&self) -> String;
}

trait Describe {}

impl Describe for Point {}

impl Point {
    fn origin() -> Point { Point { x: 0, y: 0 } }
}

type Alias = Point;
type Tuple = (u32, u32);

mod inner {
    pub fn f() {}
}
`
	pf := parseRust(t, "/ws/src/shapes.rs", src)
	m := pf.Module
	if m.Kind != resolve.KindModule || m.Name != "shapes" {
		t.Fatalf("Expected module shapes, got %s %s", m.Kind, m.Name)
	}
	if pf.RelPath != "src/shapes.rs" {
		t.Errorf("Expected RelPath src/shapes.rs, got %s", pf.RelPath)
	}
	if pf.HasErrors {
		t.Error("Unexpected syntax errors")
	}

	tests := []struct {
		name string
		kind resolve.Kind
	}{
		{"LIMIT", resolve.KindConst},
		{"COUNTER", resolve.KindStatic},
		{"Point", resolve.KindStruct},
		{"Pair", resolve.KindStruct},
		{"Shape", resolve.KindEnum},
		{"Named", resolve.KindTrait},
		{"Describe", resolve.KindTrait},
		{"Alias", resolve.KindAlias},
		{"Tuple", resolve.KindAlias},
		{"inner", resolve.KindModule},
	}
	for _, tt := range tests {
		if got := child(t, m, tt.name).Kind; got != tt.kind {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.kind, got)
		}
	}

	point := child(t, m, "Point")
	if len(point.Children) != 2 || point.Children[0].Name != "x" || point.Children[1].Kind != resolve.KindField {
		t.Errorf("Point fields: %+v", point.Children)
	}
	pair := child(t, m, "Pair")
	if len(pair.Children) != 2 || pair.Children[0].Name != "0" || pair.Children[1].Name != "1" {
		t.Errorf("Pair fields: %+v", pair.Children)
	}
	if !contains(refPaths(pair), "Point") {
		t.Errorf("Pair should reference Point, got %v", refPaths(pair))
	}

	shape := child(t, m, "Shape")
	if child(t, shape, "Circle").Kind != resolve.KindVariant || child(t, shape, "Square").Kind != resolve.KindVariant {
		t.Error("Shape variants not recorded")
	}

	named := child(t, m, "Named")
	if len(named.Supertraits) != 1 || named.Supertraits[0].Path.String() != "Describe" {
		t.Errorf("Named supertraits: expected [Describe] (Clone is prelude), got %+v", named.Supertraits)
	}
	if child(t, named, "Output").Kind != resolve.KindAlias || child(t, named, "name").Kind != resolve.KindFunction {
		t.Error("trait items not recorded")
	}

	var impls []*resolve.Node
	for _, c := range m.Children {
		if c.Kind == resolve.KindImpl {
			impls = append(impls, c)
		}
	}
	if len(impls) != 2 {
		t.Fatalf("Expected 2 impls, got %d", len(impls))
	}
	if impls[0].SelfType == nil || impls[0].SelfType.Path.String() != "Point" ||
		impls[0].Trait == nil || impls[0].Trait.Path.String() != "Describe" {
		t.Errorf("trait impl header: %+v %+v", impls[0].SelfType, impls[0].Trait)
	}
	if impls[1].Trait != nil {
		t.Error("inherent impl should have no trait")
	}
	if child(t, impls[1], "origin").Kind != resolve.KindFunction {
		t.Error("impl item not recorded")
	}

	if a := child(t, m, "Alias"); a.Target == nil || a.Target.Path.String() != "Point" {
		t.Errorf("Alias should target Point, got %+v", a.Target)
	}
	if a := child(t, m, "Tuple"); a.Target != nil {
		t.Errorf("Tuple alias should be opaque, got %+v", a.Target)
	}
}

func TestRustParser_UseTrees(t *testing.T) {
	src := `
extern crate serde as sd;
use a::{b, c::d as e, f::{self}, g::*};
use std::collections::HashMap;
use sd::Serialize;
use foo;
use crate::top::Thing;
use super::sibling;
use x as _;
`
	pf := parseRust(t, "/ws/lib.rs", src)

	want := map[string]string{
		"b":       "a::b",
		"e":       "a::c::d",
		"f":       "a::f",
		"Thing":   "crate::top::Thing",
		"sibling": "super::sibling",
	}
	got := make(map[string]string)
	for _, c := range pf.Module.Children {
		if c.Kind != resolve.KindAlias {
			t.Errorf("unexpected %s %s", c.Kind, c.Name)
			continue
		}
		if c.Target == nil {
			t.Errorf("use alias %s has no target", c.Name)
			continue
		}
		got[c.Name] = c.Target.Path.String()
	}
	if len(got) != len(want) {
		t.Errorf("Expected %d aliases, got %v", len(want), got)
	}
	for name, target := range want {
		if got[name] != target {
			t.Errorf("alias %s: expected %s, got %q", name, target, got[name])
		}
	}
}

func TestRustParser_References(t *testing.T) {
	src := `
fn run<T: Runner>(item: &T, cfg: Config) -> Result<Output, Error> {
    let local = helper;
    let v: Vec<Widget> = Vec::new();
    local();
    helper();
    util::helper();
    ::root::call();
    let w = Widget { size: 1 };
    w.draw();
    let f = |arg| arg + 1;
    f(2);
    Self::nothing();
    std::mem::drop(w);
    println!("{}", missing());
}
`
	pf := parseRust(t, "/ws/main.rs", src)
	run := child(t, pf.Module, "run")
	paths := refPaths(run)

	for _, want := range []string{"Runner", "Config", "Output", "Error", "Widget", "helper", "util::helper", "::root::call"} {
		if !contains(paths, want) {
			t.Errorf("missing reference %s in %v", want, paths)
		}
	}
	for _, skip := range []string{"T", "Result", "Vec", "Vec::new", "local", "f", "w", "Self::nothing", "std::mem::drop", "missing"} {
		if contains(paths, skip) {
			t.Errorf("reference %s should be skipped, got %v", skip, paths)
		}
	}

	for _, r := range run.Refs {
		switch r.Path.String() {
		case "helper":
			if r.Role != resolve.RoleCall || r.Namespace != resolve.NamespaceValue {
				t.Errorf("helper: expected value call, got %s/%s", r.Namespace, r.Role)
			}
			if r.Loc.File != "main.rs" || r.Loc.Line != 6 {
				t.Errorf("helper: unexpected location %s", r.Loc)
			}
		case "Widget":
			if r.Namespace != resolve.NamespaceType {
				t.Errorf("Widget: expected type namespace, got %s", r.Namespace)
			}
		}
	}
}

func TestRustParser_OutOfLineModules(t *testing.T) {
	src := `
mod a;
#[path = "other.rs"]
mod b;
mod nested {
    mod c;
    #[cfg(test)]
    mod d;
}
`
	pf := parseRust(t, "/ws/main.rs", src)
	if len(pf.OutOfLine) != 4 {
		t.Fatalf("Expected 4 out-of-line modules, got %d", len(pf.OutOfLine))
	}
	tests := []struct {
		name     string
		inline   []string
		pathAttr string
	}{
		{"a", nil, ""},
		{"b", nil, "other.rs"},
		{"c", []string{"nested"}, ""},
		{"d", []string{"nested"}, ""},
	}
	for i, tt := range tests {
		md := pf.OutOfLine[i]
		if md.Node.Name != tt.name || md.PathAttr != tt.pathAttr || len(md.Inline) != len(tt.inline) {
			t.Errorf("mod %d: expected %s %v %q, got %s %v %q", i, tt.name, tt.inline, tt.pathAttr, md.Node.Name, md.Inline, md.PathAttr)
		}
	}
}

func TestRustParser_SyntaxErrors(t *testing.T) {
	pf := parseRust(t, "/ws/broken.rs", "fn ok() {}\nfn broken( {\n")
	if !pf.HasErrors {
		t.Error("Expected HasErrors")
	}
	child(t, pf.Module, "ok")
}

func TestModuleNameForFile(t *testing.T) {
	tests := map[string]string{
		"/ws/src/main.rs":    "main",
		"/ws/src/net/mod.rs": "net",
		"/ws/src/net/tcp.rs": "tcp",
		"lib.rs":             "lib",
	}
	for path, want := range tests {
		if got := moduleNameForFile(path); got != want {
			t.Errorf("moduleNameForFile(%s) = %s, want %s", path, got, want)
		}
	}
}
