package world

import (
	"path/filepath"
	"sort"
	"strings"

	"scopenerd/internal/logging"
	"scopenerd/internal/resolve"
)

// crateRootFiles own their directory: their out-of-line modules live next
// to them rather than in a subdirectory named after the file.
var crateRootFiles = map[string]bool{"main.rs": true, "lib.rs": true, "mod.rs": true}

// Assemble stitches parsed files into module trees. Every `mod name;` is
// filled with the items of the file it names (`name.rs`, `name/mod.rs`, or
// the `#[path]` attribute); files no module claims become roots. Roots are
// ordered crate roots first (main.rs, lib.rs), then by path, and carry
// distinct names.
func Assemble(files []*ParsedFile) []*resolve.Node {
	byPath := make(map[string]*ParsedFile, len(files))
	for _, f := range files {
		byPath[filepath.Clean(f.Path)] = f
	}

	// Where a file's children live depends on how the file itself was
	// loaded, so claims are computed twice: the second pass knows which
	// files came in through a #[path] attribute.
	claims, viaAttr := claimFiles(files, byPath, nil, false)
	claims, _ = claimFiles(files, byPath, viaAttr, true)

	for _, f := range files {
		for _, md := range f.OutOfLine {
			child := claims[md.Node]
			if child == nil {
				continue
			}
			md.Node.Children = append(md.Node.Children, child.Module.Children...)
			md.Node.Refs = append(md.Node.Refs, child.Module.Refs...)
			logging.WorldDebug("Assemble: mod %s in %s -> %s", md.Node.Name, f.RelPath, child.RelPath)
		}
	}
	claimedBy := make(map[*ParsedFile]bool, len(claims))
	for _, child := range claims {
		claimedBy[child] = true
	}

	var roots []*ParsedFile
	for _, f := range files {
		if !claimedBy[f] {
			roots = append(roots, f)
		}
	}
	sort.SliceStable(roots, func(i, j int) bool {
		ri, rj := isCrateRoot(roots[i]), isCrateRoot(roots[j])
		if ri != rj {
			return ri
		}
		return roots[i].RelPath < roots[j].RelPath
	})

	out := make([]*resolve.Node, 0, len(roots))
	for _, f := range roots {
		out = append(out, f.Module)
	}
	uniqueRootNames(out)
	logging.World("Assemble: %d files -> %d module trees", len(files), len(out))
	return out
}

// claimFiles maps each out-of-line module declaration to the file it loads.
// A file is claimed at most once; later claims (in claimOrder) are ignored.
func claimFiles(files []*ParsedFile, byPath map[string]*ParsedFile, viaAttr map[*ParsedFile]bool, report bool) (map[*resolve.Node]*ParsedFile, map[*ParsedFile]bool) {
	claims := make(map[*resolve.Node]*ParsedFile)
	owner := make(map[*ParsedFile]*ParsedFile)
	loadedViaAttr := make(map[*ParsedFile]bool)
	for _, f := range claimOrder(files) {
		for _, md := range f.OutOfLine {
			child := findModuleFile(byPath, f, md, viaAttr[f])
			if child == nil || child == f {
				if report && child == nil {
					logging.WorldWarn("Assemble: %s: no file for mod %s", f.RelPath, md.Node.Name)
				}
				continue
			}
			if prev, ok := owner[child]; ok {
				if report {
					logging.WorldWarn("Assemble: %s already claimed by %s; ignoring mod %s in %s",
						child.RelPath, prev.RelPath, md.Node.Name, f.RelPath)
				}
				continue
			}
			if ownsTransitively(owner, child, f) {
				if report {
					logging.WorldWarn("Assemble: mod %s in %s would load its own ancestor %s", md.Node.Name, f.RelPath, child.RelPath)
				}
				continue
			}
			owner[child] = f
			claims[md.Node] = child
			if md.PathAttr != "" {
				loadedViaAttr[child] = true
			}
		}
	}
	return claims, loadedViaAttr
}

// claimOrder visits crate roots first, then shallower files, so a crate
// root is never claimed by one of its own descendants.
func claimOrder(files []*ParsedFile) []*ParsedFile {
	out := append([]*ParsedFile(nil), files...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := isCrateRoot(out[i]), isCrateRoot(out[j])
		if ri != rj {
			return ri
		}
		di, dj := strings.Count(out[i].RelPath, "/"), strings.Count(out[j].RelPath, "/")
		if di != dj {
			return di < dj
		}
		return out[i].RelPath < out[j].RelPath
	})
	return out
}

func isCrateRoot(f *ParsedFile) bool {
	base := filepath.Base(f.Path)
	return base == "main.rs" || base == "lib.rs"
}

// moduleDir is the directory holding the out-of-line children of f.
func moduleDir(f *ParsedFile, loadedViaAttr bool) string {
	dir := filepath.Dir(filepath.Clean(f.Path))
	if loadedViaAttr || crateRootFiles[filepath.Base(f.Path)] {
		return dir
	}
	return filepath.Join(dir, moduleNameForFile(f.Path))
}

func findModuleFile(byPath map[string]*ParsedFile, f *ParsedFile, md ModDecl, loadedViaAttr bool) *ParsedFile {
	if md.PathAttr != "" {
		base := filepath.Dir(filepath.Clean(f.Path))
		if len(md.Inline) > 0 {
			base = filepath.Join(append([]string{moduleDir(f, loadedViaAttr)}, md.Inline...)...)
		}
		p := md.PathAttr
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, filepath.FromSlash(p))
		}
		return byPath[filepath.Clean(p)]
	}

	dir := filepath.Join(append([]string{moduleDir(f, loadedViaAttr)}, md.Inline...)...)
	candidates := []string{
		filepath.Join(dir, md.Node.Name+".rs"),
		filepath.Join(dir, md.Node.Name, "mod.rs"),
	}
	for _, c := range candidates {
		if child, ok := byPath[c]; ok {
			return child
		}
	}
	return nil
}

// ownsTransitively reports whether anc is f or one of the files that
// (transitively) claimed f.
func ownsTransitively(owner map[*ParsedFile]*ParsedFile, anc, f *ParsedFile) bool {
	for cur := f; cur != nil; cur = owner[cur] {
		if cur == anc {
			return true
		}
	}
	return false
}
