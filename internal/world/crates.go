package world

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"scopenerd/internal/logging"
	"scopenerd/internal/resolve"

	"github.com/BurntSushi/toml"
)

// cargoManifest is the part of Cargo.toml that names a crate.
type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Lib struct {
		Name string `toml:"name"`
	} `toml:"lib"`
}

// readCrateName returns the library name declared by dir/Cargo.toml, falling
// back to the package name, with dashes turned into underscores. A missing
// manifest yields "".
func readCrateName(dir string) (string, error) {
	var m cargoManifest
	_, err := toml.DecodeFile(filepath.Join(dir, "Cargo.toml"), &m)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read Cargo.toml in %s: %w", dir, err)
	}
	name := m.Lib.Name
	if name == "" {
		name = m.Package.Name
	}
	return identifier(name), nil
}

// crateDir is the package directory of a workspace-relative file: the
// directory above src/, or the file's own directory.
func crateDir(rel string) string {
	dir := path.Dir(rel)
	if path.Base(dir) == "src" {
		dir = path.Dir(dir)
	}
	return dir
}

// identifier maps a crate or directory name to a Rust identifier.
func identifier(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}

// primaryCrateRoots picks one root per package: lib.rs when present,
// otherwise main.rs. Other binaries keep their file stem.
func primaryCrateRoots(roots []*resolve.Node) map[string]*resolve.Node {
	out := make(map[string]*resolve.Node)
	for _, r := range roots {
		base := path.Base(r.Loc.File)
		if base != "lib.rs" && base != "main.rs" {
			continue
		}
		dir := crateDir(r.Loc.File)
		if cur, ok := out[dir]; !ok || (base == "lib.rs" && path.Base(cur.Loc.File) != "lib.rs") {
			out[dir] = r
		}
	}
	return out
}

// uniqueRootNames renames roots whose names collide. Every root shares the
// universe scope, so two crates both called `lib` would otherwise be
// duplicates. A colliding root takes its package directory name, then a
// numeric suffix.
func uniqueRootNames(roots []*resolve.Node) {
	count := make(map[string]int, len(roots))
	for _, r := range roots {
		count[r.Name]++
	}
	taken := make(map[string]bool, len(roots))
	for _, r := range roots {
		if count[r.Name] == 1 {
			taken[r.Name] = true
		}
	}
	for _, r := range roots {
		if count[r.Name] == 1 {
			continue
		}
		name := r.Name
		if dir := crateDir(r.Loc.File); dir != "." && dir != "/" {
			name = identifier(path.Base(dir))
		}
		for base, n := name, 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		logging.WorldDebug("Assemble: root %s (%s) renamed to %s", r.Name, r.Loc.File, name)
		taken[name] = true
		r.Name = name
	}
}
