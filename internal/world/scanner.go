package world

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"scopenerd/internal/config"
	"scopenerd/internal/logging"
	"scopenerd/internal/resolve"

	"golang.org/x/sync/errgroup"
)

// Forest is the result of scanning a workspace.
type Forest struct {
	Root  string
	Files []*ParsedFile
	Roots []*resolve.Node
	// Skipped lists files excluded by size.
	Skipped []string
}

// Declarations counts the nodes across all roots.
func (f *Forest) Declarations() int {
	n := 0
	for _, r := range f.Roots {
		n += r.Count()
	}
	return n
}

// Scanner walks a workspace and parses every Rust file into a forest.
type Scanner struct {
	cfg       config.WorldConfig
	crateName string
}

// NewScanner creates a scanner. A non-empty crateName names the crate at
// the workspace root.
func NewScanner(cfg config.WorldConfig, crateName string) *Scanner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Scanner{cfg: cfg, crateName: crateName}
}

// Scan collects the .rs files under root, parses them with a bounded pool
// of workers (one tree-sitter parser each) and assembles the module trees.
func (s *Scanner) Scan(ctx context.Context, root string) (*Forest, error) {
	timer := logging.StartTimer(logging.CategoryWorld, "Scan")
	defer timer.StopWithThreshold(2 * time.Second)

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace path: %w", err)
	}
	paths, skipped, err := s.collect(ctx, root)
	if err != nil {
		return nil, err
	}
	logging.World("Scan: %d Rust files under %s (%d skipped)", len(paths), root, len(skipped))

	files, err := s.parseAll(ctx, root, paths)
	if err != nil {
		return nil, err
	}

	forest := &Forest{Root: root, Files: files, Roots: Assemble(files), Skipped: skipped}
	s.nameCrates(forest)
	return forest, nil
}

func (s *Scanner) collect(ctx context.Context, root string) (paths, skipped []string, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if isIgnoredRel(rel, d.Name(), s.cfg.IgnorePatterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != ".rs" {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		if s.cfg.MaxFileBytes > 0 && info.Size() > s.cfg.MaxFileBytes {
			logging.WorldDebug("Scan: skipping %s (%d bytes)", rel, info.Size())
			skipped = append(skipped, path)
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, skipped, nil
}

func (s *Scanner) parseAll(ctx context.Context, root string, paths []string) ([]*ParsedFile, error) {
	files := make([]*ParsedFile, len(paths))
	jobs := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range paths {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := s.cfg.Workers
	if workers > len(paths) {
		workers = len(paths)
	}
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			parser := NewRustParser(root, s.cfg.ExternCrates, s.cfg.SkipPrelude)
			for i := range jobs {
				content, err := os.ReadFile(paths[i])
				if err != nil {
					return fmt.Errorf("read %s: %w", paths[i], err)
				}
				pf, err := parser.Parse(gctx, paths[i], content)
				if err != nil {
					return err
				}
				files[i] = pf
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// nameCrates names each package's primary crate root (lib.rs, else
// main.rs) after its Cargo.toml. The configured crate name wins for the
// package at the workspace root, or for the only package scanned.
func (s *Scanner) nameCrates(f *Forest) {
	primary := primaryCrateRoots(f.Roots)
	for dir, r := range primary {
		name := ""
		if s.crateName != "" && (dir == "." || len(primary) == 1) {
			name = s.crateName
		} else {
			var err error
			name, err = readCrateName(filepath.Join(f.Root, filepath.FromSlash(dir)))
			if err != nil {
				logging.WorldWarn("Scan: %v; keeping %s", err, r.Name)
				continue
			}
		}
		if name == "" || name == r.Name {
			continue
		}
		logging.WorldDebug("Scan: crate root %s named %s", r.Loc.File, name)
		r.Name = name
	}
	uniqueRootNames(f.Roots)
}

// ParseSources parses in-memory files (path -> content) and assembles them,
// the same way Scan does for files on disk.
func ParseSources(ctx context.Context, root string, sources map[string][]byte, cfg config.WorldConfig) ([]*resolve.Node, error) {
	parser := NewRustParser(root, cfg.ExternCrates, cfg.SkipPrelude)
	files := make([]*ParsedFile, 0, len(sources))
	for _, path := range sortedKeys(sources) {
		pf, err := parser.Parse(ctx, path, sources[path])
		if err != nil {
			return nil, err
		}
		files = append(files, pf)
	}
	return Assemble(files), nil
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
