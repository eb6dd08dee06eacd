package config

import "runtime"

// WorldConfig controls workspace scanning and tree-sitter parsing.
type WorldConfig struct {
	// Workers caps concurrent tree-sitter parse workers.
	Workers int `yaml:"workers" json:"workers,omitempty"`
	// IgnorePatterns skips matching paths/dirs (relative to workspace).
	IgnorePatterns []string `yaml:"ignore_patterns" json:"ignore_patterns,omitempty"`
	// MaxFileBytes skips parsing for large files.
	MaxFileBytes int64 `yaml:"max_file_bytes" json:"max_file_bytes,omitempty"`
	// ExternCrates are path roots that live outside the workspace; paths
	// starting with them are not recorded as references.
	ExternCrates []string `yaml:"extern_crates" json:"extern_crates,omitempty"`
	// SkipPrelude drops references rooted at standard prelude names
	// (Option, Vec::new, Box, ...).
	SkipPrelude bool `yaml:"skip_prelude" json:"skip_prelude"`
}

// DefaultWorldConfig returns defaults for workspace scanning.
func DefaultWorldConfig() WorldConfig {
	workers := runtime.NumCPU()
	if workers > 16 {
		workers = 16
	}
	if workers < 2 {
		workers = 2
	}
	return WorldConfig{
		Workers: workers,
		IgnorePatterns: []string{
			".git",
			".scope",
			"target",
			"vendor",
			"node_modules",
		},
		MaxFileBytes: 2 * 1024 * 1024,
		ExternCrates: []string{"std", "core", "alloc"},
		SkipPrelude:  true,
	}
}
