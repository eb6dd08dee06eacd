package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"scopenerd/internal/logging"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the workspace-relative location of the config file.
const DefaultConfigPath = ".scope/config.yaml"

// Config holds all scopenerd configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Name resolution behaviour
	Resolver ResolverConfig `yaml:"resolver"`

	// Workspace scanning and parsing
	World WorldConfig `yaml:"world"`

	// SQLite persistence of resolution runs
	Store StoreConfig `yaml:"store"`

	// Mangle fact export
	Facts FactsConfig `yaml:"facts"`

	// File watcher
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ResolverConfig configures the resolver passes.
type ResolverConfig struct {
	// CrateName names the crate at the workspace root (its lib.rs, else main.rs).
	// Other crates are named from their Cargo.toml or directory.
	CrateName string `yaml:"crate_name"`
	// WarningsAsErrors makes AmbiguousReference warnings fail the resolve command.
	WarningsAsErrors bool `yaml:"warnings_as_errors"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Driver       string `yaml:"driver"` // sqlite3 (mattn, cgo) or sqlite (modernc, pure Go)
	DatabasePath string `yaml:"database_path"`
	BusyTimeout  string `yaml:"busy_timeout"`
}

// FactsConfig configures the Mangle export.
type FactsConfig struct {
	// RulesPath points at an optional .mg file appended to the built-in rules.
	RulesPath string `yaml:"rules_path"`
}

// WatchConfig configures the workspace watcher.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "scopenerd",
		Version: "0.3.0",

		World: DefaultWorldConfig(),

		Store: StoreConfig{
			Driver:       "sqlite3",
			DatabasePath: ".scope/index.db",
			BusyTimeout:  "5s",
		},

		Watch: WatchConfig{
			Debounce: "500ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("SCOPE_DB_PATH"); path != "" {
		c.Store.DatabasePath = path
	}
	if driver := os.Getenv("SCOPE_DB_DRIVER"); driver != "" {
		c.Store.Driver = driver
	}
	if level := os.Getenv("SCOPE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if workers := os.Getenv("SCOPE_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			c.World.Workers = n
		}
	}
}

// GetWatchDebounce returns the watcher debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// GetBusyTimeout returns the SQLite busy timeout as a duration.
func (c *Config) GetBusyTimeout() time.Duration {
	d, err := time.ParseDuration(c.Store.BusyTimeout)
	if err != nil || d < 0 {
		return 5 * time.Second
	}
	return d
}

// ValidDrivers lists the registered database/sql driver names.
var ValidDrivers = []string{"sqlite3", "sqlite"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validDriver := false
	for _, d := range ValidDrivers {
		if c.Store.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid store driver: %s (valid: %v)", c.Store.Driver, ValidDrivers)
	}
	if c.Store.DatabasePath == "" {
		return fmt.Errorf("store.database_path must not be empty")
	}
	if c.World.Workers < 1 {
		return fmt.Errorf("world.workers must be at least 1, got %d", c.World.Workers)
	}
	if c.World.MaxFileBytes <= 0 {
		return fmt.Errorf("world.max_file_bytes must be positive, got %d", c.World.MaxFileBytes)
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("invalid watch.debounce %q: %w", c.Watch.Debounce, err)
	}
	for name := range c.Logging.Categories {
		if !knownCategory(name) {
			return fmt.Errorf("unknown logging category %q (valid: %v)", name, logging.AllCategories)
		}
	}
	return nil
}

// ResolvePath makes a workspace-relative path absolute.
func ResolvePath(workspace, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}

func knownCategory(name string) bool {
	for _, c := range logging.AllCategories {
		if string(c) == name {
			return true
		}
	}
	return false
}
