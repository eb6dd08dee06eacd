package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"scopenerd/internal/config"
	"scopenerd/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	// Set up in PersistentPreRunE
	logger *zap.Logger
	cfg    *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "scope",
	Short: "scope - name resolution for Rust workspaces",
	Long: `scope parses a Rust workspace with tree-sitter, builds its module and
declaration tree, and binds every path reference to the declaration it names.

Aliases (use, type) are followed lazily, impl blocks are attached to their
types, and trait hierarchies are walked for supertrait queries. Problems are
reported as diagnostics: duplicate declarations, unresolved references,
alias cycles, hierarchy cycles and ambiguous references.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/"+config.DefaultConfigPath+")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(supertraitsCmd)
	rootCmd.AddCommand(implementorsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(factsCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup resolves the workspace, loads the config and starts file logging.
func setup() error {
	if workspace == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		workspace = cwd
	}
	ws, err := filepath.Abs(workspace)
	if err != nil {
		return fmt.Errorf("invalid workspace %s: %w", workspace, err)
	}
	workspace = ws

	path := configPath
	if path == "" {
		path = filepath.Join(workspace, config.DefaultConfigPath)
	}
	cfg, err = config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := logging.Initialize(workspace, cfg.Logging.Options()); err != nil {
		return err
	}
	logging.Boot("Config loaded from %s", path)
	logging.BootDebug("Store %s at %s, crate name %q", cfg.Store.Driver, cfg.Store.DatabasePath, cfg.Resolver.CrateName)
	if logging.IsDebugMode() {
		logger.Debug("Category logs enabled", zap.String("dir", filepath.Join(workspace, ".scope", "logs")))
	}
	logger.Debug("Configuration loaded",
		zap.String("workspace", workspace),
		zap.String("config", path),
		zap.Int("workers", cfg.World.Workers))
	return nil
}

// commandContext derives the operation context from the command.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, timeout)
}

// targetDir returns the optional directory argument, defaulting to the
// workspace.
func targetDir(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return config.ResolvePath(workspace, args[0])
	}
	return workspace
}
