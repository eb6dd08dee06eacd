package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"scopenerd/internal/world"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchSave bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-resolve the workspace whenever a .rs file changes",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchSave, "save", false, "Persist every run to the index database")
}

func runWatch(cmd *cobra.Command, args []string) error {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	ctx, stop := signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir := targetDir(args)
	out := cmd.OutOrStdout()

	pass := func(ctx context.Context) {
		a, err := analyze(ctx, dir)
		if err != nil {
			logger.Error("Analysis failed", zap.Error(err))
			return
		}
		printDiagnostics(out, a.index.Diagnostics())
		printSummary(out, a)
		if !watchSave {
			return
		}
		s, err := openStore(ctx)
		if err != nil {
			logger.Error("Failed to open index database", zap.Error(err))
			return
		}
		defer s.Close()
		if _, err := s.SaveRun(ctx, a.root, a.index, a.took); err != nil {
			logger.Error("Failed to save run", zap.Error(err))
		}
	}

	pass(ctx)

	w, err := world.NewWatcher(dir, cfg.World.IgnorePatterns, cfg.GetWatchDebounce(), func(ctx context.Context, changed []string) {
		logger.Info("Change detected", zap.Strings("files", changed))
		pass(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	fmt.Fprintf(out, "watching %s (ctrl-c to stop)\n", dir)
	<-ctx.Done()

	stats := w.Stats()
	logger.Info("Watcher stopped", zap.Int("events", stats.Events), zap.Int("batches", stats.Batches))
	return nil
}
