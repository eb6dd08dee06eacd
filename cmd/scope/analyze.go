package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scopenerd/internal/config"
	"scopenerd/internal/resolve"
	"scopenerd/internal/store"
	"scopenerd/internal/world"

	"go.uber.org/zap"
)

// analysis is one scan-and-resolve pass over a directory.
type analysis struct {
	root   string
	forest *world.Forest
	index  *resolve.Index
	took   time.Duration
}

func analyze(ctx context.Context, dir string) (*analysis, error) {
	start := time.Now()
	forest, err := world.NewScanner(cfg.World, cfg.Resolver.CrateName).Scan(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	r := resolve.New()
	if err := r.Ingest(forest.Roots...); err != nil {
		// duplicates are also recorded as diagnostics
		logger.Debug("Ingest reported problems", zap.Error(err))
	}
	idx := r.Resolve()

	a := &analysis{root: forest.Root, forest: forest, index: idx, took: time.Since(start)}
	logger.Info("Workspace resolved",
		zap.String("root", a.root),
		zap.Int("files", len(forest.Files)),
		zap.Int("declarations", len(idx.Declarations())),
		zap.Int("references", len(idx.References())),
		zap.Int("diagnostics", len(idx.Diagnostics())),
		zap.Duration("took", a.took))
	return a, nil
}

func openStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, store.Options{
		Driver:      cfg.Store.Driver,
		Path:        config.ResolvePath(workspace, cfg.Store.DatabasePath),
		BusyTimeout: cfg.GetBusyTimeout(),
	})
}

// latestRun opens the index database and returns the newest saved run for
// the workspace. The caller closes the store.
func latestRun(ctx context.Context) (*store.Store, *store.Run, error) {
	s, err := openStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index database: %w", err)
	}
	run, err := s.LatestRun(ctx, workspace)
	if errors.Is(err, store.ErrNoRuns) {
		s.Close()
		return nil, nil, fmt.Errorf("no saved run for %s; run `scope resolve --save` first", workspace)
	}
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, run, nil
}
