package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"scopenerd/internal/resolve"
	"scopenerd/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runsLimit int
	runsJSON  bool
	showKind  string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the runs saved in the index database",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the diagnostics and declarations of a saved run (default: latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a saved run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to list (0 for all)")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Print runs as JSON")
	runsShowCmd.Flags().StringVar(&showKind, "kind", "", "List the declarations of one kind")
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open index database: %w", err)
	}
	defer s.Close()

	runs, err := s.Runs(ctx, runsLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if runsJSON {
		if runs == nil {
			runs = []store.Run{}
		}
		return writeJSON(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no saved runs")
		return nil
	}
	for _, r := range runs {
		status := okStyle.Render("ok")
		if r.Errors > 0 {
			status = errorStyle.Render("failed")
		}
		fmt.Fprintf(out, "%s %s %s  %d declarations, %d references, %d errors, %d warnings  %s\n",
			shortID(r.ID), r.CreatedAt.Local().Format("2006-01-02 15:04:05"), status,
			r.Declarations, r.References, r.Errors, r.Warnings, locStyle.Render(r.Root))
	}
	return nil
}

// findRun resolves a full or abbreviated run ID. An empty id selects the
// newest run for the workspace.
func findRun(ctx context.Context, s *store.Store, id string) (*store.Run, error) {
	if id == "" {
		run, err := s.LatestRun(ctx, workspace)
		if err != nil {
			return nil, fmt.Errorf("no saved run for %s: %w", workspace, err)
		}
		return run, nil
	}
	runs, err := s.Runs(ctx, 0)
	if err != nil {
		return nil, err
	}
	var found *store.Run
	for i := range runs {
		if !strings.HasPrefix(runs[i].ID, id) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("run id %q is ambiguous", id)
		}
		found = &runs[i]
	}
	if found == nil {
		return nil, fmt.Errorf("run %s: %w", id, store.ErrNoRuns)
	}
	return found, nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if showKind != "" {
		if _, err := resolve.ParseKind(showKind); err != nil {
			return err
		}
	}

	s, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open index database: %w", err)
	}
	defer s.Close()

	id := ""
	if len(args) > 0 {
		id = args[0]
	}
	run, err := findRun(ctx, s, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s  %s  %s (%v)\n", headerStyle.Render("run"), run.ID, run.Root,
		run.CreatedAt.Local().Format("2006-01-02 15:04:05"), run.Duration)

	decls, err := s.Declarations(ctx, run.ID, showKind)
	if err != nil {
		return err
	}
	if showKind != "" {
		for _, d := range decls {
			fmt.Fprintf(out, "%-9s %s  %s\n", kindStyle.Render(d.Kind), d.Qualified,
				locStyle.Render(fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)))
		}
		return nil
	}

	counts := make(map[string]int)
	for _, d := range decls {
		counts[d.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(out, "  %-9s %d\n", kindStyle.Render(k), counts[k])
	}

	diags, err := s.Diagnostics(ctx, run.ID)
	if err != nil {
		return err
	}
	for _, d := range diags {
		sev := warnStyle.Render(d.Severity)
		if d.Severity == string(resolve.SeverityError) {
			sev = errorStyle.Render(d.Severity)
		}
		fmt.Fprintf(out, "%s %s %s: %s\n", locStyle.Render(fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)), sev, d.Kind, d.Message)
	}
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open index database: %w", err)
	}
	defer s.Close()

	run, err := findRun(ctx, s, args[0])
	if err != nil {
		return err
	}
	if err := s.DeleteRun(ctx, run.ID); err != nil {
		return err
	}
	logger.Info("Run deleted", zap.String("id", run.ID), zap.String("root", run.Root))
	fmt.Fprintf(cmd.OutOrStdout(), "deleted run %s\n", shortID(run.ID))
	return nil
}
