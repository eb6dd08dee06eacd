package main

import (
	"fmt"

	"scopenerd/internal/resolve"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	resolveSave bool
	resolveJSON bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [dir]",
	Short: "Resolve every reference in a workspace and report diagnostics",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveSave, "save", false, "Persist the run to the index database")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print the result as JSON")
}

type resolveReport struct {
	Root         string               `json:"root"`
	RunID        string               `json:"run_id,omitempty"`
	Files        int                  `json:"files"`
	Declarations int                  `json:"declarations"`
	References   int                  `json:"references"`
	Errors       int                  `json:"errors"`
	Warnings     int                  `json:"warnings"`
	Diagnostics  []resolve.Diagnostic `json:"diagnostics"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := analyze(ctx, targetDir(args))
	if err != nil {
		return err
	}

	var runID string
	if resolveSave {
		s, err := openStore(ctx)
		if err != nil {
			return fmt.Errorf("failed to open index database: %w", err)
		}
		defer s.Close()
		runID, err = s.SaveRun(ctx, a.root, a.index, a.took)
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		logger.Info("Run saved", zap.String("run_id", runID), zap.String("db", s.Path()))
	}

	diags := a.index.Diagnostics()
	errs := resolve.CountErrors(diags)
	out := cmd.OutOrStdout()

	if resolveJSON {
		report := resolveReport{
			Root:         a.root,
			RunID:        runID,
			Files:        len(a.forest.Files),
			Declarations: len(a.index.Declarations()),
			References:   len(a.index.References()),
			Errors:       errs,
			Warnings:     len(diags) - errs,
			Diagnostics:  diags,
		}
		if report.Diagnostics == nil {
			report.Diagnostics = []resolve.Diagnostic{}
		}
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		printDiagnostics(out, diags)
		printSummary(out, a)
		if runID != "" {
			fmt.Fprintf(out, "saved run %s\n", runID)
		}
	}

	if errs > 0 {
		return fmt.Errorf("%d resolution errors", errs)
	}
	if cfg.Resolver.WarningsAsErrors && len(diags) > 0 {
		return fmt.Errorf("%d warnings (warnings_as_errors is set)", len(diags))
	}
	return nil
}
