package main

import (
	"fmt"

	"scopenerd/internal/config"
	"scopenerd/internal/facts"

	"github.com/spf13/cobra"
)

var (
	factsPredicate string
	factsDump      bool
)

var factsCmd = &cobra.Command{
	Use:   "facts [dir]",
	Short: "Export the resolved index as Mangle facts and evaluate the rules",
	Long: `facts exports declarations, references, bindings and diagnostics as
Mangle facts, evaluates the built-in rules (plus facts.rules_path from the
config, if set) and prints the result.

Without flags a count per predicate is printed. --predicate prints the facts
of one predicate; --dump prints every fact.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFacts,
}

func init() {
	factsCmd.Flags().StringVarP(&factsPredicate, "predicate", "p", "", "Print the facts of one predicate")
	factsCmd.Flags().BoolVar(&factsDump, "dump", false, "Print every fact")
}

func runFacts(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := analyze(ctx, targetDir(args))
	if err != nil {
		return err
	}

	rules := ""
	if cfg.Facts.RulesPath != "" {
		rules = config.ResolvePath(workspace, cfg.Facts.RulesPath)
	}
	engine, err := facts.Analyze(ctx, a.index, rules)
	if err != nil {
		return fmt.Errorf("fact evaluation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	preds := engine.Predicates()
	if factsPredicate != "" {
		preds = []string{factsPredicate}
	}

	for _, pred := range preds {
		fs, err := engine.Facts(pred)
		if err != nil {
			return err
		}
		if factsPredicate == "" && !factsDump {
			fmt.Fprintf(out, "%-28s %d\n", pred, len(fs))
			continue
		}
		for _, f := range fs {
			fmt.Fprintf(out, "%s.\n", f)
		}
	}
	return nil
}
