package main

import (
	"fmt"
	"strings"

	"scopenerd/internal/resolve"
	"scopenerd/internal/store"

	"github.com/spf13/cobra"
)

var (
	queryDir   string
	refsSaved  bool
	searchKind string
	searchJSON bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <path>",
	Short: "Show the declaration a qualified path resolves to",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

var refsCmd = &cobra.Command{
	Use:   "refs <path>",
	Short: "List the references bound to a declaration",
	Long: `refs analyzes the workspace and lists the references bound to the
declaration at path. With --saved the last saved run is read instead and
path must be the qualified name as stored.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRefs,
}

var supertraitsCmd = &cobra.Command{
	Use:   "supertraits <trait>",
	Short: "List the supertrait closure of a trait",
	Args:  cobra.ExactArgs(1),
	RunE:  runSupertraits,
}

var implementorsCmd = &cobra.Command{
	Use:   "implementors <trait>",
	Short: "List the types that implement a trait",
	Args:  cobra.ExactArgs(1),
	RunE:  runImplementors,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the last saved run for definitions and references",
	Long: `search runs a query against the last saved run. Terms are ANDed:

  Point              definitions named Point (* globs, case-insensitive)
  def:Shape*         the same, explicitly
  +def:demo::Point   match the qualified name only
  ref:Point          references bound to Point
  type:trait         restrict the declaration kind
  path:shapes        restrict the file (substring, or glob with *)
  -path:tests/       a leading - negates any term

Quote arguments that contain spaces. --kind is shorthand for type:.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	for _, c := range []*cobra.Command{lookupCmd, refsCmd, supertraitsCmd, implementorsCmd} {
		c.Flags().StringVar(&queryDir, "dir", "", "Directory to analyze (default: workspace)")
	}
	refsCmd.Flags().BoolVar(&refsSaved, "saved", false, "Read the last saved run instead of analyzing")
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "Restrict to one declaration kind (struct, trait, function, ...)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print hits as JSON")
}

// lookupArg analyzes the query directory and resolves the path argument.
func lookupArg(cmd *cobra.Command, path string) (*analysis, *resolve.Declaration, error) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := analyze(ctx, targetDir([]string{queryDir}))
	if err != nil {
		return nil, nil, err
	}
	d, err := a.index.Lookup(path)
	if err != nil {
		return nil, nil, err
	}
	return a, d, nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	a, d, err := lookupArg(cmd, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printDecl(out, a.index, d)
	for _, impl := range a.index.ImplsOf(d) {
		trait := "inherent"
		if t := impl.ImplTrait(); t != nil {
			trait = a.index.QualifiedName(t)
		}
		fmt.Fprintf(out, "  impl %s  %s\n", trait, locStyle.Render(impl.Loc.String()))
	}
	return nil
}

func runRefs(cmd *cobra.Command, args []string) error {
	if refsSaved {
		return runSavedRefs(cmd, args[0])
	}
	a, d, err := lookupArg(cmd, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	refs := a.index.ReferencesTo(d)
	fmt.Fprintf(out, "%s %s: %d references\n", headerStyle.Render("refs"), a.index.QualifiedName(d), len(refs))
	for _, ref := range refs {
		printRef(out, ref)
	}
	return nil
}

func runSupertraits(cmd *cobra.Command, args []string) error {
	a, d, err := lookupArg(cmd, args[0])
	if err != nil {
		return err
	}
	if d.Kind != resolve.KindTrait {
		return fmt.Errorf("%s is a %s, not a trait", a.index.QualifiedName(d), d.Kind)
	}
	supers, err := a.index.Supertraits(d)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range supers {
		printDecl(out, a.index, s)
	}
	return nil
}

func runImplementors(cmd *cobra.Command, args []string) error {
	a, d, err := lookupArg(cmd, args[0])
	if err != nil {
		return err
	}
	if d.Kind != resolve.KindTrait {
		return fmt.Errorf("%s is a %s, not a trait", a.index.QualifiedName(d), d.Kind)
	}
	out := cmd.OutOrStdout()
	for _, ty := range a.index.Implementors(d) {
		printDecl(out, a.index, ty)
	}
	return nil
}

func runSavedRefs(cmd *cobra.Command, qualified string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, run, err := latestRun(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	refs, err := s.ReferencesTo(ctx, run.ID, qualified)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s: %d references (run %s)\n", headerStyle.Render("refs"), qualified, len(refs), shortID(run.ID))
	for _, ref := range refs {
		fmt.Fprintf(out, "%s %s (%s)\n", locStyle.Render(fmt.Sprintf("%s:%d:%d", ref.File, ref.Line, ref.Column)), ref.Path, ref.Role)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	text := strings.Join(args, " ")
	if searchKind != "" {
		text += " type:" + searchKind
	}
	q, err := store.ParseQuery(text)
	if err != nil {
		return err
	}

	s, run, err := latestRun(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	hits, err := s.Search(ctx, run.ID, q)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if searchJSON {
		if hits == nil {
			hits = []store.Hit{}
		}
		return writeJSON(out, hits)
	}
	if len(hits) == 0 {
		fmt.Fprintf(out, "no results for %q\n", q.String())
		return nil
	}
	for _, h := range hits {
		printHit(out, h)
	}
	return nil
}
