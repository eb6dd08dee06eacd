package main

import (
	"encoding/json"
	"fmt"
	"io"

	"scopenerd/internal/resolve"
	"scopenerd/internal/store"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	locStyle    = lipgloss.NewStyle().Faint(true)
	kindStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

func printDiagnostics(w io.Writer, diags []resolve.Diagnostic) {
	for _, d := range diags {
		sev := warnStyle.Render(string(d.Severity))
		if d.Severity == resolve.SeverityError {
			sev = errorStyle.Render(string(d.Severity))
		}
		fmt.Fprintf(w, "%s %s %s: %s\n", locStyle.Render(d.Loc.String()), sev, d.Kind, d.Message)
	}
}

func printSummary(w io.Writer, a *analysis) {
	diags := a.index.Diagnostics()
	errs := resolve.CountErrors(diags)
	status := okStyle.Render("ok")
	if errs > 0 {
		status = errorStyle.Render("failed")
	}
	fmt.Fprintf(w, "%s %s: %d files, %d declarations, %d references, %d errors, %d warnings (%v)\n",
		headerStyle.Render("resolve"), status, len(a.forest.Files), len(a.index.Declarations()),
		len(a.index.References()), errs, len(diags)-errs, a.took.Round(1e6))
}

// printDecl prints one declaration as `kind qualified  file:line:col`.
func printDecl(w io.Writer, idx *resolve.Index, d *resolve.Declaration) {
	fmt.Fprintf(w, "%-9s %s  %s\n", kindStyle.Render(d.Kind.String()), idx.QualifiedName(d), locStyle.Render(d.Loc.String()))
}

func printRef(w io.Writer, ref *resolve.Reference) {
	fmt.Fprintf(w, "%s %s (%s)\n", locStyle.Render(ref.Loc.String()), ref.Path, ref.Role)
}

// printHit prints a search hit. References show the path as written and the
// declaration it is bound to.
func printHit(w io.Writer, h store.Hit) {
	loc := locStyle.Render(fmt.Sprintf("%s:%d:%d", h.File, h.Line, h.Column))
	if h.IsRef() {
		fmt.Fprintf(w, "%s %s (%s) -> %s\n", loc, h.Path, h.Role, h.Qualified)
		return
	}
	fmt.Fprintf(w, "%-9s %s  %s\n", kindStyle.Render(h.Kind), h.Qualified, loc)
}

// shortID abbreviates a run ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
