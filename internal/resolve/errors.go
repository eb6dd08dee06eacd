package resolve

import (
	"errors"
	"fmt"
	"sort"
)

// DiagnosticKind names a class of resolution problem.
type DiagnosticKind string

const (
	DuplicateDeclaration DiagnosticKind = "DuplicateDeclaration"
	UnresolvedReference  DiagnosticKind = "UnresolvedReference"
	CyclicAlias          DiagnosticKind = "CyclicAlias"
	CyclicHierarchy      DiagnosticKind = "CyclicHierarchy"
	AmbiguousReference   DiagnosticKind = "AmbiguousReference"
)

// Sentinel errors matched by errors.Is against *Error.
var (
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
	ErrUnresolved           = errors.New("unresolved reference")
	ErrCyclicAlias          = errors.New("cyclic alias")
	ErrCyclicHierarchy      = errors.New("cyclic trait hierarchy")
	ErrFrozen               = errors.New("resolver already resolved; declarations are immutable")
)

var sentinelByKind = map[DiagnosticKind]error{
	DuplicateDeclaration: ErrDuplicateDeclaration,
	UnresolvedReference:  ErrUnresolved,
	CyclicAlias:          ErrCyclicAlias,
	CyclicHierarchy:      ErrCyclicHierarchy,
}

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Error is returned by resolver operations.
type Error struct {
	Kind    DiagnosticKind
	Loc     Location
	Name    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Loc, e.Kind, e.Message)
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return sentinelByKind[e.Kind] == target
}

func newError(kind DiagnosticKind, loc Location, name, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Loc: loc, Name: name, Message: fmt.Sprintf(format, args...)}
}

// Diagnostic is a collected problem report.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	Severity Severity       `json:"severity"`
	Loc      Location       `json:"location"`
	Message  string         `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s: %s", d.Loc, d.Severity, d.Kind, d.Message)
}

func diagnosticFrom(err *Error) Diagnostic {
	sev := SeverityError
	if err.Kind == AmbiguousReference {
		sev = SeverityWarning
	}
	return Diagnostic{Kind: err.Kind, Severity: sev, Loc: err.Loc, Message: err.Message}
}

// asError extracts a *Error from err.
func asError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

func sortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Loc != diags[j].Loc {
			return diags[i].Loc.Less(diags[j].Loc)
		}
		return diags[i].Kind < diags[j].Kind
	})
}

// CountErrors returns the number of error-severity diagnostics.
func CountErrors(diags []Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}
