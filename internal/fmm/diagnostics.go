package fmm

import (
	"cmp"
	"fmt"
	"slices"
)

// DiagnosticKind classifies a non-fatal problem found during a build.
type DiagnosticKind uint8

const (
	// DiagOutsideRoot: a source does not lie in the root region and was
	// left out of the tree.
	DiagOutsideRoot DiagnosticKind = iota + 1
	// DiagUnassigned: a source lay in a node but in none of its children
	// (a floating-point boundary tie). It stays in the parent's record only.
	DiagUnassigned
	// DiagDepthLimit: a node exceeded the leaf capacity but could not be
	// subdivided further.
	DiagDepthLimit
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagOutsideRoot:
		return "outside_root"
	case DiagUnassigned:
		return "unassigned"
	case DiagDepthLimit:
		return "depth_limit"
	default:
		return fmt.Sprintf("DiagnosticKind(%d)", uint8(k))
	}
}

// Diagnostic describes one geometric inconsistency or depth issue attached
// to a built tree.
type Diagnostic struct {
	Kind DiagnosticKind
	// Source is the index of the affected source in Tree.Sources, or -1
	// for node-level diagnostics.
	Source int
	// Depth of the node where the issue was detected.
	Depth int
	// Count is the number of sources held by the node (DiagDepthLimit).
	Count   int
	Message string
}

// Error lets a diagnostic be reported through error channels.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("fmm %s: %s", d.Kind, d.Message)
}

func sortDiagnostics(ds []Diagnostic) {
	slices.SortFunc(ds, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.Source, b.Source),
			cmp.Compare(a.Depth, b.Depth),
			cmp.Compare(a.Count, b.Count),
			cmp.Compare(a.Message, b.Message),
		)
	})
}
