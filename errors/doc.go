// Package errors provides structured errors for the graph runtime.
//
// Errors carry a Phase (where in the network lifecycle the failure
// happened) and a Kind (what went wrong), plus optional network and
// device identity. Matching is category-based:
//
//	if errors.Is(err, &rterrors.Error{Phase: rterrors.PhaseCompile, Kind: rterrors.KindDuplicateName}) {
//	    // name collision, not a real failure
//	}
//
// or, when the phase is irrelevant:
//
//	if rterrors.IsKind(err, rterrors.KindNotFound) { ... }
package errors
