// Package solverr implements the error-kind taxonomy spec.md §7
// describes (Allocation, Argument, I/O, Corruption, Graph structure,
// Overflow, Not implemented), as a typed sentinel wrapped around plain
// stdlib errors rather than a bespoke hierarchy -- a leaf package so
// every solving layer (tierworker, tierdag, tierdb, and the top-level
// tiersolve.Engine) can classify and propagate failures the same way.
package solverr

import (
	"errors"
	"fmt"
)

// Kind classifies a solving failure.
type Kind uint8

const (
	// KindAllocation: a memory allocation failed; the current tier
	// aborts, the driver counts it as failed.
	KindAllocation Kind = iota
	// KindArgument: an API boundary received an out-of-range or
	// otherwise invalid argument.
	KindArgument
	// KindIO: a file open/read/write/rename/remove failed.
	KindIO
	// KindCorruption: a loaded block or file failed a size/format
	// check; treated like KindIO for recovery purposes.
	KindCorruption
	// KindGraphStructure: a cycle in the tier DAG, or a required
	// game-API function is missing; fatal for the whole run.
	KindGraphStructure
	// KindOverflow: a BpDict or BpArray exceeded its capacity; fatal
	// for the current tier.
	KindOverflow
	// KindNotImplemented: an optional game-API capability is absent
	// when the chosen algorithm requires it; fatal for the current
	// tier.
	KindNotImplemented
	// KindDiscrepancy: compare mode found a mismatch against a
	// reference database.
	KindDiscrepancy
)

func (k Kind) String() string {
	switch k {
	case KindAllocation:
		return "allocation"
	case KindArgument:
		return "argument"
	case KindIO:
		return "io"
	case KindCorruption:
		return "corruption"
	case KindGraphStructure:
		return "graph-structure"
	case KindOverflow:
		return "overflow"
	case KindNotImplemented:
		return "not-implemented"
	case KindDiscrepancy:
		return "discrepancy"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Error pairs a Kind with the underlying error, queryable with
// errors.As so callers can distinguish recoverable per-tier failures
// from fatal ones.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches kind to err, or returns nil if err is nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Wrapf is Wrap with fmt.Errorf-style formatting.
func Wrapf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error, reporting ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Fatal reports whether a failure of this kind should abort the whole
// run rather than just the tier currently being solved.
func (k Kind) Fatal() bool {
	return k == KindGraphStructure
}
