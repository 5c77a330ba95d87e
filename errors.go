// Package tiersolve wires the tier DAG driver, per-tier worker, and
// array database into a single strong-solving engine for games
// expressed through sdk/gameapi.
package tiersolve

import "github.com/lox/tiersolve/sdk/solverr"

// Kind, Error and friends are re-exported from sdk/solverr (a leaf
// package every solving layer can import without creating a cycle back
// through this top-level package) so callers can write tiersolve.Kind
// and tiersolve.Wrap as spec.md's error taxonomy describes it.
type Kind = solverr.Kind

const (
	KindAllocation     = solverr.KindAllocation
	KindArgument       = solverr.KindArgument
	KindIO             = solverr.KindIO
	KindCorruption     = solverr.KindCorruption
	KindGraphStructure = solverr.KindGraphStructure
	KindOverflow       = solverr.KindOverflow
	KindNotImplemented = solverr.KindNotImplemented
	KindDiscrepancy    = solverr.KindDiscrepancy
)

type Error = solverr.Error

var (
	Wrap   = solverr.Wrap
	Wrapf  = solverr.Wrapf
	KindOf = solverr.KindOf
)
