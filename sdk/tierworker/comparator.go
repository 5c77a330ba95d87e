package tierworker

import (
	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/solverr"
	"github.com/lox/tiersolve/sdk/tierdb"
	"github.com/lox/tiersolve/sdk/value"
)

// Comparator cross-checks every record a worker computes against a
// reference database holding a trusted solve, surfacing the first
// mismatch as a KindDiscrepancy error. A nil *Comparator is a no-op, so
// compare mode can be wired in or left out of a call without branching
// at every call site.
type Comparator struct {
	probe *tierdb.Probe
}

// NewComparator wraps reference in a Probe for on-demand lookups.
func NewComparator(reference *tierdb.Database) *Comparator {
	return &Comparator{probe: reference.NewProbe()}
}

// Check compares (v, r) against the reference database's record for
// (tier, pos).
func (c *Comparator) Check(tier gameapi.Tier, pos int64, v value.Value, r value.Remoteness) error {
	if c == nil {
		return nil
	}
	refV, err := c.probe.ProbeValue(tier, pos)
	if err != nil {
		return solverr.Wrap(solverr.KindIO, err)
	}
	refR, err := c.probe.ProbeRemoteness(tier, pos)
	if err != nil {
		return solverr.Wrap(solverr.KindIO, err)
	}
	if refV != v || refR != r {
		return solverr.Wrapf(solverr.KindDiscrepancy, "tier %d position %d: computed (%s, %d), reference (%s, %d)",
			tier, pos, v, r, refV, refR)
	}
	return nil
}

// Close releases the comparator's probe.
func (c *Comparator) Close() {
	if c == nil {
		return
	}
	_ = c.probe.Close()
}
