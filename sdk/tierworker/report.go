package tierworker

import (
	"fmt"

	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/solverr"
	"github.com/lox/tiersolve/sdk/tierdb"
	"github.com/lox/tiersolve/sdk/value"
)

// Report summarizes one solved tier: how many positions landed at each
// Value, and the longest remoteness seen with an example position (the
// per-tier summary spec.md §4.H asks every solving algorithm to
// produce).
type Report struct {
	Tier              gameapi.Tier
	Counts            map[value.Value]int64
	LongestRemoteness value.Remoteness
	ExampleLongest    gameapi.Position
}

func newReport(tier gameapi.Tier) *Report {
	return &Report{Tier: tier, Counts: make(map[value.Value]int64, 4)}
}

func (r *Report) observe(pos int64, v value.Value, rmt value.Remoteness) {
	r.Counts[v]++
	if rmt > r.LongestRemoteness {
		r.LongestRemoteness = rmt
		r.ExampleLongest = gameapi.Position(pos)
	}
}

func (r *Report) String() string {
	return fmt.Sprintf("tier %d: win=%d lose=%d tie=%d draw=%d longest=%d@%d",
		int64(r.Tier), r.Counts[value.Win], r.Counts[value.Lose], r.Counts[value.Tie], r.Counts[value.Draw],
		r.LongestRemoteness, r.ExampleLongest)
}

// buildReport walks every legal position of a just-solved tier, tallying
// per-value counts and, when cmp is non-nil, cross-checking each record
// against a reference database (spec's optional compare mode).
func buildReport(game gameapi.Game, db *tierdb.Database, tier gameapi.Tier, size int64, cmp *Comparator) (*Report, error) {
	report := newReport(tier)
	for pos := int64(0); pos < size; pos++ {
		legal, err := game.IsLegalPosition(gameapi.TierPosition{Tier: tier, Position: gameapi.Position(pos)})
		if err != nil {
			return nil, solverr.Wrap(solverr.KindArgument, err)
		}
		if !legal {
			continue
		}
		v, err := db.GetValue(pos)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindIO, err)
		}
		r, err := db.GetRemoteness(pos)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindIO, err)
		}
		if v == value.Undecided {
			return nil, solverr.Wrapf(solverr.KindGraphStructure, "tier %d position %d: left undecided after solving", tier, pos)
		}
		if err := cmp.Check(tier, pos, v, r); err != nil {
			return nil, err
		}
		report.observe(pos, v, r)
	}
	return report, nil
}
