package tierworker

import (
	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/reversegraph"
	"github.com/lox/tiersolve/sdk/solverr"
	"github.com/lox/tiersolve/sdk/tierdb"
	"github.com/lox/tiersolve/sdk/value"
)

// BackwardInduction solves a tier that may contain its own internal
// moves (gameapi.TierTypeLoopy) by retrograde analysis. Primitive
// positions seed remoteness 0; every other position gets a "remaining
// children" counter. A move that leaves the tier is resolved at once
// against an already-solved child tier; a move that stays in the tier
// is recorded in an in-memory reverse graph so that once the child
// itself resolves, its parents can be revisited. Positions are
// processed one remoteness level at a time (current level fully drained
// before the next begins) so that the first Lose child a position sees
// is always the one with minimal remoteness. A position that never
// accumulates a full remaining count -- because it sits in a cycle with
// no escape to a Lose child -- is left for a Draw (spec.md §4.H.2).
func BackwardInduction(game gameapi.Game, db *tierdb.Database, tier gameapi.Tier, size int64, childTiers []gameapi.Tier, cmp *Comparator) (*Report, error) {
	childSize := make(map[gameapi.Tier]int64, len(childTiers))
	for _, ct := range childTiers {
		sz, err := game.GetTierSize(ct)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindArgument, err)
		}
		childSize[ct] = sz
	}
	if err := loadBatch(db, childTiers, childSize); err != nil {
		return nil, err
	}
	defer unloadBatch(db, childTiers)

	remaining := make([]int32, size)
	finalized := make([]bool, size)
	legalPos := make([]bool, size)
	rg := reversegraph.New()

	var level []int64
	children := make([]gameapi.TierPosition, 64)

	for pos := int64(0); pos < size; pos++ {
		tp := gameapi.TierPosition{Tier: tier, Position: gameapi.Position(pos)}
		legal, err := game.IsLegalPosition(tp)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindArgument, err)
		}
		if !legal {
			continue
		}
		legalPos[pos] = true

		prim, err := game.Primitive(tp)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindArgument, err)
		}
		if prim != value.Undecided {
			if err := db.SetValueRemoteness(pos, prim, 0); err != nil {
				return nil, solverr.Wrap(solverr.KindIO, err)
			}
			finalized[pos] = true
			level = append(level, pos)
			continue
		}

		n, err := game.GetNumberOfCanonicalChildPositions(tp)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindArgument, err)
		}
		if n == 0 {
			return nil, solverr.Wrapf(solverr.KindGraphStructure, "tier %d position %d: non-primitive position with no moves", tier, pos)
		}
		if cap(children) < n {
			children = make([]gameapi.TierPosition, n)
		}
		got, err := game.GetCanonicalChildPositions(tp, children[:cap(children)])
		if err != nil {
			return nil, solverr.Wrap(solverr.KindArgument, err)
		}
		remaining[pos] = int32(got)

		for _, child := range children[:got] {
			if child.Tier == tier {
				rg.AddParent(child, tp)
				continue
			}
			cv, cr, err := resolveExternalChild(game, db, child)
			if err != nil {
				return nil, err
			}
			if err := db.MaximizeValueRemoteness(pos, cv, cr, value.DefaultComparator); err != nil {
				return nil, solverr.Wrap(solverr.KindArgument, err)
			}
			remaining[pos]--
		}

		// A Lose child forces this position to a Win the moment it is
		// known, regardless of how many children remain unresolved --
		// waiting would enqueue it at a later wave than its true
		// remoteness and break the "first Lose seen is minimal
		// remoteness" invariant the cascade below relies on.
		if done, err := maybeFinalize(db, pos, remaining); err != nil {
			return nil, err
		} else if done {
			finalized[pos] = true
			level = append(level, pos)
		}
	}

	for len(level) > 0 {
		var next []int64
		for _, child := range level {
			childTP := gameapi.TierPosition{Tier: tier, Position: gameapi.Position(child)}
			v, err := db.GetValue(child)
			if err != nil {
				return nil, solverr.Wrap(solverr.KindIO, err)
			}
			r, err := db.GetRemoteness(child)
			if err != nil {
				return nil, solverr.Wrap(solverr.KindIO, err)
			}
			for _, parent := range rg.TakeParents(childTP) {
				ppos := int64(parent.Position)
				if finalized[ppos] {
					continue
				}
				if err := db.MaximizeValueRemoteness(ppos, v, r, value.DefaultComparator); err != nil {
					return nil, solverr.Wrap(solverr.KindArgument, err)
				}
				remaining[ppos]--
				forced := v == value.Lose
				if !forced && remaining[ppos] > 0 {
					continue
				}
				if err := finalizeRecord(db, ppos); err != nil {
					return nil, err
				}
				finalized[ppos] = true
				next = append(next, ppos)
			}
		}
		level = next
	}

	for pos := int64(0); pos < size; pos++ {
		if !legalPos[pos] || finalized[pos] {
			continue
		}
		if err := db.SetValueRemoteness(pos, value.Draw, 0); err != nil {
			return nil, solverr.Wrap(solverr.KindIO, err)
		}
	}

	return buildReport(game, db, tier, size, cmp)
}

// maybeFinalize checks whether pos is ready to commit its flipped
// record: either every child has reported in (remaining hit zero), or
// a child has already reported a Lose, which forces this position to a
// Win regardless of how many children are still outstanding -- the
// same "forced" rule the post-scan cascade loop in BackwardInduction
// applies to each parent it takes from rg.TakeParents.
// Without the forced check here, a position whose only Lose child is
// external would sit unfinalized until its in-tree siblings also
// resolve, enqueueing it (and anything that depends on it) at a wave
// later than its true remoteness.
func maybeFinalize(db *tierdb.Database, pos int64, remaining []int32) (bool, error) {
	if remaining[pos] > 0 {
		raw, err := db.GetValue(pos)
		if err != nil {
			return false, solverr.Wrap(solverr.KindIO, err)
		}
		if raw != value.Lose {
			return false, nil
		}
	}
	if err := finalizeRecord(db, pos); err != nil {
		return false, err
	}
	return true, nil
}

// finalizeRecord converts the raw best-child record accumulated via
// Maximize into the mover's frame and commits it.
func finalizeRecord(db *tierdb.Database, pos int64) error {
	raw, err := db.GetValue(pos)
	if err != nil {
		return solverr.Wrap(solverr.KindIO, err)
	}
	if raw == value.Undecided {
		return solverr.Wrapf(solverr.KindGraphStructure, "position %d: finalized with no accumulated child", pos)
	}
	rawR, err := db.GetRemoteness(pos)
	if err != nil {
		return solverr.Wrap(solverr.KindIO, err)
	}
	if err := db.SetValueRemoteness(pos, raw.Opponent(), rawR+1); err != nil {
		return solverr.Wrap(solverr.KindIO, err)
	}
	return nil
}
