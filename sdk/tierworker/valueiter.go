package tierworker

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/solverr"
	"github.com/lox/tiersolve/sdk/tierdb"
	"github.com/lox/tiersolve/sdk/value"
)

// ValueIteration solves a loopy tier by repeated full sweeps (a Bellman
// fixed-point) instead of retrograde's reverse-graph cascade: every
// sweep recomputes each non-primitive position's record in full from
// its children's current records (in-tier children read from the
// concurrent solving store itself, external children from already
// loaded child tiers), and the process repeats until a sweep changes
// nothing. This trades BackwardInduction's single pass for one that
// needs no reverse-graph bookkeeping at the cost of potentially many
// sweeps over the tier; spec.md §4.H.3 names it as the fallback for
// games whose branching factor makes materializing reverse edges
// impractical.
//
// db must already have tier open via CreateConcurrentSolvingTier (sweeps
// read and write the same store concurrently across workers within a
// sweep, so the backing store must tolerate that).
func ValueIteration(game gameapi.Game, db *tierdb.Database, tier gameapi.Tier, size int64, childTiers []gameapi.Tier, workers int, maxSweeps int, cmp *Comparator) (*Report, error) {
	if workers < 1 {
		workers = 1
	}

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

	primitive := make([]bool, size)
	if err := seedPrimitives(game, db, tier, size, workers, primitive); err != nil {
		return nil, err
	}

	if maxSweeps <= 0 {
		maxSweeps = int(size) + 1
	}

	for sweep := 0; sweep < maxSweeps; sweep++ {
		changed, err := sweepOnce(game, db, tier, size, primitive, workers)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
		if sweep == maxSweeps-1 {
			return nil, solverr.Wrapf(solverr.KindGraphStructure, "tier %d: value iteration did not converge in %d sweeps", tier, maxSweeps)
		}
	}

	// Anything still Undecided after convergence sits in a cycle that
	// never reaches a terminal: a Draw.
	if err := drawUnresolved(game, db, tier, size, primitive, workers); err != nil {
		return nil, err
	}

	return buildReport(game, db, tier, size, cmp)
}

func sweepOnce(game gameapi.Game, db *tierdb.Database, tier gameapi.Tier, size int64, primitive []bool, workers int) (bool, error) {
	var changedCount int64
	g, _ := errgroup.WithContext(context.Background())
	for _, rg := range positionRanges(size, workers) {
		lo, hi := rg[0], rg[1]
		g.Go(func() error {
			children := make([]gameapi.TierPosition, 64)
			localChanged := false
			for pos := lo; pos < hi; pos++ {
				if primitive[pos] {
					continue
				}
				tp := gameapi.TierPosition{Tier: tier, Position: gameapi.Position(pos)}
				legal, err := game.IsLegalPosition(tp)
				if err != nil {
					return solverr.Wrap(solverr.KindArgument, err)
				}
				if !legal {
					continue
				}
				n, err := game.GetNumberOfCanonicalChildPositions(tp)
				if err != nil {
					return solverr.Wrap(solverr.KindArgument, err)
				}
				if n == 0 {
					return solverr.Wrapf(solverr.KindGraphStructure, "tier %d position %d: non-primitive with no moves", tier, pos)
				}
				if cap(children) < n {
					children = make([]gameapi.TierPosition, n)
				}
				got, err := game.GetCanonicalChildPositions(tp, children[:cap(children)])
				if err != nil {
					return solverr.Wrap(solverr.KindArgument, err)
				}

				bestV, bestR := value.Undecided, value.Remoteness(0)
				haveBest := false
				for _, child := range children[:got] {
					var cv value.Value
					var cr value.Remoteness
					var err error
					if child.Tier == tier {
						cv, err = db.GetValue(int64(child.Position))
						if err == nil {
							cr, err = db.GetRemoteness(int64(child.Position))
						}
						if err != nil {
							return solverr.Wrap(solverr.KindIO, err)
						}
					} else {
						cv, cr, err = resolveExternalChild(game, db, child)
						if err != nil {
							return err
						}
					}
					if cv == value.Undecided {
						continue
					}
					if !haveBest || value.Less(bestV, bestR, cv, cr) {
						bestV, bestR, haveBest = cv, cr, true
					}
				}
				if !haveBest {
					continue
				}
				finalV, finalR := bestV.Opponent(), bestR+1

				curV, err := db.GetValue(pos)
				if err != nil {
					return solverr.Wrap(solverr.KindIO, err)
				}
				curR, err := db.GetRemoteness(pos)
				if err != nil {
					return solverr.Wrap(solverr.KindIO, err)
				}
				if curV == finalV && curR == finalR {
					continue
				}
				if err := db.SetValueRemoteness(pos, finalV, finalR); err != nil {
					return solverr.Wrap(solverr.KindIO, err)
				}
				localChanged = true
			}
			if localChanged {
				atomic.AddInt64(&changedCount, 1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	return changedCount > 0, nil
}

func drawUnresolved(game gameapi.Game, db *tierdb.Database, tier gameapi.Tier, size int64, primitive []bool, workers int) error {
	g, _ := errgroup.WithContext(context.Background())
	for _, rg := range positionRanges(size, workers) {
		lo, hi := rg[0], rg[1]
		g.Go(func() error {
			for pos := lo; pos < hi; pos++ {
				if primitive[pos] {
					continue
				}
				legal, err := game.IsLegalPosition(gameapi.TierPosition{Tier: tier, Position: gameapi.Position(pos)})
				if err != nil {
					return solverr.Wrap(solverr.KindArgument, err)
				}
				if !legal {
					continue
				}
				v, err := db.GetValue(pos)
				if err != nil {
					return solverr.Wrap(solverr.KindIO, err)
				}
				if v != value.Undecided {
					continue
				}
				if err := db.SetValueRemoteness(pos, value.Draw, 0); err != nil {
					return solverr.Wrap(solverr.KindIO, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
