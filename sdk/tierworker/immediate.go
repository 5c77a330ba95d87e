package tierworker

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/solverr"
	"github.com/lox/tiersolve/sdk/tierdb"
	"github.com/lox/tiersolve/sdk/value"
)

// ImmediateTransitionScan solves a loop-free tier whose every move
// exits the tier (gameapi.TierTypeLoopFree). It seeds primitive
// positions directly, then loads as many child tiers as fit under
// memLimit at a time and accumulates each position's best child record
// against whichever child tiers are currently resident. Because the
// memLimit batches partition the full set of child tiers, by the time
// every batch has been visited once every position has seen all of its
// children, and a single finalize pass can commit the opponent-flipped,
// remoteness-incremented record (spec.md §4.H.1).
//
// db must already have tier open via CreateSolvingTier or
// CreateConcurrentSolvingTier; the caller is responsible for flushing
// and freeing it afterwards.
func ImmediateTransitionScan(game gameapi.Game, db *tierdb.Database, tier gameapi.Tier, size int64, childTiers []gameapi.Tier, memLimit int64, workers int, cmp *Comparator) (*Report, error) {
	if workers < 1 {
		workers = 1
	}

	primitive := make([]bool, size)
	if err := seedPrimitives(game, db, tier, size, workers, primitive); err != nil {
		return nil, err
	}

	childSize := make(map[gameapi.Tier]int64, len(childTiers))
	for _, ct := range childTiers {
		sz, err := game.GetTierSize(ct)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindArgument, err)
		}
		childSize[ct] = sz
	}

	batches := batchChildTiers(childTiers, childSize, memLimit)
	for _, batch := range batches {
		if err := loadBatch(db, batch, childSize); err != nil {
			return nil, err
		}
		err := accumulateBatch(game, db, tier, size, batch, primitive, workers)
		unloadBatch(db, batch)
		if err != nil {
			return nil, err
		}
	}

	if err := finalizeAccumulated(game, db, tier, size, primitive, workers); err != nil {
		return nil, err
	}

	return buildReport(game, db, tier, size, cmp)
}

func seedPrimitives(game gameapi.Game, db *tierdb.Database, tier gameapi.Tier, size int64, workers int, primitive []bool) error {
	g, _ := errgroup.WithContext(context.Background())
	for _, rg := range positionRanges(size, workers) {
		lo, hi := rg[0], rg[1]
		g.Go(func() error {
			for pos := lo; pos < hi; pos++ {
				tp := gameapi.TierPosition{Tier: tier, Position: gameapi.Position(pos)}
				legal, err := game.IsLegalPosition(tp)
				if err != nil {
					return solverr.Wrap(solverr.KindArgument, err)
				}
				if !legal {
					continue
				}
				v, err := game.Primitive(tp)
				if err != nil {
					return solverr.Wrap(solverr.KindArgument, err)
				}
				if v == value.Undecided {
					continue
				}
				if err := db.SetValueRemoteness(pos, v, 0); err != nil {
					return solverr.Wrap(solverr.KindIO, err)
				}
				primitive[pos] = true
			}
			return nil
		})
	}
	return g.Wait()
}

// accumulateBatch folds every child that belongs to batch into its
// parent's raw (pre-flip) best-child record via Maximize.
func accumulateBatch(game gameapi.Game, db *tierdb.Database, tier gameapi.Tier, size int64, batch []gameapi.Tier, primitive []bool, workers int) error {
	inBatch := make(map[gameapi.Tier]bool, len(batch))
	for _, ct := range batch {
		inBatch[ct] = true
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, rg := range positionRanges(size, workers) {
		lo, hi := rg[0], rg[1]
		g.Go(func() error {
			children := make([]gameapi.TierPosition, 64)
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
				for _, child := range children[:got] {
					if child.Tier == tier {
						return solverr.Wrapf(solverr.KindGraphStructure, "tier %d position %d: has an in-tier move but is typed loop-free", tier, pos)
					}
					canon, err := game.GetCanonicalTier(child.Tier)
					if err != nil {
						return solverr.Wrap(solverr.KindArgument, err)
					}
					if !inBatch[canon] {
						continue
					}
					cv, cr, err := resolveExternalChild(game, db, child)
					if err != nil {
						return err
					}
					if err := db.MaximizeValueRemoteness(pos, cv, cr, value.DefaultComparator); err != nil {
						return solverr.Wrap(solverr.KindArgument, err)
					}
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// finalizeAccumulated flips every non-primitive position's raw
// best-child record into the mover's frame (Opponent, remoteness+1).
func finalizeAccumulated(game gameapi.Game, db *tierdb.Database, tier gameapi.Tier, size int64, primitive []bool, workers int) error {
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
				raw, err := db.GetValue(pos)
				if err != nil {
					return solverr.Wrap(solverr.KindIO, err)
				}
				if raw == value.Undecided {
					return solverr.Wrapf(solverr.KindGraphStructure, "tier %d position %d: no child tier ever accounted for it", tier, pos)
				}
				rawR, err := db.GetRemoteness(pos)
				if err != nil {
					return solverr.Wrap(solverr.KindIO, err)
				}
				if err := db.SetValueRemoteness(pos, raw.Opponent(), rawR+1); err != nil {
					return solverr.Wrap(solverr.KindIO, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func batchChildTiers(childTiers []gameapi.Tier, sizes map[gameapi.Tier]int64, memLimit int64) [][]gameapi.Tier {
	var batches [][]gameapi.Tier
	var current []gameapi.Tier
	var currentBytes int64
	const bytesPerRecord = 2
	for _, ct := range childTiers {
		tierBytes := sizes[ct] * bytesPerRecord
		if len(current) > 0 && currentBytes+tierBytes > memLimit {
			batches = append(batches, current)
			current = nil
			currentBytes = 0
		}
		current = append(current, ct)
		currentBytes += tierBytes
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func loadBatch(db *tierdb.Database, batch []gameapi.Tier, sizes map[gameapi.Tier]int64) error {
	for _, ct := range batch {
		if err := db.LoadTier(ct, sizes[ct]); err != nil {
			return solverr.Wrap(solverr.KindIO, err)
		}
	}
	return nil
}

func unloadBatch(db *tierdb.Database, batch []gameapi.Tier) {
	for _, ct := range batch {
		db.UnloadTier(ct)
	}
}

// positionRanges splits [0, size) into up to workers contiguous,
// roughly equal [lo, hi) chunks for data-parallel scans.
func positionRanges(size int64, workers int) [][2]int64 {
	if workers < 1 {
		workers = 1
	}
	chunk := (size + int64(workers) - 1) / int64(workers)
	if chunk < 1 {
		chunk = 1
	}
	var ranges [][2]int64
	for lo := int64(0); lo < size; lo += chunk {
		hi := lo + chunk
		if hi > size {
			hi = size
		}
		ranges = append(ranges, [2]int64{lo, hi})
	}
	return ranges
}
