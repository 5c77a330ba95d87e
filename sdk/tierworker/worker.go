package tierworker

import (
	"fmt"
	"math/rand"

	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/solverr"
	"github.com/lox/tiersolve/sdk/tierdb"
	"github.com/lox/tiersolve/sdk/value"
)

// Method selects which of the three solving algorithms WorkerSolve
// runs; MethodAuto defers to the tier's reported gameapi.TierType.
type Method uint8

const (
	MethodAuto Method = iota
	MethodImmediateTransition
	MethodBackwardInduction
	MethodValueIteration
)

func (m Method) String() string {
	switch m {
	case MethodAuto:
		return "auto"
	case MethodImmediateTransition:
		return "immediate-transition"
	case MethodBackwardInduction:
		return "backward-induction"
	case MethodValueIteration:
		return "value-iteration"
	default:
		return fmt.Sprintf("method(%d)", uint8(m))
	}
}

// Config bounds a Worker's resource use, mirroring the top-level
// tiersolve.Config fields a Worker actually consumes.
type Config struct {
	MemoryLimit int64
	WorkerCount int
	MaxSweeps   int
}

// Worker solves one tier at a time against a tierdb.Database, picking
// an algorithm from sdk/tierworker's three (immediate-transition,
// backward induction, value iteration) based on the tier's declared
// shape (spec.md §4.H). A Worker holds no per-tier state between calls;
// tiersolve.NewEngine constructs one per engine, Engine.Solve's dispatch
// function calls WorkerSolve once per ready tier, and Engine.Test calls
// WorkerTest.
type Worker struct {
	game gameapi.Game
	db   *tierdb.Database
	cfg  Config
}

// WorkerInit builds a Worker bound to game and db.
func WorkerInit(game gameapi.Game, db *tierdb.Database, cfg Config) *Worker {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = 64 << 20
	}
	return &Worker{game: game, db: db, cfg: cfg}
}

// WorkerSolve solves tier, skipping the work if it is already solved
// unless force is set. When reference is non-nil every record is
// cross-checked against it once the tier is solved, before the tier is
// flushed (spec's compare mode). A
// nil Report with a nil error means the tier was already solved and
// skipped.
func (w *Worker) WorkerSolve(method Method, tier gameapi.Tier, force bool, reference *tierdb.Database) (*Report, error) {
	if !force && w.db.TierStatus(tier) == tierdb.TierStatusSolved {
		return nil, nil
	}

	size, err := w.game.GetTierSize(tier)
	if err != nil {
		return nil, solverr.Wrap(solverr.KindArgument, err)
	}

	tierType, err := w.game.GetTierType(tier)
	if err != nil {
		return nil, solverr.Wrap(solverr.KindArgument, err)
	}

	rawChildTiers, err := fetchChildTiers(w.game, tier)
	if err != nil {
		return nil, err
	}
	childTiers, err := canonicalizeChildTiers(w.game, rawChildTiers)
	if err != nil {
		return nil, err
	}

	effMethod := method
	if effMethod == MethodAuto {
		if tierType == gameapi.TierTypeLoopFree {
			effMethod = MethodImmediateTransition
		} else {
			effMethod = MethodBackwardInduction
		}
	}

	var cmp *Comparator
	if reference != nil {
		cmp = NewComparator(reference)
		defer cmp.Close()
	}

	switch effMethod {
	case MethodImmediateTransition:
		if tierType != gameapi.TierTypeLoopFree {
			return nil, solverr.Wrapf(solverr.KindArgument, "tier %d: immediate-transition scan requires a loop-free tier", tier)
		}
		if err := w.db.CreateConcurrentSolvingTier(tier, size); err != nil {
			return nil, solverr.Wrap(solverr.KindIO, err)
		}
	case MethodValueIteration:
		if err := w.db.CreateConcurrentSolvingTier(tier, size); err != nil {
			return nil, solverr.Wrap(solverr.KindIO, err)
		}
	case MethodBackwardInduction:
		if err := w.db.CreateSolvingTier(tier, size); err != nil {
			return nil, solverr.Wrap(solverr.KindIO, err)
		}
	default:
		return nil, solverr.Wrapf(solverr.KindArgument, "tier %d: unknown method %v", tier, effMethod)
	}

	var report *Report
	switch effMethod {
	case MethodImmediateTransition:
		report, err = ImmediateTransitionScan(w.game, w.db, tier, size, childTiers, w.cfg.MemoryLimit, w.cfg.WorkerCount, cmp)
	case MethodBackwardInduction:
		report, err = BackwardInduction(w.game, w.db, tier, size, childTiers, cmp)
	case MethodValueIteration:
		report, err = ValueIteration(w.game, w.db, tier, size, childTiers, w.cfg.WorkerCount, w.cfg.MaxSweeps, cmp)
	}
	if err != nil {
		_ = w.db.FreeSolvingTier()
		return nil, err
	}

	if err := w.db.FlushSolvingTier(); err != nil {
		_ = w.db.FreeSolvingTier()
		return nil, solverr.Wrap(solverr.KindIO, err)
	}
	if err := w.db.FreeSolvingTier(); err != nil {
		return nil, solverr.Wrap(solverr.KindIO, err)
	}
	return report, nil
}

// fetchChildTiers grows a buffer until GetChildTiers reports fewer
// tiers than the buffer holds, the same doubling strategy tierdag's
// childTiersOf uses.
func fetchChildTiers(game gameapi.Game, tier gameapi.Tier) ([]gameapi.Tier, error) {
	buf := make([]gameapi.Tier, 16)
	for {
		n, err := game.GetChildTiers(tier, buf)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindArgument, err)
		}
		if n < len(buf) {
			return buf[:n], nil
		}
		buf = make([]gameapi.Tier, len(buf)*2)
	}
}

// WorkerTest random-walks count games starting from legal positions of
// tier, following the optimal child at each step (the child whose
// opponent-flipped, remoteness-incremented record matches the current
// position's own record), and checks that the walk terminates at a
// primitive position whose stored record agrees with game.Primitive, or
// at a non-primitive position recorded as a Draw.
// It is spec.md's lightweight alternative to a from-scratch
// re-verification pass: a mismatch almost always means a bug in the
// algorithm that solved one of the tiers on the path, not a fluke.
func (w *Worker) WorkerTest(tier gameapi.Tier, parentTiers []gameapi.Tier, seed int64, count int) error {
	size, err := w.game.GetTierSize(tier)
	if err != nil {
		return solverr.Wrap(solverr.KindArgument, err)
	}
	if size == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seed))
	probe := w.db.NewProbe()
	defer probe.Close()

	children := make([]gameapi.TierPosition, 64)
	for i := 0; i < count; i++ {
		pos := gameapi.Position(rng.Int63n(size))
		tp := gameapi.TierPosition{Tier: tier, Position: pos}
		legal, err := w.game.IsLegalPosition(tp)
		if err != nil {
			return solverr.Wrap(solverr.KindArgument, err)
		}
		if !legal {
			continue
		}
		if err := w.walkOnce(tp, probe, &children); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) walkOnce(start gameapi.TierPosition, probe *tierdb.Probe, children *[]gameapi.TierPosition) error {
	tp := start
	for steps := 0; steps < int(value.MaxRemoteness); steps++ {
		prim, err := w.game.Primitive(tp)
		if err != nil {
			return solverr.Wrap(solverr.KindArgument, err)
		}
		v, err := probe.ProbeValue(tp.Tier, int64(tp.Position))
		if err != nil {
			return solverr.Wrap(solverr.KindIO, err)
		}
		r, err := probe.ProbeRemoteness(tp.Tier, int64(tp.Position))
		if err != nil {
			return solverr.Wrap(solverr.KindIO, err)
		}

		if prim != value.Undecided {
			if v != prim || r != 0 {
				return solverr.Wrapf(solverr.KindDiscrepancy, "tier %d position %d: primitive %s stored as (%s, %d)",
					tp.Tier, tp.Position, prim, v, r)
			}
			return nil
		}

		// A non-primitive Draw is a position the solving algorithm could
		// never pin down a finite remoteness for (a cycle with no escape
		// to a decided value): there is no child to justify it, so
		// walking stops here rather than demanding one.
		if v == value.Draw {
			return nil
		}

		n, err := w.game.GetNumberOfCanonicalChildPositions(tp)
		if err != nil {
			return solverr.Wrap(solverr.KindArgument, err)
		}
		if n == 0 {
			return solverr.Wrapf(solverr.KindDiscrepancy, "tier %d position %d: non-primitive with no moves", tp.Tier, tp.Position)
		}
		if cap(*children) < n {
			*children = make([]gameapi.TierPosition, n)
		}
		got, err := w.game.GetCanonicalChildPositions(tp, (*children)[:cap(*children)])
		if err != nil {
			return solverr.Wrap(solverr.KindArgument, err)
		}

		var next gameapi.TierPosition
		found := false
		for _, child := range (*children)[:got] {
			cv, err := probe.ProbeValue(child.Tier, int64(child.Position))
			if err != nil {
				return solverr.Wrap(solverr.KindIO, err)
			}
			cr, err := probe.ProbeRemoteness(child.Tier, int64(child.Position))
			if err != nil {
				return solverr.Wrap(solverr.KindIO, err)
			}
			if cv.Opponent() == v && cr+1 == r {
				next, found = child, true
				break
			}
		}
		if !found {
			return solverr.Wrapf(solverr.KindDiscrepancy, "tier %d position %d: no child justifies stored record (%s, %d)",
				tp.Tier, tp.Position, v, r)
		}
		tp = next
	}
	return solverr.Wrapf(solverr.KindDiscrepancy, "position did not reach a primitive within %d steps", value.MaxRemoteness)
}
