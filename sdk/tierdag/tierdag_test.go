package tierdag

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/solverr"
	"github.com/lox/tiersolve/sdk/value"
)

// tierGame is a minimal gameapi.Game whose only DAG-relevant behavior
// is GetInitialTier/GetChildTiers/GetCanonicalTier; the rest of the
// interface is never exercised by this package and panics if called, so
// a test that accidentally depends on it fails loudly.
type tierGame struct {
	initial   gameapi.Tier
	children  map[gameapi.Tier][]gameapi.Tier
	canonical map[gameapi.Tier]gameapi.Tier
}

func newTierGame(initial gameapi.Tier) *tierGame {
	return &tierGame{
		initial:   initial,
		children:  map[gameapi.Tier][]gameapi.Tier{},
		canonical: map[gameapi.Tier]gameapi.Tier{},
	}
}

func (g *tierGame) edge(from gameapi.Tier, to ...gameapi.Tier) {
	g.children[from] = append(g.children[from], to...)
}

func (g *tierGame) alias(tier, canon gameapi.Tier) {
	g.canonical[tier] = canon
}

func (g *tierGame) GetInitialTier() gameapi.Tier { return g.initial }

func (g *tierGame) GetChildTiers(tier gameapi.Tier, out []gameapi.Tier) (int, error) {
	children := g.children[tier]
	return copy(out, children), nil
}

func (g *tierGame) GetCanonicalTier(tier gameapi.Tier) (gameapi.Tier, error) {
	if c, ok := g.canonical[tier]; ok {
		return c, nil
	}
	return tier, nil
}

func (g *tierGame) GetInitialPosition() gameapi.Position { panic("unused") }
func (g *tierGame) GetTierSize(gameapi.Tier) (int64, error) { panic("unused") }
func (g *tierGame) GenerateMoves(gameapi.TierPosition, []gameapi.Move) (int, error) {
	panic("unused")
}
func (g *tierGame) Primitive(gameapi.TierPosition) (value.Value, error) {
	panic("unused")
}
func (g *tierGame) DoMove(gameapi.TierPosition, gameapi.Move) (gameapi.TierPosition, error) {
	panic("unused")
}
func (g *tierGame) IsLegalPosition(gameapi.TierPosition) (bool, error) {
	panic("unused")
}
func (g *tierGame) GetCanonicalPosition(gameapi.TierPosition) (gameapi.Position, error) {
	panic("unused")
}
func (g *tierGame) GetNumberOfCanonicalChildPositions(gameapi.TierPosition) (int, error) {
	panic("unused")
}
func (g *tierGame) GetCanonicalChildPositions(gameapi.TierPosition, []gameapi.TierPosition) (int, error) {
	panic("unused")
}
func (g *tierGame) GetTierType(gameapi.Tier) (gameapi.TierType, error) {
	panic("unused")
}
func (g *tierGame) GetTierName(gameapi.Tier, []byte) (int, error) {
	panic("unused")
}

func newTestLogger() zerolog.Logger {
	return zerolog.Nop()
}

// diamond builds 0 -> {1, 2} -> 3, a DAG where tier 3 must be solved
// before 1 or 2, and 1 and 2 both before 0.
func diamond() *tierGame {
	g := newTierGame(0)
	g.edge(0, 1, 2)
	g.edge(1, 3)
	g.edge(2, 3)
	return g
}

func TestDriverSolvesInDependencyOrder(t *testing.T) {
	game := diamond()
	d := New(game, nil, newTestLogger())

	var order []gameapi.Tier
	seen := map[gameapi.Tier]bool{}
	d.dispatch = func(tier gameapi.Tier) (Outcome, error) {
		for _, child := range game.children[tier] {
			if !seen[child] {
				t.Fatalf("tier %d dispatched before its child %d", tier, child)
			}
		}
		seen[tier] = true
		order = append(order, tier)
		return OutcomeSolved, nil
	}

	summary, err := d.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if summary.Solved != 4 {
		t.Fatalf("summary.Solved = %d, want 4", summary.Solved)
	}
	if summary.Scanned != 4 {
		t.Fatalf("summary.Scanned = %d, want 4", summary.Scanned)
	}
	if order[len(order)-1] != 0 {
		t.Fatalf("last dispatched tier = %d, want 0 (the root)", order[len(order)-1])
	}
	if order[0] != 3 {
		t.Fatalf("first dispatched tier = %d, want 3 (the leaf)", order[0])
	}
}

func TestDriverDetectsCycle(t *testing.T) {
	g := newTierGame(0)
	g.edge(0, 1)
	g.edge(1, 0)

	d := New(g, func(gameapi.Tier) (Outcome, error) { return OutcomeSolved, nil }, newTestLogger())
	_, err := d.Solve()
	kind, ok := solverr.KindOf(err)
	if !ok || kind != solverr.KindGraphStructure {
		t.Fatalf("Solve() err = %v, want a KindGraphStructure error", err)
	}
}

func TestDriverDedupesSymmetricChildren(t *testing.T) {
	// Tier 0 has two raw children, 1 and 2, that both canonicalize to
	// tier 1: tier 0 should wait for exactly one completion of tier 1,
	// not two.
	g := newTierGame(0)
	g.edge(0, 1, 2)
	g.alias(2, 1)

	dispatched := map[gameapi.Tier]int{}
	d := New(g, func(tier gameapi.Tier) (Outcome, error) {
		dispatched[tier]++
		return OutcomeSolved, nil
	}, newTestLogger())

	summary, err := d.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if dispatched[2] != 0 {
		t.Fatalf("non-canonical tier 2 was dispatched directly")
	}
	if dispatched[1] != 1 {
		t.Fatalf("canonical tier 1 dispatched %d times, want 1", dispatched[1])
	}
	if summary.Scanned != 2 {
		t.Fatalf("summary.Scanned = %d, want 2 (tiers 0 and 1)", summary.Scanned)
	}
}

func TestDriverTalliesPerTierFailureWithoutAborting(t *testing.T) {
	g := newTierGame(0)
	g.edge(0, 1, 2)

	d := New(g, func(tier gameapi.Tier) (Outcome, error) {
		if tier == 1 {
			return OutcomeSolved, solverr.Wrapf(solverr.KindIO, "tier %d: disk full", tier)
		}
		return OutcomeSolved, nil
	}, newTestLogger())

	summary, err := d.Solve()
	if err != nil {
		t.Fatalf("Solve returned a fatal error for a per-tier failure: %v", err)
	}
	if summary.Failed != 1 || summary.Errors[1] == nil {
		t.Fatalf("summary = %+v, want tier 1 tallied as failed", summary)
	}
	// Tier 0 depends on both 1 and 2; with 1 permanently failed it must
	// never become ready.
	if summary.Scanned != 2 {
		t.Fatalf("summary.Scanned = %d, want 2 (tier 0 stays blocked)", summary.Scanned)
	}
}
