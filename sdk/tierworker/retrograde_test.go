package tierworker

import (
	"testing"

	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/value"
)

// loopyGame builds a single tier with a primitive, a short forced-win
// chain hanging off it, and a disjoint two-cycle with no escape.
//
//	0 (primitive Lose)
//	1 -> 0
//	2 -> 1
//	3 <-> 4 (cycle, never reaches a primitive)
func loopyGame() *fakeGame {
	g := newFakeGame()
	g.setTier(0, 5, gameapi.TierTypeLoopy)
	g.setPrimitive(tp(0, 0), value.Lose)
	g.addMove(tp(0, 1), tp(0, 0))
	g.addMove(tp(0, 2), tp(0, 1))
	g.addMove(tp(0, 3), tp(0, 4))
	g.addMove(tp(0, 4), tp(0, 3))
	return g
}

func TestBackwardInductionChainAndCycle(t *testing.T) {
	game := loopyGame()
	db := newTestDB(t)

	if err := db.CreateSolvingTier(0, 5); err != nil {
		t.Fatalf("CreateSolvingTier: %v", err)
	}
	report, err := BackwardInduction(game, db, 0, 5, nil, nil)
	if err != nil {
		t.Fatalf("BackwardInduction: %v", err)
	}
	if err := db.FlushSolvingTier(); err != nil {
		t.Fatalf("FlushSolvingTier: %v", err)
	}
	if err := db.FreeSolvingTier(); err != nil {
		t.Fatalf("FreeSolvingTier: %v", err)
	}

	probe := db.NewProbe()
	defer probe.Close()

	cases := []struct {
		pos  int64
		v    value.Value
		r    value.Remoteness
	}{
		{0, value.Lose, 0},
		{1, value.Win, 1},
		{2, value.Lose, 2},
		{3, value.Draw, 0},
		{4, value.Draw, 0},
	}
	for _, c := range cases {
		v, err := probe.ProbeValue(0, c.pos)
		if err != nil {
			t.Fatalf("ProbeValue(%d): %v", c.pos, err)
		}
		r, err := probe.ProbeRemoteness(0, c.pos)
		if err != nil {
			t.Fatalf("ProbeRemoteness(%d): %v", c.pos, err)
		}
		if v != c.v || r != c.r {
			t.Fatalf("pos %d = (%v, %v), want (%v, %v)", c.pos, v, r, c.v, c.r)
		}
	}

	if report.Counts[value.Draw] != 2 {
		t.Fatalf("report.Counts[Draw] = %d, want 2", report.Counts[value.Draw])
	}
	if report.LongestRemoteness != 2 {
		t.Fatalf("report.LongestRemoteness = %d, want 2", report.LongestRemoteness)
	}
}

// twoLoseChildrenGame builds a tier 0 where position Q has two moves,
// each eventually resolving to a Lose position, but at different
// remotenesses reached through chains of very different length:
//
//	A (primitive Lose, r0)
//	X1 -> A, X2 -> X1, X3 -> X2, LoseBig -> X3   (a 4-hop chain: LoseBig is Lose at r4)
//	FillerA1 -> A, FillerA2 -> FillerA1, FillerA3 -> FillerA2 (a 3-hop decoy chain)
//	Decoy -> {external Lose at r0, FillerA3}     (Decoy's only forcing info is external)
//	LoseSmall -> Decoy                           (LoseSmall is Lose at r2)
//	Q -> {LoseSmall, LoseBig}
//
// Decoy's real remoteness (1) is decided entirely by its external move;
// the in-tree move to FillerA3 only adds an unrelated, slower
// dependency that must not change Decoy's committed value, and must not
// delay LoseSmall's notification to Q past LoseBig's. Q's correct move
// is LoseSmall (true remoteness 2, not LoseBig's 4), so Q must end up
// Win at remoteness 3, not 5.
func twoLoseChildrenGame() *fakeGame {
	g := newFakeGame()
	g.setTier(1, 1, gameapi.TierTypeLoopFree)
	g.setPrimitive(tp(1, 0), value.Lose)

	g.setTier(0, 11, gameapi.TierTypeLoopy, 1)
	g.setPrimitive(tp(0, 0), value.Lose)

	g.addMove(tp(0, 1), tp(0, 0)) // X1 -> A
	g.addMove(tp(0, 2), tp(0, 1)) // X2 -> X1
	g.addMove(tp(0, 3), tp(0, 2)) // X3 -> X2
	g.addMove(tp(0, 4), tp(0, 3)) // LoseBig -> X3

	g.addMove(tp(0, 5), tp(0, 0)) // FillerA1 -> A
	g.addMove(tp(0, 6), tp(0, 5)) // FillerA2 -> FillerA1
	g.addMove(tp(0, 7), tp(0, 6)) // FillerA3 -> FillerA2

	g.addMove(tp(0, 8), tp(1, 0)) // Decoy -> external Lose
	g.addMove(tp(0, 8), tp(0, 7)) // Decoy -> FillerA3

	g.addMove(tp(0, 9), tp(0, 8)) // LoseSmall -> Decoy

	g.addMove(tp(0, 10), tp(0, 9)) // Q -> LoseSmall
	g.addMove(tp(0, 10), tp(0, 4)) // Q -> LoseBig

	return g
}

func TestBackwardInductionPicksMinimalRemotenessLoseAcrossUnevenChains(t *testing.T) {
	game := twoLoseChildrenGame()
	db := newTestDB(t)

	solveLoopFree(t, game, db, 1, nil)

	if err := db.CreateSolvingTier(0, 11); err != nil {
		t.Fatalf("CreateSolvingTier: %v", err)
	}
	if _, err := BackwardInduction(game, db, 0, 11, []gameapi.Tier{1}, nil); err != nil {
		t.Fatalf("BackwardInduction: %v", err)
	}
	if err := db.FlushSolvingTier(); err != nil {
		t.Fatalf("FlushSolvingTier: %v", err)
	}
	if err := db.FreeSolvingTier(); err != nil {
		t.Fatalf("FreeSolvingTier: %v", err)
	}

	probe := db.NewProbe()
	defer probe.Close()

	cases := []struct {
		pos int64
		v   value.Value
		r   value.Remoteness
	}{
		{8, value.Win, 1},  // Decoy: decided by its external Lose child alone
		{9, value.Lose, 2}, // LoseSmall
		{4, value.Lose, 4}, // LoseBig
		{10, value.Win, 3}, // Q: must pick LoseSmall (r2), not LoseBig (r4)
	}
	for _, c := range cases {
		v, err := probe.ProbeValue(0, c.pos)
		if err != nil {
			t.Fatalf("ProbeValue(%d): %v", c.pos, err)
		}
		r, err := probe.ProbeRemoteness(0, c.pos)
		if err != nil {
			t.Fatalf("ProbeRemoteness(%d): %v", c.pos, err)
		}
		if v != c.v || r != c.r {
			t.Fatalf("pos %d = (%v, %v), want (%v, %v)", c.pos, v, r, c.v, c.r)
		}
	}
}

func TestBackwardInductionRejectsNonPrimitiveDeadEnd(t *testing.T) {
	game := newFakeGame()
	game.setTier(0, 1, gameapi.TierTypeLoopy)
	// Position 0 is non-primitive and has no moves: a broken game.

	db := newTestDB(t)
	if err := db.CreateSolvingTier(0, 1); err != nil {
		t.Fatalf("CreateSolvingTier: %v", err)
	}
	if _, err := BackwardInduction(game, db, 0, 1, nil, nil); err == nil {
		t.Fatalf("expected an error for a non-primitive dead end")
	}
	_ = db.FreeSolvingTier()
}
