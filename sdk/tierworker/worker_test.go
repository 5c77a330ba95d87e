package tierworker

import (
	"testing"

	"github.com/lox/tiersolve/sdk/value"
)

func TestWorkerSolveAutoPicksImmediateTransitionForLoopFreeTier(t *testing.T) {
	game := twoTierGame()
	db := newTestDB(t)
	w := WorkerInit(game, db, Config{WorkerCount: 2, MemoryLimit: 1 << 20})

	if _, err := w.WorkerSolve(MethodAuto, 1, false, nil); err != nil {
		t.Fatalf("WorkerSolve(tier 1): %v", err)
	}
	report, err := w.WorkerSolve(MethodAuto, 0, false, nil)
	if err != nil {
		t.Fatalf("WorkerSolve(tier 0): %v", err)
	}
	if report == nil {
		t.Fatalf("expected a report for a freshly solved tier")
	}
	if report.Counts[value.Win]+report.Counts[value.Lose] != 2 {
		t.Fatalf("report counts = %+v, want two decided positions", report.Counts)
	}

	if err := w.WorkerTest(0, nil, 1, 10); err != nil {
		t.Fatalf("WorkerTest: %v", err)
	}
}

func TestWorkerSolveSkipsAlreadySolvedTierUnlessForced(t *testing.T) {
	game := twoTierGame()
	db := newTestDB(t)
	w := WorkerInit(game, db, Config{WorkerCount: 1, MemoryLimit: 1 << 20})

	if _, err := w.WorkerSolve(MethodAuto, 1, false, nil); err != nil {
		t.Fatalf("first solve: %v", err)
	}
	report, err := w.WorkerSolve(MethodAuto, 1, false, nil)
	if err != nil {
		t.Fatalf("second solve: %v", err)
	}
	if report != nil {
		t.Fatalf("expected a nil report when skipping an already-solved tier")
	}

	forced, err := w.WorkerSolve(MethodAuto, 1, true, nil)
	if err != nil {
		t.Fatalf("forced solve: %v", err)
	}
	if forced == nil {
		t.Fatalf("expected a report when force=true")
	}
}

func TestWorkerSolveAutoPicksBackwardInductionForLoopyTier(t *testing.T) {
	game := loopyGame()
	db := newTestDB(t)
	w := WorkerInit(game, db, Config{WorkerCount: 2, MemoryLimit: 1 << 20})

	report, err := w.WorkerSolve(MethodAuto, 0, false, nil)
	if err != nil {
		t.Fatalf("WorkerSolve: %v", err)
	}
	if report.Counts[value.Draw] != 2 {
		t.Fatalf("report.Counts[Draw] = %d, want 2", report.Counts[value.Draw])
	}

	if err := w.WorkerTest(0, nil, 7, 20); err != nil {
		t.Fatalf("WorkerTest: %v", err)
	}
}

func TestWorkerSolveCompareModeCatchesDiscrepancy(t *testing.T) {
	game := twoTierGame()
	gameAlt := twoTierGame()
	gameAlt.setPrimitive(tp(1, 0), value.Win) // differs from game's Lose

	db := newTestDB(t)
	reference := newTestDB(t)

	w := WorkerInit(game, db, Config{WorkerCount: 1, MemoryLimit: 1 << 20})
	refWorker := WorkerInit(gameAlt, reference, Config{WorkerCount: 1, MemoryLimit: 1 << 20})

	if _, err := w.WorkerSolve(MethodAuto, 1, false, nil); err != nil {
		t.Fatalf("solve tier 1 (db): %v", err)
	}
	if _, err := refWorker.WorkerSolve(MethodAuto, 1, false, nil); err != nil {
		t.Fatalf("solve tier 1 (reference): %v", err)
	}
	if _, err := w.WorkerSolve(MethodAuto, 0, false, nil); err != nil {
		t.Fatalf("solve tier 0 (db): %v", err)
	}
	if _, err := refWorker.WorkerSolve(MethodAuto, 0, false, nil); err != nil {
		t.Fatalf("solve tier 0 (reference): %v", err)
	}

	if _, err := w.WorkerSolve(MethodAuto, 0, true, reference); err == nil {
		t.Fatalf("expected a discrepancy error comparing against a tier 0 solved from a different tier 1")
	}
}
