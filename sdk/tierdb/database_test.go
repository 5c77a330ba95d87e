package tierdb

import (
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/value"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	cfg := DefaultConfig(t.TempDir())
	cfg.TargetBlockSize = 64 // force many small blocks to exercise boundaries
	db, err := NewDatabase(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	return db
}

func TestCreateSolvingTierRejectsSecondTier(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.CreateSolvingTier(gameapi.Tier(1), 10); err != nil {
		t.Fatalf("CreateSolvingTier: %v", err)
	}
	if err := db.CreateSolvingTier(gameapi.Tier(2), 10); err == nil {
		t.Fatalf("expected error creating a second solving tier")
	}
}

func TestSolvingTierSetGetRoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.CreateSolvingTier(gameapi.Tier(1), 100); err != nil {
		t.Fatalf("CreateSolvingTier: %v", err)
	}
	for i := int64(0); i < 100; i++ {
		if err := db.SetValueRemoteness(i, value.Win, value.Remoteness(i%20)); err != nil {
			t.Fatalf("SetValueRemoteness(%d): %v", i, err)
		}
	}
	for i := int64(0); i < 100; i++ {
		v, err := db.GetValue(i)
		if err != nil {
			t.Fatalf("GetValue(%d): %v", i, err)
		}
		if v != value.Win {
			t.Fatalf("position %d: value = %v, want Win", i, v)
		}
		r, err := db.GetRemoteness(i)
		if err != nil {
			t.Fatalf("GetRemoteness(%d): %v", i, err)
		}
		if r != value.Remoteness(i%20) {
			t.Fatalf("position %d: remoteness = %d, want %d", i, r, i%20)
		}
	}
}

func TestFlushLoadRoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	tier := gameapi.Tier(7)
	const n = 500
	if err := db.CreateSolvingTier(tier, n); err != nil {
		t.Fatalf("CreateSolvingTier: %v", err)
	}
	want := make([]value.Record, n)
	for i := int64(0); i < n; i++ {
		v := value.Value(1 + i%4) // cycles Win, Lose, Tie, Draw
		r := value.Remoteness(i % 50)
		want[i] = value.NewRecord(v, r)
		if err := db.SetValueRemoteness(i, v, r); err != nil {
			t.Fatalf("SetValueRemoteness(%d): %v", i, err)
		}
	}
	if err := db.FlushSolvingTier(); err != nil {
		t.Fatalf("FlushSolvingTier: %v", err)
	}
	if err := db.FreeSolvingTier(); err != nil {
		t.Fatalf("FreeSolvingTier: %v", err)
	}

	if err := db.LoadTier(tier, n); err != nil {
		t.Fatalf("LoadTier: %v", err)
	}
	if !db.IsTierLoaded(tier) {
		t.Fatalf("expected tier %d to report loaded", tier)
	}
	for i := int64(0); i < n; i++ {
		v, err := db.GetValueFromLoaded(tier, i)
		if err != nil {
			t.Fatalf("GetValueFromLoaded(%d): %v", i, err)
		}
		if v != want[i].GetValue() {
			t.Fatalf("position %d: value = %v, want %v", i, v, want[i].GetValue())
		}
		r, err := db.GetRemotenessFromLoaded(tier, i)
		if err != nil {
			t.Fatalf("GetRemotenessFromLoaded(%d): %v", i, err)
		}
		if r != want[i].GetRemoteness() {
			t.Fatalf("position %d: remoteness = %d, want %d", i, r, want[i].GetRemoteness())
		}
	}

	db.UnloadTier(tier)
	if db.IsTierLoaded(tier) {
		t.Fatalf("expected tier %d to report unloaded", tier)
	}
}

func TestProbeSwitchesTiersOnDemand(t *testing.T) {
	db := newTestDatabase(t)
	tiers := []gameapi.Tier{1, 2}
	for _, tier := range tiers {
		if err := db.CreateSolvingTier(tier, 20); err != nil {
			t.Fatalf("CreateSolvingTier(%d): %v", tier, err)
		}
		for i := int64(0); i < 20; i++ {
			if err := db.SetValueRemoteness(i, value.Tie, value.Remoteness(int64(tier)*100+i)); err != nil {
				t.Fatalf("SetValueRemoteness: %v", err)
			}
		}
		if err := db.FlushSolvingTier(); err != nil {
			t.Fatalf("FlushSolvingTier(%d): %v", tier, err)
		}
		if err := db.FreeSolvingTier(); err != nil {
			t.Fatalf("FreeSolvingTier(%d): %v", tier, err)
		}
	}

	probe := db.NewProbe()
	defer probe.Close()
	for _, tier := range tiers {
		for i := int64(0); i < 20; i++ {
			r, err := probe.ProbeRemoteness(tier, i)
			if err != nil {
				t.Fatalf("ProbeRemoteness(%d, %d): %v", tier, i, err)
			}
			want := value.Remoteness(int64(tier)*100 + i)
			if r != want {
				t.Fatalf("tier %d position %d: remoteness = %d, want %d", tier, i, r, want)
			}
		}
	}
}

func TestCheckpointSaveLoadRoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	tier := gameapi.Tier(3)
	if err := db.CreateSolvingTier(tier, 30); err != nil {
		t.Fatalf("CreateSolvingTier: %v", err)
	}
	for i := int64(0); i < 30; i++ {
		if err := db.SetValueRemoteness(i, value.Win, value.Remoteness(i)); err != nil {
			t.Fatalf("SetValueRemoteness(%d): %v", i, err)
		}
	}
	status := []byte("iteration=12")
	if !db.CheckpointExists(tier) {
		if err := db.CheckpointSave(status); err != nil {
			t.Fatalf("CheckpointSave: %v", err)
		}
	}
	if !db.CheckpointExists(tier) {
		t.Fatalf("expected checkpoint to exist after save")
	}
	if err := db.FreeSolvingTier(); err != nil {
		t.Fatalf("FreeSolvingTier: %v", err)
	}

	gotStatus, err := db.CheckpointLoad(tier, 30)
	if err != nil {
		t.Fatalf("CheckpointLoad: %v", err)
	}
	if string(gotStatus) != string(status) {
		t.Fatalf("status = %q, want %q", gotStatus, status)
	}
	for i := int64(0); i < 30; i++ {
		v, err := db.GetValue(i)
		if err != nil {
			t.Fatalf("GetValue(%d): %v", i, err)
		}
		if v != value.Win {
			t.Fatalf("position %d: value = %v, want Win", i, v)
		}
	}

	if err := db.CheckpointRemove(tier); err != nil {
		t.Fatalf("CheckpointRemove: %v", err)
	}
	if db.CheckpointExists(tier) {
		t.Fatalf("expected checkpoint to be gone after remove")
	}
}

func TestTierStatusAndGameStatus(t *testing.T) {
	db := newTestDatabase(t)
	tier := gameapi.Tier(5)

	if got := db.TierStatus(tier); got != TierStatusMissing {
		t.Fatalf("TierStatus before solving = %v, want Missing", got)
	}
	if got := db.GameStatus(); got != GameStatusIncomplete {
		t.Fatalf("GameStatus before finish = %v, want Incomplete", got)
	}

	if err := db.CreateSolvingTier(tier, 5); err != nil {
		t.Fatalf("CreateSolvingTier: %v", err)
	}
	if err := db.FlushSolvingTier(); err != nil {
		t.Fatalf("FlushSolvingTier: %v", err)
	}
	if got := db.TierStatus(tier); got != TierStatusSolved {
		t.Fatalf("TierStatus after flush = %v, want Solved", got)
	}

	if err := os.WriteFile(db.tierPath(tier), []byte("not a valid tier file"), 0o644); err != nil {
		t.Fatalf("corrupt tier file: %v", err)
	}
	if got := db.TierStatus(tier); got != TierStatusCorrupted {
		t.Fatalf("TierStatus after corruption = %v, want Corrupted", got)
	}

	if err := db.MarkFinished(); err != nil {
		t.Fatalf("MarkFinished: %v", err)
	}
	if got := db.GameStatus(); got != GameStatusSolved {
		t.Fatalf("GameStatus after finish = %v, want Solved", got)
	}
}

func TestConcurrentSolvingTierMaximizeConverges(t *testing.T) {
	db := newTestDatabase(t)
	tier := gameapi.Tier(9)
	if err := db.CreateConcurrentSolvingTier(tier, 1); err != nil {
		t.Fatalf("CreateConcurrentSolvingTier: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		i := i
		go func() {
			defer func() { done <- struct{}{} }()
			_ = db.MaximizeValueRemoteness(0, value.Lose, value.Remoteness(i), value.DefaultComparator)
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	r, err := db.GetRemoteness(0)
	if err != nil {
		t.Fatalf("GetRemoteness: %v", err)
	}
	if r != 0 {
		t.Fatalf("expected Lose remoteness to converge to the smallest candidate 0, got %d", r)
	}
}
