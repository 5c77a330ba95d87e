package reversegraph

import (
	"sync"
	"testing"

	"github.com/lox/tiersolve/sdk/gameapi"
)

func tp(tier, pos int64) gameapi.TierPosition {
	return gameapi.TierPosition{Tier: gameapi.Tier(tier), Position: gameapi.Position(pos)}
}

func TestAddParentTakeParentsRoundTrip(t *testing.T) {
	idx := New()
	child := tp(1, 5)
	idx.AddParent(child, tp(0, 1))
	idx.AddParent(child, tp(0, 2))
	idx.AddParent(child, tp(0, 3))

	got := idx.TakeParents(child)
	if len(got) != 3 {
		t.Fatalf("TakeParents returned %d entries, want 3", len(got))
	}
}

func TestTakeParentsIsDestructive(t *testing.T) {
	idx := New()
	child := tp(2, 7)
	idx.AddParent(child, tp(1, 1))

	first := idx.TakeParents(child)
	if len(first) != 1 {
		t.Fatalf("expected one parent on first take, got %d", len(first))
	}
	second := idx.TakeParents(child)
	if len(second) != 0 {
		t.Fatalf("expected empty parent list on second take, got %d entries", len(second))
	}
}

func TestTakeParentsOnUnknownPositionReturnsEmpty(t *testing.T) {
	idx := New()
	if got := idx.TakeParents(tp(9, 9)); len(got) != 0 {
		t.Fatalf("expected no parents for an unseen position, got %d", len(got))
	}
}

func TestLenTracksDistinctPositions(t *testing.T) {
	idx := New()
	idx.AddParent(tp(1, 1), tp(0, 0))
	idx.AddParent(tp(1, 2), tp(0, 0))
	idx.AddParent(tp(1, 1), tp(0, 1)) // same child again, not a new position

	if idx.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", idx.Len())
	}
	idx.TakeParents(tp(1, 1))
	if idx.Len() != 1 {
		t.Fatalf("Len() after consuming one position = %d, want 1", idx.Len())
	}
}

func TestAddParentConcurrentFromManyGoroutines(t *testing.T) {
	idx := New()
	child := tp(3, 3)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx.AddParent(child, tp(2, int64(i)))
		}()
	}
	wg.Wait()

	got := idx.TakeParents(child)
	if len(got) != 200 {
		t.Fatalf("TakeParents returned %d entries, want 200", len(got))
	}
}
