package value

import (
	"sync"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	for _, v := range []Value{Win, Lose, Tie, Draw} {
		for _, r := range []Remoteness{0, 1, 4095} {
			rec := NewRecord(v, r)
			if got := rec.GetValue(); got != v {
				t.Fatalf("value round trip: got %v want %v", got, v)
			}
			if got := rec.GetRemoteness(); got != r {
				t.Fatalf("remoteness round trip: got %v want %v", got, r)
			}
		}
	}
}

func TestRecordZeroValueIsUndecided(t *testing.T) {
	var rec Record
	if rec.GetValue() != Undecided {
		t.Fatalf("zero Record should be Undecided, got %v", rec.GetValue())
	}
}

func TestRecordSetValuePreservesRemoteness(t *testing.T) {
	rec := NewRecord(Win, 7)
	rec.SetValue(Lose)
	if rec.GetRemoteness() != 7 {
		t.Fatalf("expected remoteness preserved, got %v", rec.GetRemoteness())
	}
	if rec.GetValue() != Lose {
		t.Fatalf("expected value Lose, got %v", rec.GetValue())
	}
}

func TestRecordMaximizeReplacesOnlyWhenBetter(t *testing.T) {
	rec := NewRecord(Win, 3)
	rec.Maximize(Win, 5, DefaultComparator) // larger remoteness wins for Win
	if rec.GetRemoteness() != 5 {
		t.Fatalf("expected maximize to take larger remoteness, got %v", rec.GetRemoteness())
	}
	rec.Maximize(Win, 2, DefaultComparator) // should not regress
	if rec.GetRemoteness() != 5 {
		t.Fatalf("expected maximize to keep larger remoteness, got %v", rec.GetRemoteness())
	}
	rec.Maximize(Lose, 1, DefaultComparator) // Lose beats Win regardless of remoteness
	if rec.GetValue() != Lose || rec.GetRemoteness() != 1 {
		t.Fatalf("expected Lose/1 after maximize, got %v/%v", rec.GetValue(), rec.GetRemoteness())
	}
}

func TestPrimitiveComparatorTieBreaks(t *testing.T) {
	cases := []struct {
		name                       string
		v1                         Value
		r1                         Remoteness
		v2                         Value
		r2                         Remoteness
		firstBeatsSecond           bool
	}{
		{"lose beats tie", Lose, 9, Tie, 0, true},
		{"tie beats draw", Tie, 0, Draw, 0, true},
		{"draw beats win", Draw, 0, Win, 9, true},
		{"lose prefers smaller remoteness", Lose, 1, Lose, 3, true},
		{"win prefers larger remoteness", Win, 5, Win, 2, true},
		{"tie prefers larger remoteness", Tie, 5, Tie, 2, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Less(c.v2, c.r2, c.v1, c.r1)
			if got != c.firstBeatsSecond {
				t.Fatalf("Less(%v/%v better than %v/%v) = %v, want %v", c.v1, c.r1, c.v2, c.r2, got, c.firstBeatsSecond)
			}
		})
	}
}

func TestAtomicRecordMaximizeConverges(t *testing.T) {
	var rec AtomicRecord
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		r := Remoteness(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Maximize(Win, r, DefaultComparator)
		}()
	}
	wg.Wait()
	if got := rec.GetRemoteness(); got != 49 {
		t.Fatalf("expected convergence to largest remoteness 49, got %v", got)
	}
	if rec.GetValue() != Win {
		t.Fatalf("expected Win, got %v", rec.GetValue())
	}
}
