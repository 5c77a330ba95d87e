package recordarray

import (
	"fmt"

	"github.com/lox/tiersolve/sdk/value"
)

// Atomic is the concurrent-solving counterpart to Array: every slot is
// an independent AtomicRecord so many goroutines can publish to
// disjoint or even overlapping positions during a retrograde sweep
// without a surrounding lock.
type Atomic struct {
	records []value.AtomicRecord
}

// NewAtomic allocates a zero-initialized (all Undecided) atomic array.
func NewAtomic(size int64) (*Atomic, error) {
	if size < 0 {
		return nil, fmt.Errorf("recordarray: negative size %d", size)
	}
	return &Atomic{records: make([]value.AtomicRecord, size)}, nil
}

func (a *Atomic) Size() int64 {
	return int64(len(a.records))
}

func (a *Atomic) bounds(pos int64) error {
	if pos < 0 || pos >= int64(len(a.records)) {
		return fmt.Errorf("recordarray: position %d out of bounds [0, %d)", pos, len(a.records))
	}
	return nil
}

func (a *Atomic) GetValue(pos int64) (value.Value, error) {
	if err := a.bounds(pos); err != nil {
		return value.Error, err
	}
	return a.records[pos].GetValue(), nil
}

func (a *Atomic) GetRemoteness(pos int64) (value.Remoteness, error) {
	if err := a.bounds(pos); err != nil {
		return 0, err
	}
	return a.records[pos].GetRemoteness(), nil
}

func (a *Atomic) SetValue(pos int64, v value.Value) error {
	if err := a.bounds(pos); err != nil {
		return err
	}
	a.records[pos].SetValue(v)
	return nil
}

func (a *Atomic) SetRemoteness(pos int64, r value.Remoteness) error {
	if err := a.bounds(pos); err != nil {
		return err
	}
	a.records[pos].SetRemoteness(r)
	return nil
}

func (a *Atomic) SetValueRemoteness(pos int64, v value.Value, r value.Remoteness) error {
	if err := a.bounds(pos); err != nil {
		return err
	}
	a.records[pos].SetValueRemoteness(v, r)
	return nil
}

// Maximize atomically replaces the record at pos with (v, r) iff cmp
// prefers the candidate over whatever is currently stored. Two
// goroutines racing on the same position converge to whichever result
// cmp ranks higher; see value.AtomicRecord.Maximize for the memory
// model this relies on.
func (a *Atomic) Maximize(pos int64, v value.Value, r value.Remoteness, cmp value.Comparator) error {
	if err := a.bounds(pos); err != nil {
		return err
	}
	a.records[pos].Maximize(v, r, cmp)
	return nil
}

// Snapshot copies the atomic array into a plain Array, e.g. once a
// concurrent pass has reached its barrier and the result needs handing
// to the single-threaded flush path.
func (a *Atomic) Snapshot() *Array {
	out := &Array{records: make([]value.Record, len(a.records))}
	for i := range a.records {
		out.records[i] = a.records[i].Load()
	}
	return out
}
