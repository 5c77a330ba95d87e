package tierdb

import (
	"fmt"

	"github.com/lox/tiersolve/sdk/bparray"
	"github.com/lox/tiersolve/sdk/recordarray"
	"github.com/lox/tiersolve/sdk/value"
)

// solvingStore is the narrow surface create_solving_tier's two flavors
// (bit-packed single-threaded, atomic concurrent) both satisfy, letting
// Database's solving API stay oblivious to which one is active.
type solvingStore interface {
	Size() int64
	GetValue(pos int64) (value.Value, error)
	GetRemoteness(pos int64) (value.Remoteness, error)
	SetValue(pos int64, v value.Value) error
	SetRemoteness(pos int64, r value.Remoteness) error
	SetValueRemoteness(pos int64, v value.Value, r value.Remoteness) error
	MaximizeValueRemoteness(pos int64, v value.Value, r value.Remoteness, cmp value.Comparator) error

	// packedForFlush returns the bit-perfect encoding ready for the
	// on-disk format: the dictionary's decomp table, the resulting bit
	// width, and the packed stream itself.
	packedForFlush() (decomp []int64, bits uint8, packed []byte, err error)
}

// bpStore backs create_solving_tier: single-threaded, bit-perfect.
type bpStore struct {
	arr *bparray.Array
}

func newBPStore(size int64) (*bpStore, error) {
	arr, err := bparray.New(size)
	if err != nil {
		return nil, err
	}
	return &bpStore{arr: arr}, nil
}

func (s *bpStore) Size() int64 { return s.arr.Len() }

func (s *bpStore) record(pos int64) (value.Record, error) {
	enc, err := s.arr.Get(pos)
	if err != nil {
		return 0, err
	}
	return value.Record(enc), nil
}

func (s *bpStore) GetValue(pos int64) (value.Value, error) {
	rec, err := s.record(pos)
	if err != nil {
		return value.Error, err
	}
	return rec.GetValue(), nil
}

func (s *bpStore) GetRemoteness(pos int64) (value.Remoteness, error) {
	rec, err := s.record(pos)
	if err != nil {
		return 0, err
	}
	return rec.GetRemoteness(), nil
}

func (s *bpStore) SetValue(pos int64, v value.Value) error {
	rec, err := s.record(pos)
	if err != nil {
		return err
	}
	rec.SetValue(v)
	return s.arr.Set(pos, int64(rec))
}

func (s *bpStore) SetRemoteness(pos int64, r value.Remoteness) error {
	rec, err := s.record(pos)
	if err != nil {
		return err
	}
	rec.SetRemoteness(r)
	return s.arr.Set(pos, int64(rec))
}

func (s *bpStore) SetValueRemoteness(pos int64, v value.Value, r value.Remoteness) error {
	return s.arr.Set(pos, int64(value.NewRecord(v, r)))
}

func (s *bpStore) MaximizeValueRemoteness(pos int64, v value.Value, r value.Remoteness, cmp value.Comparator) error {
	rec, err := s.record(pos)
	if err != nil {
		return err
	}
	rec.Maximize(v, r, cmp)
	return s.arr.Set(pos, int64(rec))
}

func (s *bpStore) packedForFlush() ([]int64, uint8, []byte, error) {
	return s.arr.Dict().DecompSlice(), s.arr.Bits(), s.arr.PackedBytes(), nil
}

// atomicStore backs create_concurrent_solving_tier: every slot is an
// independent value.AtomicRecord so many goroutines can publish during
// a retrograde sweep without a surrounding lock.
type atomicStore struct {
	arr *recordarray.Atomic
}

func newAtomicStore(size int64) (*atomicStore, error) {
	arr, err := recordarray.NewAtomic(size)
	if err != nil {
		return nil, err
	}
	return &atomicStore{arr: arr}, nil
}

func (s *atomicStore) Size() int64 { return s.arr.Size() }
func (s *atomicStore) GetValue(pos int64) (value.Value, error) {
	return s.arr.GetValue(pos)
}
func (s *atomicStore) GetRemoteness(pos int64) (value.Remoteness, error) {
	return s.arr.GetRemoteness(pos)
}
func (s *atomicStore) SetValue(pos int64, v value.Value) error {
	return s.arr.SetValue(pos, v)
}
func (s *atomicStore) SetRemoteness(pos int64, r value.Remoteness) error {
	return s.arr.SetRemoteness(pos, r)
}
func (s *atomicStore) SetValueRemoteness(pos int64, v value.Value, r value.Remoteness) error {
	return s.arr.SetValueRemoteness(pos, v, r)
}
func (s *atomicStore) MaximizeValueRemoteness(pos int64, v value.Value, r value.Remoteness, cmp value.Comparator) error {
	return s.arr.Maximize(pos, v, r, cmp)
}

// packedForFlush replays the atomic snapshot through a fresh bparray so
// the on-disk format is identical regardless of which store solved the
// tier.
func (s *atomicStore) packedForFlush() ([]int64, uint8, []byte, error) {
	snap := s.arr.Snapshot()
	bp, err := bparray.New(snap.Size())
	if err != nil {
		return nil, 0, nil, err
	}
	for i := int64(0); i < snap.Size(); i++ {
		rec, err := snap.Get(i)
		if err != nil {
			return nil, 0, nil, err
		}
		if rec == 0 {
			continue // Undecided is the dictionary's built-in 0 sentinel
		}
		if err := bp.Set(i, int64(rec)); err != nil {
			return nil, 0, nil, err
		}
	}
	return bp.Dict().DecompSlice(), bp.Bits(), bp.PackedBytes(), nil
}

// flatRecordBytes serializes every position's raw 2-byte record,
// little-endian, for the checkpoint format (which stores plain records
// rather than the bit-packed on-disk encoding: a checkpoint is resumed
// by the same store that is already running, so there is no benefit to
// paying the dictionary-rebuild cost twice).
func flatRecordBytes(s solvingStore) ([]byte, error) {
	n := s.Size()
	out := make([]byte, n*2)
	for i := int64(0); i < n; i++ {
		v, err := s.GetValue(i)
		if err != nil {
			return nil, err
		}
		r, err := s.GetRemoteness(i)
		if err != nil {
			return nil, err
		}
		rec := value.NewRecord(v, r)
		out[2*i] = byte(rec)
		out[2*i+1] = byte(rec >> 8)
	}
	return out, nil
}

func restoreRecordBytes(s solvingStore, raw []byte) error {
	n := s.Size()
	if int64(len(raw)) != n*2 {
		return fmt.Errorf("tierdb: checkpoint has %d record bytes, expected %d", len(raw), n*2)
	}
	for i := int64(0); i < n; i++ {
		rec := value.Record(raw[2*i]) | value.Record(raw[2*i+1])<<8
		if err := s.SetValueRemoteness(i, rec.GetValue(), rec.GetRemoteness()); err != nil {
			return err
		}
	}
	return nil
}

func newBPStoreFromRecordBytes(size int64, raw []byte) (*bpStore, error) {
	s, err := newBPStore(size)
	if err != nil {
		return nil, err
	}
	if err := restoreRecordBytes(s, raw); err != nil {
		return nil, err
	}
	return s, nil
}
