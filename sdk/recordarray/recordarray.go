// Package recordarray implements a fixed-size, position-indexed store of
// packed (value, remoteness) records: the in-memory form every tier is
// solved into before being flushed through sdk/tierdb.
package recordarray

import (
	"fmt"

	"github.com/lox/tiersolve/sdk/value"
)

// Array is a contiguous, position-indexed array of records. It is not
// safe for concurrent writers; use Atomic for multithreaded solving.
type Array struct {
	records []value.Record
}

// New allocates a zero-initialized (all Undecided) array of size
// entries.
func New(size int64) (*Array, error) {
	if size < 0 {
		return nil, fmt.Errorf("recordarray: negative size %d", size)
	}
	return &Array{records: make([]value.Record, size)}, nil
}

// Size returns the number of positions the array holds.
func (a *Array) Size() int64 {
	return int64(len(a.records))
}

func (a *Array) bounds(pos int64) error {
	if pos < 0 || pos >= int64(len(a.records)) {
		return fmt.Errorf("recordarray: position %d out of bounds [0, %d)", pos, len(a.records))
	}
	return nil
}

func (a *Array) GetValue(pos int64) (value.Value, error) {
	if err := a.bounds(pos); err != nil {
		return value.Error, err
	}
	return a.records[pos].GetValue(), nil
}

func (a *Array) GetRemoteness(pos int64) (value.Remoteness, error) {
	if err := a.bounds(pos); err != nil {
		return 0, err
	}
	return a.records[pos].GetRemoteness(), nil
}

func (a *Array) SetValue(pos int64, v value.Value) error {
	if err := a.bounds(pos); err != nil {
		return err
	}
	a.records[pos].SetValue(v)
	return nil
}

func (a *Array) SetRemoteness(pos int64, r value.Remoteness) error {
	if err := a.bounds(pos); err != nil {
		return err
	}
	a.records[pos].SetRemoteness(r)
	return nil
}

func (a *Array) SetValueRemoteness(pos int64, v value.Value, r value.Remoteness) error {
	if err := a.bounds(pos); err != nil {
		return err
	}
	a.records[pos].SetValueRemoteness(v, r)
	return nil
}

// Get returns the full record at pos.
func (a *Array) Get(pos int64) (value.Record, error) {
	if err := a.bounds(pos); err != nil {
		return 0, err
	}
	return a.records[pos], nil
}

// Set overwrites the full record at pos.
func (a *Array) Set(pos int64, rec value.Record) error {
	if err := a.bounds(pos); err != nil {
		return err
	}
	a.records[pos] = rec
	return nil
}

// SerializeStreaming copies raw record bytes starting at offset into
// out, returning the number of bytes written. Callers drive repeated
// calls with an advancing offset until 0 bytes are returned, enabling
// chunked serialization of arrays too large to materialize as one
// []byte.
func (a *Array) SerializeStreaming(offset int64, out []byte) (int, error) {
	total := int64(len(a.records)) * 2
	if offset < 0 || offset > total {
		return 0, fmt.Errorf("recordarray: offset %d out of range [0, %d]", offset, total)
	}
	remaining := total - offset
	n := int64(len(out))
	if n > remaining {
		n = remaining
	}
	for i := int64(0); i < n; i++ {
		byteIdx := offset + i
		rec := a.records[byteIdx/2]
		if byteIdx%2 == 0 {
			out[i] = byte(rec)
		} else {
			out[i] = byte(rec >> 8)
		}
	}
	return int(n), nil
}

// LoadFrom fills the array from a raw little-endian record byte stream
// of exactly Size()*2 bytes, the inverse of repeated SerializeStreaming
// calls.
func (a *Array) LoadFrom(raw []byte) error {
	want := len(a.records) * 2
	if len(raw) != want {
		return fmt.Errorf("recordarray: expected %d bytes, got %d", want, len(raw))
	}
	for i := range a.records {
		a.records[i] = value.Record(raw[2*i]) | value.Record(raw[2*i+1])<<8
	}
	return nil
}
