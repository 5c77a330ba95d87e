// Package bparray implements the bit-perfect array: an adaptive,
// bit-packed array of logical values backed by a value-remap dictionary
// that lazily widens the array's per-entry bit count as new distinct
// values are first seen (spec.md §4.C).
package bparray

import "fmt"

// maxDictCapacity mirrors spec.md's cap of (INT32_MAX-1)/2+1 entries for
// either dictionary array, which keeps geometric growth from overflowing
// a signed 32-bit length on any platform.
const maxDictCapacity = (1<<31-1-1)/2 + 1

// Dict maps logical values (small non-negative integers, typically a
// packed value.Record) to compact encoded values and back. Entry 0 is
// always the 0<->0 Undecided sentinel.
type Dict struct {
	comp   []int64 // key -> encoded, or -1 if unseen
	decomp []int64 // encoded -> key
	next   int64   // next encoded value to hand out
}

// NewDict returns a dictionary with only the mandatory 0<->0 entry.
func NewDict() *Dict {
	d := &Dict{
		comp:   make([]int64, 1),
		decomp: make([]int64, 1),
		next:   1,
	}
	d.comp[0] = 0
	d.decomp[0] = 0
	return d
}

// Get returns the encoded value for key, or -1 if key has never been
// set.
func (d *Dict) Get(key int64) int64 {
	if key < 0 || key >= int64(len(d.comp)) {
		return -1
	}
	return d.comp[key]
}

// Decode returns the logical key for an encoded value. encoded must have
// been produced by a prior Set/Get pair; callers in bparray always pass
// a value extracted from the packed bit stream, which is always valid.
func (d *Dict) Decode(encoded int64) int64 {
	return d.decomp[encoded]
}

// Set assigns the next available encoded value to key if it is unseen.
// It is a no-op if key is already present.
func (d *Dict) Set(key int64) error {
	if key < 0 {
		return fmt.Errorf("bpdict: negative key %d", key)
	}
	d.growComp(key)
	if d.comp[key] != -1 {
		return nil
	}
	d.growDecomp(d.next)
	encoded := d.next
	d.comp[key] = encoded
	d.decomp[encoded] = key
	d.next++
	return nil
}

func (d *Dict) growComp(minIndex int64) {
	if minIndex < int64(len(d.comp)) {
		return
	}
	newCap := nextCapacity(int64(len(d.comp)), minIndex+1)
	grown := make([]int64, newCap)
	copy(grown, d.comp)
	for i := len(d.comp); i < len(grown); i++ {
		grown[i] = -1
	}
	d.comp = grown
}

func (d *Dict) growDecomp(minIndex int64) {
	if minIndex < int64(len(d.decomp)) {
		return
	}
	newCap := nextCapacity(int64(len(d.decomp)), minIndex+1)
	grown := make([]int64, newCap)
	copy(grown, d.decomp)
	d.decomp = grown
}

// nextCapacity doubles cur until it covers need, capped at
// maxDictCapacity.
func nextCapacity(cur, need int64) int64 {
	if cur == 0 {
		cur = 1
	}
	for cur < need {
		if cur >= maxDictCapacity {
			return maxDictCapacity
		}
		doubled := cur * 2
		if doubled > maxDictCapacity || doubled <= cur {
			return maxDictCapacity
		}
		cur = doubled
	}
	return cur
}

// Size returns the number of distinct logical values stored.
func (d *Dict) Size() int64 {
	return d.next
}

// DecompSlice returns the decomp[encoded]->key table truncated to the
// entries actually in use, the form persisted on disk as the on-disk
// format's decomp_dict.
func (d *Dict) DecompSlice() []int64 {
	return append([]int64(nil), d.decomp[:d.next]...)
}

// dictFromDecomp rebuilds a read-only Dict from a persisted decomp
// table. The comp side is left empty: loaded, read-only bit-perfect
// arrays only ever call Decode, never Get/Set by logical value.
func dictFromDecomp(decomp []int64) *Dict {
	return &Dict{decomp: decomp, next: int64(len(decomp))}
}
