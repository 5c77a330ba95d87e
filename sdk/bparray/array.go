package bparray

import (
	"context"
	"encoding/binary"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// trailingBytes is the padding appended after the packed bit stream so
// that reading the 8-byte window starting at any entry's byte offset
// never runs off the end of the slice. spec.md calls this out as a
// deliberate branch-free trick for the hot retrograde-sweep read path;
// an equivalent per-entry-shift implementation would be 2-3x slower.
const trailingBytes = 8

const maxBits = 31

// Array is a dense array of N logical values, each stored in the
// minimum number of bits the dictionary has needed so far. Width grows
// monotonically (by one bit at a time) when a new distinct logical
// value's encoding no longer fits in the current width.
type Array struct {
	dict   *Dict
	n      int64
	bits   uint8
	stream []byte
}

// New allocates a bit-perfect array of n entries, all initially decoding
// to the logical value 0 (the Undecided sentinel).
func New(n int64) (*Array, error) {
	if n < 0 {
		return nil, fmt.Errorf("bparray: negative length %d", n)
	}
	a := &Array{dict: NewDict(), n: n, bits: 1}
	a.stream = make([]byte, a.streamLen())
	return a, nil
}

// Len returns the number of logical entries.
func (a *Array) Len() int64 { return a.n }

// Bits returns the current per-entry bit width.
func (a *Array) Bits() uint8 { return a.bits }

// PackedStreamLen returns the number of bytes the packed stream occupies
// on disk, excluding the trailing read-ahead padding.
func (a *Array) PackedStreamLen() int64 {
	return (a.n*int64(a.bits) + 7) / 8
}

// PackedBytes returns the packed bit stream with the trailing read-ahead
// padding trimmed off, the form persisted to disk.
func (a *Array) PackedBytes() []byte {
	return a.stream[:a.PackedStreamLen()]
}

// Dict exposes the backing dictionary so callers can persist its
// decomp table alongside the packed stream.
func (a *Array) Dict() *Dict { return a.dict }

// LoadReadOnly reconstructs an Array from a persisted packed stream and
// decomp table. The result supports Get but not Set: a loaded tier is
// never written back to, only queried.
func LoadReadOnly(n int64, bits uint8, decomp []int64, packed []byte) (*Array, error) {
	if n < 0 {
		return nil, fmt.Errorf("bparray: negative length %d", n)
	}
	a := &Array{dict: dictFromDecomp(decomp), n: n, bits: bits}
	a.stream = make([]byte, a.streamLen())
	copy(a.stream, packed)
	return a, nil
}

func (a *Array) streamLen() int64 {
	totalBits := a.n * int64(a.bits)
	return (totalBits+7)/8 + trailingBytes
}

func (a *Array) bounds(i int64) error {
	if i < 0 || i >= a.n {
		return fmt.Errorf("bparray: index %d out of bounds [0, %d)", i, a.n)
	}
	return nil
}

// readSegment loads the aligned 64-bit window covering entry i.
func (a *Array) readSegment(i int64) (segment uint64, byteOff int64, local uint8) {
	off := i * int64(a.bits)
	byteOff = off / 8
	local = uint8(off % 8)
	segment = binary.LittleEndian.Uint64(a.stream[byteOff : byteOff+8])
	return
}

// Get returns the logical value stored at i.
func (a *Array) Get(i int64) (int64, error) {
	if err := a.bounds(i); err != nil {
		return 0, err
	}
	segment, _, local := a.readSegment(i)
	mask := uint64(1)<<a.bits - 1
	encoded := (segment >> local) & mask
	return a.dict.Decode(int64(encoded)), nil
}

// Set stores value at i, widening the array if value has never been
// encoded in the current bit width.
func (a *Array) Set(i int64, value int64) error {
	if err := a.bounds(i); err != nil {
		return err
	}
	encoded := a.dict.Get(value)
	if encoded == -1 {
		if err := a.dict.Set(value); err != nil {
			return err
		}
		encoded = a.dict.Get(value)
	}
	for encoded >= int64(1)<<a.bits {
		if err := a.expand(); err != nil {
			return err
		}
	}
	a.writeEncoded(i, encoded)
	return nil
}

func (a *Array) writeEncoded(i, encoded int64) {
	segment, byteOff, local := a.readSegment(i)
	mask := uint64(1)<<a.bits - 1
	segment &^= mask << local
	segment |= (uint64(encoded) & mask) << local
	binary.LittleEndian.PutUint64(a.stream[byteOff:byteOff+8], segment)
}

// setBitsLocal ORs the low width bits of val into buf starting at
// bitOffset. Unlike writeEncoded's aligned 64-bit window, this touches
// only the bytes the bits actually land in, which is what lets expand
// hand disjoint byte ranges to concurrent goroutines without a race.
func setBitsLocal(buf []byte, bitOffset int, width uint8, val uint64) {
	for b := uint8(0); b < width; b++ {
		if val&(1<<b) != 0 {
			pos := bitOffset + int(b)
			buf[pos/8] |= 1 << uint(pos%8)
		}
	}
}

// expand widens the array by one bit, re-laying out every entry into a
// new stream. Entries are grouped into chunks of 8: because a chunk's
// bit span is always a whole number of bytes at any width (8*b bits is
// always byte-aligned), chunks never share a byte in the destination
// stream and can be built fully in parallel, each writing into its own
// private byte range. Within a chunk entries are folded into a small
// local buffer sequentially, matching spec.md's "sequential within a
// chunk, parallel across chunks" expansion rule.
func (a *Array) expand() error {
	if a.bits >= maxBits {
		return fmt.Errorf("bparray: cannot expand past %d bits", maxBits)
	}
	oldBits := a.bits
	newBits := oldBits + 1

	newArr := &Array{dict: a.dict, n: a.n, bits: newBits}
	newArr.stream = make([]byte, newArr.streamLen())

	const chunkEntries = 8
	numChunks := (a.n + chunkEntries - 1) / chunkEntries

	g, _ := errgroup.WithContext(context.Background())
	for c := int64(0); c < numChunks; c++ {
		c := c
		g.Go(func() error {
			start := c * chunkEntries
			end := start + chunkEntries
			if end > a.n {
				end = a.n
			}
			count := end - start
			spanBytes := (count*int64(newBits) + 7) / 8
			local := make([]byte, spanBytes)

			oldMask := uint64(1)<<oldBits - 1
			for idx := int64(0); idx < count; idx++ {
				i := start + idx
				segment, _, localOld := a.readSegment(i)
				encoded := (segment >> localOld) & oldMask
				setBitsLocal(local, int(idx)*int(newBits), newBits, encoded)
			}

			chunkByteStart := c * int64(newBits)
			copy(newArr.stream[chunkByteStart:chunkByteStart+spanBytes], local)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	a.bits = newArr.bits
	a.stream = newArr.stream
	return nil
}
