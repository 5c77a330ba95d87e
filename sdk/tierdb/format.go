package tierdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// fileHeader is the fixed-size prefix of the on-disk per-tier format
// (spec.md §6, "On-disk format").
type fileHeader struct {
	DecompDictSize uint32 // bytes; DecompDictSize/4 gives the entry count
	BlockSize      uint64
	LookupSize     uint64 // number of blocks
	StreamLen      uint64 // packed bit-stream length in bytes, uncompressed
	NumEntries     uint64
	BitsPerEntry   uint8
}

const headerSize = 4 + 8 + 8 + 8 + 8 + 1

func encodeHeader(h fileHeader) []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.DecompDictSize)
	binary.LittleEndian.PutUint64(buf[4:12], h.BlockSize)
	binary.LittleEndian.PutUint64(buf[12:20], h.LookupSize)
	binary.LittleEndian.PutUint64(buf[20:28], h.StreamLen)
	binary.LittleEndian.PutUint64(buf[28:36], h.NumEntries)
	buf[36] = h.BitsPerEntry
	return buf
}

func decodeHeader(buf []byte) (fileHeader, error) {
	if len(buf) < headerSize {
		return fileHeader{}, fmt.Errorf("tierdb: truncated header (%d bytes)", len(buf))
	}
	var h fileHeader
	h.DecompDictSize = binary.LittleEndian.Uint32(buf[0:4])
	h.BlockSize = binary.LittleEndian.Uint64(buf[4:12])
	h.LookupSize = binary.LittleEndian.Uint64(buf[12:20])
	h.StreamLen = binary.LittleEndian.Uint64(buf[20:28])
	h.NumEntries = binary.LittleEndian.Uint64(buf[28:36])
	h.BitsPerEntry = buf[36]
	return h, nil
}

// decodedFile is the parsed form of a per-tier file: header fields plus
// slices pointing into (or copied out of) the raw bytes.
type decodedFile struct {
	Decomp       []int64
	BlockSize    uint64
	Lookup       []uint64
	StreamLen    uint64
	NumEntries   uint64
	BitsPerEntry uint8
	Payload      []byte
}

// encodeFile assembles the full on-disk layout: header, decomp
// dictionary (one i32 per encoded value), block-lookup table, then the
// concatenated compressed blocks.
func encodeFile(decomp []int64, blockSize uint64, lookup []uint64, streamLen, numEntries uint64, bits uint8, payload []byte) ([]byte, error) {
	if len(decomp) > int((^uint32(0))/4) {
		return nil, fmt.Errorf("tierdb: decomp dictionary too large (%d entries)", len(decomp))
	}
	h := fileHeader{
		DecompDictSize: uint32(len(decomp)) * 4,
		BlockSize:      blockSize,
		LookupSize:     uint64(len(lookup)),
		StreamLen:      streamLen,
		NumEntries:     numEntries,
		BitsPerEntry:   bits,
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(decomp)*4 + len(lookup)*8 + len(payload))
	buf.Write(encodeHeader(h))
	var tmp4 [4]byte
	for _, v := range decomp {
		binary.LittleEndian.PutUint32(tmp4[:], uint32(int32(v)))
		buf.Write(tmp4[:])
	}
	var tmp8 [8]byte
	for _, off := range lookup {
		binary.LittleEndian.PutUint64(tmp8[:], off)
		buf.Write(tmp8[:])
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

func decodeFile(raw []byte) (*decodedFile, error) {
	h, err := decodeHeader(raw)
	if err != nil {
		return nil, err
	}
	off := headerSize
	numDictEntries := int(h.DecompDictSize / 4)
	if off+numDictEntries*4 > len(raw) {
		return nil, fmt.Errorf("tierdb: truncated decomp dictionary")
	}
	decomp := make([]int64, numDictEntries)
	for i := 0; i < numDictEntries; i++ {
		v := int32(binary.LittleEndian.Uint32(raw[off : off+4]))
		decomp[i] = int64(v)
		off += 4
	}

	lookupBytes := int(h.LookupSize) * 8
	if off+lookupBytes > len(raw) {
		return nil, fmt.Errorf("tierdb: truncated block lookup table")
	}
	lookup := make([]uint64, h.LookupSize)
	for i := range lookup {
		lookup[i] = binary.LittleEndian.Uint64(raw[off : off+8])
		off += 8
	}

	return &decodedFile{
		Decomp:       decomp,
		BlockSize:    h.BlockSize,
		Lookup:       lookup,
		StreamLen:    h.StreamLen,
		NumEntries:   h.NumEntries,
		BitsPerEntry: h.BitsPerEntry,
		Payload:      raw[off:],
	}, nil
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}

// alignedBlockSizeBytes rounds target up to the nearest multiple of a
// unit size that keeps block boundaries on entry boundaries: block size
// in bits (blockBytes*8) must be a multiple of bits so no logical entry
// straddles two blocks.
func alignedBlockSizeBytes(target int64, bits uint8) int64 {
	bitsPerUnit := lcm(8, uint64(bits))
	unitBytes := int64(bitsPerUnit / 8)
	if unitBytes <= 0 {
		unitBytes = 1
	}
	units := (target + unitBytes - 1) / unitBytes
	if units < 1 {
		units = 1
	}
	return units * unitBytes
}
