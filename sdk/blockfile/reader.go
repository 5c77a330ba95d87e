package blockfile

import (
	"fmt"

	lru "github.com/opencoff/golang-lru"
)

// defaultBlockCacheSize bounds how many decompressed blocks a Reader
// keeps resident. Probes only ever touch one or two blocks at a time in
// practice (spec.md: "serves reads from it until the next request
// crosses the block boundary"), so a small cache absorbs the common
// case of sequential or clustered access without unbounded growth.
const defaultBlockCacheSize = 8

// Reader serves random-access byte ranges out of a block-compressed
// payload, decompressing blocks on demand and caching the results.
type Reader struct {
	payload   []byte
	lookup    []uint64
	blockSize int64
	dataLen   int64
	cache     *lru.Cache
}

// NewReader wraps a compressed payload and its lookup table for random
// access. dataLen is the length of the original uncompressed stream
// (needed to bound the final, possibly short, block).
func NewReader(payload []byte, lookup []uint64, blockSize, dataLen int64) (*Reader, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("blockfile: block size must be positive, got %d", blockSize)
	}
	cache, err := lru.New(defaultBlockCacheSize)
	if err != nil {
		return nil, fmt.Errorf("blockfile: new cache: %w", err)
	}
	return &Reader{payload: payload, lookup: lookup, blockSize: blockSize, dataLen: dataLen, cache: cache}, nil
}

func (r *Reader) blockFor(byteOffset int64) int {
	return int(byteOffset / r.blockSize)
}

func (r *Reader) block(index int) ([]byte, error) {
	if cached, ok := r.cache.Get(index); ok {
		return cached.([]byte), nil
	}
	data, err := DecompressBlock(r.payload, r.lookup, index)
	if err != nil {
		return nil, err
	}
	r.cache.Add(index, data)
	return data, nil
}

// ReadRange returns the [start, end) byte span of the logical
// uncompressed stream, stitching together as many blocks as the range
// spans (normally one, occasionally two at a boundary).
func (r *Reader) ReadRange(start, end int64) ([]byte, error) {
	if start < 0 || end > r.dataLen || start > end {
		return nil, fmt.Errorf("blockfile: range [%d, %d) out of bounds [0, %d)", start, end, r.dataLen)
	}
	if start == end {
		return nil, nil
	}
	out := make([]byte, 0, end-start)
	for pos := start; pos < end; {
		idx := r.blockFor(pos)
		blockData, err := r.block(idx)
		if err != nil {
			return nil, err
		}
		blockStart := int64(idx) * r.blockSize
		localStart := pos - blockStart
		localEnd := end - blockStart
		if localEnd > int64(len(blockData)) {
			localEnd = int64(len(blockData))
		}
		if localStart >= int64(len(blockData)) {
			return nil, fmt.Errorf("blockfile: corrupt block %d: too short for offset %d", idx, pos)
		}
		out = append(out, blockData[localStart:localEnd]...)
		pos = blockStart + localEnd
	}
	return out, nil
}

// NumBlocks returns the number of compressed blocks.
func (r *Reader) NumBlocks() int { return len(r.lookup) }
