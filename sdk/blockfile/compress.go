// Package blockfile implements the block-compressed, random-access file
// layer used to persist one tier's records: the payload is split into
// fixed-size blocks, each compressed independently, with a lookup table
// of cumulative byte offsets enabling O(1) seek to the block holding any
// byte range without decompressing the whole file.
package blockfile

import (
	"bytes"
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
)

// CompressBlocks splits data into blocks of blockSize bytes (the final
// block may be shorter) and compresses each block independently and in
// parallel -- producers have no ordering dependency on one another, only
// on where their own output lands in the concatenated result. It
// returns the concatenated compressed payload and a lookup table of
// cumulative compressed byte offsets: block i occupies
// payload[lookup[i-1]:lookup[i]] (with an implicit lookup[-1] of 0).
func CompressBlocks(data []byte, blockSize int64) (payload []byte, lookup []uint64, err error) {
	if blockSize <= 0 {
		return nil, nil, fmt.Errorf("blockfile: block size must be positive, got %d", blockSize)
	}
	numBlocks := (int64(len(data)) + blockSize - 1) / blockSize
	if numBlocks == 0 {
		return nil, nil, nil
	}

	compressed := make([][]byte, numBlocks)
	g, _ := errgroup.WithContext(context.Background())
	for i := int64(0); i < numBlocks; i++ {
		i := i
		g.Go(func() error {
			start := i * blockSize
			end := start + blockSize
			if end > int64(len(data)) {
				end = int64(len(data))
			}
			enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
			if err != nil {
				return fmt.Errorf("blockfile: new encoder: %w", err)
			}
			defer enc.Close()
			compressed[i] = enc.EncodeAll(data[start:end], nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	lookup = make([]uint64, numBlocks)
	var total uint64
	var buf bytes.Buffer
	for i, block := range compressed {
		buf.Write(block)
		total += uint64(len(block))
		lookup[i] = total
	}
	return buf.Bytes(), lookup, nil
}

// DecompressBlock decompresses a single block identified by its index
// into the lookup table.
func DecompressBlock(payload []byte, lookup []uint64, index int) ([]byte, error) {
	if index < 0 || index >= len(lookup) {
		return nil, fmt.Errorf("blockfile: block index %d out of range [0, %d)", index, len(lookup))
	}
	start := uint64(0)
	if index > 0 {
		start = lookup[index-1]
	}
	end := lookup[index]
	if end > uint64(len(payload)) || start > end {
		return nil, fmt.Errorf("blockfile: corrupt lookup table at block %d", index)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("blockfile: new decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(payload[start:end], nil)
	if err != nil {
		return nil, fmt.Errorf("blockfile: decompress block %d: %w", index, err)
	}
	return out, nil
}
