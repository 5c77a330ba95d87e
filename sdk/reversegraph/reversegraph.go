// Package reversegraph builds an on-demand parent index for games that
// do not implement gameapi.ParentProvider: during a solving tier's
// initial scan, every canonical child edge (p -> c) is recorded as c's
// parent p, so backward induction can look up a position's canonical
// parents without the game ever computing them directly (spec.md §4.G).
package reversegraph

import (
	"encoding/binary"
	"sync"

	"github.com/dchest/siphash"

	"github.com/lox/tiersolve/sdk/gameapi"
)

// shardCount mirrors the sharded-map concurrency pattern used
// elsewhere in this codebase for high-fanout keyed stores: enough
// shards that concurrent scanners rarely contend on the same lock.
const shardCount = 64
const shardMask = shardCount - 1

// hashK0, hashK1 are fixed siphash keys. The index is process-local and
// never persisted or compared across runs, so these only need to
// disperse shards evenly, not resist adversarial input.
const hashK0, hashK1 = 0x9ae16a3b2f90404f, 0xc3a5c85c97cb3127

type key struct {
	Tier     gameapi.Tier
	Position gameapi.Position
}

func hashKey(k key) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(k.Tier))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(k.Position))
	return siphash.Hash(hashK0, hashK1, buf[:])
}

type shard struct {
	mu      sync.Mutex
	entries map[key][]gameapi.TierPosition
}

// Index maps a position to the list of its recorded canonical parents
// within the tier that built it. Queries move the list out: once
// TakeParents returns a position's parents, the index no longer holds
// them, amortizing memory across a retrograde sweep that visits each
// position's parent list exactly once.
type Index struct {
	shards [shardCount]shard
}

// New returns an empty parent index.
func New() *Index {
	idx := &Index{}
	for i := range idx.shards {
		idx.shards[i].entries = make(map[key][]gameapi.TierPosition)
	}
	return idx
}

func (idx *Index) shardFor(k key) *shard {
	return &idx.shards[hashKey(k)&shardMask]
}

// AddParent records that parent is a canonical parent of child. Called
// once per outgoing edge discovered during the solving tier's
// single-threaded initial scan (spec.md §5: "built during the
// single-threaded scan pass; read exclusively during retrograde").
func (idx *Index) AddParent(child, parent gameapi.TierPosition) {
	k := key{Tier: child.Tier, Position: child.Position}
	s := idx.shardFor(k)
	s.mu.Lock()
	s.entries[k] = append(s.entries[k], parent)
	s.mu.Unlock()
}

// TakeParents removes and returns child's recorded parent list, or nil
// if child has none recorded. The caller owns the returned slice.
func (idx *Index) TakeParents(child gameapi.TierPosition) []gameapi.TierPosition {
	k := key{Tier: child.Tier, Position: child.Position}
	s := idx.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.entries[k]
	delete(s.entries, k)
	return list
}

// Len reports the number of positions with a currently recorded parent
// list, for diagnostics and tests.
func (idx *Index) Len() int {
	total := 0
	for i := range idx.shards {
		idx.shards[i].mu.Lock()
		total += len(idx.shards[i].entries)
		idx.shards[i].mu.Unlock()
	}
	return total
}
