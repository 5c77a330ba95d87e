package tierdb

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lox/tiersolve/internal/fileutil"
	"github.com/lox/tiersolve/sdk/blockfile"
	"github.com/lox/tiersolve/sdk/bparray"
	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/value"
)

const (
	tierFileSuffix   = ".adb.zst"
	checkpointSuffix = tierFileSuffix + ".chk"
	finishFileName   = ".finish"
)

type solvingTierState struct {
	tier  gameapi.Tier
	store solvingStore
}

type loadedTier struct {
	arr *bparray.Array
}

// Database is the persistent per-tier record store. At most one tier
// may be in the solving state at a time; any number of already-solved
// tiers may additionally be loaded read-only, or probed on demand.
type Database struct {
	cfg    Config
	logger zerolog.Logger

	mu      sync.Mutex
	solving *solvingTierState
	loaded  map[gameapi.Tier]*loadedTier
}

// NewDatabase prepares the sandbox directory and returns an empty
// Database.
func NewDatabase(cfg Config, logger zerolog.Logger) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.SandboxPath, 0o755); err != nil {
		return nil, fmt.Errorf("tierdb: create sandbox %q: %w", cfg.SandboxPath, err)
	}
	return &Database{
		cfg:    cfg,
		logger: logger.With().Str("component", "tierdb").Logger(),
		loaded: make(map[gameapi.Tier]*loadedTier),
	}, nil
}

func (db *Database) tierPath(tier gameapi.Tier) string {
	return filepath.Join(db.cfg.SandboxPath, db.cfg.tierFileStem(tier)+tierFileSuffix)
}

func (db *Database) checkpointPath(tier gameapi.Tier) string {
	return filepath.Join(db.cfg.SandboxPath, db.cfg.tierFileStem(tier)+checkpointSuffix)
}

func (db *Database) finishPath() string {
	return filepath.Join(db.cfg.SandboxPath, finishFileName)
}

// CreateSolvingTier starts single-threaded, bit-perfect solving of
// tier. It fails if another tier is already solving.
func (db *Database) CreateSolvingTier(tier gameapi.Tier, size int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.solving != nil {
		return fmt.Errorf("tierdb: tier %d is already solving", db.solving.tier)
	}
	store, err := newBPStore(size)
	if err != nil {
		return err
	}
	db.solving = &solvingTierState{tier: tier, store: store}
	return nil
}

// CreateConcurrentSolvingTier is CreateSolvingTier's concurrent
// counterpart: the backing store is an atomic record array, letting
// many goroutines publish results to the same tier without a lock.
func (db *Database) CreateConcurrentSolvingTier(tier gameapi.Tier, size int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.solving != nil {
		return fmt.Errorf("tierdb: tier %d is already solving", db.solving.tier)
	}
	store, err := newAtomicStore(size)
	if err != nil {
		return err
	}
	db.solving = &solvingTierState{tier: tier, store: store}
	return nil
}

func (db *Database) requireSolvingLocked() (*solvingTierState, error) {
	if db.solving == nil {
		return nil, fmt.Errorf("tierdb: no tier is currently solving")
	}
	return db.solving, nil
}

func (db *Database) SetValue(pos int64, v value.Value) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, err := db.requireSolvingLocked()
	if err != nil {
		return err
	}
	return s.store.SetValue(pos, v)
}

func (db *Database) SetRemoteness(pos int64, r value.Remoteness) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, err := db.requireSolvingLocked()
	if err != nil {
		return err
	}
	return s.store.SetRemoteness(pos, r)
}

func (db *Database) SetValueRemoteness(pos int64, v value.Value, r value.Remoteness) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, err := db.requireSolvingLocked()
	if err != nil {
		return err
	}
	return s.store.SetValueRemoteness(pos, v, r)
}

// MaximizeValueRemoteness replaces the solving tier's record at pos
// with (v, r) iff cmp prefers the candidate over the incumbent. It is
// the only mutator safe to call concurrently when the tier was created
// with CreateConcurrentSolvingTier.
func (db *Database) MaximizeValueRemoteness(pos int64, v value.Value, r value.Remoteness, cmp value.Comparator) error {
	db.mu.Lock()
	s, err := db.requireSolvingLocked()
	db.mu.Unlock()
	if err != nil {
		return err
	}
	// The store itself (bpStore excepted) is safe for unlocked
	// concurrent access; holding db.mu across every Maximize call
	// would serialize the whole point of the concurrent store.
	return s.store.MaximizeValueRemoteness(pos, v, r, cmp)
}

func (db *Database) GetValue(pos int64) (value.Value, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, err := db.requireSolvingLocked()
	if err != nil {
		return value.Error, err
	}
	return s.store.GetValue(pos)
}

func (db *Database) GetRemoteness(pos int64) (value.Remoteness, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, err := db.requireSolvingLocked()
	if err != nil {
		return 0, err
	}
	return s.store.GetRemoteness(pos)
}

// FlushSolvingTier packs and block-compresses the solving tier's
// records and atomically writes them to its per-tier file. The tier
// remains in the solving state; call FreeSolvingTier to release it.
func (db *Database) FlushSolvingTier() error {
	db.mu.Lock()
	s := db.solving
	db.mu.Unlock()
	if s == nil {
		return fmt.Errorf("tierdb: no tier is currently solving")
	}
	if err := db.writeTierFile(s.tier, s.store); err != nil {
		return err
	}
	db.logger.Info().Int64("tier", int64(s.tier)).Msg("flushed solving tier")
	return nil
}

func (db *Database) writeTierFile(tier gameapi.Tier, store solvingStore) error {
	decomp, bits, packed, err := store.packedForFlush()
	if err != nil {
		return fmt.Errorf("tierdb: pack tier %d: %w", tier, err)
	}
	blockSize := alignedBlockSizeBytes(db.cfg.TargetBlockSize, bits)
	payload, lookup, err := blockfile.CompressBlocks(packed, blockSize)
	if err != nil {
		return fmt.Errorf("tierdb: compress tier %d: %w", tier, err)
	}
	raw, err := encodeFile(decomp, uint64(blockSize), lookup, uint64(len(packed)), uint64(store.Size()), bits, payload)
	if err != nil {
		return fmt.Errorf("tierdb: encode tier %d: %w", tier, err)
	}
	if err := fileutil.WriteFileAtomic(db.tierPath(tier), raw, 0o644); err != nil {
		return fmt.Errorf("tierdb: write tier %d: %w", tier, err)
	}
	return nil
}

// FreeSolvingTier releases the solving tier, whether or not it was
// flushed, so a different tier can start solving.
func (db *Database) FreeSolvingTier() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.solving == nil {
		return fmt.Errorf("tierdb: no tier is currently solving")
	}
	db.solving = nil
	return nil
}

// readTierArray loads and decodes a solved tier's file fully into
// memory as a read-only bit-perfect array. Used by both LoadTier and
// Probe, which differ only in how long they keep the result around.
func (db *Database) readTierArray(tier gameapi.Tier) (*bparray.Array, error) {
	raw, err := os.ReadFile(db.tierPath(tier))
	if err != nil {
		return nil, fmt.Errorf("tierdb: read tier %d: %w", tier, err)
	}
	decoded, err := decodeFile(raw)
	if err != nil {
		return nil, fmt.Errorf("tierdb: corrupt tier %d: %w", tier, err)
	}
	reader, err := blockfile.NewReader(decoded.Payload, decoded.Lookup, int64(decoded.BlockSize), int64(decoded.StreamLen))
	if err != nil {
		return nil, fmt.Errorf("tierdb: corrupt tier %d: %w", tier, err)
	}
	packed, err := reader.ReadRange(0, int64(decoded.StreamLen))
	if err != nil {
		return nil, fmt.Errorf("tierdb: corrupt tier %d: %w", tier, err)
	}
	return bparray.LoadReadOnly(int64(decoded.NumEntries), decoded.BitsPerEntry, decoded.Decomp, packed)
}
