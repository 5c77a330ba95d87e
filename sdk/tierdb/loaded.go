package tierdb

import (
	"fmt"

	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/value"
)

// LoadTier reads tier's solved file into memory for repeated read-only
// access. It is idempotent: loading an already-loaded tier is a no-op.
func (db *Database) LoadTier(tier gameapi.Tier, size int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.loaded[tier]; ok {
		return nil
	}
	arr, err := db.readTierArray(tier)
	if err != nil {
		return err
	}
	if arr.Len() != size {
		return fmt.Errorf("tierdb: tier %d has %d entries on disk, caller expected %d", tier, arr.Len(), size)
	}
	db.loaded[tier] = &loadedTier{arr: arr}
	return nil
}

// UnloadTier drops a loaded tier from memory. Unloading a tier that
// isn't loaded is a no-op.
func (db *Database) UnloadTier(tier gameapi.Tier) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.loaded, tier)
}

func (db *Database) IsTierLoaded(tier gameapi.Tier) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.loaded[tier]
	return ok
}

func (db *Database) loadedRecord(tier gameapi.Tier, pos int64) (value.Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	lt, ok := db.loaded[tier]
	if !ok {
		return 0, fmt.Errorf("tierdb: tier %d is not loaded", tier)
	}
	enc, err := lt.arr.Get(pos)
	if err != nil {
		return 0, err
	}
	return value.Record(enc), nil
}

func (db *Database) GetValueFromLoaded(tier gameapi.Tier, pos int64) (value.Value, error) {
	rec, err := db.loadedRecord(tier, pos)
	if err != nil {
		return value.Error, err
	}
	return rec.GetValue(), nil
}

func (db *Database) GetRemotenessFromLoaded(tier gameapi.Tier, pos int64) (value.Remoteness, error) {
	rec, err := db.loadedRecord(tier, pos)
	if err != nil {
		return 0, err
	}
	return rec.GetRemoteness(), nil
}
