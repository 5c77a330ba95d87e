package tierdb

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/lox/tiersolve/internal/fileutil"
	"github.com/lox/tiersolve/sdk/gameapi"
)

// CheckpointExists reports whether a checkpoint file is present for
// tier.
func (db *Database) CheckpointExists(tier gameapi.Tier) bool {
	_, err := os.Stat(db.checkpointPath(tier))
	return err == nil
}

// CheckpointSave persists the currently-solving tier's record array
// alongside an opaque solver status blob in a single compressed
// stream, so a crash mid-solve can resume exactly where it left off.
func (db *Database) CheckpointSave(status []byte) error {
	db.mu.Lock()
	s := db.solving
	db.mu.Unlock()
	if s == nil {
		return fmt.Errorf("tierdb: no tier is currently solving")
	}

	records, err := flatRecordBytes(s.store)
	if err != nil {
		return fmt.Errorf("tierdb: checkpoint tier %d: %w", s.tier, err)
	}

	raw := make([]byte, 0, 8+len(records)+8+len(status))
	raw = binary.LittleEndian.AppendUint64(raw, uint64(len(records)))
	raw = append(raw, records...)
	raw = binary.LittleEndian.AppendUint64(raw, uint64(len(status)))
	raw = append(raw, status...)

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("tierdb: new encoder: %w", err)
	}
	compressed := enc.EncodeAll(raw, nil)
	enc.Close()

	if err := fileutil.WriteFileAtomic(db.checkpointPath(s.tier), compressed, 0o644); err != nil {
		return fmt.Errorf("tierdb: write checkpoint for tier %d: %w", s.tier, err)
	}
	return nil
}

// CheckpointLoad restores the record array and status blob a prior
// CheckpointSave wrote for tier. If no tier is currently solving it
// creates one (single-threaded) from the checkpoint; if tier is
// already the solving tier it overwrites that tier's records in place.
func (db *Database) CheckpointLoad(tier gameapi.Tier, size int64) (status []byte, err error) {
	compressed, err := os.ReadFile(db.checkpointPath(tier))
	if err != nil {
		return nil, fmt.Errorf("tierdb: read checkpoint for tier %d: %w", tier, err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("tierdb: new decoder: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("tierdb: decompress checkpoint for tier %d: %w", tier, err)
	}

	recordBytes, statusBlob, err := splitCheckpoint(raw)
	if err != nil {
		return nil, fmt.Errorf("tierdb: checkpoint for tier %d: %w", tier, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	switch {
	case db.solving == nil:
		store, err := newBPStoreFromRecordBytes(size, recordBytes)
		if err != nil {
			return nil, err
		}
		db.solving = &solvingTierState{tier: tier, store: store}
	case db.solving.tier == tier:
		if err := restoreRecordBytes(db.solving.store, recordBytes); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("tierdb: tier %d is solving, cannot load checkpoint for tier %d", db.solving.tier, tier)
	}
	return statusBlob, nil
}

func splitCheckpoint(raw []byte) (records, status []byte, err error) {
	if len(raw) < 8 {
		return nil, nil, fmt.Errorf("truncated checkpoint")
	}
	recLen := binary.LittleEndian.Uint64(raw[:8])
	raw = raw[8:]
	if uint64(len(raw)) < recLen {
		return nil, nil, fmt.Errorf("truncated checkpoint record section")
	}
	records = raw[:recLen]
	raw = raw[recLen:]

	if len(raw) < 8 {
		return nil, nil, fmt.Errorf("missing checkpoint status section")
	}
	statusLen := binary.LittleEndian.Uint64(raw[:8])
	raw = raw[8:]
	if uint64(len(raw)) < statusLen {
		return nil, nil, fmt.Errorf("truncated checkpoint status section")
	}
	status = append([]byte(nil), raw[:statusLen]...)
	return records, status, nil
}

// CheckpointRemove deletes tier's checkpoint file, if any. A successful
// flush supersedes the checkpoint and should be followed by this call.
func (db *Database) CheckpointRemove(tier gameapi.Tier) error {
	if err := os.Remove(db.checkpointPath(tier)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("tierdb: remove checkpoint for tier %d: %w", tier, err)
	}
	return nil
}
