package tierdb

import (
	"fmt"
	"os"

	"github.com/lox/tiersolve/internal/fileutil"
	"github.com/lox/tiersolve/sdk/gameapi"
)

// TierStatus reports the on-disk state of a single tier's file.
type TierStatus uint8

const (
	TierStatusMissing TierStatus = iota
	TierStatusSolved
	TierStatusCorrupted
	TierStatusError
)

func (s TierStatus) String() string {
	switch s {
	case TierStatusMissing:
		return "missing"
	case TierStatusSolved:
		return "solved"
	case TierStatusCorrupted:
		return "corrupted"
	case TierStatusError:
		return "error"
	default:
		return fmt.Sprintf("tierstatus(%d)", uint8(s))
	}
}

// GameStatus reports the overall state of the run.
type GameStatus uint8

const (
	GameStatusIncomplete GameStatus = iota
	GameStatusSolved
	GameStatusError
)

func (s GameStatus) String() string {
	switch s {
	case GameStatusIncomplete:
		return "incomplete"
	case GameStatusSolved:
		return "solved"
	case GameStatusError:
		return "error"
	default:
		return fmt.Sprintf("gamestatus(%d)", uint8(s))
	}
}

// TierStatus inspects tier's file on disk without loading or probing
// it: Missing if absent, Corrupted if present but undecodable, Error on
// any other read failure, Solved otherwise.
func (db *Database) TierStatus(tier gameapi.Tier) TierStatus {
	raw, err := os.ReadFile(db.tierPath(tier))
	if err != nil {
		if os.IsNotExist(err) {
			return TierStatusMissing
		}
		return TierStatusError
	}
	if _, err := decodeFile(raw); err != nil {
		return TierStatusCorrupted
	}
	return TierStatusSolved
}

// MarkFinished writes the top-level sentinel file marking the whole run
// complete.
func (db *Database) MarkFinished() error {
	if err := fileutil.WriteFileAtomic(db.finishPath(), nil, 0o644); err != nil {
		return fmt.Errorf("tierdb: mark finished: %w", err)
	}
	return nil
}

func (db *Database) IsFinished() bool {
	_, err := os.Stat(db.finishPath())
	return err == nil
}

// GameStatus reports Solved once MarkFinished has run, Incomplete
// otherwise. The driver is responsible for distinguishing "still
// running" from "aborted with failures" at a higher level; this only
// reflects the finish sentinel.
func (db *Database) GameStatus() GameStatus {
	if db.IsFinished() {
		return GameStatusSolved
	}
	return GameStatusIncomplete
}
