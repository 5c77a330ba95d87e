// Package tierdb implements the persistent per-tier record store: an
// in-memory solving buffer, a block-compressed bit-perfect on-disk
// format, checkpointing for crash recovery, and read access (loaded
// tiers and probes) for already-solved tiers (spec.md §4.E).
package tierdb

import (
	"errors"
	"fmt"

	"github.com/lox/tiersolve/sdk/gameapi"
)

// Config controls where and how a Database persists tier records.
type Config struct {
	// SandboxPath is the directory tier files, checkpoints, and the
	// top-level finish sentinel live under.
	SandboxPath string

	// TargetBlockSize is the requested compression block size in
	// bytes. The database rounds it up to the nearest multiple of
	// lcm(8, bits) for whatever bit width a tier ends up packed at, so
	// no logical entry ever straddles a block boundary.
	TargetBlockSize int64

	// TierName renders a stable, filesystem-safe file name for a
	// tier. A nil TierName (or one returning ok=false) falls back to
	// a decimal rendering of the tier id.
	TierName func(gameapi.Tier) (string, bool)
}

// Validate checks the configuration is usable before a Database is
// constructed from it.
func (c Config) Validate() error {
	if c.SandboxPath == "" {
		return errors.New("tierdb: sandbox path is required")
	}
	if c.TargetBlockSize <= 0 {
		return errors.New("tierdb: target block size must be > 0")
	}
	return nil
}

// DefaultConfig returns a conservative configuration for local
// experimentation and small games.
func DefaultConfig(sandboxPath string) Config {
	return Config{
		SandboxPath:     sandboxPath,
		TargetBlockSize: 64 * 1024,
	}
}

func (c Config) tierFileStem(tier gameapi.Tier) string {
	if c.TierName != nil {
		if name, ok := c.TierName(tier); ok && name != "" {
			return name
		}
	}
	return fmt.Sprintf("%d", int64(tier))
}
