// Package gameapi defines the polymorphic surface the tier solver core
// consumes from a game. A game is expressed purely as a decomposition of
// its position space into tiers; the core never knows what the positions
// mean.
package gameapi

import "github.com/lox/tiersolve/sdk/value"

// Position identifies a position within a tier.
type Position int64

// Tier is an opaque label for a class of positions.
type Tier int64

// TierPosition pairs a tier with a position local to it.
type TierPosition struct {
	Tier     Tier
	Position Position
}

// Move is an opaque, game-defined move identifier.
type Move int64

// TierType classifies how a tier's internal position graph is shaped,
// which in turn selects the solving algorithm (see sdk/tierworker).
type TierType uint8

const (
	// TierTypeLoopFree tiers have no in-tier edges at all: every move
	// from a legal position in the tier lands in a different tier.
	TierTypeLoopFree TierType = iota
	// TierTypeLoopy tiers may contain cycles among their own positions.
	TierTypeLoopy
)

func (t TierType) String() string {
	switch t {
	case TierTypeLoopFree:
		return "loop-free"
	case TierTypeLoopy:
		return "loopy"
	default:
		return "unknown"
	}
}

// MaxTierName bounds the buffer a game fills in GetTierName.
const MaxTierName = 256

// Game is the required surface every game must implement. Optional
// capabilities (parent enumeration, symmetric-tier remapping) are
// expressed as separate interfaces a game may additionally satisfy; the
// worker probes for them with a type assertion rather than requiring
// every game to implement a full superset (the Go analogue of the
// source's nullable function-pointer slots).
type Game interface {
	// GetInitialTier returns the tier containing the start of the game.
	GetInitialTier() Tier
	// GetInitialPosition returns the position the game starts at, local
	// to GetInitialTier.
	GetInitialPosition() Position

	// GetTierSize returns the number of legal position hashes in tier,
	// i.e. the exclusive upper bound on Position values for that tier.
	GetTierSize(tier Tier) (int64, error)

	// GenerateMoves fills out with the legal moves from tp and returns
	// the count written. len(out) is guaranteed >= any legal move count
	// the game reports via GetNumberOfCanonicalChildPositions.
	GenerateMoves(tp TierPosition, out []Move) (int, error)

	// Primitive reports the terminal value of tp, or value.Undecided if
	// tp is not a terminal position.
	Primitive(tp TierPosition) (value.Value, error)

	// DoMove applies move to tp and returns the resulting position.
	DoMove(tp TierPosition, move Move) (TierPosition, error)

	// IsLegalPosition reports whether tp denotes a legal, reachable
	// position.
	IsLegalPosition(tp TierPosition) (bool, error)

	// GetCanonicalPosition maps tp to the representative of its
	// symmetry class (itself, if tp is already canonical).
	GetCanonicalPosition(tp TierPosition) (Position, error)

	// GetNumberOfCanonicalChildPositions returns the number of entries
	// GetCanonicalChildPositions writes for tp: one per outgoing move,
	// counting a canonical representative again each time it repeats.
	GetNumberOfCanonicalChildPositions(tp TierPosition) (int, error)

	// GetCanonicalChildPositions fills out with the canonical child
	// positions of tp (one entry per outgoing edge after symmetry
	// collapsing, which may repeat a representative) and returns the
	// count written.
	GetCanonicalChildPositions(tp TierPosition, out []TierPosition) (int, error)

	// GetChildTiers fills out with the tiers reachable in one move from
	// any position of tier and returns the count written.
	GetChildTiers(tier Tier, out []Tier) (int, error)

	// GetTierType reports which solving algorithm family tier requires.
	GetTierType(tier Tier) (TierType, error)

	// GetCanonicalTier returns tier's canonical representative tier
	// (itself, if tier is already canonical).
	GetCanonicalTier(tier Tier) (Tier, error)

	// GetTierName writes a stable, filesystem-safe name for tier into
	// buf and returns the number of bytes written. Implementations
	// without a naming scheme may write nothing or return an error; the
	// engine then falls back to a decimal rendering of tier.
	GetTierName(tier Tier, buf []byte) (int, error)
}

// ParentProvider is an optional capability: games that can enumerate a
// position's canonical parents directly avoid the on-demand reverse-graph
// build of sdk/reversegraph.
type ParentProvider interface {
	// GetCanonicalParentPositions fills out with the canonical parent
	// positions of tp that live in parentTier, and returns the count
	// written.
	GetCanonicalParentPositions(tp TierPosition, parentTier Tier, out []TierPosition) (int, error)
}

// SymmetricTierMapper is an optional capability used to canonicalize a
// position hashed in a non-canonical sibling tier back onto the
// canonical tier's hash space.
type SymmetricTierMapper interface {
	// GetPositionInSymmetricTier reexpresses tp (legal in some tier) as
	// a position of the given symmetric tier.
	GetPositionInSymmetricTier(tp TierPosition, symmetric Tier) (Position, error)
}
