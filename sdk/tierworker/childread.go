package tierworker

import (
	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/solverr"
	"github.com/lox/tiersolve/sdk/tierdb"
	"github.com/lox/tiersolve/sdk/value"
)

// resolveExternalChild reads a child position's record from an
// already-loaded tier, remapping through the child's canonical tier
// first if needed: only a tier's canonical representative is ever
// solved and written to disk, so a move landing in a non-canonical
// sibling tier must be re-hashed into the canonical tier's position
// space via the game's optional SymmetricTierMapper before the lookup
// (spec.md §6's "non-canonical child tiers are read from their
// canonical sibling" rule).
func resolveExternalChild(game gameapi.Game, db *tierdb.Database, child gameapi.TierPosition) (value.Value, value.Remoteness, error) {
	canon, err := game.GetCanonicalTier(child.Tier)
	if err != nil {
		return value.Error, 0, solverr.Wrap(solverr.KindArgument, err)
	}

	pos := child.Position
	if canon != child.Tier {
		mapper, ok := game.(gameapi.SymmetricTierMapper)
		if !ok {
			return value.Error, 0, solverr.Wrapf(solverr.KindNotImplemented,
				"tier %d: position in non-canonical tier %d needs a SymmetricTierMapper", canon, child.Tier)
		}
		pos, err = mapper.GetPositionInSymmetricTier(child, canon)
		if err != nil {
			return value.Error, 0, solverr.Wrap(solverr.KindArgument, err)
		}
	}

	v, err := db.GetValueFromLoaded(canon, int64(pos))
	if err != nil {
		return value.Error, 0, solverr.Wrap(solverr.KindIO, err)
	}
	r, err := db.GetRemotenessFromLoaded(canon, int64(pos))
	if err != nil {
		return value.Error, 0, solverr.Wrap(solverr.KindIO, err)
	}
	return v, r, nil
}

// canonicalizeChildTiers maps tiers to their canonical representatives
// and deduplicates, since only canonical tiers ever have an on-disk
// file to load.
func canonicalizeChildTiers(game gameapi.Game, tiers []gameapi.Tier) ([]gameapi.Tier, error) {
	seen := make(map[gameapi.Tier]bool, len(tiers))
	out := make([]gameapi.Tier, 0, len(tiers))
	for _, t := range tiers {
		canon, err := game.GetCanonicalTier(t)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindArgument, err)
		}
		if seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, canon)
	}
	return out, nil
}
