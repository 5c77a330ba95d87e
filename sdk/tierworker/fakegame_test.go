package tierworker

import (
	"fmt"

	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/value"
)

// fakeGame is a graph described directly by adjacency lists, used to
// drive every algorithm under test without needing a real game like
// tic-tac-toe wired up. Every position is implicitly legal and
// canonical: no symmetry collapsing.
type fakeGame struct {
	tierSize  map[gameapi.Tier]int64
	tierType  map[gameapi.Tier]gameapi.TierType
	primitive map[gameapi.TierPosition]value.Value
	moves     map[gameapi.TierPosition][]gameapi.TierPosition
	children  map[gameapi.Tier][]gameapi.Tier
}

func newFakeGame() *fakeGame {
	return &fakeGame{
		tierSize:  make(map[gameapi.Tier]int64),
		tierType:  make(map[gameapi.Tier]gameapi.TierType),
		primitive: make(map[gameapi.TierPosition]value.Value),
		moves:     make(map[gameapi.TierPosition][]gameapi.TierPosition),
		children:  make(map[gameapi.Tier][]gameapi.Tier),
	}
}

func (g *fakeGame) setTier(tier gameapi.Tier, size int64, typ gameapi.TierType, childTiers ...gameapi.Tier) {
	g.tierSize[tier] = size
	g.tierType[tier] = typ
	g.children[tier] = childTiers
}

func (g *fakeGame) setPrimitive(tp gameapi.TierPosition, v value.Value) {
	g.primitive[tp] = v
}

func (g *fakeGame) addMove(from, to gameapi.TierPosition) {
	g.moves[from] = append(g.moves[from], to)
}

func (g *fakeGame) GetInitialTier() gameapi.Tier        { return 0 }
func (g *fakeGame) GetInitialPosition() gameapi.Position { return 0 }

func (g *fakeGame) GetTierSize(tier gameapi.Tier) (int64, error) {
	sz, ok := g.tierSize[tier]
	if !ok {
		return 0, fmt.Errorf("fakeGame: unknown tier %d", tier)
	}
	return sz, nil
}

func (g *fakeGame) GenerateMoves(tp gameapi.TierPosition, out []gameapi.Move) (int, error) {
	n := len(g.moves[tp])
	for i := 0; i < n && i < len(out); i++ {
		out[i] = gameapi.Move(i)
	}
	return n, nil
}

func (g *fakeGame) Primitive(tp gameapi.TierPosition) (value.Value, error) {
	if v, ok := g.primitive[tp]; ok {
		return v, nil
	}
	return value.Undecided, nil
}

func (g *fakeGame) DoMove(tp gameapi.TierPosition, move gameapi.Move) (gameapi.TierPosition, error) {
	moves := g.moves[tp]
	if int(move) < 0 || int(move) >= len(moves) {
		return gameapi.TierPosition{}, fmt.Errorf("fakeGame: move %d out of range at %v", move, tp)
	}
	return moves[move], nil
}

func (g *fakeGame) IsLegalPosition(tp gameapi.TierPosition) (bool, error) {
	size, ok := g.tierSize[tp.Tier]
	if !ok {
		return false, nil
	}
	return int64(tp.Position) >= 0 && int64(tp.Position) < size, nil
}

func (g *fakeGame) GetCanonicalPosition(tp gameapi.TierPosition) (gameapi.Position, error) {
	return tp.Position, nil
}

func (g *fakeGame) GetNumberOfCanonicalChildPositions(tp gameapi.TierPosition) (int, error) {
	return len(g.moves[tp]), nil
}

func (g *fakeGame) GetCanonicalChildPositions(tp gameapi.TierPosition, out []gameapi.TierPosition) (int, error) {
	children := g.moves[tp]
	n := copy(out, children)
	return n, nil
}

func (g *fakeGame) GetChildTiers(tier gameapi.Tier, out []gameapi.Tier) (int, error) {
	return copy(out, g.children[tier]), nil
}

func (g *fakeGame) GetTierType(tier gameapi.Tier) (gameapi.TierType, error) {
	return g.tierType[tier], nil
}

func (g *fakeGame) GetCanonicalTier(tier gameapi.Tier) (gameapi.Tier, error) {
	return tier, nil
}

func (g *fakeGame) GetTierName(tier gameapi.Tier, buf []byte) (int, error) {
	return 0, nil
}
