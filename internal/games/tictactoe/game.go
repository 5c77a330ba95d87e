package tictactoe

import (
	"fmt"

	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/value"
)

// Game implements gameapi.Game for tic-tac-toe. Tiers are the number of
// marks placed (0 through 9); every tier reuses the same base-3 board
// encoding as its position space and relies on IsLegalPosition to
// reject boards with the wrong mark count. The game has no in-tier
// moves at all, so every tier is gameapi.TierTypeLoopFree.
type Game struct{}

// New returns a tic-tac-toe game ready to hand to an Engine.
func New() *Game { return &Game{} }

func (Game) GetInitialTier() gameapi.Tier         { return 0 }
func (Game) GetInitialPosition() gameapi.Position { return board{}.encode() }

func (Game) GetTierSize(tier gameapi.Tier) (int64, error) {
	if tier < 0 || tier > 9 {
		return 0, fmt.Errorf("tictactoe: tier %d out of range [0, 9]", tier)
	}
	return boardSpace, nil
}

func (Game) GetTierType(gameapi.Tier) (gameapi.TierType, error) {
	return gameapi.TierTypeLoopFree, nil
}

func (Game) GetCanonicalTier(tier gameapi.Tier) (gameapi.Tier, error) {
	return tier, nil // symmetry never changes the mark count
}

func (Game) GetChildTiers(tier gameapi.Tier, out []gameapi.Tier) (int, error) {
	if tier >= 9 {
		return 0, nil
	}
	if len(out) < 1 {
		return 1, nil
	}
	out[0] = tier + 1
	return 1, nil
}

func (Game) IsLegalPosition(tp gameapi.TierPosition) (bool, error) {
	if int64(tp.Position) < 0 || int64(tp.Position) >= boardSpace {
		return false, nil
	}
	b := decode(tp.Position)
	x, o := b.marks()
	if int64(x+o) != int64(tp.Tier) {
		return false, nil
	}
	if x != o && x != o+1 {
		return false, nil
	}
	// A board where both players already have a completed line can
	// never arise from legal play.
	if b.winner() != cellEmpty {
		wx := countLines(b, cellX)
		wo := countLines(b, cellO)
		if wx > 0 && wo > 0 {
			return false, nil
		}
	}
	return true, nil
}

func countLines(b board, mark int) int {
	n := 0
	for _, line := range winLines {
		if b[line[0]] == mark && b[line[1]] == mark && b[line[2]] == mark {
			n++
		}
	}
	return n
}

func (Game) GetCanonicalPosition(tp gameapi.TierPosition) (gameapi.Position, error) {
	return decode(tp.Position).canonical().encode(), nil
}

// Primitive reports the outcome for the player about to move at tp: a
// Lose if the player who just moved (the mark opposite the current
// mover) already completed a line, a Tie if the board is full with no
// winner, Undecided otherwise.
func (Game) Primitive(tp gameapi.TierPosition) (value.Value, error) {
	b := decode(tp.Position)
	justMoved := other(moverAt(int(tp.Tier)))
	if b.winner() == justMoved {
		return value.Lose, nil
	}
	if tp.Tier >= 9 {
		return value.Tie, nil
	}
	return value.Undecided, nil
}

func (Game) GenerateMoves(tp gameapi.TierPosition, out []gameapi.Move) (int, error) {
	b := decode(tp.Position)
	n := 0
	for i, c := range b {
		if c != cellEmpty {
			continue
		}
		if n < len(out) {
			out[n] = gameapi.Move(i)
		}
		n++
	}
	return n, nil
}

func (Game) DoMove(tp gameapi.TierPosition, move gameapi.Move) (gameapi.TierPosition, error) {
	b := decode(tp.Position)
	cell := int(move)
	if cell < 0 || cell > 8 || b[cell] != cellEmpty {
		return gameapi.TierPosition{}, fmt.Errorf("tictactoe: illegal move %d at position %d", move, tp.Position)
	}
	b[cell] = moverAt(int(tp.Tier))
	return gameapi.TierPosition{Tier: tp.Tier + 1, Position: b.encode()}, nil
}

func (g Game) GetNumberOfCanonicalChildPositions(tp gameapi.TierPosition) (int, error) {
	var moves [9]gameapi.Move
	n, err := g.GenerateMoves(tp, moves[:])
	return n, err
}

func (g Game) GetCanonicalChildPositions(tp gameapi.TierPosition, out []gameapi.TierPosition) (int, error) {
	var moves [9]gameapi.Move
	n, err := g.GenerateMoves(tp, moves[:])
	if err != nil {
		return 0, err
	}
	written := 0
	for i := 0; i < n && written < len(out); i++ {
		child, err := g.DoMove(tp, moves[i])
		if err != nil {
			return 0, err
		}
		canon, err := g.GetCanonicalPosition(child)
		if err != nil {
			return 0, err
		}
		out[written] = gameapi.TierPosition{Tier: child.Tier, Position: canon}
		written++
	}
	return written, nil
}

func (Game) GetTierName(tier gameapi.Tier, buf []byte) (int, error) {
	s := fmt.Sprintf("marks-%d", int64(tier))
	return copy(buf, s), nil
}
