// Package tictactoe is the reference gameapi.Game implementation
// spec.md §8's end-to-end scenarios exercise: a strictly loop-free game
// small enough to strong-solve from scratch in a test run, with an
// 8-fold board symmetry group wired through GetCanonicalPosition.
package tictactoe

import "github.com/lox/tiersolve/sdk/gameapi"

const (
	cellEmpty = 0
	cellX     = 1
	cellO     = 2
)

// board is a 9-cell grid, row-major, each cell one of cellEmpty/cellX/cellO.
type board [9]int

// boardSpace is the number of distinct base-3 codes over 9 cells; every
// tier reuses this same space and relies on IsLegalPosition to reject
// codes with the wrong mark count for that tier.
const boardSpace = 19683 // 3^9

func decode(pos gameapi.Position) board {
	var b board
	n := int64(pos)
	for i := 0; i < 9; i++ {
		b[i] = int(n % 3)
		n /= 3
	}
	return b
}

func (b board) encode() gameapi.Position {
	var n int64
	for i := 8; i >= 0; i-- {
		n = n*3 + int64(b[i])
	}
	return gameapi.Position(n)
}

func (b board) marks() (x, o int) {
	for _, c := range b {
		switch c {
		case cellX:
			x++
		case cellO:
			o++
		}
	}
	return x, o
}

var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// winner returns the mark (cellX or cellO) that completed a line, or
// cellEmpty if neither has.
func (b board) winner() int {
	for _, line := range winLines {
		a, c, d := b[line[0]], b[line[1]], b[line[2]]
		if a != cellEmpty && a == c && c == d {
			return a
		}
	}
	return cellEmpty
}

// moverAt reports which mark is about to move at a position with
// marksPlaced cells already filled: X moves first, so X moves on even counts.
func moverAt(marksPlaced int) int {
	if marksPlaced%2 == 0 {
		return cellX
	}
	return cellO
}

func other(mark int) int {
	if mark == cellX {
		return cellO
	}
	return cellX
}

// transforms holds the dihedral group of the square (8 symmetries) as
// permutations of the 9 cell indices, used to canonicalize a board to
// its lexicographically smallest base-3 encoding.
var transforms = [8][9]int{
	{0, 1, 2, 3, 4, 5, 6, 7, 8}, // identity
	{2, 5, 8, 1, 4, 7, 0, 3, 6}, // rotate 90
	{8, 7, 6, 5, 4, 3, 2, 1, 0}, // rotate 180
	{6, 3, 0, 7, 4, 1, 8, 5, 2}, // rotate 270
	{2, 1, 0, 5, 4, 3, 8, 7, 6}, // flip horizontal
	{6, 7, 8, 3, 4, 5, 0, 1, 2}, // flip vertical
	{0, 3, 6, 1, 4, 7, 2, 5, 8}, // flip main diagonal
	{8, 5, 2, 7, 4, 1, 6, 3, 0}, // flip anti-diagonal
}

func (b board) apply(t [9]int) board {
	var out board
	for i, src := range t {
		out[i] = b[src]
	}
	return out
}

// canonical returns the lexicographically smallest of b's 8 symmetric
// images, by base-3 encoding.
func (b board) canonical() board {
	best := b
	bestCode := b.encode()
	for _, t := range transforms[1:] {
		img := b.apply(t)
		if code := img.encode(); code < bestCode {
			best, bestCode = img, code
		}
	}
	return best
}
