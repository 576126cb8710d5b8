// Package board implements the pure 3x3 grid evaluator.
//
// Evaluate is total and side-effect free: given any board it returns
// exactly one outcome. Under correct turn enforcement at most one
// player can hold a completed line, so scan order is irrelevant.
package board

// Cell is the tri-state content of one grid position.
type Cell uint8

const (
	Empty Cell = 0 // no mark
	P1    Cell = 1 // player 1 mark
	P2    Cell = 2 // player 2 mark
)

// Size is the board edge length.
const Size = 3

// Board is the 3x3 grid, indexed [row][col].
type Board [Size][Size]Cell

// Outcome is the result of evaluating a board.
type Outcome uint8

const (
	NoWinner Outcome = iota
	Player1Wins
	Player2Wins
	Draw
)

// lines enumerates all 3 rows, 3 columns, and 2 diagonals as cell
// index triples (row*Size + col).
var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// Evaluate scans all winning lines and returns the outcome.
// Returns Draw only when no line is complete and all cells are marked.
func Evaluate(b Board) Outcome {
	for _, ln := range lines {
		a := b[ln[0]/Size][ln[0]%Size]
		if a == Empty {
			continue
		}
		if a == b[ln[1]/Size][ln[1]%Size] && a == b[ln[2]/Size][ln[2]%Size] {
			if a == P1 {
				return Player1Wins
			}
			return Player2Wins
		}
	}
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] == Empty {
				return NoWinner
			}
		}
	}
	return Draw
}

// InBounds reports whether (x, y) addresses a cell on the board.
func InBounds(x, y int) bool {
	return x >= 0 && x < Size && y >= 0 && y < Size
}

// Marks returns the number of non-empty cells.
func Marks(b Board) int {
	n := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] != Empty {
				n++
			}
		}
	}
	return n
}
