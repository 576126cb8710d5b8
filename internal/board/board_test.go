package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_EmptyBoard(t *testing.T) {
	assert.Equal(t, NoWinner, Evaluate(Board{}))
}

func TestEvaluate_AllLines(t *testing.T) {
	for _, ln := range lines {
		var b Board
		for _, idx := range ln {
			b[idx/Size][idx%Size] = P1
		}
		assert.Equal(t, Player1Wins, Evaluate(b), "line %v", ln)
	}
}

func TestEvaluate_RelabelSymmetry(t *testing.T) {
	// Swapping every P1 and P2 mark must swap the winner and preserve
	// NoWinner/Draw.
	cases := []Board{
		{},
		{{P1, P1, P1}, {P2, P2, Empty}, {Empty, Empty, Empty}},
		{{P1, P2, P1}, {P2, P1, P2}, {P2, P1, P2}},
		{{P1, Empty, P2}, {Empty, P1, Empty}, {P2, Empty, P1}},
	}
	swap := func(b Board) Board {
		var out Board
		for r := 0; r < Size; r++ {
			for c := 0; c < Size; c++ {
				switch b[r][c] {
				case P1:
					out[r][c] = P2
				case P2:
					out[r][c] = P1
				}
			}
		}
		return out
	}
	for _, b := range cases {
		got, mirrored := Evaluate(b), Evaluate(swap(b))
		switch got {
		case Player1Wins:
			assert.Equal(t, Player2Wins, mirrored)
		case Player2Wins:
			assert.Equal(t, Player1Wins, mirrored)
		default:
			assert.Equal(t, got, mirrored)
		}
	}
}

func TestEvaluate_Draw(t *testing.T) {
	// Full board, no three in a row for either player.
	b := Board{
		{P1, P2, P1},
		{P1, P2, P2},
		{P2, P1, P1},
	}
	assert.Equal(t, Draw, Evaluate(b))
}

func TestEvaluate_DecisiveOnFullBoard(t *testing.T) {
	// A completed line on a full board is a win, not a draw.
	b := Board{
		{P1, P1, P1},
		{P2, P2, P1},
		{P1, P2, P2},
	}
	assert.Equal(t, Player1Wins, Evaluate(b))
}

func TestInBounds(t *testing.T) {
	assert.True(t, InBounds(0, 0))
	assert.True(t, InBounds(2, 2))
	assert.False(t, InBounds(-1, 0))
	assert.False(t, InBounds(0, 3))
	assert.False(t, InBounds(3, 3))
}

func TestMarks(t *testing.T) {
	var b Board
	assert.Equal(t, 0, Marks(b))
	b[1][1] = P1
	b[0][2] = P2
	assert.Equal(t, 2, Marks(b))
}
