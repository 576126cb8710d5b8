package engine

import (
	"github.com/veles/noughts/internal/board"
	"github.com/veles/noughts/internal/identity"
)

// State is a game lifecycle state. The numeric codes are part of the
// public surface — observers depend on them — and never change:
//
//	0 Draw, 1 Player1Turn, 2 Player2Turn, 3 Player1Win, 4 Player2Win,
//	5 Timeout, 6 WaitingForPlayer2, 7 Closed, 8 Cancelled
type State uint8

const (
	StateDraw              State = 0
	StatePlayer1Turn       State = 1
	StatePlayer2Turn       State = 2
	StatePlayer1Win        State = 3
	StatePlayer2Win        State = 4
	StateTimeout           State = 5
	StateWaitingForPlayer2 State = 6
	StateClosed            State = 7
	StateCancelled         State = 8
)

// String returns the code name used in logs and stored events.
func (s State) String() string {
	switch s {
	case StateDraw:
		return "Draw"
	case StatePlayer1Turn:
		return "Player1Turn"
	case StatePlayer2Turn:
		return "Player2Turn"
	case StatePlayer1Win:
		return "Player1Win"
	case StatePlayer2Win:
		return "Player2Win"
	case StateTimeout:
		return "Timeout"
	case StateWaitingForPlayer2:
		return "WaitingForPlayer2"
	case StateClosed:
		return "Closed"
	case StateCancelled:
		return "Cancelled"
	}
	return "Unknown"
}

// live reports whether turns are still being accepted.
func (s State) live() bool {
	return s == StatePlayer1Turn || s == StatePlayer2Turn
}

// terminalOutcome reports whether the game has a decided, not yet
// disbursed outcome (board result or timeout).
func (s State) terminalOutcome() bool {
	switch s {
	case StateDraw, StatePlayer1Win, StatePlayer2Win, StateTimeout:
		return true
	}
	return false
}

// payable reports whether GetWin may disburse for this state.
func (s State) payable() bool {
	return s.terminalOutcome() || s == StateCancelled
}

// Game is one game record. Records are retained permanently for audit;
// there is no delete path.
type Game struct {
	// ID is assigned at creation, monotonically increasing, never reused.
	ID uint64

	Player1 identity.Address
	Player2 identity.Address // Zero until join

	// Bet is the stake each player escrows, in base value units.
	Bet uint64

	// TimeoutSeconds is the maximum idle time allowed per turn.
	TimeoutSeconds int64

	// LastMoveAt is the unix time of the last accepted turn, or of the
	// successful join/create that armed the current deadline.
	LastMoveAt int64

	Board board.Board
	State State

	// TimedOut records which player lapsed when State is Timeout.
	TimedOut identity.Address
}

// Label returns the human-readable state description. Timeout labels
// attribute the lapse to the player who was due to move.
func (g *Game) Label() string {
	switch g.State {
	case StateDraw:
		return "Draw"
	case StatePlayer1Turn:
		return "Player 1 Turn"
	case StatePlayer2Turn:
		return "Player 2 Turn"
	case StatePlayer1Win:
		return "Player 1 Win"
	case StatePlayer2Win:
		return "Player 2 Win"
	case StateTimeout:
		if g.TimedOut == g.Player2 {
			return "Player 2 Timeout"
		}
		return "Player 1 Timeout"
	case StateWaitingForPlayer2:
		return "Waiting for Player 2 to join"
	case StateClosed:
		return "Closed"
	case StateCancelled:
		return "Cancelled"
	}
	return "Unknown"
}

// duePlayer returns who must move next for a live game.
func (g *Game) duePlayer() identity.Address {
	if g.State == StatePlayer1Turn {
		return g.Player1
	}
	return g.Player2
}

// mark returns the board mark a player places.
func (g *Game) mark(player identity.Address) board.Cell {
	if player == g.Player1 {
		return board.P1
	}
	return board.P2
}

// expired reports whether the due player's window has passed at time now.
func (g *Game) expired(now int64) bool {
	return now-g.LastMoveAt > g.TimeoutSeconds
}

// pot returns the total escrowed value for this game.
func (g *Game) pot() uint64 {
	if g.Player2.IsZero() {
		return g.Bet
	}
	return g.Bet * 2
}
