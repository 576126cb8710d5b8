// Package engine implements the wagered noughts-and-crosses state
// machine: game creation, joining, turn-taking, lazy timeout
// detection, outcome resolution, and the single payout path.
//
// ARCHITECTURE:
//
// Serial mutation:
// Every public operation takes the engine mutex, validates against a
// consistent prior state, applies all effects, and only then performs
// value transfers. A rejected call leaves no partial writes. Callers
// are mutually adversarial; authorization is an explicit address
// comparison per operation, never ambient state.
//
// Lazy timeouts:
// There is no background timer. A turn deadline is only checked when
// MakeTurn or CheckGameState is invoked. A mover past their own window
// fails with TURN_TIMED_OUT; anyone can then call CheckGameState to
// latch the Timeout outcome against the player who was due to move.
//
// Funds:
// Bets are escrowed on entry into the engine's custody account and
// leave it exactly once, in GetWin: fee to the treasury address,
// remainder to the winner (or split on draw, refunded on cancel).
// Closed is checked first and set before any transfer, so repeated
// GetWin calls fail instead of double-paying.
//
// Notifications:
// Every state transition emits a StateChange carrying
// (gameID, player1, player2-or-zero, newState) with a monotonic
// sequence number and a UUIDv7 correlation token. With a store
// configured the event is also appended to the durable log, which is
// how observers reconstruct history without re-querying.
package engine
