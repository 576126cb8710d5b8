package engine

import (
	"context"
	"fmt"

	"github.com/veles/noughts/internal/board"
	"github.com/veles/noughts/internal/identity"
	"github.com/veles/noughts/internal/store"
)

// gameRecord converts a game to its durable snapshot form.
func gameRecord(g *Game) store.GameRecord {
	return store.GameRecord{
		ID:             g.ID,
		Player1:        g.Player1.String(),
		Player2:        g.Player2.String(),
		Bet:            g.Bet,
		TimeoutSeconds: g.TimeoutSeconds,
		LastMoveAt:     g.LastMoveAt,
		Board:          encodeBoard(g.Board),
		State:          uint8(g.State),
		TimedOut:       g.TimedOut.String(),
	}
}

// eventRecord converts a state change to its durable form.
func eventRecord(ev StateChange) store.StateEvent {
	return store.StateEvent{
		Seq:     ev.Seq,
		Token:   ev.Token,
		GameID:  ev.GameID,
		Player1: ev.Player1.String(),
		Player2: ev.Player2.String(),
		State:   uint8(ev.State),
	}
}

// encodeBoard flattens the grid row-major into nine digit characters.
func encodeBoard(b board.Board) string {
	buf := make([]byte, 0, board.Size*board.Size)
	for x := 0; x < board.Size; x++ {
		for y := 0; y < board.Size; y++ {
			buf = append(buf, '0'+byte(b[x][y]))
		}
	}
	return string(buf)
}

// decodeBoard is the inverse of encodeBoard.
func decodeBoard(s string) (board.Board, error) {
	var b board.Board
	if len(s) != board.Size*board.Size {
		return b, fmt.Errorf("board snapshot has %d cells, want %d", len(s), board.Size*board.Size)
	}
	for i := 0; i < len(s); i++ {
		c := s[i] - '0'
		if c > uint8(board.P2) {
			return b, fmt.Errorf("board snapshot cell %d holds %q", i, s[i])
		}
		b[i/board.Size][i%board.Size] = board.Cell(c)
	}
	return b, nil
}

// restore rebuilds in-memory game state from store snapshots. Called
// once from New, before the engine accepts calls.
func (e *Engine) restore() error {
	ctx := context.Background()
	recs, err := e.store.Games(ctx)
	if err != nil {
		return fmt.Errorf("restore games: %w", err)
	}
	for _, r := range recs {
		b, err := decodeBoard(r.Board)
		if err != nil {
			return fmt.Errorf("restore game %d: %w", r.ID, err)
		}
		g := &Game{
			ID:             r.ID,
			Player1:        identity.Address(r.Player1),
			Player2:        identity.Address(r.Player2),
			Bet:            r.Bet,
			TimeoutSeconds: r.TimeoutSeconds,
			LastMoveAt:     r.LastMoveAt,
			Board:          b,
			State:          State(r.State),
			TimedOut:       identity.Address(r.TimedOut),
		}
		e.games[g.ID] = g
		e.order = append(e.order, g.ID)
		if g.ID >= e.nextID {
			e.nextID = g.ID + 1
		}
	}
	seq, err := e.store.LastSeq(ctx)
	if err != nil {
		return fmt.Errorf("restore sequence: %w", err)
	}
	e.seq = seq

	if len(recs) > 0 {
		e.logger.Info("state restored", "games", len(recs), "last_seq", seq)
	}
	return nil
}
