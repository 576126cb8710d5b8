package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GameRecord is the durable snapshot form of one game.
type GameRecord struct {
	ID             uint64
	Player1        string
	Player2        string
	Bet            uint64
	TimeoutSeconds int64
	LastMoveAt     int64
	Board          string
	State          uint8
	TimedOut       string
}

// SaveGame upserts a game snapshot. The latest write wins; snapshots
// carry full state so overwriting is safe.
func (s *Store) SaveGame(ctx context.Context, g GameRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games
		(id, player1, player2, bet, timeout_seconds, last_move_at, board, state, timed_out)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			player2      = excluded.player2,
			last_move_at = excluded.last_move_at,
			board        = excluded.board,
			state        = excluded.state,
			timed_out    = excluded.timed_out
	`,
		g.ID, g.Player1, g.Player2, g.Bet, g.TimeoutSeconds,
		g.LastMoveAt, g.Board, g.State, g.TimedOut,
	)
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

// Games returns all game snapshots, ids ascending. Creation order is
// recoverable from the ordering because ids are assigned sequentially.
func (s *Store) Games(ctx context.Context) ([]GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player1, player2, bet, timeout_seconds, last_move_at, board, state, timed_out
		FROM games
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load games: %w", err)
	}
	defer rows.Close()

	var recs []GameRecord
	for rows.Next() {
		var g GameRecord
		if err := rows.Scan(&g.ID, &g.Player1, &g.Player2, &g.Bet,
			&g.TimeoutSeconds, &g.LastMoveAt, &g.Board, &g.State, &g.TimedOut); err != nil {
			return nil, fmt.Errorf("load games: %w", err)
		}
		recs = append(recs, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load games: %w", err)
	}
	return recs, nil
}

// GameByID returns one game snapshot, or (nil, nil) if absent.
func (s *Store) GameByID(ctx context.Context, id uint64) (*GameRecord, error) {
	var g GameRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, player1, player2, bet, timeout_seconds, last_move_at, board, state, timed_out
		FROM games
		WHERE id = ?
	`, id).Scan(&g.ID, &g.Player1, &g.Player2, &g.Bet,
		&g.TimeoutSeconds, &g.LastMoveAt, &g.Board, &g.State, &g.TimedOut)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load game %d: %w", id, err)
	}
	return &g, nil
}
