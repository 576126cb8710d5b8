package store

import (
	"context"
	"fmt"
)

// StateEvent is one entry of the append-only state-change log.
type StateEvent struct {
	Seq     int64
	Token   string
	GameID  uint64
	Player1 string
	Player2 string
	State   uint8
}

// AppendEvent appends one state event. Idempotent on seq: a duplicate
// append is silently ignored, so re-emitting after a restore cannot
// fork the log.
func (s *Store) AppendEvent(ctx context.Context, ev StateEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state_events (seq, token, game_id, player1, player2, state)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		ev.Seq, ev.Token, ev.GameID, ev.Player1, ev.Player2, ev.State,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Events returns the full log in sequence order.
func (s *Store) Events(ctx context.Context) ([]StateEvent, error) {
	return s.queryEvents(ctx, `
		SELECT seq, token, game_id, player1, player2, state
		FROM state_events
		ORDER BY seq ASC
	`)
}

// GameEvents returns one game's history in sequence order.
func (s *Store) GameEvents(ctx context.Context, gameID uint64) ([]StateEvent, error) {
	return s.queryEvents(ctx, `
		SELECT seq, token, game_id, player1, player2, state
		FROM state_events
		WHERE game_id = ?
		ORDER BY seq ASC
	`, gameID)
}

// LastSeq returns the highest appended sequence number, zero for an
// empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM state_events`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]StateEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var evs []StateEvent
	for rows.Next() {
		var ev StateEvent
		if err := rows.Scan(&ev.Seq, &ev.Token, &ev.GameID,
			&ev.Player1, &ev.Player2, &ev.State); err != nil {
			return nil, fmt.Errorf("load events: %w", err)
		}
		evs = append(evs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return evs, nil
}
