package store

import (
	"context"
	"fmt"
)

// TransactionRecord is the durable snapshot form of one treasury
// transaction.
type TransactionRecord struct {
	ID          uint64
	Destination string
	Value       uint64
	Payload     []byte
	Executed    bool
}

// SaveTransaction upserts a treasury transaction snapshot.
func (s *Store) SaveTransaction(ctx context.Context, tx TransactionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO treasury_transactions (id, destination, value, payload, executed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET executed = excluded.executed
	`,
		tx.ID, tx.Destination, tx.Value, tx.Payload, tx.Executed,
	)
	if err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}
	return nil
}

// SaveConfirmation records one owner's confirmation. Idempotent: a
// repeated confirmation write is silently ignored.
func (s *Store) SaveConfirmation(ctx context.Context, txID uint64, owner string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO treasury_confirmations (tx_id, owner)
		VALUES (?, ?)
		ON CONFLICT(tx_id, owner) DO NOTHING
	`, txID, owner)
	if err != nil {
		return fmt.Errorf("save confirmation: %w", err)
	}
	return nil
}

// Transactions returns all treasury transaction snapshots, ids
// ascending.
func (s *Store) Transactions(ctx context.Context) ([]TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, destination, value, payload, executed
		FROM treasury_transactions
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	var recs []TransactionRecord
	for rows.Next() {
		var tx TransactionRecord
		if err := rows.Scan(&tx.ID, &tx.Destination, &tx.Value,
			&tx.Payload, &tx.Executed); err != nil {
			return nil, fmt.Errorf("load transactions: %w", err)
		}
		recs = append(recs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return recs, nil
}

// Confirmations returns the confirming owners for one transaction in
// insertion-independent (owner-sorted) order.
func (s *Store) Confirmations(ctx context.Context, txID uint64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner FROM treasury_confirmations
		WHERE tx_id = ?
		ORDER BY owner ASC
	`, txID)
	if err != nil {
		return nil, fmt.Errorf("load confirmations: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("load confirmations: %w", err)
		}
		owners = append(owners, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load confirmations: %w", err)
	}
	return owners, nil
}
