// Package store provides SQLite-backed durable storage for game and
// treasury state.
//
// Two kinds of data live here:
//   - Snapshots: the latest game records and treasury transaction
//     records, upserted on every transition. Reopening a store and
//     restoring from snapshots reproduces current state exactly.
//   - State events: an append-only log of every game state change,
//     keyed by a strictly increasing sequence number. Observers read
//     the log to reconstruct full history.
//
// All ordering uses the seq column, never timestamps, so history reads
// are deterministic regardless of wall time. Event appends are
// idempotent on seq: re-appending after a crash-and-restore is a
// silent no-op.
//
// Database configuration:
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
