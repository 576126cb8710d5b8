package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/veles/noughts/internal/identity"
)

// StateChange is the notification emitted on every game state
// transition. Observers reconstruct full game history from the ordered
// stream without re-querying the engine.
type StateChange struct {
	// Seq orders the event within this engine instance. Strictly
	// increasing across all games.
	Seq int64

	// Token is a correlation id for the operation that caused the
	// transition (UUIDv7 in production, fixed strings in tests).
	Token string

	GameID  uint64
	Player1 identity.Address
	Player2 identity.Address // Zero before join
	State   State
}

// TokenGenerator produces correlation tokens for state changes.
// Implemented by UUIDv7Generator (production) and FixedGenerator
// (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator produces time-sortable UUIDv7 tokens, helpful when
// eyeballing event logs. Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens in order. It enables
// deterministic golden traces: tests provide known tokens and verify
// exact event output.
type FixedGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewFixedGenerator creates a generator producing "<prefix>-0001",
// "<prefix>-0002", and so on.
func NewFixedGenerator(prefix string) *FixedGenerator {
	return &FixedGenerator{prefix: prefix}
}

// Generate returns the next predetermined token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%04d", g.prefix, g.next)
}
