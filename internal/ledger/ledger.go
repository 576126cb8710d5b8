// Package ledger implements the keyed value accounts the engine and
// treasury move funds through.
//
// A Ledger is the single source of truth for balances. Escrow wraps a
// ledger with a custody account so components can take deposits on
// entry and pay out on resolution without aliasing each other's funds.
// Every mutation either completes fully or returns a coded error with
// balances untouched.
package ledger

import (
	"sync"

	"github.com/veles/noughts/internal/fault"
	"github.com/veles/noughts/internal/identity"
)

// Ledger tracks account balances in base value units.
// Safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	balances map[identity.Address]uint64
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{balances: make(map[identity.Address]uint64)}
}

// Mint credits an account out of thin air. Used to fund accounts at
// genesis and in tests; production value enters the same way a chain
// deposit would.
func (l *Ledger) Mint(addr identity.Address, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] += amount
}

// Balance returns the current balance of an account.
func (l *Ledger) Balance(addr identity.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr]
}

// Transfer moves amount from one account to another atomically.
// Fails with INSUFFICIENT_FUNDS if the source balance is too small;
// no partial movement survives a failure.
func (l *Ledger) Transfer(from, to identity.Address, amount uint64) error {
	if from.IsZero() || to.IsZero() {
		return fault.New(fault.InvalidParameter, "transfer requires two accounts")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return fault.New(fault.InsufficientFunds,
			"account %s holds %d, needs %d", from, l.balances[from], amount).
			WithDetail("account", from.String())
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// Total returns the sum of all balances. Conservation checks in tests
// rely on this never changing across transfers.
func (l *Ledger) Total() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum uint64
	for _, b := range l.balances {
		sum += b
	}
	return sum
}
