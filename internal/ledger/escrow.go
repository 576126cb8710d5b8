package ledger

import (
	"github.com/veles/noughts/internal/identity"
)

// Escrow is a custody view over a ledger account. The engine deposits
// both players' bets into its custody account on entry and pays out of
// it exactly once per game on resolution; the custodied balance is by
// construction the sum of unresolved games' stakes.
type Escrow struct {
	ledger  *Ledger
	custody identity.Address
}

// NewEscrow creates an escrow over the given custody account.
func NewEscrow(l *Ledger, custody identity.Address) *Escrow {
	return &Escrow{ledger: l, custody: custody}
}

// Custody returns the custody account address.
func (e *Escrow) Custody() identity.Address { return e.custody }

// Deposit takes amount from the depositor into custody.
func (e *Escrow) Deposit(from identity.Address, amount uint64) error {
	return e.ledger.Transfer(from, e.custody, amount)
}

// PayOut releases amount from custody to the recipient.
func (e *Escrow) PayOut(to identity.Address, amount uint64) error {
	return e.ledger.Transfer(e.custody, to, amount)
}

// Balance returns the total custodied value.
func (e *Escrow) Balance() uint64 {
	return e.ledger.Balance(e.custody)
}
