// Package treasury implements the N-of-M multi-signature custody
// machine that receives extracted fees.
//
// Value accumulates in the treasury account as games resolve. Any
// owner can propose a transfer out; the transfer only happens once a
// quorum of owners has confirmed it, and execution is a one-way latch
// so a transaction can never pay twice. Confirmations are additive
// until execution.
package treasury

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/veles/noughts/internal/fault"
	"github.com/veles/noughts/internal/identity"
	"github.com/veles/noughts/internal/ledger"
	"github.com/veles/noughts/internal/store"
)

// Transaction is a proposed transfer out of the treasury account.
type Transaction struct {
	ID          uint64
	Destination identity.Address
	Value       uint64
	Payload     []byte
	Executed    bool

	confirmed map[identity.Address]bool
}

// Treasury is the multi-signature custody machine. Safe for
// concurrent use; every call commits atomically or fails with state
// unchanged.
type Treasury struct {
	mu          sync.Mutex
	ledger      *ledger.Ledger
	account     identity.Address
	owners      []identity.Address
	required    int
	txs         map[uint64]*Transaction
	order       []uint64
	nextID      uint64
	initialized bool
	store       *store.Store
	logger      *slog.Logger
}

// Option configures a Treasury at construction.
type Option func(*Treasury)

// WithStore attaches a durable store. Transactions and confirmations
// are written through, and New restores prior records from it.
func WithStore(s *store.Store) Option {
	return func(t *Treasury) { t.store = s }
}

// WithLogger substitutes the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Treasury) { t.logger = l }
}

// New creates a treasury custodying the given ledger account. The
// owner set is established separately by Initialize.
func New(l *ledger.Ledger, account identity.Address, opts ...Option) (*Treasury, error) {
	t := &Treasury{
		ledger:  l,
		account: account,
		txs:     make(map[uint64]*Transaction),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.store != nil {
		if err := t.restore(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Initialize establishes the owner set and the confirmation quorum.
// One-time: a second call fails with ALREADY_INITIALIZED. The owner
// set is fixed afterwards.
func (t *Treasury) Initialize(owners []identity.Address, required int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized {
		return fault.New(fault.AlreadyInitialized, "owner set already established")
	}
	if len(owners) == 0 {
		return fault.New(fault.InvalidParameter, "owner set is empty")
	}
	if required < 1 || required > len(owners) {
		return fault.New(fault.InvalidParameter,
			"required confirmations %d outside 1..%d", required, len(owners))
	}
	seen := make(map[identity.Address]bool, len(owners))
	for _, o := range owners {
		if o.IsZero() {
			return fault.New(fault.InvalidParameter, "owner address required")
		}
		if seen[o] {
			return fault.New(fault.InvalidParameter, "duplicate owner %s", o)
		}
		seen[o] = true
	}

	t.owners = append([]identity.Address(nil), owners...)
	t.required = required
	t.initialized = true

	t.logger.Info("treasury initialized",
		"owners", len(owners),
		"required", required,
	)
	return nil
}

// SubmitTransaction proposes a transfer of value to destination. Only
// an owner may propose. The new transaction starts with zero
// confirmations; the proposer confirms separately. Returns the
// transaction id; ids start at zero and are never reused.
func (t *Treasury) SubmitTransaction(caller, destination identity.Address, value uint64, payload []byte) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ownerOnly(caller); err != nil {
		return 0, err
	}
	if destination.IsZero() {
		return 0, fault.New(fault.InvalidParameter, "destination address required")
	}

	tx := &Transaction{
		ID:          t.nextID,
		Destination: destination,
		Value:       value,
		Payload:     append([]byte(nil), payload...),
		confirmed:   make(map[identity.Address]bool),
	}
	t.nextID++
	t.txs[tx.ID] = tx
	t.order = append(t.order, tx.ID)
	t.persistTx(tx)

	t.logger.Info("transaction submitted",
		"tx_id", tx.ID,
		"destination", destination.String(),
		"value", value,
	)
	return tx.ID, nil
}

// ConfirmTransaction records the caller's approval. Each owner may
// confirm a transaction at most once; confirmations cannot be
// withdrawn.
func (t *Treasury) ConfirmTransaction(caller identity.Address, id uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ownerOnly(caller); err != nil {
		return err
	}
	tx, err := t.tx(id)
	if err != nil {
		return err
	}
	if tx.Executed {
		return fault.New(fault.AlreadyExecuted, "transaction %d already executed", id)
	}
	if tx.confirmed[caller] {
		return fault.New(fault.AlreadyConfirmed, "owner %s already confirmed transaction %d", caller, id)
	}

	tx.confirmed[caller] = true
	t.persistConfirmation(id, caller)

	t.logger.Info("transaction confirmed",
		"tx_id", id,
		"owner", caller.String(),
		"confirmations", len(tx.confirmed),
		"required", t.required,
	)
	return nil
}

// ExecuteTransaction performs the proposed transfer once the quorum is
// met. The executed flag latches before the value moves, so a
// re-entering destination observes a completed record and a second
// execute attempt fails with ALREADY_EXECUTED.
func (t *Treasury) ExecuteTransaction(caller identity.Address, id uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ownerOnly(caller); err != nil {
		return err
	}
	tx, err := t.tx(id)
	if err != nil {
		return err
	}
	if tx.Executed {
		return fault.New(fault.AlreadyExecuted, "transaction %d already executed", id)
	}
	if len(tx.confirmed) < t.required {
		return fault.New(fault.QuorumNotMet,
			"transaction %d has %d of %d required confirmations", id, len(tx.confirmed), t.required)
	}

	tx.Executed = true
	if err := t.ledger.Transfer(t.account, tx.Destination, tx.Value); err != nil {
		tx.Executed = false
		return err
	}
	t.persistTx(tx)

	t.logger.Info("transaction executed",
		"tx_id", id,
		"destination", tx.Destination.String(),
		"value", tx.Value,
	)
	return nil
}

// Balance returns the custodied value.
func (t *Treasury) Balance() uint64 {
	return t.ledger.Balance(t.account)
}

// Account returns the treasury's ledger account address. Fee payers
// remit to this address.
func (t *Treasury) Account() identity.Address { return t.account }

// Owners returns the owner set in initialization order.
func (t *Treasury) Owners() []identity.Address {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]identity.Address(nil), t.owners...)
}

// Required returns the confirmation quorum.
func (t *Treasury) Required() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.required
}

// Transaction returns a snapshot of one transaction.
func (t *Treasury) Transaction(id uint64) (Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tx, err := t.tx(id)
	if err != nil {
		return Transaction{}, err
	}
	snap := *tx
	snap.Payload = append([]byte(nil), tx.Payload...)
	snap.confirmed = nil
	return snap, nil
}

// ListTransactions returns all transaction ids in submission order.
func (t *Treasury) ListTransactions() []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]uint64, len(t.order))
	copy(ids, t.order)
	return ids
}

// Confirmations returns the confirming owners of a transaction,
// sorted by address.
func (t *Treasury) Confirmations(id uint64) ([]identity.Address, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tx, err := t.tx(id)
	if err != nil {
		return nil, err
	}
	owners := make([]identity.Address, 0, len(tx.confirmed))
	for o := range tx.confirmed {
		owners = append(owners, o)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners, nil
}

// ownerOnly rejects callers outside the owner set. Callers hold the
// mutex.
func (t *Treasury) ownerOnly(caller identity.Address) error {
	if !t.initialized {
		return fault.New(fault.WrongState, "treasury not initialized")
	}
	for _, o := range t.owners {
		if o == caller {
			return nil
		}
	}
	return fault.New(fault.Unauthorized, "%s is not an owner", caller)
}

// tx looks up a transaction by id. Callers hold the mutex.
func (t *Treasury) tx(id uint64) (*Transaction, error) {
	tx, ok := t.txs[id]
	if !ok {
		return nil, fault.New(fault.NotFound, "no transaction %d", id)
	}
	return tx, nil
}

// persistTx writes a transaction snapshot through to the store.
// Failures are logged and do not fail the operation.
func (t *Treasury) persistTx(tx *Transaction) {
	if t.store == nil {
		return
	}
	rec := store.TransactionRecord{
		ID:          tx.ID,
		Destination: tx.Destination.String(),
		Value:       tx.Value,
		Payload:     tx.Payload,
		Executed:    tx.Executed,
	}
	if err := t.store.SaveTransaction(context.Background(), rec); err != nil {
		t.logger.Error("transaction snapshot write failed", "tx_id", tx.ID, "error", err)
	}
}

func (t *Treasury) persistConfirmation(id uint64, owner identity.Address) {
	if t.store == nil {
		return
	}
	if err := t.store.SaveConfirmation(context.Background(), id, owner.String()); err != nil {
		t.logger.Error("confirmation write failed", "tx_id", id, "error", err)
	}
}

// restore rebuilds transactions and confirmations from store
// snapshots. The owner set is runtime configuration and is
// re-established by Initialize after a restart.
func (t *Treasury) restore() error {
	ctx := context.Background()
	recs, err := t.store.Transactions(ctx)
	if err != nil {
		return err
	}
	for _, r := range recs {
		tx := &Transaction{
			ID:          r.ID,
			Destination: identity.Address(r.Destination),
			Value:       r.Value,
			Payload:     r.Payload,
			Executed:    r.Executed,
			confirmed:   make(map[identity.Address]bool),
		}
		owners, err := t.store.Confirmations(ctx, r.ID)
		if err != nil {
			return err
		}
		for _, o := range owners {
			tx.confirmed[identity.Address(o)] = true
		}
		t.txs[tx.ID] = tx
		t.order = append(t.order, tx.ID)
		if tx.ID >= t.nextID {
			t.nextID = tx.ID + 1
		}
	}
	if len(recs) > 0 {
		t.logger.Info("treasury state restored", "transactions", len(recs))
	}
	return nil
}
