package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/veles/noughts/internal/board"
	"github.com/veles/noughts/internal/fault"
	"github.com/veles/noughts/internal/feeauth"
	"github.com/veles/noughts/internal/identity"
	"github.com/veles/noughts/internal/ledger"
	"github.com/veles/noughts/internal/store"
)

// Engine owns the per-game state machines and the funds path.
//
// All mutations happen under a single mutex: callers are mutually
// adversarial and operations interleave, but each public call commits
// in one atomic step against a consistent prior state. A failing call
// leaves every game and every balance exactly as it was.
//
// Thread-safety model:
//   - all exported methods: safe from any goroutine
//   - observers registered with Notify run synchronously inside the
//     mutating call and must not call back into the engine
type Engine struct {
	mu       sync.Mutex
	games    map[uint64]*Game
	order    []uint64 // creation order, ids ascending
	nextID   uint64
	seq      int64
	escrow   *ledger.Escrow
	treasury identity.Address
	fees     *feeauth.Authorizer
	clock    TimeSource
	tokens   TokenGenerator
	store    *store.Store
	watchers []func(StateChange)
	logger   *slog.Logger
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithClock substitutes the time source. Tests use a manual clock to
// make timeout behavior deterministic.
func WithClock(c TimeSource) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTokenGenerator substitutes the correlation-token generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// WithStore attaches a durable store. Game snapshots and state events
// are written through on every transition, and New restores prior
// games from it.
func WithStore(s *store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithLogger substitutes the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine paying fees to the treasury address and
// custodying bets in the given escrow. If a store is attached, prior
// game state is restored before the engine accepts calls.
func New(esc *ledger.Escrow, treasury identity.Address, fees *feeauth.Authorizer, opts ...Option) (*Engine, error) {
	e := &Engine{
		games:    make(map[uint64]*Game),
		escrow:   esc,
		treasury: treasury,
		fees:     fees,
		clock:    WallClock{},
		tokens:   UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store != nil {
		if err := e.restore(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Notify registers an observer for state-change events. Observers are
// invoked in registration order, synchronously, inside the call that
// caused the transition. Register before issuing operations.
func (e *Engine) Notify(fn func(StateChange)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.watchers = append(e.watchers, fn)
}

// CreateGame opens a game with the caller as player1, escrowing their
// bet. The game waits for an opponent staking the same amount. Returns
// the new game id; ids start at zero and are never reused.
func (e *Engine) CreateGame(caller identity.Address, bet uint64, timeoutSeconds int64) (uint64, error) {
	if caller.IsZero() {
		return 0, fault.New(fault.InvalidParameter, "caller address required")
	}
	if timeoutSeconds <= 0 {
		return 0, fault.New(fault.InvalidParameter, "timeout must be positive, got %d", timeoutSeconds)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.escrow.Deposit(caller, bet); err != nil {
		return 0, err
	}

	g := &Game{
		ID:             e.nextID,
		Player1:        caller,
		Bet:            bet,
		TimeoutSeconds: timeoutSeconds,
		LastMoveAt:     e.clock.Now(),
		State:          StateWaitingForPlayer2,
	}
	e.nextID++
	e.games[g.ID] = g
	e.order = append(e.order, g.ID)
	e.emit(g)

	e.logger.Info("game created",
		"game_id", g.ID,
		"player1", caller.String(),
		"bet", bet,
		"timeout_s", timeoutSeconds,
	)
	return g.ID, nil
}

// JoinGame enters the caller as player2, escrowing a stake equal to
// the creator's bet. The creator moves first.
func (e *Engine) JoinGame(caller identity.Address, id, bet uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.game(id)
	if err != nil {
		return err
	}
	if g.State != StateWaitingForPlayer2 {
		return fault.New(fault.WrongState, "game %d is %s, not joinable", id, g.State)
	}
	if caller == g.Player1 {
		return fault.New(fault.Unauthorized, "creator cannot join their own game")
	}
	if caller.IsZero() {
		return fault.New(fault.InvalidParameter, "caller address required")
	}
	if bet != g.Bet {
		return fault.New(fault.BetMismatch, "game %d requires a bet of %d, got %d", id, g.Bet, bet)
	}
	if err := e.escrow.Deposit(caller, bet); err != nil {
		return err
	}

	g.Player2 = caller
	g.State = StatePlayer1Turn
	g.LastMoveAt = e.clock.Now()
	e.emit(g)

	e.logger.Info("game joined",
		"game_id", id,
		"player2", caller.String(),
		"bet", bet,
	)
	return nil
}

// CancelGame withdraws an unjoined game. Only the creator, and only
// while waiting for an opponent. The refund is disbursed by GetWin.
func (e *Engine) CancelGame(caller identity.Address, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.game(id)
	if err != nil {
		return err
	}
	if caller != g.Player1 {
		return fault.New(fault.Unauthorized, "only the creator may cancel game %d", id)
	}
	if g.State != StateWaitingForPlayer2 {
		return fault.New(fault.WrongState, "game %d is %s, not cancelable", id, g.State)
	}

	g.State = StateCancelled
	e.emit(g)

	e.logger.Info("game cancelled", "game_id", id)
	return nil
}

// MakeTurn places the caller's mark at (x, y). The mover's own window
// is enforced here: a turn past the deadline fails with
// TURN_TIMED_OUT and is not applied. A decisive or drawn board moves
// the game straight to its terminal state.
func (e *Engine) MakeTurn(caller identity.Address, id uint64, x, y int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.game(id)
	if err != nil {
		return err
	}
	if !g.State.live() {
		return fault.New(fault.WrongState, "game %d is %s, no turns accepted", id, g.State)
	}
	if caller != g.duePlayer() {
		return fault.New(fault.Unauthorized, "not %s's turn in game %d", caller, id)
	}
	if !board.InBounds(x, y) {
		return fault.New(fault.OutOfBounds, "cell (%d,%d) outside the board", x, y)
	}
	if g.Board[x][y] != board.Empty {
		return fault.New(fault.CellOccupied, "cell (%d,%d) already taken", x, y)
	}
	if g.expired(e.clock.Now()) {
		return fault.New(fault.TurnTimedOut, "turn window of %ds exceeded in game %d", g.TimeoutSeconds, id)
	}

	g.Board[x][y] = g.mark(caller)
	g.LastMoveAt = e.clock.Now()

	switch board.Evaluate(g.Board) {
	case board.Player1Wins:
		g.State = StatePlayer1Win
	case board.Player2Wins:
		g.State = StatePlayer2Win
	case board.Draw:
		g.State = StateDraw
	default:
		if g.State == StatePlayer1Turn {
			g.State = StatePlayer2Turn
		} else {
			g.State = StatePlayer1Turn
		}
	}
	e.emit(g)

	e.logger.Info("turn accepted",
		"game_id", id,
		"player", caller.String(),
		"x", x, "y", y,
		"state", g.State.String(),
	)
	return nil
}

// CheckGameState re-evaluates a game without requiring a move.
// Callable by anyone. A live game whose due player has exceeded the
// turn window transitions to Timeout, attributed to that player; a
// live game within its window is left untouched. An already-decided
// game re-announces its outcome. Fails with WRONG_STATE for games
// that are unjoined, closed, or cancelled.
func (e *Engine) CheckGameState(id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.game(id)
	if err != nil {
		return err
	}
	switch {
	case g.State.live():
		if g.expired(e.clock.Now()) {
			g.TimedOut = g.duePlayer()
			g.State = StateTimeout
			e.emit(g)
			e.logger.Info("game timed out",
				"game_id", id,
				"due_player", g.TimedOut.String(),
			)
		}
		return nil
	case g.State.terminalOutcome():
		// Outcome already decided; re-announce it for observers that
		// missed the original notification.
		e.emit(g)
		return nil
	}
	return fault.New(fault.WrongState, "game %d is %s, nothing to check", id, g.State)
}

// GetWin disburses a resolved game's pot exactly once and closes the
// game. The fee goes to the treasury; the remainder goes to the
// winner, is split evenly on a draw, or refunds the creator after a
// cancel. Because Closed is checked first and set before any funds
// move, a second call always fails with WRONG_STATE rather than
// paying twice.
func (e *Engine) GetWin(id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.game(id)
	if err != nil {
		return err
	}
	if !g.State.payable() {
		return fault.New(fault.WrongState, "game %d is %s, not payable", id, g.State)
	}

	pot := g.pot()
	fee := pot * e.fees.FeeBps() / 10000
	payouts := disbursement(g, pot-fee)

	outcome := g.State
	g.State = StateClosed
	if fee > 0 {
		if err := e.escrow.PayOut(e.treasury, fee); err != nil {
			g.State = outcome
			return err
		}
	}
	for _, p := range payouts {
		if err := e.escrow.PayOut(p.to, p.amount); err != nil {
			// Cannot happen while escrow only ever holds unresolved
			// stakes; restore the record so funds are not stranded.
			g.State = outcome
			return err
		}
	}
	e.emit(g)

	e.logger.Info("game closed",
		"game_id", id,
		"outcome", outcome.String(),
		"pot", pot,
		"fee", fee,
	)
	return nil
}

type payout struct {
	to     identity.Address
	amount uint64
}

// disbursement maps a resolved game to its payouts of net (pot minus
// fee). The slice order is the transfer order.
func disbursement(g *Game, net uint64) []payout {
	switch g.State {
	case StateCancelled:
		return []payout{{g.Player1, net}}
	case StatePlayer1Win:
		return []payout{{g.Player1, net}}
	case StatePlayer2Win:
		return []payout{{g.Player2, net}}
	case StateTimeout:
		if g.TimedOut == g.Player1 {
			return []payout{{g.Player2, net}}
		}
		return []payout{{g.Player1, net}}
	case StateDraw:
		share := net / 2
		// Equal stakes make net even in practice; any odd unit goes
		// to the creator so nothing is stranded in escrow.
		return []payout{{g.Player1, net - share}, {g.Player2, share}}
	}
	return nil
}

// ChangeFee relays a pre-signed fee change. See feeauth.
func (e *Engine) ChangeFee(signer identity.Address, newFeeBps uint64, sig []byte) error {
	return e.fees.ChangeFee(signer, newFeeBps, sig)
}

// FeeBps returns the current fee rate in basis points.
func (e *Engine) FeeBps() uint64 {
	return e.fees.FeeBps()
}

// Balance returns the total value currently custodied for unresolved
// games.
func (e *Engine) Balance() uint64 {
	return e.escrow.Balance()
}

// Game returns a snapshot of one game.
func (e *Engine) Game(id uint64) (Game, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, err := e.game(id)
	if err != nil {
		return Game{}, err
	}
	return *g, nil
}

// GameField returns the 3x3 grid of a game.
func (e *Engine) GameField(id uint64) (board.Board, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, err := e.game(id)
	if err != nil {
		return board.Board{}, err
	}
	return g.Board, nil
}

// GameStateLabel returns the human-readable state description.
func (e *Engine) GameStateLabel(id uint64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, err := e.game(id)
	if err != nil {
		return "", err
	}
	return g.Label(), nil
}

// ListCreatedGames returns all game ids in creation order.
func (e *Engine) ListCreatedGames() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]uint64, len(e.order))
	copy(ids, e.order)
	return ids
}

// LastCreatedGameID returns the most recently created game's id.
// Fails with NOT_FOUND before any game exists.
func (e *Engine) LastCreatedGameID() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.order) == 0 {
		return 0, fault.New(fault.NotFound, "no games created yet")
	}
	return e.order[len(e.order)-1], nil
}

// game looks up a record by id. Callers hold the mutex.
func (e *Engine) game(id uint64) (*Game, error) {
	g, ok := e.games[id]
	if !ok {
		return nil, fault.New(fault.NotFound, "no game %d", id)
	}
	return g, nil
}

// emit stamps, persists, and fans out a state-change event for the
// game's current state. Persistence failures are logged and do not
// fail the operation: the in-memory record is authoritative within a
// process lifetime. Callers hold the mutex.
func (e *Engine) emit(g *Game) {
	e.seq++
	ev := StateChange{
		Seq:     e.seq,
		Token:   e.tokens.Generate(),
		GameID:  g.ID,
		Player1: g.Player1,
		Player2: g.Player2,
		State:   g.State,
	}
	if e.store != nil {
		ctx := context.Background()
		if err := e.store.SaveGame(ctx, gameRecord(g)); err != nil {
			e.logger.Error("game snapshot write failed", "game_id", g.ID, "error", err)
		}
		if err := e.store.AppendEvent(ctx, eventRecord(ev)); err != nil {
			e.logger.Error("event append failed", "seq", ev.Seq, "error", err)
		}
	}
	for _, fn := range e.watchers {
		fn(ev)
	}
}
