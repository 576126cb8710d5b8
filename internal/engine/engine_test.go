package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veles/noughts/internal/board"
	"github.com/veles/noughts/internal/fault"
	"github.com/veles/noughts/internal/feeauth"
	"github.com/veles/noughts/internal/identity"
	"github.com/veles/noughts/internal/ledger"
	"github.com/veles/noughts/internal/store"
	"github.com/veles/noughts/internal/testutil"
)

const (
	alice        = identity.Address("alice")
	bob          = identity.Address("bob")
	admin        = identity.Address("admin")
	custody      = identity.Address("escrow")
	treasuryAddr = identity.Address("treasury")
)

type fixture struct {
	engine *Engine
	ledger *ledger.Ledger
	clock  *testutil.ManualClock
	events []StateChange
}

// newFixture builds an engine over a fresh ledger with both players
// funded, a 1% fee, and a manual clock pinned at 1000.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		ledger: ledger.New(),
		clock:  testutil.NewManualClock(1000),
	}
	f.ledger.Mint(alice, 10000)
	f.ledger.Mint(bob, 10000)

	all := append([]Option{
		WithClock(f.clock),
		WithTokenGenerator(NewFixedGenerator("tok")),
	}, opts...)

	esc := ledger.NewEscrow(f.ledger, custody)
	e, err := New(esc, treasuryAddr, feeauth.New(admin, 100), all...)
	require.NoError(t, err)
	e.Notify(func(ev StateChange) { f.events = append(f.events, ev) })
	f.engine = e
	return f
}

// playOut drives an alternating turn sequence from player1's opening
// move.
func (f *fixture) playOut(t *testing.T, id uint64, moves [][2]int) {
	t.Helper()
	players := [2]identity.Address{alice, bob}
	for i, m := range moves {
		require.NoError(t, f.engine.MakeTurn(players[i%2], id, m[0], m[1]), "move %d", i)
	}
}

func TestCreateGame_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateGame(alice, 3000, 0)
	assert.True(t, fault.Is(err, fault.InvalidParameter), "got %v", err)

	_, err = f.engine.CreateGame(identity.Zero, 3000, 10)
	assert.True(t, fault.Is(err, fault.InvalidParameter), "got %v", err)

	_, err = f.engine.CreateGame(alice, 20000, 10)
	assert.True(t, fault.Is(err, fault.InsufficientFunds), "got %v", err)
	assert.Equal(t, uint64(0), f.engine.Balance(), "failed create must not escrow")
}

func TestCreateGame_EscrowsAndNumbersSequentially(t *testing.T) {
	f := newFixture(t)

	id0, err := f.engine.CreateGame(alice, 3000, 10)
	require.NoError(t, err)
	id1, err := f.engine.CreateGame(bob, 500, 10)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), id0)
	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(3500), f.engine.Balance())
	assert.Equal(t, uint64(7000), f.ledger.Balance(alice))

	label, err := f.engine.GameStateLabel(id0)
	require.NoError(t, err)
	assert.Equal(t, "Waiting for Player 2 to join", label)

	last, err := f.engine.LastCreatedGameID()
	require.NoError(t, err)
	assert.Equal(t, id1, last)
	assert.Equal(t, []uint64{id0, id1}, f.engine.ListCreatedGames())
}

func TestJoinGame(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.CreateGame(alice, 3000, 10)
	require.NoError(t, err)

	err = f.engine.JoinGame(alice, id, 3000)
	assert.True(t, fault.Is(err, fault.Unauthorized), "self-join: got %v", err)

	err = f.engine.JoinGame(bob, id, 2999)
	assert.True(t, fault.Is(err, fault.BetMismatch), "got %v", err)

	err = f.engine.JoinGame(bob, 42, 3000)
	assert.True(t, fault.Is(err, fault.NotFound), "got %v", err)

	require.NoError(t, f.engine.JoinGame(bob, id, 3000))
	assert.Equal(t, uint64(6000), f.engine.Balance())

	g, err := f.engine.Game(id)
	require.NoError(t, err)
	assert.Equal(t, StatePlayer1Turn, g.State)
	assert.Equal(t, bob, g.Player2)

	err = f.engine.JoinGame(bob, id, 3000)
	assert.True(t, fault.Is(err, fault.WrongState), "double join: got %v", err)
}

func TestCancelGame(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.CreateGame(alice, 3000, 50)
	require.NoError(t, err)

	err = f.engine.CancelGame(bob, id)
	assert.True(t, fault.Is(err, fault.Unauthorized), "got %v", err)

	require.NoError(t, f.engine.CancelGame(alice, id))
	label, err := f.engine.GameStateLabel(id)
	require.NoError(t, err)
	assert.Equal(t, "Cancelled", label)

	err = f.engine.CancelGame(alice, id)
	assert.True(t, fault.Is(err, fault.WrongState), "got %v", err)
}

func TestCancelGame_AfterJoinRejected(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.CreateGame(alice, 3000, 10)
	require.NoError(t, err)
	require.NoError(t, f.engine.JoinGame(bob, id, 3000))

	err = f.engine.CancelGame(alice, id)
	assert.True(t, fault.Is(err, fault.WrongState), "got %v", err)
}

func TestCancelGame_RefundMinusFee(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.CreateGame(alice, 3000, 50)
	require.NoError(t, err)
	require.NoError(t, f.engine.CancelGame(alice, id))

	require.NoError(t, f.engine.GetWin(id))

	assert.Equal(t, uint64(30), f.ledger.Balance(treasuryAddr), "1% of 3000")
	assert.Equal(t, uint64(9970), f.ledger.Balance(alice))
	assert.Equal(t, uint64(0), f.engine.Balance())
}

func TestMakeTurn_Validation(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.CreateGame(alice, 3000, 10)
	require.NoError(t, err)

	err = f.engine.MakeTurn(alice, id, 1, 1)
	assert.True(t, fault.Is(err, fault.WrongState), "unjoined: got %v", err)

	require.NoError(t, f.engine.JoinGame(bob, id, 3000))

	err = f.engine.MakeTurn(bob, id, 1, 1)
	assert.True(t, fault.Is(err, fault.Unauthorized), "out of turn: got %v", err)

	err = f.engine.MakeTurn(alice, id, 3, 0)
	assert.True(t, fault.Is(err, fault.OutOfBounds), "got %v", err)
	err = f.engine.MakeTurn(alice, id, 0, -1)
	assert.True(t, fault.Is(err, fault.OutOfBounds), "got %v", err)

	require.NoError(t, f.engine.MakeTurn(alice, id, 1, 1))
	err = f.engine.MakeTurn(bob, id, 1, 1)
	assert.True(t, fault.Is(err, fault.CellOccupied), "got %v", err)
}

func TestMakeTurn_Alternates(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.CreateGame(alice, 3000, 10)
	require.NoError(t, err)
	require.NoError(t, f.engine.JoinGame(bob, id, 3000))

	require.NoError(t, f.engine.MakeTurn(alice, id, 1, 1))
	label, _ := f.engine.GameStateLabel(id)
	assert.Equal(t, "Player 2 Turn", label)

	require.NoError(t, f.engine.MakeTurn(bob, id, 0, 0))
	label, _ = f.engine.GameStateLabel(id)
	assert.Equal(t, "Player 1 Turn", label)

	field, err := f.engine.GameField(id)
	require.NoError(t, err)
	assert.Equal(t, board.P1, field[1][1])
	assert.Equal(t, board.P2, field[0][0])
}

func TestMakeTurn_PastDeadlineFailsMover(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.CreateGame(alice, 3000, 10)
	require.NoError(t, err)
	require.NoError(t, f.engine.JoinGame(bob, id, 3000))

	// Exactly at the window boundary is still allowed.
	f.clock.Advance(10)
	require.NoError(t, f.engine.MakeTurn(alice, id, 1, 1))

	f.clock.Advance(11)
	err = f.engine.MakeTurn(bob, id, 0, 0)
	assert.True(t, fault.Is(err, fault.TurnTimedOut), "got %v", err)

	g, err := f.engine.Game(id)
	require.NoError(t, err)
	assert.Equal(t, StatePlayer2Turn, g.State, "rejected turn leaves state alone")
	assert.Equal(t, board.Empty, g.Board[0][0])
}

func TestCheckGameState_Timeout(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.CreateGame(alice, 3000, 10)
	require.NoError(t, err)
	require.NoError(t, f.engine.JoinGame(bob, id, 3000))
	require.NoError(t, f.engine.MakeTurn(alice, id, 1, 1))

	// Within the window: no transition, no event.
	before := len(f.events)
	f.clock.Advance(10)
	require.NoError(t, f.engine.CheckGameState(id))
	g, _ := f.engine.Game(id)
	assert.Equal(t, StatePlayer2Turn, g.State)
	assert.Len(t, f.events, before)

	f.clock.Advance(1)
	require.NoError(t, f.engine.CheckGameState(id))
	g, _ = f.engine.Game(id)
	assert.Equal(t, StateTimeout, g.State)
	assert.Equal(t, bob, g.TimedOut, "due player is penalized")

	label, _ := f.engine.GameStateLabel(id)
	assert.Equal(t, "Player 2 Timeout", label)
}

func TestCheckGameState_WrongStates(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.CreateGame(alice, 3000, 50)
	require.NoError(t, err)

	err = f.engine.CheckGameState(id)
	assert.True(t, fault.Is(err, fault.WrongState), "unjoined: got %v", err)

	require.NoError(t, f.engine.CancelGame(alice, id))
	err = f.engine.CheckGameState(id)
	assert.True(t, fault.Is(err, fault.WrongState), "cancelled: got %v", err)

	err = f.engine.CheckGameState(42)
	assert.True(t, fault.Is(err, fault.NotFound), "got %v", err)
}

func TestCheckGameState_ReannouncesOutcome(t *testing.T) {
	f := newFixture(t)
	id := f.winForAlice(t)

	before := len(f.events)
	require.NoError(t, f.engine.CheckGameState(id))
	require.Len(t, f.events, before+1)
	assert.Equal(t, StatePlayer1Win, f.events[before].State)
}

// winForAlice plays the anti-diagonal win line for player1.
func (f *fixture) winForAlice(t *testing.T) uint64 {
	t.Helper()
	id, err := f.engine.CreateGame(alice, 3000, 10)
	require.NoError(t, err)
	require.NoError(t, f.engine.JoinGame(bob, id, 3000))
	f.playOut(t, id, [][2]int{
		{1, 1}, {1, 2}, {2, 1}, {0, 1}, {2, 0}, {2, 2}, {0, 2},
	})
	return id
}

func TestMakeTurn_DecisiveBoardEndsGame(t *testing.T) {
	f := newFixture(t)
	id := f.winForAlice(t)

	g, err := f.engine.Game(id)
	require.NoError(t, err)
	assert.Equal(t, StatePlayer1Win, g.State)

	label, _ := f.engine.GameStateLabel(id)
	assert.Equal(t, "Player 1 Win", label)

	err = f.engine.MakeTurn(bob, id, 0, 0)
	assert.True(t, fault.Is(err, fault.WrongState), "no turns after decision: got %v", err)
}

func TestGetWin_WinnerTakesPotMinusFee(t *testing.T) {
	f := newFixture(t)
	id := f.winForAlice(t)

	require.NoError(t, f.engine.GetWin(id))

	assert.Equal(t, uint64(60), f.ledger.Balance(treasuryAddr), "1% of 6000")
	assert.Equal(t, uint64(12940), f.ledger.Balance(alice), "10000 - 3000 + 5940")
	assert.Equal(t, uint64(7000), f.ledger.Balance(bob))
	assert.Equal(t, uint64(0), f.engine.Balance())

	label, _ := f.engine.GameStateLabel(id)
	assert.Equal(t, "Closed", label)
}

func TestGetWin_SecondCallRejected(t *testing.T) {
	f := newFixture(t)
	id := f.winForAlice(t)
	require.NoError(t, f.engine.GetWin(id))

	err := f.engine.GetWin(id)
	assert.True(t, fault.Is(err, fault.WrongState), "got %v", err)
	assert.Equal(t, uint64(12940), f.ledger.Balance(alice), "no double payout")
}

func TestGetWin_LiveGameRejected(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.CreateGame(alice, 3000, 10)
	require.NoError(t, err)

	err = f.engine.GetWin(id)
	assert.True(t, fault.Is(err, fault.WrongState), "unjoined: got %v", err)

	require.NoError(t, f.engine.JoinGame(bob, id, 3000))
	err = f.engine.GetWin(id)
	assert.True(t, fault.Is(err, fault.WrongState), "live: got %v", err)
}

func TestGetWin_DrawSplitsEvenly(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.CreateGame(alice, 3000, 10)
	require.NoError(t, err)
	require.NoError(t, f.engine.JoinGame(bob, id, 3000))
	f.playOut(t, id, [][2]int{
		{0, 0}, {0, 2}, {0, 1}, {1, 0}, {1, 2}, {1, 1}, {2, 0}, {2, 2}, {2, 1},
	})

	label, _ := f.engine.GameStateLabel(id)
	require.Equal(t, "Draw", label)

	require.NoError(t, f.engine.GetWin(id))
	assert.Equal(t, uint64(60), f.ledger.Balance(treasuryAddr))
	assert.Equal(t, uint64(9970), f.ledger.Balance(alice), "10000 - 3000 + 2970")
	assert.Equal(t, uint64(9970), f.ledger.Balance(bob))
}

func TestGetWin_TimeoutPaysOpponent(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.CreateGame(alice, 3000, 10)
	require.NoError(t, err)
	require.NoError(t, f.engine.JoinGame(bob, id, 3000))
	require.NoError(t, f.engine.MakeTurn(alice, id, 1, 1))

	f.clock.Advance(11)
	require.NoError(t, f.engine.CheckGameState(id)) // bob lapses
	require.NoError(t, f.engine.GetWin(id))

	assert.Equal(t, uint64(60), f.ledger.Balance(treasuryAddr))
	assert.Equal(t, uint64(12940), f.ledger.Balance(alice))
	assert.Equal(t, uint64(7000), f.ledger.Balance(bob))
}

func TestValueConservation(t *testing.T) {
	f := newFixture(t)
	total := f.ledger.Total()

	id := f.winForAlice(t)
	require.NoError(t, f.engine.GetWin(id))

	id2, err := f.engine.CreateGame(bob, 500, 20)
	require.NoError(t, err)
	require.NoError(t, f.engine.CancelGame(bob, id2))
	require.NoError(t, f.engine.GetWin(id2))

	assert.Equal(t, total, f.ledger.Total(), "no value created or destroyed")
}

func TestChangeFee_AppliesToLaterPayouts(t *testing.T) {
	key, err := identity.GenerateKey()
	require.NoError(t, err)

	f := newFixture(t)
	esc := ledger.NewEscrow(f.ledger, custody)
	e, err := New(esc, treasuryAddr, feeauth.New(key.Address(), 100),
		WithClock(f.clock), WithTokenGenerator(NewFixedGenerator("tok")))
	require.NoError(t, err)

	sig, err := feeauth.SignChange(key, 250, 0)
	require.NoError(t, err)
	require.NoError(t, e.ChangeFee(key.Address(), 250, sig))
	assert.Equal(t, uint64(250), e.FeeBps())

	id, err := e.CreateGame(alice, 2000, 50)
	require.NoError(t, err)
	require.NoError(t, e.CancelGame(alice, id))
	require.NoError(t, e.GetWin(id))
	assert.Equal(t, uint64(50), f.ledger.Balance(treasuryAddr), "2.5% of 2000")
}

func TestEvents_SequenceAndPlayers(t *testing.T) {
	f := newFixture(t)
	id, err := f.engine.CreateGame(alice, 3000, 10)
	require.NoError(t, err)
	require.NoError(t, f.engine.JoinGame(bob, id, 3000))

	require.Len(t, f.events, 2)

	created := f.events[0]
	assert.Equal(t, int64(1), created.Seq)
	assert.Equal(t, "tok-0001", created.Token)
	assert.Equal(t, StateWaitingForPlayer2, created.State)
	assert.Equal(t, alice, created.Player1)
	assert.True(t, created.Player2.IsZero(), "pre-join events carry no player2")

	joined := f.events[1]
	assert.Equal(t, int64(2), joined.Seq)
	assert.Equal(t, StatePlayer1Turn, joined.State)
	assert.Equal(t, bob, joined.Player2)

	for i := 1; i < len(f.events); i++ {
		assert.Greater(t, f.events[i].Seq, f.events[i-1].Seq)
	}
}

func TestStore_RestoreContinuesPlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.db")

	f := newFixture(t)
	s, err := store.Open(path)
	require.NoError(t, err)
	esc := ledger.NewEscrow(f.ledger, custody)
	e, err := New(esc, treasuryAddr, feeauth.New(admin, 100),
		WithClock(f.clock), WithTokenGenerator(NewFixedGenerator("tok")), WithStore(s))
	require.NoError(t, err)

	id, err := e.CreateGame(alice, 3000, 100)
	require.NoError(t, err)
	require.NoError(t, e.JoinGame(bob, id, 3000))
	require.NoError(t, e.MakeTurn(alice, id, 1, 1))
	require.NoError(t, s.Close())

	s2, err := store.Open(path)
	require.NoError(t, err)
	defer s2.Close()

	e2, err := New(esc, treasuryAddr, feeauth.New(admin, 100),
		WithClock(f.clock), WithTokenGenerator(NewFixedGenerator("tok2")), WithStore(s2))
	require.NoError(t, err)

	g, err := e2.Game(id)
	require.NoError(t, err)
	assert.Equal(t, StatePlayer2Turn, g.State)
	assert.Equal(t, board.P1, g.Board[1][1])
	assert.Equal(t, bob, g.Player2)

	// Play continues where it stopped, and new games get fresh ids.
	require.NoError(t, e2.MakeTurn(bob, id, 0, 0))
	id2, err := e2.CreateGame(alice, 100, 10)
	require.NoError(t, err)
	assert.Equal(t, id+1, id2)

	// Restored sequence numbers extend the persisted log.
	evs, err := s2.Events(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, evs)
	assert.Equal(t, int64(len(evs)), evs[len(evs)-1].Seq)
}
