package harness

import (
	"fmt"

	"github.com/veles/noughts/internal/engine"
	"github.com/veles/noughts/internal/fault"
	"github.com/veles/noughts/internal/feeauth"
	"github.com/veles/noughts/internal/identity"
	"github.com/veles/noughts/internal/ledger"
	"github.com/veles/noughts/internal/testutil"
	"github.com/veles/noughts/internal/treasury"
)

// Fixed world for every scenario run: same epoch, same account names,
// same token prefix, so traces are identical across runs.
const (
	scenarioEpoch   = 1000
	custodyAccount  = identity.Address("escrow")
	treasuryAccount = identity.Address("treasury")
	defaultFeeBps   = 100
	tokenPrefix     = "tok"
)

// StepResult records one executed step for the trace.
type StepResult struct {
	Op    string
	OK    bool
	Error string // fault code when OK is false
}

// Result is the full outcome of one scenario run.
type Result struct {
	Steps  []StepResult
	Events []engine.StateChange
}

// runner holds the live components for one scenario execution.
type runner struct {
	ledger   *ledger.Ledger
	clock    *testutil.ManualClock
	engine   *engine.Engine
	treasury *treasury.Treasury
	adminKey *identity.Key
	fees     *feeauth.Authorizer
	result   *Result
}

// Run executes a scenario against a freshly built world. It returns
// an error when a step's outcome contradicts its expect clause, when
// a final check fails, or when the scenario cannot be set up.
func Run(s *Scenario) (*Result, error) {
	r, err := newRunner(s)
	if err != nil {
		return nil, err
	}
	for i, step := range s.Steps {
		if err := r.runStep(i, step); err != nil {
			return nil, err
		}
	}
	for i, c := range s.Checks {
		if err := r.check(c); err != nil {
			return nil, fmt.Errorf("checks[%d]: %w", i, err)
		}
	}
	return r.result, nil
}

func newRunner(s *Scenario) (*runner, error) {
	r := &runner{
		ledger: ledger.New(),
		clock:  testutil.NewManualClock(scenarioEpoch),
		result: &Result{},
	}
	for account, amount := range s.Funding {
		r.ledger.Mint(identity.Address(account), amount)
	}

	// The administrator key is generated per run; its address never
	// appears in the trace, so the trace stays deterministic.
	key, err := identity.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate admin key: %w", err)
	}
	r.adminKey = key

	feeBps := uint64(defaultFeeBps)
	if s.FeeBps != nil {
		feeBps = *s.FeeBps
	}
	r.fees = feeauth.New(key.Address(), feeBps)

	esc := ledger.NewEscrow(r.ledger, custodyAccount)
	eng, err := engine.New(esc, treasuryAccount, r.fees,
		engine.WithClock(r.clock),
		engine.WithTokenGenerator(engine.NewFixedGenerator(tokenPrefix)),
	)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	eng.Notify(func(ev engine.StateChange) {
		r.result.Events = append(r.result.Events, ev)
	})
	r.engine = eng

	if s.Treasury != nil {
		tr, err := treasury.New(r.ledger, treasuryAccount)
		if err != nil {
			return nil, fmt.Errorf("build treasury: %w", err)
		}
		owners := make([]identity.Address, len(s.Treasury.Owners))
		for i, o := range s.Treasury.Owners {
			owners[i] = identity.Address(o)
		}
		if err := tr.Initialize(owners, s.Treasury.Required); err != nil {
			return nil, fmt.Errorf("initialize treasury: %w", err)
		}
		r.treasury = tr
	}
	return r, nil
}

// runStep executes one step and reconciles the outcome against its
// expect clause.
func (r *runner) runStep(i int, step Step) error {
	err := r.dispatch(step)

	sr := StepResult{Op: step.Op, OK: err == nil}
	if err != nil {
		code := fault.CodeOf(err)
		if code == "" {
			return fmt.Errorf("steps[%d] (%s): uncoded failure: %w", i, step.Op, err)
		}
		sr.Error = string(code)
	}
	r.result.Steps = append(r.result.Steps, sr)

	switch {
	case step.Expect == nil && err != nil:
		return fmt.Errorf("steps[%d] (%s): unexpected failure: %w", i, step.Op, err)
	case step.Expect != nil && err == nil:
		return fmt.Errorf("steps[%d] (%s): succeeded, want %s", i, step.Op, step.Expect.Error)
	case step.Expect != nil && sr.Error != step.Expect.Error:
		return fmt.Errorf("steps[%d] (%s): failed with %s, want %s", i, step.Op, sr.Error, step.Expect.Error)
	}
	return nil
}

func (r *runner) dispatch(step Step) error {
	caller := identity.Address(step.Caller)
	switch step.Op {
	case "createGame":
		_, err := r.engine.CreateGame(caller, step.Bet, step.Timeout)
		return err
	case "joinGame":
		return r.engine.JoinGame(caller, step.Game, step.Bet)
	case "cancelGame":
		return r.engine.CancelGame(caller, step.Game)
	case "makeTurn":
		return r.engine.MakeTurn(caller, step.Game, step.X, step.Y)
	case "checkGameState":
		return r.engine.CheckGameState(step.Game)
	case "getWin":
		return r.engine.GetWin(step.Game)
	case "changeFee":
		admin := r.adminKey.Address()
		sig, err := feeauth.SignChange(r.adminKey, step.Value, r.fees.Nonce(admin))
		if err != nil {
			return err
		}
		return r.engine.ChangeFee(admin, step.Value, sig)
	case "advanceClock":
		r.clock.Advance(step.Seconds)
		return nil
	}
	if treasuryOps[step.Op] && r.treasury == nil {
		return fmt.Errorf("%s requires a treasury section", step.Op)
	}
	switch step.Op {
	case "submitTransaction":
		_, err := r.treasury.SubmitTransaction(caller, identity.Address(step.Destination), step.Value, nil)
		return err
	case "confirmTransaction":
		return r.treasury.ConfirmTransaction(caller, step.Tx)
	case "executeTransaction":
		return r.treasury.ExecuteTransaction(caller, step.Tx)
	}
	return fmt.Errorf("unknown op %q", step.Op)
}

// check evaluates one final-state assertion.
func (r *runner) check(c Check) error {
	switch c.Type {
	case CheckBalance:
		return wantUint(c, r.ledger.Balance(identity.Address(c.Account)))
	case CheckEscrow:
		return wantUint(c, r.engine.Balance())
	case CheckTreasury:
		return wantUint(c, r.ledger.Balance(treasuryAccount))
	case CheckState:
		g, err := r.engine.Game(c.Game)
		if err != nil {
			return err
		}
		return wantUint(c, uint64(g.State))
	case CheckLabel:
		label, err := r.engine.GameStateLabel(c.Game)
		if err != nil {
			return err
		}
		want, ok := c.Value.(string)
		if !ok {
			return fmt.Errorf("label check needs a string value, got %T", c.Value)
		}
		if label != want {
			return fmt.Errorf("game %d label %q, want %q", c.Game, label, want)
		}
		return nil
	}
	return fmt.Errorf("unknown check type %q", c.Type)
}

func wantUint(c Check, got uint64) error {
	want, err := asUint64(c.Value)
	if err != nil {
		return fmt.Errorf("%s check: %w", c.Type, err)
	}
	if got != want {
		return fmt.Errorf("%s is %d, want %d", c.Type, got, want)
	}
	return nil
}

func asUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	default:
		return 0, fmt.Errorf("value %v is not an integer", v)
	}
}
