package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario scripts a deterministic run against the engine and,
// optionally, the treasury.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// FeeBps overrides the fee rate. Defaults to 100 (1%).
	FeeBps *uint64 `yaml:"fee_bps,omitempty"`

	// Funding mints initial balances, account name to amount.
	Funding map[string]uint64 `yaml:"funding,omitempty"`

	// Treasury, when present, initializes the multi-signature wallet
	// so treasury ops can run.
	Treasury *TreasuryConfig `yaml:"treasury,omitempty"`

	// Steps is the scripted operation sequence.
	Steps []Step `yaml:"steps"`

	// Checks assert on final balances and game states.
	Checks []Check `yaml:"checks,omitempty"`
}

// TreasuryConfig establishes the owner set for treasury steps.
type TreasuryConfig struct {
	Owners   []string `yaml:"owners"`
	Required int      `yaml:"required"`
}

// Step is one scripted operation.
//
// Ops: createGame, joinGame, cancelGame, makeTurn, checkGameState,
// getWin, changeFee, advanceClock, submitTransaction,
// confirmTransaction, executeTransaction.
type Step struct {
	Op     string `yaml:"op"`
	Caller string `yaml:"caller,omitempty"`

	// Game operations.
	Game    uint64 `yaml:"game,omitempty"`
	Bet     uint64 `yaml:"bet,omitempty"`
	Timeout int64  `yaml:"timeout,omitempty"`
	X       int    `yaml:"x,omitempty"`
	Y       int    `yaml:"y,omitempty"`

	// advanceClock.
	Seconds int64 `yaml:"seconds,omitempty"`

	// changeFee and treasury operations.
	Value       uint64 `yaml:"value,omitempty"`
	Destination string `yaml:"destination,omitempty"`
	Tx          uint64 `yaml:"tx,omitempty"`

	// Expect, when present, requires the step to fail with the given
	// code. Absent means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is a step's required failure.
type Expect struct {
	Error string `yaml:"error"`
}

// Check asserts on final state.
//
// Types: balance (account, value), escrow (value), treasury (value),
// state (game, value), label (game, value).
type Check struct {
	Type    string `yaml:"type"`
	Account string `yaml:"account,omitempty"`
	Game    uint64 `yaml:"game,omitempty"`
	Value   any    `yaml:"value"`
}

// Check type constants.
const (
	CheckBalance  = "balance"
	CheckEscrow   = "escrow"
	CheckTreasury = "treasury"
	CheckState    = "state"
	CheckLabel    = "label"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected to catch typos.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

var knownOps = map[string]bool{
	"createGame":         true,
	"joinGame":           true,
	"cancelGame":         true,
	"makeTurn":           true,
	"checkGameState":     true,
	"getWin":             true,
	"changeFee":          true,
	"advanceClock":       true,
	"submitTransaction":  true,
	"confirmTransaction": true,
	"executeTransaction": true,
}

var treasuryOps = map[string]bool{
	"submitTransaction":  true,
	"confirmTransaction": true,
	"executeTransaction": true,
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if treasuryOps[step.Op] && s.Treasury == nil {
			return fmt.Errorf("steps[%d]: %s requires a treasury section", i, step.Op)
		}
		if step.Expect != nil && step.Expect.Error == "" {
			return fmt.Errorf("steps[%d].expect: error is required", i)
		}
	}
	for i, c := range s.Checks {
		switch c.Type {
		case CheckBalance:
			if c.Account == "" {
				return fmt.Errorf("checks[%d]: account is required for balance", i)
			}
		case CheckEscrow, CheckTreasury, CheckState, CheckLabel:
		default:
			return fmt.Errorf("checks[%d]: unknown check type %q", i, c.Type)
		}
		if c.Value == nil {
			return fmt.Errorf("checks[%d]: value is required", i)
		}
	}
	return nil
}
