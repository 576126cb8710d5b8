// Package harness provides scenario-driven conformance testing for
// the game engine and the treasury.
//
// Scenarios are YAML files that script a sequence of operations
// against a freshly built engine, treasury, and ledger, then assert
// on final balances and game states. Execution is fully
// deterministic: a manual clock pinned at a fixed epoch, fixed
// correlation tokens, and a fresh in-memory ledger per run. The
// emitted state-change events and per-step results form a trace that
// is serialized as canonical JSON and compared against golden files.
//
// # Scenario Format
//
//	name: decisive_win
//	description: "Full game to a player1 win line and payout"
//	funding:
//	  alice: 10000
//	  bob: 10000
//	treasury:
//	  owners: [owner1, owner2]
//	  required: 2
//	steps:
//	  - op: createGame
//	    caller: alice
//	    bet: 3000
//	    timeout: 10
//	  - op: makeTurn
//	    caller: alice
//	    game: 0
//	    x: 1
//	    y: 1
//	  - op: getWin
//	    game: 0
//	    expect: { error: WRONG_STATE }
//	checks:
//	  - { type: balance, account: alice, value: 12940 }
//	  - { type: label, game: 0, value: Closed }
//
// A step without an expect clause must succeed; a step with
// expect.error must fail with exactly that code. The advanceClock op
// moves the scenario clock without touching any record, which is how
// scenarios exercise turn deadlines.
//
// # Golden Traces
//
// RunWithGolden compares the canonical-JSON trace against
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
