package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/veles/noughts/internal/canon"
)

// snapshot converts a result to the canonical trace form. Object keys
// serialize sorted, so the byte output is stable across runs.
func snapshot(name string, result *Result) canon.Obj {
	steps := make(canon.Arr, len(result.Steps))
	for i, sr := range result.Steps {
		step := canon.Obj{
			"op": canon.Str(sr.Op),
			"ok": canon.Bool(sr.OK),
		}
		if sr.Error != "" {
			step["error"] = canon.Str(sr.Error)
		}
		steps[i] = step
	}

	events := make(canon.Arr, len(result.Events))
	for i, ev := range result.Events {
		events[i] = canon.Obj{
			"seq":     canon.Int(ev.Seq),
			"token":   canon.Str(ev.Token),
			"game":    canon.Int(ev.GameID),
			"player1": canon.Str(ev.Player1),
			"player2": canon.Str(ev.Player2),
			"state":   canon.Int(ev.State),
		}
	}

	return canon.Obj{
		"scenario": canon.Str(name),
		"steps":    steps,
		"events":   events,
	}
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{name}.golden. Returns an error if the scenario
// itself fails; a trace mismatch fails the test via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	trace, err := canon.Marshal(snapshot(scenario.Name, result))
	if err != nil {
		return err
	}
	trace = append(trace, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, trace)
	return nil
}
