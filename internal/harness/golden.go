package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/settle/internal/account"
)

// TraceSnapshot is the golden form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string
	Result       *Result
}

// toCanonicalMap converts the snapshot to generic values for canonical JSON.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Result.Trace))
	for i, ev := range s.Result.Trace {
		trace[i] = map[string]any{
			"seq":     ev.Seq,
			"kind":    ev.Kind,
			"id":      ev.ID,
			"version": ev.Version,
			"at_ms":   ev.AtMs,
		}
	}

	top := make([]any, len(s.Result.Top))
	for i, u := range s.Result.Top {
		top[i] = map[string]any{
			"account_type": u.Type,
			"id":           u.ID,
			"version":      u.Version.String(),
			"tokens":       u.Tokens.String(),
		}
	}

	return map[string]any{
		"scenario": s.ScenarioName,
		"trace":    trace,
		"top":      top,
		"complete": s.Result.Complete,
		"end_ms":   s.Result.EndMs,
	}
}

// MarshalSnapshot renders a result as canonical JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snap := TraceSnapshot{ScenarioName: name, Result: result}
	return account.MarshalCanonicalValue(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
