package harness

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/settle/internal/account"
)

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Seq: 1, Kind: "indexed", ID: "A", Version: "v1", AtMs: 0},
		{Seq: 2, Kind: "indexed", ID: "A", Version: "v2", AtMs: 10},
		{Seq: 3, Kind: "superseded", ID: "A", Version: "v1", AtMs: 10},
		{Seq: 4, Kind: "settled", ID: "A", Version: "v2", AtMs: 30},
	}
	a := account.Update{ID: "A", Type: "t", Tokens: decimal.NewFromInt(2), Version: account.V(2)}
	r.Accounts = []account.Update{a}
	r.Top = []account.Update{a}
	r.Complete = true
	r.settled["A"] = true
	return r
}

func TestEvaluateAssertions_Passing(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertEventCount, Kind: "indexed", Count: 2},
		{Type: AssertEventCount, Kind: "superseded", ID: "A", Count: 1},
		{Type: AssertEventOrder, Events: []string{"indexed:A", "settled:A"}},
		{Type: AssertFinalState, ID: "A", Expect: map[string]any{"version": 2, "tokens": "2.0", "accountType": "t", "settled": true}},
		{Type: AssertComplete, Expect: map[string]any{"value": true}},
		{Type: AssertTopByCategory, Top: []TopExpectation{{AccountType: "t", ID: "A"}}},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failing(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"count", Assertion{Type: AssertEventCount, Kind: "ignored", ID: "A", Count: 1}, "ignored:A appears 1 times"},
		{"order", Assertion{Type: AssertEventOrder, Events: []string{"settled:A", "indexed:A"}}, "missing indexed:A"},
		{"missing entry", Assertion{Type: AssertFinalState, ID: "Z", Expect: map[string]any{"settled": true}}, "entry for Z"},
		{"version", Assertion{Type: AssertFinalState, ID: "A", Expect: map[string]any{"version": 1}}, "A.version = 1"},
		{"unset version", Assertion{Type: AssertFinalState, ID: "A", Expect: map[string]any{"version": nil}}, "A.version"},
		{"unknown field", Assertion{Type: AssertFinalState, ID: "A", Expect: map[string]any{"colour": "red"}}, `unknown field "colour"`},
		{"complete", Assertion{Type: AssertComplete, Expect: map[string]any{"value": false}}, "complete = false"},
		{"top", Assertion{Type: AssertTopByCategory}, "Assertion failed: top_by_category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertEventCount,
		Expected: "x",
		Actual:   "y",
		Trace:    []TraceEvent{{Seq: 1, Kind: "indexed", ID: "A", Version: "v1", AtMs: 0}},
	}
	assert.Contains(t, err.Error(), "Full trace:")
	assert.Contains(t, err.Error(), "[1]    0ms indexed A v1")
}
