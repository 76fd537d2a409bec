package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/settle/internal/account"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %4dms %s %s %s\n", ev.Seq, ev.AtMs, ev.Kind, ev.ID, ev.Version)
		}
	}
	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEventCount:
			err = assertEventCount(result.Trace, a)
		case AssertEventOrder:
			err = assertEventOrder(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(result, a)
		case AssertComplete:
			err = assertComplete(result, a)
		case AssertTopByCategory:
			err = assertTopByCategory(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertEventCount checks the number of events of a kind, optionally for one id.
func assertEventCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Kind == a.Kind && (a.ID == "" || ev.ID == a.ID) {
			count++
		}
	}
	if count == a.Count {
		return nil
	}

	subject := a.Kind
	if a.ID != "" {
		subject = a.Kind + ":" + a.ID
	}
	return &AssertionError{
		Type:     AssertEventCount,
		Expected: fmt.Sprintf("%s appears %d times", subject, a.Count),
		Actual:   fmt.Sprintf("appears %d times", count),
		Trace:    trace,
	}
}

// assertEventOrder checks that the listed events occur as a subsequence of
// the trace. Intervening events are allowed.
func assertEventOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next == len(a.Events) {
			break
		}
		kind, id, _ := splitEventRef(a.Events[next])
		if ev.Kind == kind && ev.ID == id {
			next++
		}
	}
	if next == len(a.Events) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventOrder,
		Expected: fmt.Sprintf("events in order: %v", a.Events),
		Actual:   fmt.Sprintf("missing %s after %v", a.Events[next], a.Events[:next]),
		Trace:    trace,
	}
}

func splitEventRef(ref string) (kind, id string, err error) {
	kind, id, ok := strings.Cut(ref, ":")
	if !ok || kind == "" || id == "" {
		return "", "", fmt.Errorf("event reference %q must be kind:id", ref)
	}
	return kind, id, nil
}

// assertFinalState checks the final entry for a.ID. Keys are checked in
// sorted order so the first mismatch reported is deterministic.
func assertFinalState(result *Result, a Assertion) error {
	u, ok := result.account(a.ID)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("entry for %s", a.ID),
			Actual:   "no entry",
		}
	}

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		want := a.Expect[k]
		got, match, err := finalStateField(result, u, k, want)
		if err != nil {
			return fmt.Errorf("final_state %s: %w", a.ID, err)
		}
		if !match {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %v", a.ID, k, want),
				Actual:   fmt.Sprintf("%s.%s = %v", a.ID, k, got),
			}
		}
	}
	return nil
}

func finalStateField(result *Result, u account.Update, field string, want any) (got any, match bool, err error) {
	switch field {
	case "version":
		if want == nil {
			return u.Version, !u.Version.IsSet(), nil
		}
		n, ok := toInt64(want)
		if !ok {
			return nil, false, fmt.Errorf("version must be an integer or null, got %T", want)
		}
		return u.Version, u.Version.IsSet() && u.Version.Value() == n, nil
	case "tokens":
		d, err := decimal.NewFromString(fmt.Sprint(want))
		if err != nil {
			return nil, false, fmt.Errorf("tokens: %w", err)
		}
		return u.Tokens, u.Tokens.Equal(d), nil
	case "accountType":
		return u.Type, u.Type == fmt.Sprint(want), nil
	case "settled":
		b, ok := want.(bool)
		if !ok {
			return nil, false, fmt.Errorf("settled must be a bool, got %T", want)
		}
		return result.settled[u.ID], result.settled[u.ID] == b, nil
	default:
		return nil, false, fmt.Errorf("unknown field %q", field)
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), float64(int64(n)) == n
	default:
		return 0, false
	}
}

func assertComplete(result *Result, a Assertion) error {
	want := a.Expect["value"].(bool)
	if result.Complete == want {
		return nil
	}
	return &AssertionError{
		Type:     AssertComplete,
		Expected: fmt.Sprintf("complete = %v", want),
		Actual:   fmt.Sprintf("complete = %v", result.Complete),
		Trace:    result.Trace,
	}
}

func assertTopByCategory(result *Result, a Assertion) error {
	got := make([]TopExpectation, len(result.Top))
	for i, u := range result.Top {
		got[i] = TopExpectation{AccountType: u.Type, ID: u.ID}
	}

	mismatch := len(got) != len(a.Top)
	for i := 0; !mismatch && i < len(got); i++ {
		mismatch = got[i] != a.Top[i]
	}
	if !mismatch {
		return nil
	}
	return &AssertionError{
		Type:     AssertTopByCategory,
		Expected: fmt.Sprintf("%v", a.Top),
		Actual:   fmt.Sprintf("%v", got),
	}
}
