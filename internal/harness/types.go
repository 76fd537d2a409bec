package harness

import (
	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/ledger"
)

// TraceEvent is one ledger event in a scenario trace.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Version string `json:"version"`
	AtMs    int64  `json:"at_ms"`
}

func traceEventOf(e ledger.Event) TraceEvent {
	return TraceEvent{
		Seq:     e.Seq,
		Kind:    e.Kind.String(),
		ID:      e.Update.ID,
		Version: e.Update.Version.String(),
		AtMs:    e.At.Milliseconds(),
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every check and assertion held.
	Pass bool `json:"pass"`

	// Trace lists ledger events in sequence order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds failed check and assertion messages.
	Errors []string `json:"errors,omitempty"`

	// Accounts is the final ledger snapshot, ordered by identity.
	Accounts []account.Update `json:"accounts"`

	// Top is the aggregation of Accounts.
	Top []account.Update `json:"top"`

	// Complete reports whether every entry settled by the end.
	Complete bool `json:"complete"`

	Stats ledger.Stats `json:"stats"`

	// EndMs is virtual time after the scheduler drained.
	EndMs int64 `json:"end_ms"`

	settled map[string]bool
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		settled: map[string]bool{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// account returns the final entry for id.
func (r *Result) account(id string) (account.Update, bool) {
	for _, u := range r.Accounts {
		if u.ID == id {
			return u, true
		}
	}
	return account.Update{}, false
}
