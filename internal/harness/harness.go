package harness

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/settle/internal/clock"
	"github.com/roach88/settle/internal/ledger"
	"github.com/roach88/settle/internal/testutil"
)

// Run executes a scenario on a fresh ledger and virtual scheduler.
//
// Execution flow:
//  1. Advance virtual time to each step, firing due settlements
//  2. Index the step's update, or check completeness
//  3. Drain the scheduler
//  4. Snapshot, aggregate and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	if scenario.updates == nil {
		if err := scenario.decodeUpdates(scenario.Name); err != nil {
			return nil, fmt.Errorf("decode updates: %w", err)
		}
	}

	sched := testutil.NewVirtualScheduler()
	rec := ledger.NewRecorder()
	led := ledger.New(sched,
		ledger.WithObserver(rec),
		ledger.WithSequencer(clock.NewSequence()),
		ledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	result := NewResult()
	for i, step := range scenario.Steps {
		sched.AdvanceTo(time.Duration(step.AtMs) * time.Millisecond)

		if u := scenario.updates[i]; u != nil {
			led.Index(u.WithStartTime(sched.Now()))
			continue
		}
		if got := led.IsComplete(); got != *step.ExpectComplete {
			result.AddError(fmt.Sprintf("steps[%d] at %dms: expected complete=%v, got %v",
				i, step.AtMs, *step.ExpectComplete, got))
		}
	}
	end := sched.RunUntilIdle()

	for _, e := range rec.Events() {
		result.Trace = append(result.Trace, traceEventOf(e))
	}
	result.Accounts = led.Snapshot()
	result.Top = ledger.TopByCategory(result.Accounts)
	result.Complete = led.IsComplete()
	result.Stats = led.Stats()
	result.EndMs = end.Milliseconds()
	for _, u := range result.Accounts {
		view, _ := led.Entry(u.ID)
		result.settled[u.ID] = view.Settled
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}
