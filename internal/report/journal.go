package report

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/ingest"
	"github.com/roach88/settle/internal/ledger"
)

// JournalWriter persists journal records. Implemented by *store.Store.
type JournalWriter interface {
	BeginRun(ctx context.Context, runID, input string, updates int) error
	WriteEvent(ctx context.Context, runID string, e ledger.Event) error
	WriteResults(ctx context.Context, runID string, accounts, top []account.Update) error
	FinishRun(ctx context.Context, runID string, stats ledger.Stats, runErr error) error
}

// Journal records a run through a JournalWriter on a background goroutine.
//
// Notifications are queued without blocking and written in arrival order.
// Write failures are logged and counted; they never reach the run.
// Call Close exactly once after the run returns.
type Journal struct {
	w      JournalWriter
	input  string
	logger *slog.Logger
	q      *queue[journalOp]
	done   chan struct{}

	mu       sync.Mutex
	runID    string
	stats    ledger.Stats
	failures int
	firstErr error
}

// NewJournal starts a journal for a run over input.
func NewJournal(w JournalWriter, input string, logger *slog.Logger) *Journal {
	j := &Journal{
		w:      w,
		input:  input,
		logger: logger,
		q:      newQueue[journalOp](),
		done:   make(chan struct{}),
	}
	go j.drain()
	return j
}

// Begin queues the run record.
func (j *Journal) Begin(runID string, batch []account.Update) {
	j.mu.Lock()
	j.runID = runID
	j.mu.Unlock()
	j.q.Enqueue(journalOp{kind: opBegin, runID: runID, batch: len(batch)})
}

// Observe queues the event and counts it.
func (j *Journal) Observe(e ledger.Event) {
	j.mu.Lock()
	runID := j.runID
	switch e.Kind {
	case ledger.EventIndexed:
		j.stats.Indexed++
	case ledger.EventIgnored:
		j.stats.Ignored++
	case ledger.EventSuperseded:
		j.stats.Superseded++
	case ledger.EventSettled:
		j.stats.Settled++
	}
	j.mu.Unlock()
	j.q.Enqueue(journalOp{kind: opEvent, runID: runID, event: e})
}

// Complete queues the run's results.
func (j *Journal) Complete(res *ingest.Result) {
	j.q.Enqueue(journalOp{kind: opComplete, runID: res.RunID, result: res})
}

// Close flushes queued writes and records the run's terminal state.
// runErr is the run's own error, if any. Returns the first write error.
func (j *Journal) Close(runErr error) error {
	j.q.Close()
	<-j.done

	j.mu.Lock()
	runID, stats := j.runID, j.stats
	j.mu.Unlock()

	if runID != "" {
		j.record(runID, "finish run", j.w.FinishRun(context.Background(), runID, stats, runErr))
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.firstErr
}

// Failures returns the number of failed writes so far.
func (j *Journal) Failures() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.failures
}

func (j *Journal) drain() {
	defer close(j.done)
	ctx := context.Background()

	for {
		op, ok := j.q.Dequeue()
		if !ok {
			return
		}
		switch op.kind {
		case opBegin:
			j.record(op.runID, "begin run", j.w.BeginRun(ctx, op.runID, j.input, op.batch))
		case opEvent:
			j.record(op.runID, "write event", j.w.WriteEvent(ctx, op.runID, op.event))
		case opComplete:
			j.record(op.runID, "write results", j.w.WriteResults(ctx, op.runID, op.result.Accounts, op.result.Top))
		}
	}
}

func (j *Journal) record(runID, what string, err error) {
	if err == nil {
		return
	}
	j.logger.Error("journal write failed", "run_id", runID, "op", what, "error", err)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.failures++
	if j.firstErr == nil {
		j.firstErr = err
	}
}

var _ ingest.Reporter = (*Journal)(nil)
