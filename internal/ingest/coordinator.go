package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/clock"
	"github.com/roach88/settle/internal/ledger"
)

// Default jitter bounds.
const (
	DefaultJitterMin = 0
	DefaultJitterMax = 1000 * time.Millisecond
)

// ErrAlreadyStarted is returned by Run on a coordinator that has run before.
var ErrAlreadyStarted = errors.New("coordinator already started")

// Source supplies the update batch.
// Implemented by parser.FileSource.
type Source interface {
	Load(ctx context.Context) ([]account.Update, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]account.Update, error)

// Load calls f(ctx).
func (f SourceFunc) Load(ctx context.Context) ([]account.Update, error) { return f(ctx) }

// StaticSource is an in-memory batch.
type StaticSource []account.Update

// Load returns the batch.
func (s StaticSource) Load(context.Context) ([]account.Update, error) { return s, nil }

// Reporter receives ledger events and the run's bookends.
// Reporters must not block and must not fail the run.
type Reporter interface {
	ledger.Observer
	Begin(runID string, batch []account.Update)
	Complete(res *Result)
}

// Result is the outcome of a completed run.
type Result struct {
	RunID string `json:"run_id"`

	// Accounts is the final entry per identity, ordered by identity.
	Accounts []account.Update `json:"accounts"`

	// Top holds the heaviest account per category, ordered by category.
	Top []account.Update `json:"top"`

	Stats ledger.Stats `json:"stats"`

	// Elapsed is scheduler time from load to aggregation.
	Elapsed time.Duration `json:"-"`
}

// Coordinator runs one batch through a ledger.
type Coordinator struct {
	source    Source
	sched     clock.Scheduler
	random    RandomSource
	runIDs    RunIDGenerator
	reporter  Reporter
	seq       ledger.Sequencer
	logger    *slog.Logger
	jitterMin time.Duration
	jitterMax time.Duration

	state  atomic.Int32
	ledger atomic.Pointer[ledger.Ledger]
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRandom sets the jitter source.
func WithRandom(r RandomSource) Option {
	return func(c *Coordinator) { c.random = r }
}

// WithJitter sets the inclusive jitter range. Use WithJitter(0, 0) to
// dispatch without delay.
func WithJitter(min, max time.Duration) Option {
	return func(c *Coordinator) {
		c.jitterMin = min
		c.jitterMax = max
	}
}

// WithReporter routes events and the final summary to r.
func WithReporter(r Reporter) Option {
	return func(c *Coordinator) { c.reporter = r }
}

// WithRunIDGenerator replaces the UUIDv7 run id generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(c *Coordinator) { c.runIDs = g }
}

// WithSequencer sets the sequence used to stamp ledger events.
func WithSequencer(s ledger.Sequencer) Option {
	return func(c *Coordinator) { c.seq = s }
}

// WithLogger sets the logger for state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// New creates a coordinator that loads from src and times settlements on sched.
func New(src Source, sched clock.Scheduler, opts ...Option) *Coordinator {
	c := &Coordinator{
		source:    src,
		sched:     sched,
		random:    NewUniformRandom(),
		runIDs:    UUIDv7Generator{},
		reporter:  nopReporter{},
		logger:    slog.Default(),
		jitterMin: DefaultJitterMin,
		jitterMax: DefaultJitterMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.seq == nil {
		c.seq = clock.NewSequence()
	}
	return c
}

// State returns the current run state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Ledger returns the run's ledger, or nil before dispatch.
func (c *Coordinator) Ledger() *ledger.Ledger {
	return c.ledger.Load()
}

func (c *Coordinator) transition(from, to State, attrs ...any) bool {
	if !c.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	c.logger.Info("run state", append([]any{"from", from.String(), "to", to.String()}, attrs...)...)
	return true
}

func (c *Coordinator) fail(err error) error {
	from := State(c.state.Swap(int32(StateFailed)))
	c.logger.Error("run failed", "state", from.String(), "error", err)
	return err
}

// Run executes the batch to completion.
//
// Input errors abort before dispatch. A cancelled context aborts dispatch
// and the settlement barrier. The returned Result lists the final entry per
// identity and the top account per category.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	if c.State() != StatePending {
		return nil, ErrAlreadyStarted
	}
	started := c.sched.Now()

	batch, err := c.source.Load(ctx)
	if err != nil {
		return nil, c.fail(fmt.Errorf("load batch: %w", err))
	}

	runID := c.runIDs.Generate()
	led := ledger.New(c.sched,
		ledger.WithObserver(c.reporter),
		ledger.WithSequencer(c.seq),
		ledger.WithLogger(c.logger.With("run_id", runID)),
	)
	c.ledger.Store(led)

	if !c.transition(StatePending, StateDispatching, "run_id", runID, "updates", len(batch)) {
		return nil, ErrAlreadyStarted
	}
	c.reporter.Begin(runID, batch)

	if err := c.dispatch(ctx, led, batch); err != nil {
		return nil, c.fail(fmt.Errorf("dispatch: %w", err))
	}

	c.transition(StateDispatching, StateAwaitingSettlement, "entries", led.Len())
	if err := led.Wait(ctx); err != nil {
		return nil, c.fail(fmt.Errorf("await settlement: %w", err))
	}

	c.transition(StateAwaitingSettlement, StateAggregating)
	if err := led.EnsureComplete(); err != nil {
		return nil, c.fail(err)
	}
	accounts := led.Snapshot()
	res := &Result{
		RunID:    runID,
		Accounts: accounts,
		Top:      ledger.TopByCategory(accounts),
		Stats:    led.Stats(),
		Elapsed:  c.sched.Now() - started,
	}
	c.reporter.Complete(res)

	c.transition(StateAggregating, StateDone, "accounts", len(res.Accounts), "categories", len(res.Top))
	return res, nil
}

// dispatch indexes every update after its own pre-delay. Delays run in
// parallel; the random source is consulted once per update, in batch order.
func (c *Coordinator) dispatch(ctx context.Context, led *ledger.Ledger, batch []account.Update) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range batch {
		delay := c.random.Between(c.jitterMin, c.jitterMax)
		g.Go(func() error {
			if err := clock.Sleep(gctx, c.sched, delay); err != nil {
				return err
			}
			led.Index(u.WithStartTime(delay))
			return nil
		})
	}
	return g.Wait()
}

type nopReporter struct{}

func (nopReporter) Observe(ledger.Event) {}

func (nopReporter) Begin(string, []account.Update) {}

func (nopReporter) Complete(*Result) {}
