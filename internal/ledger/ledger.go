package ledger

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/clock"
)

// Sequencer stamps events with a monotonic sequence.
// Implemented by clock.Sequence.
type Sequencer interface {
	Next() int64
}

// Stats counts ledger events by kind.
type Stats struct {
	Indexed    int `json:"indexed"`
	Ignored    int `json:"ignored"`
	Superseded int `json:"superseded"`
	Settled    int `json:"settled"`
}

// Ledger is the reconciliation table.
//
// Thread-safety model:
//   - Index(): safe from any goroutine; linearizable per ledger
//   - ShouldAccept(), IsComplete(), EnsureComplete(), Snapshot(), Entry(),
//     Stats(): read-only, safe concurrently with Index
//   - Wait(): safe from any goroutine
type Ledger struct {
	sched    clock.Scheduler
	seq      Sequencer
	observer Observer
	logger   *slog.Logger

	mu        sync.RWMutex
	entries   map[string]*entry
	unsettled int
	idle      chan struct{} // closed while unsettled == 0
	stats     Stats
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithObserver routes ledger events to o.
func WithObserver(o Observer) Option {
	return func(l *Ledger) {
		l.observer = o
	}
}

// WithSequencer replaces the default event sequence.
func WithSequencer(s Sequencer) Option {
	return func(l *Ledger) {
		l.seq = s
	}
}

// WithLogger sets the logger for ledger decisions (debug level).
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// New creates an empty ledger whose settlement timers run on sched.
func New(sched clock.Scheduler, opts ...Option) *Ledger {
	idle := make(chan struct{})
	close(idle)

	l := &Ledger{
		sched:    sched,
		seq:      clock.NewSequence(),
		observer: nopObserver{},
		logger:   slog.Default(),
		entries:  make(map[string]*entry),
		idle:     idle,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ShouldAccept reports whether an update with this identity and version
// would be accepted: no entry exists, or the entry's version is strictly lower.
func (l *Ledger) ShouldAccept(id string, v account.Version) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.shouldAcceptLocked(id, v)
}

func (l *Ledger) shouldAcceptLocked(id string, v account.Version) bool {
	cur, ok := l.entries[id]
	return !ok || cur.update.Version.Less(v)
}

// Index reconciles u into the ledger.
//
// A stale or replayed update emits EventIgnored and returns a resolved
// receipt; the entry is untouched. Otherwise EventIndexed is emitted, a
// pending settlement of the current entry is cancelled (EventSuperseded),
// the entry takes u, and a settlement timer is scheduled for u.CallbackTime.
func (l *Ledger) Index(u account.Update) *Receipt {
	l.mu.Lock()
	if !l.shouldAcceptLocked(u.ID, u.Version) {
		l.stats.Ignored++
		l.emitLocked(EventIgnored, u)
		l.mu.Unlock()
		l.logger.Debug("update ignored", "id", u.ID, "version", u.Version.String())
		return ignoredReceipt(u)
	}

	l.stats.Indexed++
	l.emitLocked(EventIndexed, u)

	e, exists := l.entries[u.ID]
	superseded := exists && !e.settled
	if superseded {
		if e.timer != nil {
			e.timer.Cancel()
		}
		l.stats.Superseded++
		l.emitLocked(EventSuperseded, e.update)
	} else {
		l.markUnsettledLocked()
	}
	if !exists {
		e = &entry{}
		l.entries[u.ID] = e
	}
	gen := e.replace(u)
	receipt := e.receipt
	l.mu.Unlock()

	l.logger.Debug("update indexed", "id", u.ID, "version", u.Version.String(), "superseded", superseded)

	t := l.sched.AfterFunc(u.CallbackTime, func() { l.settle(e, gen) })

	l.mu.Lock()
	switch {
	case e.gen != gen:
		// Superseded before the handle was stored; nobody else can cancel it.
		t.Cancel()
	case !e.settled:
		e.timer = t
	}
	l.mu.Unlock()

	return receipt
}

// settle is the timer callback for generation gen of e.
// It loses the claim if the entry moved on to a newer generation.
func (l *Ledger) settle(e *entry, gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.gen != gen || e.settled {
		return
	}
	l.emitLocked(EventSettled, e.update)
	e.settled = true
	e.timer = nil
	l.stats.Settled++
	l.unsettled--
	if l.unsettled == 0 {
		close(l.idle)
	}
	e.receipt.resolve()
}

func (l *Ledger) markUnsettledLocked() {
	if l.unsettled == 0 {
		l.idle = make(chan struct{})
	}
	l.unsettled++
}

func (l *Ledger) emitLocked(kind EventKind, u account.Update) {
	l.observer.Observe(Event{
		Seq:    l.seq.Next(),
		Kind:   kind,
		Update: u,
		At:     l.sched.Now(),
	})
}

// IsComplete reports whether every entry has settled.
func (l *Ledger) IsComplete() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.unsettled == 0
}

// EnsureComplete returns an *IncompleteLedgerError if any entry is unsettled.
func (l *Ledger) EnsureComplete() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.unsettled == 0 {
		return nil
	}
	var pending []string
	for id, e := range l.entries {
		if !e.settled {
			pending = append(pending, id)
		}
	}
	sort.Strings(pending)
	return &IncompleteLedgerError{Pending: pending}
}

// Wait blocks until every live entry has settled or ctx ends.
// It returns immediately on an empty or complete ledger.
func (l *Ledger) Wait(ctx context.Context) error {
	for {
		l.mu.RLock()
		idle := l.idle
		l.mu.RUnlock()

		select {
		case <-idle:
			if l.IsComplete() {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Snapshot returns each entry's current update, sorted by identity.
// Settlement status does not matter.
func (l *Ledger) Snapshot() []account.Update {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]account.Update, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.update)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Entry returns a consistent view of the entry for id.
func (l *Ledger) Entry(id string) (EntryView, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[id]
	if !ok {
		return EntryView{}, false
	}
	return e.view(), true
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Stats returns event counters.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}
