package ledger

import (
	"fmt"
	"time"

	"github.com/roach88/settle/internal/account"
)

// EventKind classifies ledger events.
type EventKind int

const (
	// EventIndexed: an update was accepted into the ledger.
	EventIndexed EventKind = iota + 1
	// EventIgnored: an update was rejected as stale or a replay.
	EventIgnored
	// EventSuperseded: a pending settlement was cancelled by a newer update.
	// The event carries the superseded update.
	EventSuperseded
	// EventSettled: a settlement timer fired.
	EventSettled
)

var eventKindNames = map[EventKind]string{
	EventIndexed:    "indexed",
	EventIgnored:    "ignored",
	EventSuperseded: "superseded",
	EventSettled:    "settled",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(s string) (EventKind, error) {
	for k, name := range eventKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// Event is one observable ledger decision.
type Event struct {
	// Seq totally orders events within a ledger.
	Seq int64

	Kind EventKind

	// Update is the subject: the incoming update for indexed/ignored, the
	// superseded one for superseded, the settling one for settled.
	Update account.Update

	// At is scheduler time when the event occurred.
	At time.Duration
}

// Observer receives ledger events.
//
// Observe is called while the ledger holds its lock: implementations must
// not block and must not call back into the ledger.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
