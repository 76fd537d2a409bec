package ledger

import (
	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/clock"
)

// entry is the per-identity ledger state. Guarded by Ledger.mu.
//
// INVARIANTS:
//   - timer != nil implies !settled
//   - settled never reverts to false within one generation
//   - update.Version strictly increases across generations
type entry struct {
	update  account.Update
	settled bool
	timer   clock.Timer
	gen     uint64
	receipt *Receipt
}

// replace installs u as the entry's current update and starts a new
// generation. The caller must have cancelled any pending timer.
func (e *entry) replace(u account.Update) uint64 {
	e.gen++
	e.update = u
	e.settled = false
	e.timer = nil
	e.receipt = newReceipt(u)
	return e.gen
}

// EntryView is a consistent snapshot of one entry.
type EntryView struct {
	Update account.Update
	// Settled reports whether the current update's settlement fired.
	Settled bool
	// Pending reports whether a settlement timer handle is held.
	Pending bool
}

func (e *entry) view() EntryView {
	return EntryView{Update: e.update, Settled: e.settled, Pending: e.timer != nil}
}
