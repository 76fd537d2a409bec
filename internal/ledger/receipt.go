package ledger

import (
	"context"

	"github.com/roach88/settle/internal/account"
)

// Receipt is the future returned by Index.
//
// It resolves when the indexed update settles. An ignored update yields a
// receipt that is already resolved; callers treat it as nothing to wait for.
// A receipt whose update is later superseded never resolves.
type Receipt struct {
	update  account.Update
	ignored bool
	done    chan struct{}
}

func newReceipt(u account.Update) *Receipt {
	return &Receipt{update: u, done: make(chan struct{})}
}

func ignoredReceipt(u account.Update) *Receipt {
	r := &Receipt{update: u, ignored: true, done: make(chan struct{})}
	close(r.done)
	return r
}

// resolve is called exactly once, by the settlement claim winner.
func (r *Receipt) resolve() {
	close(r.done)
}

// Update returns the update this receipt tracks.
func (r *Receipt) Update() account.Update {
	return r.update
}

// Ignored reports whether Index rejected the update.
func (r *Receipt) Ignored() bool {
	return r.ignored
}

// Done is closed when the receipt resolves.
func (r *Receipt) Done() <-chan struct{} {
	return r.done
}

// Resolved reports, without blocking, whether the receipt has resolved.
func (r *Receipt) Resolved() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the receipt resolves or ctx ends.
func (r *Receipt) Wait(ctx context.Context) (account.Update, error) {
	select {
	case <-r.done:
		return r.update, nil
	case <-ctx.Done():
		return account.Update{}, ctx.Err()
	}
}
