// Package ledger reconciles account updates into one current entry per identity.
//
// Reconciliation is last-write-wins over the update version. An update is
// accepted iff no entry exists for its identity or the entry's version is
// strictly lower. Equal versions are rejected, so replaying an update never
// re-triggers settlement. Absent versions compare as -1; two versionless
// updates for the same identity are therefore indistinguishable and the
// second is ignored.
//
// Every accepted update schedules a settlement timer. Accepting a newer
// update for an identity whose entry has not settled cancels the old timer;
// the superseded settlement is abandoned and its Receipt never resolves.
//
// CONCURRENCY:
//
// A single table-wide mutex guards entries, the unsettled count and event
// emission, so Index calls are linearizable and event sequence numbers follow
// that order. The settlement timer is scheduled outside the critical section.
// Timer callbacks carry the entry generation they were scheduled for; a
// callback whose generation is stale loses the claim and has no effect, which
// makes cancellation safe against a timer that has already started firing.
//
// The completeness barrier (Wait) tracks the live unsettled count directly
// rather than per-call receipts, because superseded receipts never resolve.
package ledger
