// Package clock provides the time sources the ledger runs on.
//
// Two notions of time coexist:
//
// Scheduler time: elapsed duration since the scheduler's epoch. Settlement
// timers and dispatch jitter are scheduled against it, and every ledger event
// is stamped with Scheduler.Now(). RealScheduler is backed by the wall clock;
// tests substitute a virtual scheduler (see internal/testutil).
//
// Sequence: a monotonic counter (Clock) that totally orders events within a
// run. Ordering always uses the sequence, never scheduler time, since
// concurrent events can share a timestamp.
//
// Timer cancellation is a claim: the fire path and the cancel path race for
// the same pending state and exactly one of them wins.
package clock
