package clock

import (
	"context"
	"sync/atomic"
	"time"
)

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Cancel prevents the callback from running.
	// Returns true if this call won the claim; false if the callback already
	// fired or the timer was already cancelled. Never blocks.
	Cancel() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	// AfterFunc calls fn once, on its own goroutine or driver, after d elapses
	// unless the returned Timer is cancelled first.
	AfterFunc(d time.Duration, fn func()) Timer

	// Now returns the elapsed time since the scheduler's epoch.
	Now() time.Duration
}

const (
	timerPending int32 = iota
	timerFired
	timerCancelled
)

// RealScheduler schedules callbacks on the wall clock.
type RealScheduler struct {
	epoch time.Time
}

// NewRealScheduler returns a scheduler whose epoch is now.
func NewRealScheduler() *RealScheduler {
	return &RealScheduler{epoch: time.Now()}
}

// Now returns the time elapsed since the scheduler was created.
func (s *RealScheduler) Now() time.Duration {
	return time.Since(s.epoch)
}

// AfterFunc schedules fn on a runtime timer.
func (s *RealScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	t := &realTimer{}
	t.timer = time.AfterFunc(d, func() {
		if t.state.CompareAndSwap(timerPending, timerFired) {
			fn()
		}
	})
	return t
}

type realTimer struct {
	state atomic.Int32
	timer *time.Timer
}

func (t *realTimer) Cancel() bool {
	if !t.state.CompareAndSwap(timerPending, timerCancelled) {
		return false
	}
	t.timer.Stop()
	return true
}

// Sleep suspends the caller for d on the given scheduler.
// Returns ctx.Err() if the context ends first; the pending timer is cancelled.
func Sleep(ctx context.Context, s Scheduler, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	done := make(chan struct{})
	t := s.AfterFunc(d, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.Cancel()
		return ctx.Err()
	}
}

var _ Scheduler = (*RealScheduler)(nil)
