package testutil

import (
	"container/heap"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/settle/internal/clock"
)

// VirtualScheduler is a clock.Scheduler driven by explicit time advances.
//
// Nothing fires on its own: Advance, AdvanceTo and RunUntilIdle move virtual
// time forward and run due callbacks on the calling goroutine, in order of
// (due time, scheduling order). Callbacks may schedule further timers; those
// fire in the same advance if they fall due within it.
//
// Thread-safety: AfterFunc, Now, Pending and Cancel are safe from any
// goroutine. Advances must come from one driver goroutine at a time.
type VirtualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	nextID uint64
	timers timerHeap
}

// NewVirtualScheduler returns a scheduler at virtual time zero.
func NewVirtualScheduler() *VirtualScheduler {
	s := &VirtualScheduler{}
	heap.Init(&s.timers)
	return s
}

// Now returns the current virtual time.
func (s *VirtualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// AfterFunc schedules fn at Now()+d.
func (s *VirtualScheduler) AfterFunc(d time.Duration, fn func()) clock.Timer {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	t := &virtualTimer{sched: s, due: s.now + d, id: s.nextID, fn: fn}
	heap.Push(&s.timers, t)
	return t
}

// Pending returns the number of timers that have neither fired nor been cancelled.
func (s *VirtualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Advance moves virtual time forward by d, firing every timer due on the way.
func (s *VirtualScheduler) Advance(d time.Duration) {
	s.AdvanceTo(s.Now() + d)
}

// AdvanceTo moves virtual time to t, firing every timer due at or before t.
// Panics if t is in the past.
func (s *VirtualScheduler) AdvanceTo(t time.Duration) {
	s.mu.Lock()
	if t < s.now {
		now := s.now
		s.mu.Unlock()
		panic(fmt.Sprintf("testutil: cannot advance to %v, now %v", t, now))
	}
	s.mu.Unlock()

	for {
		fn, ok := s.popDue(t)
		if !ok {
			break
		}
		fn()
	}

	s.mu.Lock()
	s.now = t
	s.mu.Unlock()
}

// RunUntilIdle fires timers in order until none remain and returns the final virtual time.
func (s *VirtualScheduler) RunUntilIdle() time.Duration {
	for {
		fn, ok := s.popNext()
		if !ok {
			return s.Now()
		}
		fn()
	}
}

// popDue removes the earliest live timer due at or before limit and claims it.
func (s *VirtualScheduler) popDue(limit time.Duration) (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.timers.Len() > 0 {
		next := s.timers[0]
		if next.due > limit {
			return nil, false
		}
		heap.Pop(&s.timers)
		if next.cancelled {
			continue
		}
		next.fired = true
		s.now = next.due
		return next.fn, true
	}
	return nil, false
}

func (s *VirtualScheduler) popNext() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.timers.Len() > 0 {
		next := heap.Pop(&s.timers).(*virtualTimer)
		if next.cancelled {
			continue
		}
		next.fired = true
		s.now = next.due
		return next.fn, true
	}
	return nil, false
}

type virtualTimer struct {
	sched     *VirtualScheduler
	due       time.Duration
	id        uint64
	fn        func()
	fired     bool
	cancelled bool
}

func (t *virtualTimer) Cancel() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	if t.fired || t.cancelled {
		return false
	}
	t.cancelled = true
	return true
}

type timerHeap []*virtualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].id < h[j].id
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) { *h = append(*h, x.(*virtualTimer)) }

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

var _ clock.Scheduler = (*VirtualScheduler)(nil)
