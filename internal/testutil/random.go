package testutil

import (
	"sync"
	"time"
)

// RandomCall records one request made to a FixedRandom.
type RandomCall struct {
	Min, Max time.Duration
}

// FixedRandom always returns the same duration and records every request.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedRandom struct {
	mu    sync.Mutex
	value time.Duration
	calls []RandomCall
}

// NewFixedRandom returns a source that always yields d.
func NewFixedRandom(d time.Duration) *FixedRandom {
	return &FixedRandom{value: d}
}

// Between returns the fixed duration regardless of the requested range.
func (r *FixedRandom) Between(min, max time.Duration) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, RandomCall{Min: min, Max: max})
	return r.value
}

// Calls returns a copy of the recorded requests.
func (r *FixedRandom) Calls() []RandomCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RandomCall, len(r.calls))
	copy(out, r.calls)
	return out
}
