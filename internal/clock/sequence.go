package clock

import "sync/atomic"

// Sequence issues event sequence numbers 1, 2, 3, ...
// Safe for concurrent use: every Next returns a distinct, larger value.
type Sequence struct {
	n atomic.Int64
}

// NewSequence returns a sequence whose first Next is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next issues the next number.
func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}

// Last returns the most recently issued number, or 0 if none.
func (s *Sequence) Last() int64 {
	return s.n.Load()
}
