package report

import (
	"sync"

	"github.com/roach88/settle/internal/ingest"
	"github.com/roach88/settle/internal/ledger"
)

type opKind int

const (
	opBegin opKind = iota + 1
	opEvent
	opComplete
)

// journalOp is one pending journal write.
type journalOp struct {
	kind   opKind
	runID  string
	batch  int
	event  ledger.Event
	result *ingest.Result
}

// queue is an unbounded FIFO between ledger observers and one writer
// goroutine. Both the journal and the console drain one.
//
// Enqueue never blocks, so observers can hand off work while the ledger
// holds its lock. A buffered signal channel wakes the single writer.
type queue[T any] struct {
	mu     sync.Mutex
	ops    []T
	closed bool
	signal chan struct{} // buffered, size 1
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{
		ops:    make([]T, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds op to the back of the queue.
// Returns false if the queue is closed.
func (q *queue[T]) Enqueue(op T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.ops = append(q.ops, op)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front op without blocking.
func (q *queue[T]) TryDequeue() (T, bool) {
	var zero T
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ops) == 0 {
		return zero, false
	}
	op := q.ops[0]
	// Clear the slot so the backing array does not pin updates and results.
	q.ops[0] = zero
	if len(q.ops) == 1 {
		q.ops = q.ops[:0]
	} else {
		q.ops = q.ops[1:]
	}
	return op, true
}

// Dequeue blocks until an op is available.
// Returns false once the queue is closed and drained.
func (q *queue[T]) Dequeue() (T, bool) {
	for {
		if op, ok := q.TryDequeue(); ok {
			return op, true
		}

		q.mu.Lock()
		done := q.closed && len(q.ops) == 0
		q.mu.Unlock()
		if done {
			var zero T
			return zero, false
		}

		<-q.signal
	}
}

// Len returns the number of pending ops.
func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Close stops intake and wakes the writer.
func (q *queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
