// Package results carries finished work from background workers to the
// interactive consumer.
//
// Queue is the hand-off: unbounded, so producers never block or drop, and
// polled by the consumer with a zero-wait TryPop/Drain. Slot holds the
// value currently on display and is replaced only by whole-value swaps.
package results

import "sync"

// Queue is an unbounded multi-producer, single-consumer FIFO.
//
// Values come out in push order. With several producers that is arrival
// order, not the order in which the work was requested.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
	ready chan struct{}

	pushed uint64
	popped uint64
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

// Push appends v. It never blocks.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.pushed++
	q.mu.Unlock()

	// Coalescing wake-up; one pending signal is enough.
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the oldest value. It returns false
// immediately when the queue is empty.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.head == len(q.items) {
		return zero, false
	}
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	q.popped++
	q.compact()
	return v, true
}

// Drain removes and returns every value enqueued at the time of the call,
// oldest first. It returns nil when the queue is empty.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items) - q.head
	if n == 0 {
		return nil
	}
	out := make([]T, n)
	copy(out, q.items[q.head:])
	clear(q.items[q.head:])
	q.items = q.items[:0]
	q.head = 0
	q.popped += uint64(n)
	return out
}

// Len returns the number of values waiting.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Ready returns a channel that receives after a Push. Signals coalesce, so
// a receiver must Drain rather than assume one value per signal. The
// interactive consumer does not need this; it polls.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// QueueStats is a snapshot of queue counters.
type QueueStats struct {
	Pushed  uint64
	Popped  uint64
	Pending int
}

// Stats returns lifetime counters.
func (q *Queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{Pushed: q.pushed, Popped: q.popped, Pending: len(q.items) - q.head}
}

// compact reclaims the consumed prefix once it dominates the backing array.
// Caller holds mu.
func (q *Queue[T]) compact() {
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return
	}
	if q.head >= 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		var zero T
		for i := n; i < len(q.items); i++ {
			q.items[i] = zero
		}
		q.items = q.items[:n]
		q.head = 0
	}
}
