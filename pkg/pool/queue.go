package pool

import "sync"

// submitQueue is an unbounded single-mutex FIFO used between Submit and the
// worker goroutines. A single lock with one condition variable is easy to
// reason about and avoids lost-wakeup races.
type submitQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	head   *queueNode[T] // sentinel
	tail   *queueNode[T]
	closed bool
}

type queueNode[T any] struct {
	val  T
	next *queueNode[T]
}

func newSubmitQueue[T any]() *submitQueue[T] {
	s := &queueNode[T]{}
	q := &submitQueue[T]{head: s, tail: s}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// put appends v. Returns ErrPoolClosed after close.
func (q *submitQueue[T]) put(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrPoolClosed
	}
	n := &queueNode[T]{val: v}
	q.tail.next = n
	q.tail = n
	q.cond.Signal()
	return nil
}

// get blocks until an item is available or the queue is closed and drained.
// The second return is false only when no more items will ever arrive.
func (q *submitQueue[T]) get() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head.next == nil && !q.closed {
		q.cond.Wait()
	}
	if q.head.next == nil {
		var zero T
		return zero, false
	}
	n := q.head.next
	q.head.next = n.next
	if q.tail == n {
		q.tail = q.head
	}
	return n.val, true
}

// close marks the queue closed and wakes all waiting consumers. Items
// already queued are still delivered. Idempotent.
func (q *submitQueue[T]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}
