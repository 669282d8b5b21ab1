// Package future provides a settable, cancellable handle to the result of
// one asynchronously evaluated unit of work, plus first-completed and
// all-completed wait primitives over sets of futures.
package future

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrCancelled is returned by Result for futures cancelled before they
// started running.
var ErrCancelled = errors.New("future: cancelled")

// State values, advanced only by CAS. A future settles exactly once:
// pending → running → settled, or pending → cancelled.
const (
	statePending int32 = iota
	stateRunning
	stateSettled
	stateCancelled
)

// Future holds the eventual result of a submitted evaluation. Pools create
// one per submission; the scheduling loop observes it through Done, Result
// and Cancel. The zero value is not usable; call New.
type Future[T any] struct {
	state atomic.Int32
	done  chan struct{}
	once  sync.Once

	val T
	err error
}

// New returns a pending future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// MarkRunning transitions pending → running. A pool calls this immediately
// before invoking the evaluation function; once it succeeds the future can
// no longer be cancelled, only settled. Returns false if the future was
// cancelled while still queued.
func (f *Future[T]) MarkRunning() bool {
	return f.state.CompareAndSwap(statePending, stateRunning)
}

// Resolve settles the future with a value. No-op if already settled or
// cancelled.
func (f *Future[T]) Resolve(v T) {
	f.settle(v, nil)
}

// Reject settles the future with an error. No-op if already settled or
// cancelled.
func (f *Future[T]) Reject(err error) {
	var zero T
	f.settle(zero, err)
}

func (f *Future[T]) settle(v T, err error) {
	if !f.state.CompareAndSwap(stateRunning, stateSettled) &&
		!f.state.CompareAndSwap(statePending, stateSettled) {
		return
	}
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

// Cancel requests cancellation. It succeeds only while the future is still
// queued: work that a pool already started runs to completion and its
// result is discarded by the caller instead. Safe to call multiple times.
func (f *Future[T]) Cancel() bool {
	if !f.state.CompareAndSwap(statePending, stateCancelled) {
		return false
	}
	f.once.Do(func() {
		f.err = ErrCancelled
		close(f.done)
	})
	return true
}

// Cancelled reports whether Cancel won the race against MarkRunning.
func (f *Future[T]) Cancelled() bool {
	return f.state.Load() == stateCancelled
}

// Done returns a channel closed when the future is settled or cancelled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the future is settled or cancelled, then returns the
// value or the evaluation error. A cancelled future returns ErrCancelled.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}

// settled reports (without blocking) whether Done would not block.
func (f *Future[T]) settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
