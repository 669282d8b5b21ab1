// Package pool abstracts the execution backends that evaluate points for a
// runner: a goroutine pool for parallel evaluation, a trivial sequential
// pool for tests and debugging, and resolution/capacity helpers over the
// closed set of recognized backends.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/me/adapt/pkg/future"
	"github.com/me/adapt/pkg/learner"
)

var (
	// ErrPoolClosed is set on futures submitted after Shutdown.
	ErrPoolClosed = errors.New("pool: closed")

	// ErrUnsupportedBackend is returned by Resolve for backend values
	// outside the recognized set.
	ErrUnsupportedBackend = errors.New("pool: unsupported backend")

	// ErrCapacityUnknown is returned by Capacity for pools that do not
	// report a worker count. The caller must then supply ntasks itself.
	ErrCapacityUnknown = errors.New("pool: capacity unknown")
)

// Pool executes submitted evaluations asynchronously.
type Pool[X, Y any] interface {
	// Submit schedules fn(ctx, x) and returns its future without blocking.
	// After Shutdown, the returned future is rejected with ErrPoolClosed.
	Submit(ctx context.Context, fn learner.Func[X, Y], x X) *future.Future[Y]

	// Shutdown stops the pool, waiting for in-flight work to finish.
	// Idempotent: calling it again has no further effect.
	Shutdown() error
}

// Sized is implemented by pools that know their worker count.
type Sized interface {
	Workers() int
}

// Resolve normalizes a caller-supplied backend into a Pool. A nil backend
// yields a fresh GoroutinePool sized to the machine, which the caller (the
// runner) then owns and must shut down. Anything outside the recognized
// set fails with ErrUnsupportedBackend.
func Resolve[X, Y any](backend any) (p Pool[X, Y], owned bool, err error) {
	switch b := backend.(type) {
	case nil:
		return NewGoroutinePool[X, Y](runtime.NumCPU()), true, nil
	case Pool[X, Y]:
		return b, false, nil
	default:
		return nil, false, fmt.Errorf("%w: %T (want nil or a pool.Pool: goroutine, sequential, or remote)",
			ErrUnsupportedBackend, b)
	}
}

// Capacity returns the pool's worker count, or ErrCapacityUnknown when the
// pool does not implement Sized. This is a hard failure: a guessed value
// would under- or over-subscribe the workers.
func Capacity[X, Y any](p Pool[X, Y]) (int, error) {
	s, ok := p.(Sized)
	if !ok {
		return 0, fmt.Errorf("%w: %T does not report a worker count", ErrCapacityUnknown, p)
	}
	return s.Workers(), nil
}

// call invokes fn, converting a panic into an error so a misbehaving
// evaluation function fails the future instead of killing a worker.
func call[X, Y any](ctx context.Context, fn learner.Func[X, Y], x X) (y Y, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pool: evaluation panicked: %v", r)
		}
	}()
	return fn(ctx, x)
}
