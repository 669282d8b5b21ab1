package pool

import (
	"context"

	"github.com/me/adapt/pkg/future"
	"github.com/me/adapt/pkg/learner"
)

// SequentialPool evaluates submissions immediately on the calling
// goroutine and returns already-settled futures. Zero concurrency, mainly
// for tests and debugging of the scheduling loop.
type SequentialPool[X, Y any] struct {
	closed bool
}

var _ Sized = (*SequentialPool[int, int])(nil)

// NewSequentialPool creates a SequentialPool.
func NewSequentialPool[X, Y any]() *SequentialPool[X, Y] {
	return &SequentialPool[X, Y]{}
}

// Submit runs fn(ctx, x) inline; the returned future is already settled.
func (p *SequentialPool[X, Y]) Submit(ctx context.Context, fn learner.Func[X, Y], x X) *future.Future[Y] {
	fut := future.New[Y]()
	if p.closed {
		fut.Reject(ErrPoolClosed)
		return fut
	}
	fut.MarkRunning()
	y, err := call(ctx, fn, x)
	if err != nil {
		fut.Reject(err)
		return fut
	}
	fut.Resolve(y)
	return fut
}

// Workers is always 1.
func (p *SequentialPool[X, Y]) Workers() int {
	return 1
}

// Shutdown is a no-op beyond refusing further submissions. Idempotent.
func (p *SequentialPool[X, Y]) Shutdown() error {
	p.closed = true
	return nil
}
