package pool

import (
	"context"
	"sync"

	"github.com/me/adapt/pkg/future"
	"github.com/me/adapt/pkg/learner"
)

// submission pairs one queued evaluation with its future.
type submission[X, Y any] struct {
	ctx context.Context
	fn  learner.Func[X, Y]
	x   X
	fut *future.Future[Y]
}

// GoroutinePool runs evaluations on a fixed set of worker goroutines fed by
// an unbounded queue. It is the default parallel backend. Submissions still
// queued when their future is cancelled are skipped without running.
type GoroutinePool[X, Y any] struct {
	workers int
	queue   *submitQueue[submission[X, Y]]
	wg      sync.WaitGroup
	stop    sync.Once
}

var _ Sized = (*GoroutinePool[int, int])(nil)

// NewGoroutinePool starts workers goroutines; workers < 1 is clamped to 1.
func NewGoroutinePool[X, Y any](workers int) *GoroutinePool[X, Y] {
	if workers < 1 {
		workers = 1
	}
	p := &GoroutinePool[X, Y]{
		workers: workers,
		queue:   newSubmitQueue[submission[X, Y]](),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit enqueues fn(ctx, x) and returns its future immediately.
func (p *GoroutinePool[X, Y]) Submit(ctx context.Context, fn learner.Func[X, Y], x X) *future.Future[Y] {
	fut := future.New[Y]()
	if err := p.queue.put(submission[X, Y]{ctx: ctx, fn: fn, x: x, fut: fut}); err != nil {
		fut.Reject(err)
	}
	return fut
}

// Workers returns the pool's worker count.
func (p *GoroutinePool[X, Y]) Workers() int {
	return p.workers
}

// Shutdown closes the queue and waits for the workers to drain it. Safe to
// call multiple times; every call waits for the same drain.
func (p *GoroutinePool[X, Y]) Shutdown() error {
	p.stop.Do(p.queue.close)
	p.wg.Wait()
	return nil
}

func (p *GoroutinePool[X, Y]) worker() {
	defer p.wg.Done()
	for {
		sub, ok := p.queue.get()
		if !ok {
			return
		}
		// Cancelled while queued: the future is already settled.
		if !sub.fut.MarkRunning() {
			continue
		}
		y, err := call(sub.ctx, sub.fn, sub.x)
		if err != nil {
			sub.fut.Reject(err)
			continue
		}
		sub.fut.Resolve(y)
	}
}
