package runner

import (
	"context"
	"log/slog"

	"github.com/me/adapt/pkg/learner"
)

// AsyncRunner runs the scheduling loop as a single cancellable background
// goroutine, returning control to the caller immediately after Start.
// Progress can be awaited through Done or Wait, and the run stopped through
// Cancel. Cancellation takes effect at the loop's next suspension point;
// teardown still runs to completion before the run reports cancelled.
type AsyncRunner[X, Y any] struct {
	r      *Runner[X, Y]
	cancel context.CancelFunc
	done   chan struct{}

	outcome Outcome
	err     error
}

// NewAsync builds an asynchronous runner. A nil goal makes the run continue
// until cancelled. With cfg.Direct the evaluation function is scheduled on
// goroutines spawned by the runner itself; supplying a backend as well is
// rejected with ErrConflictingExecutionMode, since that pool could never be
// used for evaluations.
func NewAsync[X, Y any](l learner.Learner[X, Y], fn learner.Func[X, Y], goal learner.Goal[X, Y], backend any, cfg Config, logger *slog.Logger) (*AsyncRunner[X, Y], error) {
	if cfg.Direct && backend != nil {
		return nil, ErrConflictingExecutionMode
	}
	if goal == nil {
		goal = func(learner.Learner[X, Y]) bool { return false }
	}
	r, err := newRunner(l, fn, goal, backend, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &AsyncRunner[X, Y]{r: r, done: make(chan struct{})}, nil
}

// Start launches the run. It must be called exactly once.
func (a *AsyncRunner[X, Y]) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	go func() {
		defer close(a.done)
		defer a.cancel()
		a.outcome, a.err = a.r.loop(ctx)
	}()
}

// Cancel requests cancellation. The loop observes it at its next wait and
// then drains before finishing. Safe to call multiple times, and a no-op
// before Start.
func (a *AsyncRunner[X, Y]) Cancel() {
	if a.cancel != nil {
		a.cancel()
	}
}

// Done is closed once the run (including teardown) has finished.
func (a *AsyncRunner[X, Y]) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the run finishes or ctx expires.
func (a *AsyncRunner[X, Y]) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-a.done:
		return a.outcome, a.err
	case <-ctx.Done():
		return OutcomeFailed, ctx.Err()
	}
}

// Outcome reports the terminal outcome. Valid only after Done is closed.
func (a *AsyncRunner[X, Y]) Outcome() Outcome {
	return a.outcome
}

// Err reports the run's error, if any. Valid only after Done is closed.
func (a *AsyncRunner[X, Y]) Err() error {
	return a.err
}

// Log returns the recorded learner invocations, or nil when logging was
// not enabled. Stable only after Done is closed.
func (a *AsyncRunner[X, Y]) Log() []Entry {
	return a.r.Log()
}
