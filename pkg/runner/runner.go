// Package runner coordinates concurrent evaluation of an expensive function
// whose inputs are chosen adaptively by a learner. It keeps a fixed number
// of evaluations in flight, refills slots as soon as any single one
// completes, stops when a goal predicate is satisfied, and tears down
// cleanly on every exit path, including worker failure and cancellation.
//
// Two strategies drive the same scheduling loop: Runner blocks the calling
// goroutine until the run finishes, AsyncRunner runs the loop as a
// cancellable background goroutine.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/me/adapt/pkg/future"
	"github.com/me/adapt/pkg/learner"
	"github.com/me/adapt/pkg/pool"
)

// Outcome is the terminal result of a run. It is meaningful only when the
// run's error is nil, except OutcomeFailed which accompanies an error.
type Outcome int

const (
	// OutcomeGoalReached means the goal predicate returned true.
	OutcomeGoalReached Outcome = iota
	// OutcomeCancelled means the run was cancelled externally. Cancellation
	// is a normal terminal state, not an error.
	OutcomeCancelled
	// OutcomeFailed means the run aborted with an error.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeGoalReached:
		return "goal-reached"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Config holds runner configuration.
type Config struct {
	// NTasks is the target number of concurrent evaluations. Zero derives
	// it from the pool's worker count; a pool that cannot report one makes
	// construction fail with pool.ErrCapacityUnknown.
	NTasks int

	// Log enables recording of every learner invocation for Replay.
	Log bool

	// ShutdownPool shuts the backend down at teardown even when the caller
	// supplied it. Pools the runner created itself are always shut down.
	ShutdownPool bool

	// Direct schedules evaluations on goroutines spawned by the runner
	// itself instead of a pool (AsyncRunner only). Combining Direct with an
	// explicit backend is ErrConflictingExecutionMode.
	Direct bool

	// DrainTimeout bounds how long teardown waits for outstanding
	// evaluations after cancelling them. Zero means DefaultDrainTimeout.
	DrainTimeout time.Duration
}

// DefaultDrainTimeout bounds teardown waits when Config.DrainTimeout is 0.
const DefaultDrainTimeout = 30 * time.Second

// Runner drives the scheduling loop synchronously on the calling
// goroutine. Construct with New, then call Run once.
type Runner[X, Y any] struct {
	learner      learner.Learner[X, Y]
	goal         learner.Goal[X, Y]
	submit       func(ctx context.Context, x X) *future.Future[Y]
	pool         pool.Pool[X, Y] // nil in direct mode
	ntasks       int
	shutdownPool bool
	drainTimeout time.Duration
	log          *callLog
	logger       *slog.Logger
}

// New builds a blocking runner. backend picks the execution backend: nil
// for a machine-sized goroutine pool owned by the runner, or any pool.Pool
// supplied by the caller. Fails fast with ErrNoWorkers before anything is
// submitted when the concurrency level resolves below one.
func New[X, Y any](l learner.Learner[X, Y], fn learner.Func[X, Y], goal learner.Goal[X, Y], backend any, cfg Config, logger *slog.Logger) (*Runner[X, Y], error) {
	if goal == nil {
		return nil, ErrNilGoal
	}
	if cfg.Direct {
		return nil, fmt.Errorf("%w: direct mode requires AsyncRunner", ErrConflictingExecutionMode)
	}
	return newRunner(l, fn, goal, backend, cfg, logger)
}

func newRunner[X, Y any](l learner.Learner[X, Y], fn learner.Func[X, Y], goal learner.Goal[X, Y], backend any, cfg Config, logger *slog.Logger) (*Runner[X, Y], error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner[X, Y]{
		learner:      l,
		goal:         goal,
		drainTimeout: cfg.DrainTimeout,
		log:          &callLog{enabled: cfg.Log},
		logger:       logger.With("component", "runner"),
	}
	if r.drainTimeout <= 0 {
		r.drainTimeout = DefaultDrainTimeout
	}

	if cfg.Direct {
		r.submit = directSubmitter(fn)
		r.ntasks = cfg.NTasks
		if r.ntasks == 0 {
			r.ntasks = runtime.NumCPU()
		}
	} else {
		p, owned, err := pool.Resolve[X, Y](backend)
		if err != nil {
			return nil, err
		}
		ntasks := cfg.NTasks
		if ntasks == 0 {
			ntasks, err = pool.Capacity(p)
			if err != nil {
				if owned {
					p.Shutdown()
				}
				return nil, err
			}
		}
		r.pool = p
		r.ntasks = ntasks
		// The runner must shut down pools it created itself.
		r.shutdownPool = cfg.ShutdownPool || owned
		r.submit = func(ctx context.Context, x X) *future.Future[Y] {
			return p.Submit(ctx, fn, x)
		}
	}

	if r.ntasks < 1 {
		if r.shutdownPool {
			r.pool.Shutdown()
		}
		return nil, fmt.Errorf("%w: ntasks = %d", ErrNoWorkers, r.ntasks)
	}
	return r, nil
}

// Run executes the scheduling loop until the goal is satisfied, the context
// is cancelled, or an evaluation fails. Teardown always completes before
// Run returns. Cancellation yields (OutcomeCancelled, nil).
func (r *Runner[X, Y]) Run(ctx context.Context) (Outcome, error) {
	return r.loop(ctx)
}

// Log returns the recorded learner invocations, or nil when logging was
// not enabled.
func (r *Runner[X, Y]) Log() []Entry {
	return r.log.snapshot()
}

// loop is the scheduling state machine shared by both strategies: keep
// ntasks evaluations in flight, wait for the first completion, absorb
// results, repeat until the goal holds. The injected wait primitive
// (future.WaitAny) is the only place the loop suspends.
func (r *Runner[X, Y]) loop(ctx context.Context) (outcome Outcome, err error) {
	outstanding := make(map[*future.Future[Y]]X, r.ntasks)

	defer func() {
		r.drain(outstanding)
		r.logger.Debug("run finished", "outcome", outcome, "error", err)
	}()

	for !r.goal(r.learner) {
		// A synchronous backend can settle every future inline, in which
		// case the wait below never parks; check for cancellation here so
		// it is still observed once per iteration.
		if ctx.Err() != nil {
			r.logger.Info("run cancelled", "in_flight", len(outstanding))
			return OutcomeCancelled, nil
		}

		// FILLING: top the in-flight set back up to ntasks. The learner
		// may propose fewer points than asked; that only stalls the run if
		// nothing is outstanding either.
		remaining := r.ntasks - len(outstanding)
		r.log.record(OpChoosePoints, remaining)
		points, _ := r.learner.ChoosePoints(remaining)
		if len(points) == 0 && len(outstanding) == 0 {
			return OutcomeFailed, ErrNoProgress
		}
		for _, x := range points {
			outstanding[r.submit(ctx, x)] = x
		}
		r.logger.Debug("refilled", "requested", remaining, "proposed", len(points), "in_flight", len(outstanding))

		// WAITING: suspend until at least one evaluation settles.
		futs := make([]*future.Future[Y], 0, len(outstanding))
		for f := range outstanding {
			futs = append(futs, f)
		}
		done, waitErr := future.WaitAny(ctx, futs)
		if waitErr != nil {
			r.logger.Info("run cancelled", "in_flight", len(outstanding))
			return OutcomeCancelled, nil
		}

		// Absorb every evaluation that settled in this wake-up. A failed
		// evaluation aborts the run without being fed to the learner.
		for _, f := range done {
			x := outstanding[f]
			delete(outstanding, f)
			y, ferr := f.Result()
			if ferr != nil {
				return OutcomeFailed, &WorkerError{Point: x, Err: ferr}
			}
			r.log.record(OpAddPoint, x, y)
			r.learner.AddPoint(x, y)
		}
	}

	return OutcomeGoalReached, nil
}

// drain is the teardown phase, executed on every exit path: drop the
// learner's unfinished proposals, cancel whatever is still in flight, wait
// (bounded) for cancellations to propagate, and shut the pool down when the
// runner owns that responsibility. Results arriving during drain are
// discarded.
func (r *Runner[X, Y]) drain(outstanding map[*future.Future[Y]]X) {
	r.log.record(OpRemoveUnfinished)
	r.learner.RemoveUnfinished()

	if len(outstanding) > 0 {
		futs := make([]*future.Future[Y], 0, len(outstanding))
		for f := range outstanding {
			f.Cancel()
			futs = append(futs, f)
		}
		dctx, cancel := context.WithTimeout(context.Background(), r.drainTimeout)
		if err := future.WaitAll(dctx, futs); err != nil {
			r.logger.Warn("teardown wait expired with evaluations still running", "in_flight", len(futs))
		}
		cancel()
	}

	if r.shutdownPool && r.pool != nil {
		if err := r.pool.Shutdown(); err != nil {
			r.logger.Warn("pool shutdown", "error", err)
		}
	}
}

// directSubmitter runs fn on a goroutine per submission, bypassing any
// pool. Used by AsyncRunner's direct mode.
func directSubmitter[X, Y any](fn learner.Func[X, Y]) func(ctx context.Context, x X) *future.Future[Y] {
	return func(ctx context.Context, x X) *future.Future[Y] {
		fut := future.New[Y]()
		go func() {
			if !fut.MarkRunning() {
				return
			}
			y, err := safeEval(ctx, fn, x)
			if err != nil {
				fut.Reject(err)
				return
			}
			fut.Resolve(y)
		}()
		return fut
	}
}

func safeEval[X, Y any](ctx context.Context, fn learner.Func[X, Y], x X) (y Y, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("runner: evaluation panicked: %v", r)
		}
	}()
	return fn(ctx, x)
}
