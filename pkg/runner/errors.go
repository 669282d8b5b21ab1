package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrNoWorkers means ntasks resolved to less than one. Raised before
	// any submission happens.
	ErrNoWorkers = errors.New("runner: no workers available")

	// ErrNoProgress means the learner proposed no points while the goal is
	// unsatisfied and nothing is in flight. The run can never finish, which
	// signals a learner/goal mismatch.
	ErrNoProgress = errors.New("runner: learner proposed no points and none are outstanding")

	// ErrConflictingExecutionMode means direct evaluation and an explicit
	// pool backend were both requested. Direct mode schedules evaluations
	// itself, so a supplied pool would sit unused.
	ErrConflictingExecutionMode = errors.New("runner: direct evaluation and an explicit pool are mutually exclusive")

	// ErrNilGoal means a blocking run was constructed without a goal.
	ErrNilGoal = errors.New("runner: goal must not be nil")
)

// WorkerError wraps the failure of one evaluation. A worker failure is
// fatal to the run and is never retried; it reaches the caller only after
// teardown has completed.
type WorkerError struct {
	Point any   // the input whose evaluation failed
	Err   error // the evaluation function's error (or captured panic)
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("runner: evaluation of %v failed: %v", e.Point, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}
