// Package learner defines the adaptive point-selection contract consumed by
// the runner, together with a small reference implementation for 1-D
// functions. A learner proposes the next inputs to evaluate, absorbs
// finished (input, output) observations, and discards proposals whose
// result never arrived.
package learner

import "context"

// Learner is the stateful point-selection component driven by a runner.
// The runner serializes all calls, so implementations need not be
// goroutine-safe. ChoosePoints may return fewer than n points when the
// learner has run out of useful proposals.
type Learner[X, Y any] interface {
	// ChoosePoints proposes up to n new inputs to evaluate, along with a
	// priority score per proposed input (higher means more informative).
	ChoosePoints(n int) (points []X, priorities []float64)

	// AddPoint absorbs one finished observation.
	AddPoint(x X, y Y)

	// RemoveUnfinished discards every proposed input whose observation
	// never arrived, so the learner's model reflects only real data.
	RemoveUnfinished()
}

// Func is the function under evaluation. Returning an error marks the
// evaluation as failed, which aborts the surrounding run.
type Func[X, Y any] func(ctx context.Context, x X) (Y, error)

// Goal decides when a run is finished. It is evaluated against the learner
// between mutations, never concurrently with them.
type Goal[X, Y any] func(l Learner[X, Y]) bool

// Stats is an optional introspection interface. Learners that implement it
// can be driven by generic goal predicates (see NPointsGoal and LossGoal)
// and by user-supplied goal expressions.
type Stats interface {
	// NPoints returns the number of absorbed observations.
	NPoints() int
	// Loss returns the learner's current loss estimate; lower is better.
	Loss() float64
}

// NPointsGoal returns a Goal satisfied once the learner holds at least n
// observations. The learner must implement Stats.
func NPointsGoal[X, Y any](n int) Goal[X, Y] {
	return func(l Learner[X, Y]) bool {
		s, ok := l.(Stats)
		return ok && s.NPoints() >= n
	}
}

// LossGoal returns a Goal satisfied once the learner's loss drops to
// maxLoss or below. The learner must implement Stats.
func LossGoal[X, Y any](maxLoss float64) Goal[X, Y] {
	return func(l Learner[X, Y]) bool {
		s, ok := l.(Stats)
		return ok && s.Loss() <= maxLoss
	}
}
