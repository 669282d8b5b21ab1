package learner

import (
	"math"
	"sort"
)

// Learner1D adaptively samples a scalar function on a closed interval by
// always proposing the midpoint of the widest unexplored gap. Loss is the
// widest gap between neighbouring evaluated points, so it shrinks toward
// zero as the interval fills in.
type Learner1D struct {
	lo, hi float64

	data    map[float64]float64 // evaluated points
	pending map[float64]bool    // proposed, result not yet absorbed
}

var _ Learner[float64, float64] = (*Learner1D)(nil)
var _ Stats = (*Learner1D)(nil)

// NewLearner1D creates a learner for the interval [lo, hi]. It panics when
// the interval is empty or inverted, which is always a caller bug.
func NewLearner1D(lo, hi float64) *Learner1D {
	if !(lo < hi) {
		panic("learner: interval must satisfy lo < hi")
	}
	return &Learner1D{
		lo:      lo,
		hi:      hi,
		data:    make(map[float64]float64),
		pending: make(map[float64]bool),
	}
}

// ChoosePoints proposes up to n points: the interval endpoints first, then
// midpoints of the widest gaps between known or pending points. Each
// proposal is tracked as pending until AddPoint or RemoveUnfinished.
func (l *Learner1D) ChoosePoints(n int) ([]float64, []float64) {
	var points []float64
	var priorities []float64

	add := func(x, priority float64) {
		l.pending[x] = true
		points = append(points, x)
		priorities = append(priorities, priority)
	}

	for len(points) < n {
		if !l.seen(l.lo) {
			add(l.lo, math.Inf(1))
			continue
		}
		if !l.seen(l.hi) {
			add(l.hi, math.Inf(1))
			continue
		}
		x, gap := l.widestGapMidpoint()
		if gap <= 0 || l.seen(x) {
			// Floating-point exhaustion: the midpoint collapses onto an
			// existing anchor, so there is nothing new to propose.
			break
		}
		add(x, gap)
	}

	return points, priorities
}

// AddPoint records one observation and clears its pending mark. Points the
// learner never proposed are absorbed as well.
func (l *Learner1D) AddPoint(x, y float64) {
	delete(l.pending, x)
	l.data[x] = y
}

// RemoveUnfinished drops every pending proposal.
func (l *Learner1D) RemoveUnfinished() {
	clear(l.pending)
}

// NPoints returns the number of evaluated points.
func (l *Learner1D) NPoints() int {
	return len(l.data)
}

// Loss returns the widest gap between neighbouring evaluated points, or
// +Inf while fewer than two points are known.
func (l *Learner1D) Loss() float64 {
	if len(l.data) < 2 {
		return math.Inf(1)
	}
	xs := make([]float64, 0, len(l.data))
	for x := range l.data {
		xs = append(xs, x)
	}
	sort.Float64s(xs)

	loss := 0.0
	for i := 1; i < len(xs); i++ {
		if gap := xs[i] - xs[i-1]; gap > loss {
			loss = gap
		}
	}
	return loss
}

// Data returns a copy of the evaluated points.
func (l *Learner1D) Data() map[float64]float64 {
	out := make(map[float64]float64, len(l.data))
	for x, y := range l.data {
		out[x] = y
	}
	return out
}

// NPending returns the number of proposals awaiting results.
func (l *Learner1D) NPending() int {
	return len(l.pending)
}

func (l *Learner1D) seen(x float64) bool {
	if l.pending[x] {
		return true
	}
	_, ok := l.data[x]
	return ok
}

// widestGapMidpoint scans known and pending points together and returns the
// midpoint of the widest adjacent gap along with the gap width.
func (l *Learner1D) widestGapMidpoint() (float64, float64) {
	xs := make([]float64, 0, len(l.data)+len(l.pending))
	for x := range l.data {
		xs = append(xs, x)
	}
	for x := range l.pending {
		if _, known := l.data[x]; !known {
			xs = append(xs, x)
		}
	}
	sort.Float64s(xs)

	bestGap, bestMid := 0.0, 0.0
	for i := 1; i < len(xs); i++ {
		if gap := xs[i] - xs[i-1]; gap > bestGap {
			bestGap = gap
			bestMid = xs[i-1] + gap/2
		}
	}
	return bestMid, bestGap
}
