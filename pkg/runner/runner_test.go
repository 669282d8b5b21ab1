package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/me/adapt/pkg/future"
	"github.com/me/adapt/pkg/learner"
	"github.com/me/adapt/pkg/pool"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recLearner is a scripted learner: successive ChoosePoints calls pop
// canned proposals, and every invocation is recorded for assertions.
type recLearner struct {
	script      [][]int // successive ChoosePoints returns
	chooseCalls []int   // recorded n arguments
	added       [][2]int
	removed     int
}

func (l *recLearner) ChoosePoints(n int) ([]int, []float64) {
	l.chooseCalls = append(l.chooseCalls, n)
	if len(l.script) == 0 {
		return nil, nil
	}
	points := l.script[0]
	l.script = l.script[1:]
	if len(points) > n {
		points = points[:n]
	}
	return points, make([]float64, len(points))
}

func (l *recLearner) AddPoint(x, y int) {
	l.added = append(l.added, [2]int{x, y})
}

func (l *recLearner) RemoveUnfinished() {
	l.removed++
}

// fakeSub is one submission captured by fakePool; the test settles the
// future by hand to control completion order.
type fakeSub struct {
	x   int
	fut *future.Future[int]
}

// fakePool records submissions without running anything. It deliberately
// does not implement pool.Sized.
type fakePool struct {
	subs      chan fakeSub
	shutdowns int
}

func newFakePool() *fakePool {
	return &fakePool{subs: make(chan fakeSub, 64)}
}

func (p *fakePool) Submit(_ context.Context, _ learner.Func[int, int], x int) *future.Future[int] {
	fut := future.New[int]()
	p.subs <- fakeSub{x: x, fut: fut}
	return fut
}

func (p *fakePool) Shutdown() error {
	p.shutdowns++
	return nil
}

func nop(_ context.Context, x int) (int, error) { return x, nil }

func square(_ context.Context, x float64) (float64, error) { return x * x, nil }

func TestRunner_TerminatesAtGoal(t *testing.T) {
	for _, ntasks := range []int{1, 2, 5} {
		l := learner.NewLearner1D(0, 1)
		goal := learner.NPointsGoal[float64, float64](20)

		r, err := New(learner.Learner[float64, float64](l), square, goal,
			pool.NewSequentialPool[float64, float64](), Config{NTasks: ntasks, Log: true}, discardLogger())
		if err != nil {
			t.Fatalf("ntasks=%d: New error = %v", ntasks, err)
		}

		outcome, err := r.Run(context.Background())
		if err != nil {
			t.Fatalf("ntasks=%d: Run error = %v", ntasks, err)
		}
		if outcome != OutcomeGoalReached {
			t.Errorf("ntasks=%d: outcome = %v, want goal-reached", ntasks, outcome)
		}
		if l.NPoints() < 20 {
			t.Errorf("ntasks=%d: NPoints = %d, want >= 20", ntasks, l.NPoints())
		}

		// Every successfully resolved future produced exactly one add_point.
		addPoints := 0
		for _, e := range r.Log() {
			if e.Op == OpAddPoint {
				addPoints++
			}
		}
		if addPoints != l.NPoints() {
			t.Errorf("ntasks=%d: add_point entries = %d, NPoints = %d", ntasks, addPoints, l.NPoints())
		}
	}
}

func TestRunner_NoWorkers(t *testing.T) {
	l := &recLearner{script: [][]int{{1}}}
	goal := func(learner.Learner[int, int]) bool { return false }

	_, err := New[int, int](l, nop, goal, newFakePool(), Config{NTasks: -1}, discardLogger())
	if !errors.Is(err, ErrNoWorkers) {
		t.Fatalf("New error = %v, want ErrNoWorkers", err)
	}
	// Failing fast means zero side effects on the learner.
	if len(l.chooseCalls) != 0 || l.removed != 0 {
		t.Error("learner was touched before ErrNoWorkers")
	}
}

func TestRunner_CapacityUnknown(t *testing.T) {
	l := &recLearner{}
	goal := func(learner.Learner[int, int]) bool { return false }

	// fakePool has no Workers method, so ntasks cannot be derived.
	_, err := New[int, int](l, nop, goal, newFakePool(), Config{}, discardLogger())
	if !errors.Is(err, pool.ErrCapacityUnknown) {
		t.Fatalf("New error = %v, want ErrCapacityUnknown", err)
	}
}

func TestRunner_UnsupportedBackend(t *testing.T) {
	l := &recLearner{}
	goal := func(learner.Learner[int, int]) bool { return false }

	_, err := New[int, int](l, nop, goal, 42, Config{NTasks: 1}, discardLogger())
	if !errors.Is(err, pool.ErrUnsupportedBackend) {
		t.Fatalf("New error = %v, want ErrUnsupportedBackend", err)
	}
}

func TestRunner_GoalTrueImmediately(t *testing.T) {
	l := &recLearner{}
	goal := func(learner.Learner[int, int]) bool { return true }

	r, err := New[int, int](l, nop, goal, pool.NewSequentialPool[int, int](), Config{Log: true}, discardLogger())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	outcome, err := r.Run(context.Background())
	if err != nil || outcome != OutcomeGoalReached {
		t.Fatalf("Run = %v, %v; want goal-reached, nil", outcome, err)
	}

	if len(l.chooseCalls) != 0 {
		t.Errorf("ChoosePoints called %d times, want 0", len(l.chooseCalls))
	}
	if l.removed != 1 {
		t.Errorf("RemoveUnfinished called %d times, want 1", l.removed)
	}
	if len(l.added) != 0 {
		t.Errorf("AddPoint called %d times, want 0", len(l.added))
	}
}

func TestRunner_WorkerFailurePropagates(t *testing.T) {
	l := learner.NewLearner1D(0, 1)
	boom := errors.New("numerical blowup")
	fn := func(_ context.Context, x float64) (float64, error) {
		if x == 1 {
			return 0, boom
		}
		return x, nil
	}
	goal := learner.NPointsGoal[float64, float64](100)

	p := pool.NewGoroutinePool[float64, float64](2)
	r, err := New(learner.Learner[float64, float64](l), fn, goal, p,
		Config{Log: true, ShutdownPool: true}, discardLogger())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	outcome, err := r.Run(context.Background())
	var werr *WorkerError
	if !errors.As(err, &werr) {
		t.Fatalf("Run error = %v, want *WorkerError", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("WorkerError does not wrap the cause: %v", err)
	}
	if werr.Point != any(1.0) {
		t.Errorf("WorkerError.Point = %v, want 1", werr.Point)
	}
	if outcome != OutcomeFailed {
		t.Errorf("outcome = %v, want failed", outcome)
	}

	// The failed point was never absorbed.
	for _, e := range r.Log() {
		if e.Op == OpAddPoint && e.Args[0] == any(1.0) {
			t.Error("add_point recorded for the failed input")
		}
	}
	if l.NPending() != 0 {
		t.Errorf("NPending = %d after teardown, want 0", l.NPending())
	}

	// ShutdownPool means teardown closed the pool.
	fut := p.Submit(context.Background(), square, 0)
	if _, err := fut.Result(); !errors.Is(err, pool.ErrPoolClosed) {
		t.Errorf("pool still accepts work after teardown shutdown: %v", err)
	}
}

func TestRunner_CallerPoolNotShutDownByDefault(t *testing.T) {
	l := learner.NewLearner1D(0, 1)
	p := pool.NewSequentialPool[float64, float64]()

	r, err := New(learner.Learner[float64, float64](l), square,
		learner.NPointsGoal[float64, float64](3), p, Config{}, discardLogger())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run error = %v", err)
	}

	if _, err := p.Submit(context.Background(), square, 0.5).Result(); err != nil {
		t.Errorf("caller-owned pool was shut down: %v", err)
	}
}

func TestRunner_NoProgress(t *testing.T) {
	l := &recLearner{} // proposes nothing, ever
	goal := func(learner.Learner[int, int]) bool { return false }

	r, err := New[int, int](l, nop, goal, pool.NewSequentialPool[int, int](), Config{}, discardLogger())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	outcome, err := r.Run(context.Background())
	if !errors.Is(err, ErrNoProgress) {
		t.Fatalf("Run error = %v, want ErrNoProgress", err)
	}
	if outcome != OutcomeFailed {
		t.Errorf("outcome = %v, want failed", outcome)
	}
	if l.removed != 1 {
		t.Errorf("RemoveUnfinished called %d times, want 1", l.removed)
	}
}

func TestRunner_RefillsOnlyFreedSlots(t *testing.T) {
	// ntasks = 3; a, b, c submitted; a and b complete first. The loop must
	// ask for exactly 2 replacement points and leave c's future untouched.
	l := &recLearner{script: [][]int{{10, 11, 12}, {13, 14}}}
	goal := func(learner.Learner[int, int]) bool { return len(l.added) >= 5 }
	p := newFakePool()

	r, err := New[int, int](l, nop, goal, p, Config{NTasks: 3}, discardLogger())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	type result struct {
		outcome Outcome
		err     error
	}
	resCh := make(chan result, 1)
	go func() {
		o, e := r.Run(context.Background())
		resCh <- result{o, e}
	}()

	first := make(map[int]fakeSub)
	for i := 0; i < 3; i++ {
		s := <-p.subs
		first[s.x] = s
	}
	// a and b resolve; c stays in flight.
	for _, x := range []int{10, 11} {
		s := first[x]
		s.fut.MarkRunning()
		s.fut.Resolve(x * 100)
	}

	// Exactly two replacements must be submitted.
	second := make(map[int]fakeSub)
	for i := 0; i < 2; i++ {
		s := <-p.subs
		second[s.x] = s
	}
	if _, ok := second[13]; !ok {
		t.Error("replacement point 13 not submitted")
	}
	if _, ok := second[14]; !ok {
		t.Error("replacement point 14 not submitted")
	}
	if first[12].fut.Cancelled() {
		t.Error("in-flight future for point 12 was disturbed by the refill")
	}

	// Finish the remaining three evaluations.
	for _, s := range []fakeSub{first[12], second[13], second[14]} {
		s.fut.MarkRunning()
		s.fut.Resolve(s.x * 100)
	}

	res := <-resCh
	if res.err != nil || res.outcome != OutcomeGoalReached {
		t.Fatalf("Run = %v, %v; want goal-reached, nil", res.outcome, res.err)
	}
	if len(l.chooseCalls) != 2 || l.chooseCalls[0] != 3 || l.chooseCalls[1] != 2 {
		t.Errorf("ChoosePoints ns = %v, want [3 2]", l.chooseCalls)
	}
	if len(l.added) != 5 {
		t.Errorf("AddPoint called %d times, want 5", len(l.added))
	}

	select {
	case s := <-p.subs:
		t.Errorf("unexpected extra submission for %d", s.x)
	default:
	}
}

func TestReplay_ReproducesLearnerState(t *testing.T) {
	l := learner.NewLearner1D(0, 1)
	r, err := New(learner.Learner[float64, float64](l), square,
		learner.NPointsGoal[float64, float64](15), nil,
		Config{NTasks: 4, Log: true}, discardLogger())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run error = %v", err)
	}

	fresh := learner.NewLearner1D(0, 1)
	if err := Replay(learner.Learner[float64, float64](fresh), r.Log()); err != nil {
		t.Fatalf("Replay error = %v", err)
	}

	want, got := l.Data(), fresh.Data()
	if len(got) != len(want) {
		t.Fatalf("replayed NPoints = %d, want %d", len(got), len(want))
	}
	for x, y := range want {
		if gy, ok := got[x]; !ok || gy != y {
			t.Errorf("replayed data[%v] = %v, want %v", x, got[x], y)
		}
	}
	if fresh.NPending() != 0 {
		t.Errorf("replayed NPending = %d, want 0", fresh.NPending())
	}
}

func TestReplay_RejectsUnknownOp(t *testing.T) {
	err := Replay[float64, float64](learner.NewLearner1D(0, 1), []Entry{{Op: "mutate"}})
	if err == nil {
		t.Fatal("Replay accepted an unknown operation")
	}
}

func TestRunner_LogDisabledByDefault(t *testing.T) {
	l := learner.NewLearner1D(0, 1)
	r, err := New(learner.Learner[float64, float64](l), square,
		learner.NPointsGoal[float64, float64](3),
		pool.NewSequentialPool[float64, float64](), Config{}, discardLogger())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if r.Log() != nil {
		t.Error("Log() != nil without Config.Log")
	}
}

func TestRunner_LogOrder(t *testing.T) {
	l := learner.NewLearner1D(0, 1)
	r, err := New(learner.Learner[float64, float64](l), square,
		learner.NPointsGoal[float64, float64](4),
		pool.NewSequentialPool[float64, float64](), Config{NTasks: 2, Log: true}, discardLogger())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run error = %v", err)
	}

	entries := r.Log()
	if len(entries) == 0 {
		t.Fatal("empty log")
	}
	if entries[0].Op != OpChoosePoints {
		t.Errorf("first entry = %q, want choose_points", entries[0].Op)
	}
	if last := entries[len(entries)-1]; last.Op != OpRemoveUnfinished {
		t.Errorf("last entry = %q, want remove_unfinished", last.Op)
	}
	// Every choose_points asks for at least one point.
	for i, e := range entries {
		if e.Op == OpChoosePoints {
			if n, ok := e.Args[0].(int); !ok || n < 1 {
				t.Errorf("entry %d: choose_points arg = %v", i, e.Args[0])
			}
		}
	}
}

func TestRunner_BlockingRejectsDirect(t *testing.T) {
	l := &recLearner{}
	goal := func(learner.Learner[int, int]) bool { return true }

	_, err := New[int, int](l, nop, goal, nil, Config{Direct: true}, discardLogger())
	if !errors.Is(err, ErrConflictingExecutionMode) {
		t.Fatalf("New error = %v, want ErrConflictingExecutionMode", err)
	}
}

func TestRunner_ContextCancelledBeforeRun(t *testing.T) {
	l := &recLearner{script: [][]int{{1, 2}}}
	goal := func(learner.Learner[int, int]) bool { return false }
	p := newFakePool()

	r, err := New[int, int](l, nop, goal, p, Config{NTasks: 2}, discardLogger())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run error = %v, want nil on cancellation", err)
	}
	if outcome != OutcomeCancelled {
		t.Errorf("outcome = %v, want cancelled", outcome)
	}
	if l.removed != 1 {
		t.Errorf("RemoveUnfinished called %d times, want 1", l.removed)
	}
	if len(l.added) != 0 {
		t.Errorf("AddPoint called %d times after cancellation, want 0", len(l.added))
	}
}
