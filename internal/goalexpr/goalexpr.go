// Package goalexpr compiles user-supplied JavaScript stop conditions into
// goal predicates, e.g. "npoints >= 200 || loss < 0.01". The expression
// sees three variables: npoints, loss, and pending.
package goalexpr

import (
	"fmt"
	"math"

	"github.com/dop251/goja"

	"github.com/me/adapt/pkg/learner"
)

// Goal is a compiled stop-condition expression.
type Goal struct {
	src     string
	prog    *goja.Program
	vm      *goja.Runtime
	lastErr error
}

// Compile parses and sanity-checks an expression. The check evaluates it
// once against an empty run (npoints=0, loss=Infinity) so typos in
// variable names fail here rather than silently during a run.
func Compile(expr string) (*Goal, error) {
	prog, err := goja.Compile("goal", expr, true)
	if err != nil {
		return nil, fmt.Errorf("goal expression: %w", err)
	}
	g := &Goal{src: expr, prog: prog, vm: goja.New()}

	if _, err := g.eval(0, math.Inf(1), 0); err != nil {
		return nil, fmt.Errorf("goal expression: %w", err)
	}
	return g, nil
}

// Predicate returns a learner.Goal backed by the expression. Learners that
// do not implement learner.Stats see npoints=0 and loss=Infinity. The
// goal predicate is serialized by the runner, so the shared VM is safe.
func (g *Goal) Predicate() learner.Goal[float64, float64] {
	return func(l learner.Learner[float64, float64]) bool {
		npoints, loss := 0, math.Inf(1)
		if s, ok := l.(learner.Stats); ok {
			npoints, loss = s.NPoints(), s.Loss()
		}
		pending := 0
		if p, ok := l.(interface{ NPending() int }); ok {
			pending = p.NPending()
		}
		v, err := g.eval(npoints, loss, pending)
		if err != nil {
			// A runtime error cannot satisfy the goal; keep the run going
			// and surface the error through Err.
			g.lastErr = err
			return false
		}
		return v
	}
}

// Err returns the most recent evaluation error, if any.
func (g *Goal) Err() error {
	return g.lastErr
}

// String returns the expression source.
func (g *Goal) String() string {
	return g.src
}

func (g *Goal) eval(npoints int, loss float64, pending int) (bool, error) {
	if err := g.vm.Set("npoints", npoints); err != nil {
		return false, err
	}
	if err := g.vm.Set("loss", loss); err != nil {
		return false, err
	}
	if err := g.vm.Set("pending", pending); err != nil {
		return false, err
	}
	v, err := g.vm.RunProgram(g.prog)
	if err != nil {
		return false, err
	}
	return v.ToBoolean(), nil
}
