package funcs

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// Builtins returns a registry preloaded with the demo functions. delay
// simulates evaluation cost; zero means evaluate instantly.
func Builtins(delay time.Duration, logger *slog.Logger) *Registry {
	r := NewRegistry(logger)

	wrap := func(f func(float64) float64) func(context.Context, float64) (float64, error) {
		return func(ctx context.Context, x float64) (float64, error) {
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return 0, ctx.Err()
				}
			}
			return f(x), nil
		}
	}

	r.Register(Function{
		Name:        "peak",
		Description: "x plus a narrow Lorentzian peak at x=0.3",
		Eval: wrap(func(x float64) float64 {
			const a = 0.01
			return x + a*a/(a*a+(x-0.3)*(x-0.3))
		}),
	})
	r.Register(Function{
		Name:        "runge",
		Description: "Runge's function 1/(1+25x^2)",
		Eval: wrap(func(x float64) float64 {
			return 1 / (1 + 25*x*x)
		}),
	})
	r.Register(Function{
		Name:        "damped",
		Description: "damped oscillation sin(10x)*exp(-x^2)",
		Eval: wrap(func(x float64) float64 {
			return math.Sin(10*x) * math.Exp(-x*x)
		}),
	})
	r.Register(Function{
		Name:        "step",
		Description: "smoothed step tanh(50(x-0.5))",
		Eval: wrap(func(x float64) float64 {
			return math.Tanh(50 * (x - 0.5))
		}),
	})

	return r
}
