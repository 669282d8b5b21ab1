// Package funcs maps names to evaluation functions so the CLI demo and the
// remote eval worker can refer to the same function by name.
package funcs

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/me/adapt/pkg/learner"
)

// Function is a named scalar evaluation function.
type Function struct {
	Name        string
	Description string
	Eval        learner.Func[float64, float64]
}

// Registry maps function names to their implementations. Registration
// happens at startup before concurrent access, so no mutex is needed.
type Registry struct {
	funcs  map[string]Function
	logger *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		funcs:  make(map[string]Function),
		logger: logger.With("component", "funcs"),
	}
}

// Register adds a Function, keyed by its name. Re-registering a name
// replaces the previous entry.
func (r *Registry) Register(f Function) {
	r.funcs[f.Name] = f
	r.logger.Debug("function registered", "name", f.Name)
}

// Get returns the Function for the given name or an error naming the
// available functions.
func (r *Registry) Get(name string) (Function, error) {
	f, ok := r.funcs[name]
	if !ok {
		return Function{}, fmt.Errorf("no function named %q (available: %v)", name, r.Names())
	}
	return f, nil
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered Function in name order.
func (r *Registry) All() []Function {
	all := make([]Function, 0, len(r.funcs))
	for _, name := range r.Names() {
		all = append(all, r.funcs[name])
	}
	return all
}
