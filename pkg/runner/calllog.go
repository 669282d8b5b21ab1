package runner

import (
	"fmt"

	"github.com/me/adapt/pkg/learner"
)

// Operation names recorded in a call log, one per learner method.
const (
	OpChoosePoints     = "choose_points"
	OpAddPoint         = "add_point"
	OpRemoveUnfinished = "remove_unfinished"
)

// Entry is one recorded learner invocation. Entries are appended strictly
// in invocation order, so a log is a total order over learner mutations
// independent of how evaluation completions interleaved in real time.
type Entry struct {
	Op   string `json:"op"`
	Args []any  `json:"args,omitempty"`
}

// callLog records learner invocations when enabled. It is owned by a
// single loop and never shared, so it needs no locking.
type callLog struct {
	enabled bool
	entries []Entry
}

func (c *callLog) record(op string, args ...any) {
	if c == nil || !c.enabled {
		return
	}
	c.entries = append(c.entries, Entry{Op: op, Args: args})
}

func (c *callLog) snapshot() []Entry {
	if c == nil || !c.enabled {
		return nil
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Replay re-applies a recorded call log to a fresh learner, reproducing
// the exact sequence of mutations of the original run without its timing.
// Argument types must match the learner's (a log that crossed a JSON
// boundary should be replayed onto a learner with matching decoded types;
// numeric choose_points arguments tolerate json's float64 decoding).
func Replay[X, Y any](l learner.Learner[X, Y], entries []Entry) error {
	for i, e := range entries {
		switch e.Op {
		case OpChoosePoints:
			if len(e.Args) != 1 {
				return fmt.Errorf("replay entry %d: %s wants 1 arg, got %d", i, e.Op, len(e.Args))
			}
			n, ok := asInt(e.Args[0])
			if !ok {
				return fmt.Errorf("replay entry %d: %s arg %T is not an integer", i, e.Op, e.Args[0])
			}
			l.ChoosePoints(n)
		case OpAddPoint:
			if len(e.Args) != 2 {
				return fmt.Errorf("replay entry %d: %s wants 2 args, got %d", i, e.Op, len(e.Args))
			}
			x, ok := e.Args[0].(X)
			if !ok {
				return fmt.Errorf("replay entry %d: point has type %T", i, e.Args[0])
			}
			y, ok := e.Args[1].(Y)
			if !ok {
				return fmt.Errorf("replay entry %d: value has type %T", i, e.Args[1])
			}
			l.AddPoint(x, y)
		case OpRemoveUnfinished:
			l.RemoveUnfinished()
		default:
			return fmt.Errorf("replay entry %d: unknown operation %q", i, e.Op)
		}
	}
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
