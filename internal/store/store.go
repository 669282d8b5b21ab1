// Package store archives finished runs and their call logs so they can be
// listed and replayed after the fact. This is a write-once debugging
// record, not resumable scheduling state.
package store

import (
	"context"
	"time"

	"github.com/me/adapt/pkg/runner"
)

// Run is one archived run.
type Run struct {
	ID         string
	Function   string
	Lo, Hi     float64 // sampling interval, kept so the log can be replayed
	Goal       string
	Outcome    string
	NPoints    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store defines the run-archive persistence layer.
type Store interface {
	// SaveRun archives a finished run together with its call log.
	SaveRun(ctx context.Context, run *Run, log []runner.Entry) error

	// GetRun returns one archived run, or nil if the ID is unknown.
	GetRun(ctx context.Context, id string) (*Run, error)

	// GetLog returns a run's call log in recorded order.
	GetLog(ctx context.Context, id string) ([]runner.Entry, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
