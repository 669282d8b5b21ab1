package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/adapt/internal/config"
	"github.com/me/adapt/internal/funcs"
	"github.com/me/adapt/internal/goalexpr"
	"github.com/me/adapt/internal/remote"
	"github.com/me/adapt/internal/store"
	"github.com/me/adapt/pkg/learner"
	"github.com/me/adapt/pkg/pool"
	"github.com/me/adapt/pkg/runner"
)

// runSummary is the JSON result printed to stdout after a run.
type runSummary struct {
	RunID    string  `json:"run_id,omitempty"`
	Function string  `json:"function"`
	Outcome  string  `json:"outcome"`
	NPoints  int     `json:"npoints"`
	Loss     float64 `json:"loss"`
	Duration string  `json:"duration"`
}

func newRunCmd() *cobra.Command {
	var (
		function  string
		lo, hi    float64
		goalExpr  string
		ntasks    int
		backend   string
		workers   []string
		evalDelay time.Duration
		logCalls  bool
		noArchive bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an adaptive sampling session",
		Long: `Samples a builtin function over an interval until the goal expression is
satisfied, then prints a JSON summary to stdout and archives the run.

The goal expression is JavaScript over three variables: npoints (absorbed
observations), loss (widest unexplored gap), and pending (proposals still
in flight). Examples:

  adapt run --function runge --goal "loss < 0.001"
  adapt run --function peak --goal "npoints >= 100" --ntasks 8
  adapt run --backend remote --worker http://host:8731 --function damped`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadRun(flagConfig)
			if err != nil {
				return err
			}
			fl := cmd.Flags()
			if fl.Changed("function") {
				cfg.Function = function
			}
			if fl.Changed("lo") {
				cfg.Lo = lo
			}
			if fl.Changed("hi") {
				cfg.Hi = hi
			}
			if fl.Changed("goal") {
				cfg.Goal = goalExpr
			}
			if fl.Changed("ntasks") {
				cfg.NTasks = ntasks
			}
			if fl.Changed("backend") {
				cfg.Backend = backend
			}
			if fl.Changed("worker") {
				cfg.Workers = workers
			}
			if fl.Changed("eval-delay") {
				cfg.EvalDelay = evalDelay
			}
			if fl.Changed("log") {
				cfg.Log = logCalls
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runAdaptive(ctx, cfg, !noArchive)
		},
	}

	cmd.Flags().StringVar(&function, "function", "peak", "Builtin function to sample (see 'adapt funcs')")
	cmd.Flags().Float64Var(&lo, "lo", -1, "Interval lower bound")
	cmd.Flags().Float64Var(&hi, "hi", 1, "Interval upper bound")
	cmd.Flags().StringVar(&goalExpr, "goal", "loss < 0.01", "Stop-condition expression")
	cmd.Flags().IntVar(&ntasks, "ntasks", 0, "Concurrent evaluations (0 = backend capacity)")
	cmd.Flags().StringVar(&backend, "backend", "local", "Execution backend (local, sequential, remote)")
	cmd.Flags().StringSliceVar(&workers, "worker", nil, "Remote eval worker base URL (repeatable)")
	cmd.Flags().DurationVar(&evalDelay, "eval-delay", 0, "Simulated per-evaluation cost")
	cmd.Flags().BoolVar(&logCalls, "log", true, "Record the call log for replay")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "Skip archiving the run")

	return cmd
}

func runAdaptive(ctx context.Context, cfg config.RunConfig, archive bool) error {
	registry := funcs.Builtins(cfg.EvalDelay, logger)
	fn, err := registry.Get(cfg.Function)
	if err != nil {
		return err
	}

	goal, err := goalexpr.Compile(cfg.Goal)
	if err != nil {
		return err
	}

	l := learner.NewLearner1D(cfg.Lo, cfg.Hi)

	var rcfg runner.Config
	rcfg.NTasks = cfg.NTasks
	rcfg.Log = cfg.Log

	var backend any
	switch cfg.Backend {
	case "local", "":
		// nil backend: the runner owns a machine-sized goroutine pool.
	case "sequential":
		backend = pool.NewSequentialPool[float64, float64]()
	case "remote":
		p, err := remote.Dial(ctx, cfg.Function, cfg.Workers, logger)
		if err != nil {
			return err
		}
		backend = p
		rcfg.ShutdownPool = true
	default:
		return fmt.Errorf("unknown backend %q (want local, sequential, or remote)", cfg.Backend)
	}

	r, err := runner.New[float64, float64](l, fn.Eval, goal.Predicate(), backend, rcfg, logger)
	if err != nil {
		return err
	}

	started := time.Now()
	outcome, runErr := r.Run(ctx)
	finished := time.Now()

	if gerr := goal.Err(); gerr != nil {
		logger.Warn("goal expression errored during run", "error", gerr)
	}

	summary := runSummary{
		Function: cfg.Function,
		Outcome:  outcome.String(),
		NPoints:  l.NPoints(),
		Loss:     l.Loss(),
		Duration: finished.Sub(started).Round(time.Millisecond).String(),
	}

	if archive {
		id, err := archiveRun(ctx, cfg, summary, started, finished, r.Log())
		if err != nil {
			logger.Warn("archive failed", "error", err)
		} else {
			summary.RunID = id
		}
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	return runErr
}

// archiveRun saves the finished run and its call log, returning the run ID.
func archiveRun(ctx context.Context, cfg config.RunConfig, summary runSummary, started, finished time.Time, log []runner.Entry) (string, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}

	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return "", err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return "", err
	}

	run := &store.Run{
		Function:   cfg.Function,
		Lo:         cfg.Lo,
		Hi:         cfg.Hi,
		Goal:       cfg.Goal,
		Outcome:    summary.Outcome,
		NPoints:    summary.NPoints,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
	}
	// Archive even when the run was cancelled; use a background-derived
	// context so the save is not itself cancelled.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := st.SaveRun(saveCtx, run, log); err != nil {
		return "", err
	}
	return run.ID, nil
}
