package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/me/adapt/pkg/learner"
	"github.com/me/adapt/pkg/runner"
)

// replayResult is the JSON output of a replay: the learner's state after
// re-applying the archived call log.
type replayResult struct {
	RunID   string      `json:"run_id"`
	NPoints int         `json:"npoints"`
	Loss    float64     `json:"loss"`
	Points  []pointJSON `json:"points"`
}

type pointJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func newReplayCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Replay an archived run's call log onto a fresh learner",
		Long: `Re-applies an archived call log to a fresh learner, reproducing the
original run's final state without re-evaluating the function. Prints the
reconstructed data as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]

			st, err := openStore(cmd, dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.GetRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("no archived run %q", runID)
			}

			entries, err := st.GetLog(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("run %q has no call log (was it run with --log=false?)", runID)
			}

			l := learner.NewLearner1D(run.Lo, run.Hi)
			if err := runner.Replay[float64, float64](l, entries); err != nil {
				return fmt.Errorf("replay: %w", err)
			}

			result := replayResult{
				RunID:   runID,
				NPoints: l.NPoints(),
				Loss:    l.Loss(),
			}
			for x, y := range l.Data() {
				result.Points = append(result.Points, pointJSON{X: x, Y: y})
			}
			sort.Slice(result.Points, func(i, j int) bool {
				return result.Points[i].X < result.Points[j].X
			})

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Run archive path (default ~/.adapt/runs.db)")

	return cmd
}
