package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/adapt/internal/config"
	"github.com/me/adapt/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	var dbPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd, dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			if len(runs) == 0 {
				fmt.Println("No archived runs.")
				return nil
			}

			fmt.Printf("%-36s  %-10s  %-14s  %7s  %s\n", "ID", "FUNCTION", "OUTCOME", "NPOINTS", "STARTED")
			fmt.Printf("%-36s  %-10s  %-14s  %7s  %s\n", "--", "--------", "-------", "-------", "-------")
			for _, r := range runs {
				fmt.Printf("%-36s  %-10s  %-14s  %7d  %s\n",
					r.ID, r.Function, r.Outcome, r.NPoints,
					r.StartedAt.Local().Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show")
	cmd.Flags().StringVar(&dbPath, "db", "", "Run archive path (default ~/.adapt/runs.db)")

	return cmd
}

// openStore opens the run archive named by --db, the config file, or the
// default path, in that order.
func openStore(cmd *cobra.Command, dbPath string) (*store.SQLiteStore, error) {
	if dbPath == "" {
		cfg, err := config.LoadRun(flagConfig)
		if err != nil {
			return nil, err
		}
		dbPath = cfg.DBPath
	}
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}

	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
