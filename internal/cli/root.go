// Package cli implements the adapt command line interface.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/adapt/internal/logging"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the adapt CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "adapt",
		Short: "adapt — adaptive function evaluation",
		Long: `adapt samples expensive functions adaptively: a learner picks the most
informative points, a runner keeps a fixed number of evaluations in
flight, and a goal expression decides when to stop.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(logging.Options{Level: flagLogLevel, Format: flagLogFormat})
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newFuncsCmd(),
		newHistoryCmd(),
		newReplayCmd(),
	)

	return root
}
