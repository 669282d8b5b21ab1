package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/adapt/internal/funcs"
)

func newFuncsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "funcs",
		Short: "List the builtin functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := funcs.Builtins(0, logger)

			fmt.Printf("%-10s  %s\n", "NAME", "DESCRIPTION")
			fmt.Printf("%-10s  %s\n", "----", "-----------")
			for _, f := range registry.All() {
				fmt.Printf("%-10s  %s\n", f.Name, f.Description)
			}
			return nil
		},
	}
}
