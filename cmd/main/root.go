package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd builds the root command with every subcommand registered.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seat-watch",
		Short: "Watch course sections and report seat status changes",
		Long: `seat-watch polls the course section search for every stored watch and
notifies the watch owner when a section opens or closes.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}
