// vestctl is the operator CLI for the vesting service.
package main

import (
	"os"

	"github.com/dimitrije/vesting-api/internal/logging"
	"github.com/spf13/cobra"
)

var logLevel string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vestctl",
		Short:         "Operate the token vesting service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Configure(logLevel, false)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newTokenCmd(),
		newDeriveCmd(),
		newScheduleCmd(),
		newSimulateCmd(),
		newMigrateCmd(),
		newWatchCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.L.Error("command failed", "err", err)
		os.Exit(1)
	}
}
