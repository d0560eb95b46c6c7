package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GESkunkworks/snapkeeper"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <day|week|month>",
		Short: "Run one snapshot rotation for a period",
		Long: `Snapshot every matching volume once and prune the snapshots of the
given period down to its keep count. Failures of single volumes are
reported in the summary and do not change the exit status; only
configuration errors and fatal AWS errors do.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"day", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := snapkeeper.ParsePeriod(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			rt, err := setup(ctx)
			if err != nil {
				return err
			}
			rot, err := rt.rotation(period, nil)
			if err != nil {
				return err
			}
			report, err := rot.Start(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
			return nil
		},
	}
}
