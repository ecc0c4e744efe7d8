package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dimitrije/vesting-api/internal/models"
	"github.com/dimitrije/vesting-api/internal/vesting"
	"github.com/dimitrije/vesting-api/pkg/dto"
	"github.com/spf13/cobra"
)

const month int64 = 2592000

type scheduleOpts struct {
	start       int64
	cliffMonths int64
	endMonths   int64
	deposit     uint64
	decimals    uint8
}

func (o scheduleOpts) schedule() models.Schedule {
	return models.Schedule{
		StartDate: o.start,
		CliffDate: o.start + o.cliffMonths*month,
		EndDate:   o.start + o.endMonths*month,
	}
}

func (o *scheduleOpts) bind(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&o.start, "start", 1_700_000_000, "vesting start, unix seconds")
	cmd.Flags().Int64Var(&o.cliffMonths, "cliff-months", 3, "cliff offset in 30 day months")
	cmd.Flags().Int64Var(&o.endMonths, "end-months", 24, "end offset in 30 day months")
	cmd.Flags().Uint64Var(&o.deposit, "deposit", 100000, "deposit in base units")
	cmd.Flags().Uint8Var(&o.decimals, "decimals", 0, "asset decimals for display")
}

func newScheduleCmd() *cobra.Command {
	var (
		opts scheduleOpts
		step int64
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the vested amount month by month",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched := opts.schedule()
			if err := vesting.ValidateSchedule(sched); err != nil {
				return err
			}
			if step <= 0 {
				return fmt.Errorf("step must be positive")
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "month\tdate\tvested\tdisplay\t")
			for i := int64(0); ; i++ {
				at := sched.StartDate + i*step*month
				if at > sched.EndDate {
					at = sched.EndDate
				}
				vested, err := vesting.VestedAmount(at, sched, opts.deposit)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t\n",
					(at-sched.StartDate)/month,
					time.Unix(at, 0).UTC().Format("2006-01-02"),
					vested,
					dto.DisplayAmount(vested, opts.decimals))
				if at == sched.EndDate {
					break
				}
			}
			return w.Flush()
		},
	}
	opts.bind(cmd)
	cmd.Flags().Int64Var(&step, "step", 1, "row interval in months")
	return cmd
}
