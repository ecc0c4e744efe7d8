package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/vesting-api/internal/derive"
	"github.com/dimitrije/vesting-api/internal/logging"
	"github.com/dimitrije/vesting-api/internal/services"
	"github.com/dimitrije/vesting-api/internal/vesting"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	var (
		opts      scheduleOpts
		claimsAt  []int64
		namespace string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a grant and a series of claims against an in-memory ledger",
		Long: `Funds an employer, creates a grant and has the employee claim at each
--claim-at month offset, printing what every claim released.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, opts, claimsAt, namespace)
		},
	}
	opts.bind(cmd)
	cmd.Flags().Int64SliceVar(&claimsAt, "claim-at", []int64{4, 12, 24}, "claim offsets in months")
	cmd.Flags().StringVar(&namespace, "namespace", "vesting-sim", "derivation namespace")
	return cmd
}

func runSimulation(cmd *cobra.Command, opts scheduleOpts, claimsAt []int64, namespace string) error {
	const (
		employer = "employer"
		employee = "employee"
		asset    = "TOKEN"
	)
	ctx := context.Background()
	out := cmd.OutOrStdout()

	sched := opts.schedule()
	clock := vesting.NewManualClock(sched.StartDate)
	store := vesting.NewMemoryStore()
	deriver := derive.FromNamespace(namespace)
	svc := services.NewGrantService(
		vesting.NewLedger(store, deriver, clock),
		vesting.NewProcessor(store, deriver, clock),
		logging.For("simulate"),
	)

	if _, err := svc.Mint(ctx, employer, asset, opts.deposit); err != nil {
		return err
	}
	state, err := svc.Create(ctx, employer, vesting.CreateRequest{
		Employer:      employer,
		Employee:      employee,
		Asset:         asset,
		Decimals:      opts.decimals,
		StartDate:     sched.StartDate,
		CliffDate:     sched.CliffDate,
		EndDate:       sched.EndDate,
		DepositAmount: opts.deposit,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "grant %s deposited %d into %s\n", state.Grant.Address, state.Grant.TotalDeposited, state.Grant.VaultAddress)

	for _, m := range claimsAt {
		at := sched.StartDate + m*month
		if at < clock.Now() {
			return fmt.Errorf("claim offsets must be ascending, got month %d after %d", m, (clock.Now()-sched.StartDate)/month)
		}
		clock.Set(at)

		res, err := svc.Claim(ctx, employee, vesting.ClaimRequest{Employer: employer, Grant: state.Grant.Address})
		if errors.Is(err, vesting.ErrNothingToClaim) {
			fmt.Fprintf(out, "month %d: nothing to claim\n", m)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "month %d: claimed %d, total %d, remaining %d\n", m, res.Amount, res.TotalClaimed, res.Remaining)
	}

	for _, acct := range store.Accounts() {
		fmt.Fprintf(out, "account %s owner=%s balance=%d\n", acct.Address, acct.Owner, acct.Balance)
	}
	return nil
}
