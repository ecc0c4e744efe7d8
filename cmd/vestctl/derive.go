package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dimitrije/vesting-api/internal/derive"
	"github.com/dimitrije/vesting-api/internal/vesting"
	"github.com/spf13/cobra"
)

func newDeriveCmd() *cobra.Command {
	var (
		programID string
		namespace string
		asset     string
	)
	cmd := &cobra.Command{
		Use:   "derive <employer> <employee>",
		Short: "Print the grant, schedule and vault addresses for a pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pda, err := derive.Resolve(programID, namespace)
			if err != nil {
				return err
			}
			accts, err := vesting.DeriveAccounts(pda, args[0], args[1])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "program\t%s\n", pda.ProgramID())
			fmt.Fprintf(w, "grant\t%s\tbump %d\n", accts.Grant, accts.GrantBump)
			fmt.Fprintf(w, "schedule\t%s\n", accts.Schedule)
			fmt.Fprintf(w, "vault\t%s\tbump %d\n", accts.Vault, accts.VaultBump)
			if asset != "" {
				for _, owner := range args {
					addr, err := vesting.DeriveTokenAccount(pda, owner, asset)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%s/%s\t%s\n", owner, asset, addr)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&programID, "program-id", "", "base58 program id (defaults to the namespace hash)")
	cmd.Flags().StringVar(&namespace, "namespace", "vesting", "derivation namespace when no program id is given")
	cmd.Flags().StringVar(&asset, "asset", "", "also print both parties' token accounts for this asset")
	return cmd
}
