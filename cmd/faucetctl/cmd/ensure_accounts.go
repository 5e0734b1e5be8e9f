package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"solana-token-faucet/internal/bootstrap"
)

var ensureMints []string

var ensureAccountsCmd = &cobra.Command{
	Use:   "ensure-accounts <owner>",
	Short: "Create missing token accounts for a wallet",
	Long: `Resolve or create the associated token account of <owner> for every mint,
with the distributor paying rent and fees. Pass the distributor's own address
to prepare it for distributions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withFaucet(cmd, func(ctx context.Context, f *bootstrap.Faucet) error {
			mints, err := mintsOrDefault(ensureMints, f)
			if err != nil {
				return err
			}
			report, err := f.Engine.EnsureAccountsExist(ctx, args[0], mints)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token accounts of %s\n", report.Owner)
			for _, a := range report.Accounts {
				if a.Error != "" {
					fmt.Fprintf(out, "  %s: error: %s\n", a.TokenType, a.Error)
					continue
				}
				fmt.Fprintf(out, "  %s: %s\n", a.TokenType, a.Account)
			}
			if failed := report.Failed(); failed > 0 {
				return fmt.Errorf("%d of %d token accounts could not be ensured", failed, len(report.Accounts))
			}
			return nil
		})
	},
}

func init() {
	ensureAccountsCmd.Flags().StringSliceVar(&ensureMints, "mints", nil, "mints to ensure (default DEFAULT_MINTS)")
	rootCmd.AddCommand(ensureAccountsCmd)
}
