package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"solana-token-faucet/internal/bootstrap"
	"solana-token-faucet/internal/domain"
)

var historyDistribution string

var historyCmd = &cobra.Command{
	Use:   "history [wallet]",
	Short: "Show the transfer log of a wallet or of one distribution",
	Long: `Prints the transfer log rows of a wallet, oldest first. With --distribution
the rows of that distribution are printed instead.

Only the postgres backend keeps the transfer log across processes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var wallet string
		if len(args) == 1 {
			wallet = args[0]
			if err := domain.ValidateAddress(wallet); err != nil {
				return err
			}
		}
		if wallet == "" && historyDistribution == "" {
			return errors.New("a wallet or --distribution is required")
		}

		return withFaucet(cmd, func(ctx context.Context, f *bootstrap.Faucet) error {
			var (
				records []*domain.TransferRecord
				err     error
			)
			if historyDistribution != "" {
				records, err = f.Transfers.GetByDistributionID(ctx, historyDistribution)
			} else {
				records, err = f.Transfers.GetByRecipient(ctx, wallet)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			shown := 0
			for _, r := range records {
				if wallet != "" && r.Recipient != wallet {
					continue
				}
				at := time.UnixMilli(r.CreatedAt).UTC().Format(time.RFC3339)
				if r.Status == domain.OutcomeSuccess {
					fmt.Fprintf(out, "%s  %s  %s  %s  amount=%s  signature=%s\n",
						at, r.DistributionID, r.TokenType, r.Status, formatUnits(r.Amount, f.Config.Distribution.Decimals), r.Signature)
				} else {
					fmt.Fprintf(out, "%s  %s  %s  %s  stage=%s  reason=%s\n",
						at, r.DistributionID, r.TokenType, r.Status, r.Stage, r.Reason)
				}
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(out, "No transfers recorded")
			}
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyDistribution, "distribution", "", "distribution id to show")
	rootCmd.AddCommand(historyCmd)
}
