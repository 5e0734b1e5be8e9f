package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"solana-token-faucet/internal/bootstrap"
	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/eligibility"
	"solana-token-faucet/internal/storage"
)

var checkCmd = &cobra.Command{
	Use:   "check <wallet>",
	Short: "Show whether a wallet may receive a distribution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wallet := args[0]
		if err := domain.ValidateAddress(wallet); err != nil {
			return err
		}
		return withFaucet(cmd, func(ctx context.Context, f *bootstrap.Faucet) error {
			remaining, err := f.Tracker.TimeRemaining(ctx, wallet)
			if err != nil {
				return err
			}
			if remaining == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is eligible now\n", wallet)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is eligible in %s\n", wallet, eligibility.FormatRemaining(remaining))
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <wallet>",
	Short: "Clear a wallet's cooldown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wallet := args[0]
		return withFaucet(cmd, func(ctx context.Context, f *bootstrap.Faucet) error {
			err := f.Tracker.Reset(ctx, wallet)
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no distribution recorded for %s", wallet)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cooldown of %s cleared\n", wallet)
			return nil
		})
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List wallets with a recorded distribution",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withFaucet(cmd, func(ctx context.Context, f *bootstrap.Faucet) error {
			records, err := f.Tracker.Records(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No distributions recorded")
				return nil
			}
			for _, r := range records {
				last := time.UnixMilli(r.LastDistributionMs).UTC().Format(time.RFC3339)
				remaining, err := f.Tracker.TimeRemaining(ctx, r.Wallet)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  last=%s  next=%s\n", r.Wallet, last, eligibility.FormatRemaining(remaining))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(checkCmd, resetCmd, recordsCmd)
}
