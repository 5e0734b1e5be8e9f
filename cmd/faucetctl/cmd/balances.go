package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"solana-token-faucet/internal/bootstrap"
	"solana-token-faucet/internal/distribution"
	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/solana"
)

var (
	balancesWallet    string
	balancesKeyFile   string
	balancesMints     []string
	balancesMinTokens uint64
)

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show SOL and token balances of a wallet",
	Long: `Show the SOL balance and the associated token account balance of every mint.

Without --wallet or --key-file the distributor wallet is checked and mints
holding fewer than --min-tokens whole tokens are flagged as low.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withFaucet(cmd, func(ctx context.Context, f *bootstrap.Faucet) error {
			owner, err := balancesOwner(f)
			if err != nil {
				return err
			}
			mints, err := mintsOrDefault(balancesMints, f)
			if err != nil {
				return err
			}
			return printBalances(ctx, cmd, f, owner, mints)
		})
	},
}

func balancesOwner(f *bootstrap.Faucet) (string, error) {
	switch {
	case balancesWallet != "":
		if err := domain.ValidateAddress(balancesWallet); err != nil {
			return "", err
		}
		return balancesWallet, nil
	case balancesKeyFile != "":
		kp, err := solana.ReadKeyFile(balancesKeyFile)
		if err != nil {
			return "", err
		}
		return kp.Address(), nil
	case f.Sender != nil:
		return f.Sender.Address(), nil
	default:
		return "", fmt.Errorf("no wallet: pass --wallet or --key-file, or set AIRDROP_WALLET_PRIVATE_KEY")
	}
}

func printBalances(ctx context.Context, cmd *cobra.Command, f *bootstrap.Faucet, owner string, mints []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Balances of %s (%s)\n", owner, f.Config.Solana.Network)

	lamports, err := f.Ledger.Balance(ctx, owner)
	if err != nil {
		return fmt.Errorf("get SOL balance: %w", err)
	}
	fmt.Fprintf(out, "SOL: %s\n\nTokens:\n", formatUnits(lamports, 9))

	problems := 0
	for _, mint := range mints {
		balance, err := f.Ledger.TokenBalance(ctx, owner, mint)
		if err != nil {
			fmt.Fprintf(out, "  %s: error: %v\n", mint, err)
			problems++
			continue
		}

		decimals := balance.Decimals
		if balance.UIAmountString == "" {
			decimals = f.Config.Distribution.Decimals
		}
		fmt.Fprintf(out, "  %s: %s\n", mint, formatUnits(balance.Amount, decimals))

		if balancesMinTokens == 0 {
			continue
		}
		minimum, err := distribution.Amount(balancesMinTokens, decimals)
		if err != nil {
			return err
		}
		if balance.Amount < minimum {
			fmt.Fprintf(out, "  LOW BALANCE: %s holds less than %d tokens\n", mint, balancesMinTokens)
			problems++
		}
	}

	if problems == 0 {
		fmt.Fprintln(out, "\nAll mints are funded.")
	} else {
		fmt.Fprintf(out, "\n%d of %d mints need attention.\n", problems, len(mints))
	}
	return nil
}

func init() {
	balancesCmd.Flags().StringVar(&balancesWallet, "wallet", "", "wallet address to inspect")
	balancesCmd.Flags().StringVar(&balancesKeyFile, "key-file", "", "key file whose wallet to inspect")
	balancesCmd.Flags().StringSliceVar(&balancesMints, "mints", nil, "mints to check (default DEFAULT_MINTS)")
	balancesCmd.Flags().Uint64Var(&balancesMinTokens, "min-tokens", 10_000, "flag mints holding fewer whole tokens (0 disables)")
	balancesCmd.MarkFlagsMutuallyExclusive("wallet", "key-file")
	rootCmd.AddCommand(balancesCmd)
}
