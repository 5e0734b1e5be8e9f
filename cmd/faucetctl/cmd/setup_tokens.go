package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"solana-token-faucet/internal/bootstrap"
	"solana-token-faucet/internal/distribution"
	"solana-token-faucet/internal/solana"
)

var (
	setupCount      int
	setupAirdropSOL uint64
	setupMintTokens uint64
	setupDecimals   uint8
	setupOut        string
)

// TestTokens is the file written by setup-tokens.
type TestTokens struct {
	WalletAddress string   `json:"walletAddress"`
	TokenMints    []string `json:"tokenMints"`
}

var setupTokensCmd = &cobra.Command{
	Use:   "setup-tokens",
	Short: "Create test mints funded in the distributor wallet",
	Long: `Fund the distributor with devnet SOL, create test mints with the distributor
as mint authority and mint an initial supply into its token accounts.

The created mints are written to --out so they can be used as DEFAULT_MINTS.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if setupCount < 1 {
			return fmt.Errorf("--count must be at least 1")
		}
		return withFaucet(cmd, func(ctx context.Context, f *bootstrap.Faucet) error {
			if err := requireSender(f); err != nil {
				return err
			}
			if setupAirdropSOL > 0 && f.Config.Solana.Network != solana.NetworkDevnet {
				return fmt.Errorf("SOL airdrops are only available on devnet; pass --airdrop-sol 0")
			}
			return setupTokens(ctx, cmd, f)
		})
	},
}

func setupTokens(ctx context.Context, cmd *cobra.Command, f *bootstrap.Faucet) error {
	out := cmd.OutOrStdout()
	wallet := f.Sender.Address()
	fmt.Fprintf(out, "Setting up %d test tokens for %s\n", setupCount, wallet)

	if setupAirdropSOL > 0 {
		fmt.Fprintf(out, "\nRequesting %d SOL airdrop...\n", setupAirdropSOL)
		if _, err := f.Ledger.RequestAirdrop(ctx, wallet, setupAirdropSOL*solana.LamportsPerSOL); err != nil {
			return err
		}
		lamports, err := f.Ledger.Balance(ctx, wallet)
		if err != nil {
			return fmt.Errorf("get SOL balance: %w", err)
		}
		fmt.Fprintf(out, "SOL balance: %s\n", formatUnits(lamports, 9))
	}

	fmt.Fprintln(out, "\nCreating mints...")
	mints := make([]string, 0, setupCount)
	for i := range setupCount {
		mint, err := f.Ledger.CreateMint(ctx, f.Sender, setupDecimals)
		if err != nil {
			return fmt.Errorf("create mint #%d: %w", i+1, err)
		}
		fmt.Fprintf(out, "  #%d %s\n", i+1, mint)
		mints = append(mints, mint)
	}

	amount, err := distribution.Amount(setupMintTokens, setupDecimals)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nMinting %d tokens of each mint...\n", setupMintTokens)
	results, err := f.Refiller.Refill(ctx, mints, amount)
	if err != nil {
		return err
	}
	var errs []error
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(out, "  %s: error: %s\n", r.TokenType, r.Error)
			errs = append(errs, fmt.Errorf("mint to %s: %s", r.TokenType, r.Error))
			continue
		}
		fmt.Fprintf(out, "  %s -> %s (%s)\n", r.TokenType, r.Account, r.Signature)
	}

	data, err := json.MarshalIndent(TestTokens{WalletAddress: wallet, TokenMints: mints}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(setupOut, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", setupOut, err)
	}
	fmt.Fprintf(out, "\nMints saved to %s\n", setupOut)

	mintsJSON, _ := json.Marshal(mints)
	fmt.Fprintf(out, "\nTry a distribution with:\n")
	fmt.Fprintf(out, "curl -X POST http://localhost:%d/distribute \\\n  -H \"Content-Type: application/json\" \\\n  -d '{\"recipient\":\"<RECIPIENT>\",\"tokenTypes\":%s}'\n",
		f.Config.Server.Port, mintsJSON)

	return errors.Join(errs...)
}

func init() {
	setupTokensCmd.Flags().IntVar(&setupCount, "count", 3, "number of mints to create")
	setupTokensCmd.Flags().Uint64Var(&setupAirdropSOL, "airdrop-sol", 2, "SOL requested from the devnet faucet first (0 skips)")
	setupTokensCmd.Flags().Uint64Var(&setupMintTokens, "mint-tokens", 100_000, "whole tokens minted into the distributor per mint")
	setupTokensCmd.Flags().Uint8Var(&setupDecimals, "decimals", 9, "decimals of the created mints")
	setupTokensCmd.Flags().StringVarP(&setupOut, "out", "o", "test-tokens.json", "file receiving the created mints")
	rootCmd.AddCommand(setupTokensCmd)
}
