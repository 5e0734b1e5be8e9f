package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"solana-token-faucet/internal/bootstrap"
	"solana-token-faucet/internal/config"
	"solana-token-faucet/internal/distribution"
	"solana-token-faucet/internal/logging"
)

var (
	envFile  string
	timeout  time.Duration
	logLevel string
)

// openFaucet assembles the faucet for commands that need the ledger or the
// eligibility store. Tests replace it.
var openFaucet = func(ctx context.Context, cfg config.Config, logger *slog.Logger) (*bootstrap.Faucet, error) {
	return bootstrap.New(ctx, cfg, logger, bootstrap.Options{SkipWebSocket: true, SkipRecorders: true})
}

var rootCmd = &cobra.Command{
	Use:   "faucetctl",
	Short: "Operator tooling for the Solana token faucet",
	Long: `faucetctl manages the faucet's distributor wallet and eligibility store.

It reads the same environment variables as the server (a .env file is loaded
first), so commands act on the configured network, wallet and store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envFile)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall command timeout (0 disables)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")
}

// NewCommandContext applies the --timeout flag to parent.
func NewCommandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(parent, timeout)
	}
	return context.WithCancel(parent)
}

// withFaucet loads the configuration, opens the faucet and runs fn against it.
func withFaucet(cmd *cobra.Command, fn func(ctx context.Context, f *bootstrap.Faucet) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cmd.ErrOrStderr(), logLevel, "text")

	ctx, cancel := NewCommandContext(cmd.Context())
	defer cancel()

	f, err := openFaucet(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Warn("close faucet", "error", cerr)
		}
	}()
	return fn(ctx, f)
}

func requireSender(f *bootstrap.Faucet) error {
	if f.Sender == nil {
		return fmt.Errorf("%w: set AIRDROP_WALLET_PRIVATE_KEY", distribution.ErrMissingCredentials)
	}
	return nil
}

func mintsOrDefault(mints []string, f *bootstrap.Faucet) ([]string, error) {
	if len(mints) == 0 {
		mints = f.Config.Distribution.DefaultMints
	}
	if len(mints) == 0 {
		return nil, fmt.Errorf("no mints: pass --mints or set DEFAULT_MINTS")
	}
	return mints, nil
}

// formatUnits renders amount smallest units as a decimal with trailing zeros trimmed.
func formatUnits(amount uint64, decimals uint8) string {
	unit, err := distribution.Amount(1, decimals)
	if err != nil || unit == 1 {
		return fmt.Sprintf("%d", amount)
	}
	whole, frac := amount/unit, amount%unit
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	s := fmt.Sprintf("%d.%0*d", whole, int(decimals), frac)
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	return s
}
