package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"solana-token-faucet/internal/solana"
)

var keygenOut string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new wallet keypair",
	Long: `Generate a random keypair and print its address and base64 secret key.

The secret key goes into AIRDROP_WALLET_PRIVATE_KEY. Unless --out is empty the
keypair is also written to a key file readable only by the current user.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := solana.NewKeypair()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Generated new Solana wallet")
		fmt.Fprintf(out, "Public key (address): %s\n", kp.Address())
		fmt.Fprintf(out, "Private key (base64): %s\n", kp.SecretBase64())
		fmt.Fprintln(out, "\nSave the private key securely and set it as AIRDROP_WALLET_PRIVATE_KEY.")

		if keygenOut == "" {
			return nil
		}
		if err := solana.WriteKeyFile(keygenOut, kp); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nKeypair written to %s. Delete it once the key is stored elsewhere.\n", keygenOut)
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringVarP(&keygenOut, "out", "o", "wallet.json", "key file to write (empty to skip)")
	rootCmd.AddCommand(keygenCmd)
}
