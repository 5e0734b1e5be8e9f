// Package main is the operator CLI for the faucet: key generation, balance
// checks, test token setup and eligibility maintenance.
package main

import (
	"os"

	"solana-token-faucet/cmd/faucetctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
