// Package ledger provides the chain capabilities consumed by the distribution engine.
package ledger

import (
	"context"

	solanago "github.com/gagliardetto/solana-go"

	"solana-token-faucet/internal/solana"
)

// Operation kinds.
const (
	KindTransfer   = "transfer"
	KindMintTo     = "mint_to"
	KindCreateATA  = "create_associated_token_account"
	KindCreateMint = "create_mint"
)

// Operation is an unsigned set of instructions submitted as one transaction.
type Operation struct {
	Kind         string
	Source       string // token account debited or mint, depending on Kind
	Destination  string
	Authority    string
	Amount       uint64
	Instructions []solanago.Instruction
}

// Client is the capability set the distribution engine depends on.
type Client interface {
	// ResolveOrCreateTokenAccount returns the associated token account of owner for mint,
	// creating it with payer as fee payer when it does not exist.
	ResolveOrCreateTokenAccount(ctx context.Context, payer *solana.Keypair, mint, owner string) (string, error)

	// BuildTransfer builds an SPL token transfer of amount smallest units.
	BuildTransfer(from, to, authority string, amount uint64) (*Operation, error)

	// SubmitAndConfirm signs and submits op, then waits for confirmation.
	// The first signer pays the fee.
	SubmitAndConfirm(ctx context.Context, op *Operation, signers ...*solana.Keypair) (string, error)

	// TokenAccountsByOwnerAndMint lists existing token accounts of owner for mint.
	TokenAccountsByOwnerAndMint(ctx context.Context, owner, mint string) ([]solana.TokenAccount, error)
}

// Admin extends Client with the operations used by the operator tooling and the refill endpoint.
type Admin interface {
	Client

	// BuildMintTo builds an SPL token mint of amount smallest units into destination.
	BuildMintTo(mint, destination, authority string, amount uint64) (*Operation, error)

	// Balance returns the lamport balance of address.
	Balance(ctx context.Context, address string) (uint64, error)

	// TokenBalance returns the balance of owner's associated token account for mint.
	// A missing account reports a zero balance.
	TokenBalance(ctx context.Context, owner, mint string) (*solana.TokenAmount, error)

	// RequestAirdrop requests lamports from the network faucet and waits for confirmation.
	RequestAirdrop(ctx context.Context, address string, lamports uint64) (string, error)

	// CreateMint creates a new mint with payer as mint authority.
	CreateMint(ctx context.Context, payer *solana.Keypair, decimals uint8) (string, error)
}
