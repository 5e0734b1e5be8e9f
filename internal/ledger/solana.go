package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"solana-token-faucet/internal/solana"
)

// Default confirmation settings.
const (
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultConfirmTimeout = 90 * time.Second
)

// RPC is the subset of the Solana JSON-RPC API used by SolanaClient.
type RPC interface {
	solana.RPCClient
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
	GetTokenAccountBalance(ctx context.Context, account string) (*solana.TokenAmount, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
	RequestAirdrop(ctx context.Context, pubkey string, lamports uint64) (string, error)
}

// SolanaClient implements Admin against a Solana cluster.
type SolanaClient struct {
	rpc            RPC
	ws             solana.WSClient
	commitment     string
	pollInterval   time.Duration
	confirmTimeout time.Duration
	logger         *slog.Logger
}

var _ Admin = (*SolanaClient)(nil)

// Option configures SolanaClient.
type Option func(*SolanaClient)

// WithWebSocket enables signatureSubscribe confirmations.
func WithWebSocket(ws solana.WSClient) Option {
	return func(c *SolanaClient) {
		c.ws = ws
	}
}

// WithCommitment sets the commitment a transaction must reach.
func WithCommitment(commitment string) Option {
	return func(c *SolanaClient) {
		c.commitment = commitment
	}
}

// WithPollInterval sets the signature status polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *SolanaClient) {
		c.pollInterval = d
	}
}

// WithConfirmTimeout bounds the wait for confirmation.
func WithConfirmTimeout(d time.Duration) Option {
	return func(c *SolanaClient) {
		c.confirmTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *SolanaClient) {
		c.logger = logger
	}
}

// NewSolanaClient creates a ledger client over rpc.
func NewSolanaClient(rpc RPC, opts ...Option) *SolanaClient {
	c := &SolanaClient{
		rpc:            rpc,
		commitment:     solana.CommitmentConfirmed,
		pollInterval:   DefaultPollInterval,
		confirmTimeout: DefaultConfirmTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "ledger")
	return c
}

// ResolveOrCreateTokenAccount derives owner's associated token account for mint and
// creates it when missing.
func (c *SolanaClient) ResolveOrCreateTokenAccount(ctx context.Context, payer *solana.Keypair, mint, owner string) (string, error) {
	ata, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return "", fmt.Errorf("derive token account: %w", err)
	}

	info, err := c.rpc.GetAccountInfo(ctx, ata)
	if err != nil {
		return "", fmt.Errorf("get token account %s: %w", ata, err)
	}
	if info != nil {
		return ata, nil
	}

	if payer == nil {
		return "", ErrNoSigners
	}
	op, err := c.buildCreateATA(payer.Address(), owner, mint)
	if err != nil {
		return "", err
	}

	if _, err := c.SubmitAndConfirm(ctx, op, payer); err != nil {
		// A concurrent request may have created it first.
		if info, lookupErr := c.rpc.GetAccountInfo(ctx, ata); lookupErr == nil && info != nil {
			return ata, nil
		}
		return "", fmt.Errorf("create token account %s: %w", ata, err)
	}

	c.logger.Info("created token account", "account", ata, "owner", owner, "mint", mint)
	return ata, nil
}

func (c *SolanaClient) buildCreateATA(payer, owner, mint string) (*Operation, error) {
	keys, err := publicKeys(payer, owner, mint)
	if err != nil {
		return nil, err
	}
	ix, err := associatedtokenaccount.NewCreateInstruction(keys[0], keys[1], keys[2]).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build create token account: %w", err)
	}
	return &Operation{
		Kind:         KindCreateATA,
		Source:       mint,
		Destination:  owner,
		Authority:    payer,
		Instructions: []solanago.Instruction{ix},
	}, nil
}

// BuildTransfer builds an SPL token Transfer instruction.
func (c *SolanaClient) BuildTransfer(from, to, authority string, amount uint64) (*Operation, error) {
	keys, err := publicKeys(from, to, authority)
	if err != nil {
		return nil, err
	}
	ix, err := token.NewTransferInstruction(amount, keys[0], keys[1], keys[2], nil).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build transfer: %w", err)
	}
	return &Operation{
		Kind:         KindTransfer,
		Source:       from,
		Destination:  to,
		Authority:    authority,
		Amount:       amount,
		Instructions: []solanago.Instruction{ix},
	}, nil
}

// BuildMintTo builds an SPL token MintTo instruction.
func (c *SolanaClient) BuildMintTo(mint, destination, authority string, amount uint64) (*Operation, error) {
	keys, err := publicKeys(mint, destination, authority)
	if err != nil {
		return nil, err
	}
	ix, err := token.NewMintToInstruction(amount, keys[0], keys[1], keys[2], nil).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build mint: %w", err)
	}
	return &Operation{
		Kind:         KindMintTo,
		Source:       mint,
		Destination:  destination,
		Authority:    authority,
		Amount:       amount,
		Instructions: []solanago.Instruction{ix},
	}, nil
}

// SubmitAndConfirm signs op with a fresh blockhash, submits it and waits until the
// signature reaches the configured commitment.
func (c *SolanaClient) SubmitAndConfirm(ctx context.Context, op *Operation, signers ...*solana.Keypair) (string, error) {
	if len(signers) == 0 || signers[0] == nil {
		return "", ErrNoSigners
	}

	bh, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("get blockhash: %w", err)
	}
	hash, err := solanago.HashFromBase58(bh.Hash)
	if err != nil {
		return "", fmt.Errorf("parse blockhash: %w", err)
	}

	tx, err := solanago.NewTransaction(op.Instructions, hash, solanago.TransactionPayer(signers[0].PublicKey()))
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		for _, s := range signers {
			if s != nil && s.PublicKey().Equals(key) {
				return s.PrivateKey()
			}
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	signature := tx.Signatures[0].String()

	// Subscribe before sending so a fast confirmation is not missed.
	var notifications <-chan solana.SignatureNotification
	if c.ws != nil {
		notifications, err = c.ws.SubscribeSignature(ctx, signature)
		if err != nil {
			c.logger.Warn("signature subscription failed, polling", "signature", signature, "error", err)
			notifications = nil
		}
	}

	if _, err := c.rpc.SendTransaction(ctx, raw); err != nil {
		if notifications != nil {
			_ = c.ws.Unsubscribe(signature)
		}
		return "", fmt.Errorf("send %s: %w", op.Kind, err)
	}

	if err := c.confirm(ctx, signature, bh.LastValidBlockHeight, notifications); err != nil {
		return "", err
	}
	return signature, nil
}

// confirm waits for signature through the subscription, falling back to status polling.
// lastValidHeight of zero disables the blockhash expiry check.
func (c *SolanaClient) confirm(ctx context.Context, signature string, lastValidHeight uint64, notifications <-chan solana.SignatureNotification) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	if notifications != nil {
		defer func() { _ = c.ws.Unsubscribe(signature) }()
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-notifications:
			if !ok {
				notifications = nil
				continue
			}
			notifications = nil
			if n.Err != nil {
				return &ConfirmError{Signature: signature, Err: fmt.Errorf("%w: %v", ErrTransactionFailed, n.Err)}
			}
			return nil

		case <-ticker.C:
			done, err := c.pollStatus(ctx, signature, lastValidHeight)
			if err != nil {
				return err
			}
			if done {
				return nil
			}

		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return &ConfirmError{Signature: signature, Err: ErrConfirmationTimeout}
			}
			return &ConfirmError{Signature: signature, Err: ctx.Err()}
		}
	}
}

// pollStatus checks the signature status once. Transient RPC errors are logged and retried.
func (c *SolanaClient) pollStatus(ctx context.Context, signature string, lastValidHeight uint64) (bool, error) {
	statuses, err := c.rpc.GetSignatureStatuses(ctx, []string{signature})
	if err != nil {
		c.logger.Debug("signature status poll failed", "signature", signature, "error", err)
		return false, nil
	}
	if len(statuses) > 0 && statuses[0] != nil {
		st := statuses[0]
		if st.Err != nil {
			return false, &ConfirmError{Signature: signature, Err: fmt.Errorf("%w: %v", ErrTransactionFailed, st.Err)}
		}
		if st.Reached(c.commitment) {
			return true, nil
		}
		return false, nil
	}

	if lastValidHeight == 0 {
		return false, nil
	}
	height, err := c.rpc.GetBlockHeight(ctx)
	if err != nil {
		return false, nil
	}
	if height > lastValidHeight {
		return false, &ConfirmError{Signature: signature, Err: ErrBlockhashExpired}
	}
	return false, nil
}

// TokenAccountsByOwnerAndMint lists owner's token accounts for mint.
func (c *SolanaClient) TokenAccountsByOwnerAndMint(ctx context.Context, owner, mint string) ([]solana.TokenAccount, error) {
	accounts, err := c.rpc.GetTokenAccountsByOwner(ctx, owner, mint)
	if err != nil {
		return nil, fmt.Errorf("get token accounts of %s: %w", owner, err)
	}
	return accounts, nil
}

// Balance returns the lamport balance of address.
func (c *SolanaClient) Balance(ctx context.Context, address string) (uint64, error) {
	return c.rpc.GetBalance(ctx, address)
}

// TokenBalance returns owner's associated token account balance for mint.
func (c *SolanaClient) TokenBalance(ctx context.Context, owner, mint string) (*solana.TokenAmount, error) {
	ata, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("derive token account: %w", err)
	}
	info, err := c.rpc.GetAccountInfo(ctx, ata)
	if err != nil {
		return nil, fmt.Errorf("get token account %s: %w", ata, err)
	}
	if info == nil {
		return &solana.TokenAmount{UIAmountString: "0"}, nil
	}
	return c.rpc.GetTokenAccountBalance(ctx, ata)
}

// RequestAirdrop requests lamports and waits for the airdrop to confirm.
func (c *SolanaClient) RequestAirdrop(ctx context.Context, address string, lamports uint64) (string, error) {
	signature, err := c.rpc.RequestAirdrop(ctx, address, lamports)
	if err != nil {
		return "", fmt.Errorf("request airdrop: %w", err)
	}
	if err := c.confirm(ctx, signature, 0, nil); err != nil {
		return "", err
	}
	return signature, nil
}

// CreateMint creates a rent-exempt mint account initialized with payer as mint
// and freeze authority.
func (c *SolanaClient) CreateMint(ctx context.Context, payer *solana.Keypair, decimals uint8) (string, error) {
	if payer == nil {
		return "", ErrNoSigners
	}
	mint, err := solana.NewKeypair()
	if err != nil {
		return "", err
	}

	rent, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, solana.MintAccountSize)
	if err != nil {
		return "", fmt.Errorf("get rent exemption: %w", err)
	}

	create, err := system.NewCreateAccountInstruction(
		rent,
		solana.MintAccountSize,
		solanago.TokenProgramID,
		payer.PublicKey(),
		mint.PublicKey(),
	).ValidateAndBuild()
	if err != nil {
		return "", fmt.Errorf("build create account: %w", err)
	}
	initialize, err := token.NewInitializeMintInstruction(
		decimals,
		payer.PublicKey(),
		payer.PublicKey(),
		mint.PublicKey(),
		solanago.SysVarRentPubkey,
	).ValidateAndBuild()
	if err != nil {
		return "", fmt.Errorf("build initialize mint: %w", err)
	}

	op := &Operation{
		Kind:         KindCreateMint,
		Source:       mint.Address(),
		Authority:    payer.Address(),
		Instructions: []solanago.Instruction{create, initialize},
	}
	if _, err := c.SubmitAndConfirm(ctx, op, payer, mint); err != nil {
		return "", err
	}
	return mint.Address(), nil
}

func publicKeys(addresses ...string) ([]solanago.PublicKey, error) {
	keys := make([]solanago.PublicKey, len(addresses))
	for i, a := range addresses {
		pk, err := solanago.PublicKeyFromBase58(a)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", a, err)
		}
		keys[i] = pk
	}
	return keys, nil
}
