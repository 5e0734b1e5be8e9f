// Package stub provides an in-memory ledger for tests.
package stub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solana-token-faucet/internal/ledger"
	"solana-token-faucet/internal/solana"
)

// Call records one ledger invocation.
type Call struct {
	Method string
	Owner  string
	Mint   string
	At     time.Time
}

// Client implements ledger.Admin in memory.
// Token accounts are named "<owner>/<mint>" and every submitted operation succeeds
// unless a failure is injected for its mint.
type Client struct {
	mu sync.Mutex

	// Delay is applied to every submit to make concurrency observable.
	Delay time.Duration
	// AirdropErr fails every RequestAirdrop when set.
	AirdropErr error

	resolveErrs map[string]error // keyed by owner/mint
	submitErrs  map[string]error // keyed by mint
	existing    map[string][]solana.TokenAccount
	accounts    map[string]string // token account -> mint
	balances    map[string]uint64 // token account -> amount
	lamports    map[string]uint64 // address -> lamports
	mints       []string

	calls       []Call
	inFlight    int
	maxInFlight int
	seq         int
}

var _ ledger.Admin = (*Client)(nil)

// New creates a stub ledger.
func New() *Client {
	return &Client{
		resolveErrs: make(map[string]error),
		submitErrs:  make(map[string]error),
		existing:    make(map[string][]solana.TokenAccount),
		accounts:    make(map[string]string),
		balances:    make(map[string]uint64),
		lamports:    make(map[string]uint64),
	}
}

func key(owner, mint string) string {
	return owner + "/" + mint
}

// FailResolve makes account resolution for (owner, mint) fail with err.
func (c *Client) FailResolve(owner, mint string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolveErrs[key(owner, mint)] = err
}

// FailSubmit makes operations touching mint fail with err.
func (c *Client) FailSubmit(mint string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitErrs[mint] = err
}

// AddExistingAccount registers a token account returned by TokenAccountsByOwnerAndMint.
func (c *Client) AddExistingAccount(owner, mint, address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.existing[key(owner, mint)] = append(c.existing[key(owner, mint)], solana.TokenAccount{
		Address: address,
		Mint:    mint,
		Owner:   owner,
	})
	c.accounts[address] = mint
}

// Calls returns a copy of the recorded calls.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallCount returns the number of recorded calls of method.
func (c *Client) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Method == method {
			n++
		}
	}
	return n
}

// MaxInFlight returns the highest number of concurrent submits observed.
func (c *Client) MaxInFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxInFlight
}

// TokenAccountBalance returns the amount credited to a stub token account.
func (c *Client) TokenAccountBalance(account string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[account]
}

func (c *Client) record(method, owner, mint string) {
	c.calls = append(c.calls, Call{Method: method, Owner: owner, Mint: mint, At: time.Now()})
}

// ResolveOrCreateTokenAccount returns "<owner>/<mint>" unless a failure is injected.
func (c *Client) ResolveOrCreateTokenAccount(_ context.Context, _ *solana.Keypair, mint, owner string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("ResolveOrCreateTokenAccount", owner, mint)
	if err := c.resolveErrs[key(owner, mint)]; err != nil {
		return "", err
	}
	addr := key(owner, mint)
	c.accounts[addr] = mint
	return addr, nil
}

// BuildTransfer builds a transfer without instructions.
func (c *Client) BuildTransfer(from, to, authority string, amount uint64) (*ledger.Operation, error) {
	return &ledger.Operation{
		Kind:        ledger.KindTransfer,
		Source:      from,
		Destination: to,
		Authority:   authority,
		Amount:      amount,
	}, nil
}

// BuildMintTo builds a mint without instructions.
func (c *Client) BuildMintTo(mint, destination, authority string, amount uint64) (*ledger.Operation, error) {
	return &ledger.Operation{
		Kind:        ledger.KindMintTo,
		Source:      mint,
		Destination: destination,
		Authority:   authority,
		Amount:      amount,
	}, nil
}

// SubmitAndConfirm applies op after Delay unless a failure is injected for its mint.
func (c *Client) SubmitAndConfirm(_ context.Context, op *ledger.Operation, signers ...*solana.Keypair) (string, error) {
	if len(signers) == 0 {
		return "", ledger.ErrNoSigners
	}

	c.mu.Lock()
	mint := c.accounts[op.Source]
	if op.Kind == ledger.KindMintTo {
		mint = op.Source
	}
	c.record("SubmitAndConfirm", "", mint)
	c.inFlight++
	if c.inFlight > c.maxInFlight {
		c.maxInFlight = c.inFlight
	}
	delay := c.Delay
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight--

	if err := c.submitErrs[mint]; err != nil {
		return "", err
	}
	c.balances[op.Destination] += op.Amount
	c.seq++
	return fmt.Sprintf("sig-%d-%s", c.seq, op.Kind), nil
}

// TokenAccountsByOwnerAndMint returns accounts registered with AddExistingAccount.
func (c *Client) TokenAccountsByOwnerAndMint(_ context.Context, owner, mint string) ([]solana.TokenAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("TokenAccountsByOwnerAndMint", owner, mint)
	return append([]solana.TokenAccount(nil), c.existing[key(owner, mint)]...), nil
}

// Balance reports the lamports credited by RequestAirdrop.
func (c *Client) Balance(_ context.Context, address string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("Balance", address, "")
	return c.lamports[address], nil
}

// TokenBalance reports the amount credited to owner's stub account for mint.
func (c *Client) TokenBalance(_ context.Context, owner, mint string) (*solana.TokenAmount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("TokenBalance", owner, mint)
	if err := c.resolveErrs[key(owner, mint)]; err != nil {
		return nil, err
	}
	return &solana.TokenAmount{Amount: c.balances[key(owner, mint)]}, nil
}

// RequestAirdrop credits lamports to address.
func (c *Client) RequestAirdrop(_ context.Context, address string, lamports uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("RequestAirdrop", address, "")
	if c.AirdropErr != nil {
		return "", c.AirdropErr
	}
	c.lamports[address] += lamports
	c.seq++
	return fmt.Sprintf("sig-%d-airdrop", c.seq), nil
}

// CreateMint returns the address of a freshly generated mint.
func (c *Client) CreateMint(_ context.Context, payer *solana.Keypair, _ uint8) (string, error) {
	if payer == nil {
		return "", ledger.ErrNoSigners
	}
	mint, err := solana.NewKeypair()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("CreateMint", payer.Address(), mint.Address())
	c.mints = append(c.mints, mint.Address())
	return mint.Address(), nil
}

// Mints returns the mints created through CreateMint.
func (c *Client) Mints() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.mints...)
}
