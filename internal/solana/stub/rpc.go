package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"

	"solana-token-faucet/internal/solana"
)

// ErrNotFound is returned when a stubbed entity is not registered.
var ErrNotFound = errors.New("not found")

// ErrMalformedTransaction is returned when a submitted transaction carries no signature.
var ErrMalformedTransaction = errors.New("malformed transaction")

// RPCClient implements solana.RPCClient for testing.
// Submitted transactions are recorded and, with AutoConfirm set, reported as confirmed.
type RPCClient struct {
	mu sync.Mutex

	Accounts      map[string]*solana.AccountInfo
	TokenAccounts map[string][]solana.TokenAccount // keyed by owner/mint
	Statuses      map[string]*solana.SignatureStatus
	Blockhash     solana.Blockhash
	BlockHeight   uint64

	Balances      map[string]uint64
	TokenBalances map[string]*solana.TokenAmount // keyed by token account
	Rent          uint64

	AutoConfirm bool
	StatusErr   interface{} // reported for auto-confirmed transactions
	SendErr     error
	Sent        [][]byte
	Calls       []string
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:      make(map[string]*solana.AccountInfo),
		TokenAccounts: make(map[string][]solana.TokenAccount),
		Statuses:      make(map[string]*solana.SignatureStatus),
		Balances:      make(map[string]uint64),
		TokenBalances: make(map[string]*solana.TokenAmount),
		Rent:          1461600,
		Blockhash: solana.Blockhash{
			Hash:                 "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
			LastValidBlockHeight: 1000,
		},
		BlockHeight: 1,
		AutoConfirm: true,
	}
}

// AddTokenAccount registers a token account for owner and mint.
func (c *RPCClient) AddTokenAccount(acct solana.TokenAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := acct.Owner + "/" + acct.Mint
	c.TokenAccounts[key] = append(c.TokenAccounts[key], acct)
	c.Accounts[acct.Address] = &solana.AccountInfo{Owner: solana.TokenProgramID}
}

// CallCount returns how many times method was called.
func (c *RPCClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.Calls {
		if m == method {
			n++
		}
	}
	return n
}

func (c *RPCClient) record(method string) {
	c.Calls = append(c.Calls, method)
}

// GetAccountInfo returns the registered account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getAccountInfo")
	return c.Accounts[pubkey], nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getLatestBlockhash")
	bh := c.Blockhash
	return &bh, nil
}

// SendTransaction records the transaction and returns its first signature.
func (c *RPCClient) SendTransaction(_ context.Context, tx []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("sendTransaction")

	if c.SendErr != nil {
		return "", c.SendErr
	}
	// Wire format: compact-u16 signature count followed by 64-byte signatures.
	if len(tx) < 65 || tx[0] == 0 {
		return "", ErrMalformedTransaction
	}
	sig := base58.Encode(tx[1:65])
	c.Sent = append(c.Sent, tx)
	if c.AutoConfirm {
		c.Statuses[sig] = &solana.SignatureStatus{
			Slot:               1,
			Err:                c.StatusErr,
			ConfirmationStatus: solana.CommitmentConfirmed,
		}
	}
	return sig, nil
}

// GetSignatureStatuses returns recorded statuses; unknown signatures yield nil.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getSignatureStatuses")

	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		out[i] = c.Statuses[sig]
	}
	return out, nil
}

// GetBlockHeight returns the configured block height.
func (c *RPCClient) GetBlockHeight(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getBlockHeight")
	return c.BlockHeight, nil
}

// GetTokenAccountsByOwner returns the registered token accounts of owner for mint.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, mint string) ([]solana.TokenAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getTokenAccountsByOwner")
	return append([]solana.TokenAccount(nil), c.TokenAccounts[owner+"/"+mint]...), nil
}

// GetBalance returns the configured lamport balance.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getBalance")
	return c.Balances[pubkey], nil
}

// GetTokenAccountBalance returns the configured token account balance.
func (c *RPCClient) GetTokenAccountBalance(_ context.Context, account string) (*solana.TokenAmount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getTokenAccountBalance")
	bal, ok := c.TokenBalances[account]
	if !ok {
		return nil, ErrNotFound
	}
	out := *bal
	return &out, nil
}

// GetMinimumBalanceForRentExemption returns the configured rent.
func (c *RPCClient) GetMinimumBalanceForRentExemption(_ context.Context, _ uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getMinimumBalanceForRentExemption")
	return c.Rent, nil
}

// RequestAirdrop credits lamports and records a confirmed status.
func (c *RPCClient) RequestAirdrop(_ context.Context, pubkey string, lamports uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("requestAirdrop")
	c.Balances[pubkey] += lamports
	sig := fmt.Sprintf("airdrop-%d", len(c.Calls))
	c.Statuses[sig] = &solana.SignatureStatus{Slot: 1, ConfirmationStatus: solana.CommitmentFinalized}
	return sig, nil
}
