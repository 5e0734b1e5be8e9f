package distribution

import (
	"context"
	"log/slog"

	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/ledger"
	"solana-token-faucet/internal/observability"
	"solana-token-faucet/internal/solana"
)

// RefillResult is the outcome of minting one token type into the distributor's account.
type RefillResult struct {
	TokenType string `json:"tokenType"`
	Account   string `json:"account,omitempty"`
	Amount    uint64 `json:"amount"`
	Signature string `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Refiller mints tokens into the distributor's own token accounts. The distributor
// must be the mint authority of every refilled token type.
type Refiller struct {
	ledger    ledger.Admin
	authority *solana.Keypair
	logger    *slog.Logger
}

// NewRefiller creates a Refiller. authority pays fees and signs the mints.
func NewRefiller(l ledger.Admin, authority *solana.Keypair, logger *slog.Logger) *Refiller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refiller{ledger: l, authority: authority, logger: logger.With("component", "refill")}
}

// Refill mints amount smallest units of every token type. Failures are reported per type.
func (r *Refiller) Refill(ctx context.Context, tokenTypes []string, amount uint64) ([]RefillResult, error) {
	if r.authority == nil {
		return nil, ErrMissingCredentials
	}
	valid, rejected := domain.FilterValidTokenTypes(tokenTypes)
	if len(valid) == 0 {
		return nil, ErrNoValidTargets
	}
	if len(rejected) > 0 {
		r.logger.Warn("dropping invalid token types", "rejected", rejected)
	}

	owner := r.authority.Address()
	results := make([]RefillResult, 0, len(valid))
	for _, mint := range valid {
		res := RefillResult{TokenType: mint, Amount: amount}

		account, err := r.ledger.ResolveOrCreateTokenAccount(ctx, r.authority, mint, owner)
		if err == nil {
			res.Account = account
			var op *ledger.Operation
			op, err = r.ledger.BuildMintTo(mint, account, owner, amount)
			if err == nil {
				res.Signature, err = r.ledger.SubmitAndConfirm(ctx, op, r.authority)
			}
		}

		if err != nil {
			res.Error = err.Error()
			r.logger.Error("refill failed", "token_type", mint, "error", err)
		} else {
			r.logger.Info("refilled", "token_type", mint, "account", account, "amount", amount, "signature", res.Signature)
		}
		observability.RecordRefill(err == nil)
		results = append(results, res)
	}
	return results, nil
}
