package distribution

import (
	"context"

	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/observability"
)

// EnsuredAccount is the outcome of ensuring one token account.
type EnsuredAccount struct {
	TokenType string `json:"tokenType"`
	Account   string `json:"account,omitempty"`
	Error     string `json:"error,omitempty"`
}

// EnsureReport lists the outcome per token type in input order.
type EnsureReport struct {
	Owner    string           `json:"owner"`
	Accounts []EnsuredAccount `json:"accounts"`
}

// Failed returns the number of token types whose account could not be ensured.
func (r *EnsureReport) Failed() int {
	n := 0
	for _, a := range r.Accounts {
		if a.Error != "" {
			n++
		}
	}
	return n
}

// EnsureAccountsExist resolves or creates owner's token account for every token type,
// paid by the distributor. Failures are logged and skipped.
func (e *Engine) EnsureAccountsExist(ctx context.Context, owner string, tokenTypes []string) (*EnsureReport, error) {
	if e.sender == nil {
		return nil, ErrMissingCredentials
	}
	if err := domain.ValidateAddress(owner); err != nil {
		return nil, ErrInvalidRecipient
	}

	report := &EnsureReport{Owner: owner, Accounts: make([]EnsuredAccount, 0, len(tokenTypes))}
	for _, tokenType := range tokenTypes {
		entry := EnsuredAccount{TokenType: tokenType}

		if err := domain.ValidateAddress(tokenType); err != nil {
			entry.Error = err.Error()
			e.logger.Warn("skipping invalid token type", "owner", owner, "token_type", tokenType)
			report.Accounts = append(report.Accounts, entry)
			continue
		}

		account, err := e.ledger.ResolveOrCreateTokenAccount(ctx, e.sender, tokenType, owner)
		if err != nil {
			entry.Error = err.Error()
			e.logger.Error("ensure token account", "owner", owner, "token_type", tokenType, "error", err)
		} else {
			entry.Account = account
			e.logger.Info("token account ready", "owner", owner, "token_type", tokenType, "account", account)
		}
		observability.RecordAccountEnsured(err == nil)
		report.Accounts = append(report.Accounts, entry)
	}
	return report, nil
}
