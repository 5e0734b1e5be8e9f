package distribution

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAccountsExist(t *testing.T) {
	env := newTestEnv(t)
	owner := newAddress(t)
	mints := newMints(t, 3)
	env.ledger.FailResolve(owner, mints[1], errors.New("insufficient lamports"))

	report, err := env.engine.EnsureAccountsExist(context.Background(), owner, []string{mints[0], mints[1], "bad", mints[2]})
	require.NoError(t, err)

	assert.Equal(t, owner, report.Owner)
	require.Len(t, report.Accounts, 4)
	assert.Equal(t, owner+"/"+mints[0], report.Accounts[0].Account)
	assert.Contains(t, report.Accounts[1].Error, "insufficient lamports")
	assert.NotEmpty(t, report.Accounts[2].Error)
	assert.Equal(t, owner+"/"+mints[2], report.Accounts[3].Account)
	assert.Equal(t, 2, report.Failed())

	// Invalid token types never reach the ledger
	assert.Equal(t, 3, env.ledger.CallCount("ResolveOrCreateTokenAccount"))
}

func TestEnsureAccountsExist_Errors(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.EnsureAccountsExist(context.Background(), "bad-owner", newMints(t, 1))
	assert.ErrorIs(t, err, ErrInvalidRecipient)

	noCreds := newTestEnv(t, func(o *Options) { o.Sender = nil })
	_, err = noCreds.engine.EnsureAccountsExist(context.Background(), newAddress(t), newMints(t, 1))
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
