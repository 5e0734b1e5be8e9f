package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-faucet/internal/distribution"
	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/solana"
)

func TestKeygen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")

	out, err := execute(t, "keygen", "--out", path)
	require.NoError(t, err)

	kp, err := solana.ReadKeyFile(path)
	require.NoError(t, err)
	assert.Contains(t, out, "Public key (address): "+kp.Address())
	assert.Contains(t, out, "Private key (base64): "+kp.SecretBase64())
	assert.Contains(t, out, "Keypair written to "+path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestKeygen_NoFile(t *testing.T) {
	out, err := execute(t, "keygen", "--out", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Public key (address): ")
	assert.NotContains(t, out, "Keypair written")
}

func TestBalances_FlagsLowMints(t *testing.T) {
	env := stubFaucet(t, true)
	funded, empty := newAddress(t), newAddress(t)

	refill := distribution.NewRefiller(env.ledger, env.sender, nil)
	_, err := refill.Refill(t.Context(), []string{funded}, 20_000_000_000_000)
	require.NoError(t, err)

	out, err := execute(t, "balances", "--mints", funded+","+empty)
	require.NoError(t, err)

	assert.Contains(t, out, "Balances of "+env.sender.Address())
	assert.Contains(t, out, "SOL: 0")
	assert.Contains(t, out, funded+": 20000\n")
	assert.Contains(t, out, empty+": 0\n")
	assert.Contains(t, out, "LOW BALANCE: "+empty)
	assert.NotContains(t, out, "LOW BALANCE: "+funded)
	assert.Contains(t, out, "1 of 2 mints need attention")
}

func TestBalances_DefaultMintsAndExplicitWallet(t *testing.T) {
	stubFaucet(t, false)
	wallet, mint := newAddress(t), newAddress(t)
	t.Setenv("DEFAULT_MINTS", mint)

	out, err := execute(t, "balances", "--wallet", wallet, "--min-tokens", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Balances of "+wallet)
	assert.Contains(t, out, mint+": 0")
	assert.Contains(t, out, "All mints are funded.")
}

func TestBalances_Errors(t *testing.T) {
	stubFaucet(t, false)
	t.Setenv("DEFAULT_MINTS", "")

	_, err := execute(t, "balances", "--mints", newAddress(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no wallet")

	_, err = execute(t, "balances", "--wallet", "not-an-address", "--mints", newAddress(t))
	require.Error(t, err)

	_, err = execute(t, "balances", "--wallet", newAddress(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mints")
}

func TestSetupTokens(t *testing.T) {
	env := stubFaucet(t, true)
	path := filepath.Join(t.TempDir(), "test-tokens.json")

	out, err := execute(t, "setup-tokens", "--count", "2", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "SOL balance: 2")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var tokens TestTokens
	require.NoError(t, json.Unmarshal(data, &tokens))

	assert.Equal(t, env.sender.Address(), tokens.WalletAddress)
	assert.Equal(t, env.ledger.Mints(), tokens.TokenMints)
	require.Len(t, tokens.TokenMints, 2)
	for _, mint := range tokens.TokenMints {
		balance, err := env.ledger.TokenBalance(t.Context(), env.sender.Address(), mint)
		require.NoError(t, err)
		assert.Equal(t, uint64(100_000_000_000_000), balance.Amount)
	}
	assert.Contains(t, out, `"tokenTypes":["`+tokens.TokenMints[0])
}

func TestSetupTokens_SkipAirdrop(t *testing.T) {
	env := stubFaucet(t, true)
	env.ledger.AirdropErr = errors.New("rate limited")

	_, err := execute(t, "setup-tokens", "--count", "1", "--airdrop-sol", "0", "--out", filepath.Join(t.TempDir(), "t.json"))
	require.NoError(t, err)
	assert.Zero(t, env.ledger.CallCount("RequestAirdrop"))
}

func TestSetupTokens_Errors(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		stubFaucet(t, false)
		_, err := execute(t, "setup-tokens")
		assert.ErrorIs(t, err, distribution.ErrMissingCredentials)
	})

	t.Run("airdrop on mainnet", func(t *testing.T) {
		env := stubFaucet(t, true)
		t.Setenv("SOLANA_NETWORK", solana.NetworkMainnetBeta)
		_, err := execute(t, "setup-tokens")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only available on devnet")
		assert.Empty(t, env.ledger.Calls())
	})

	t.Run("airdrop failure", func(t *testing.T) {
		env := stubFaucet(t, true)
		env.ledger.AirdropErr = errors.New("rate limited")
		_, err := execute(t, "setup-tokens", "--out", filepath.Join(t.TempDir(), "t.json"))
		assert.ErrorContains(t, err, "rate limited")
		assert.Zero(t, env.ledger.CallCount("CreateMint"))
	})

	t.Run("invalid count", func(t *testing.T) {
		stubFaucet(t, true)
		_, err := execute(t, "setup-tokens", "--count", "0")
		assert.ErrorContains(t, err, "--count")
	})
}

func TestEnsureAccounts(t *testing.T) {
	env := stubFaucet(t, true)
	owner, a, b := newAddress(t), newAddress(t), newAddress(t)
	t.Setenv("DEFAULT_MINTS", a+","+b)

	out, err := execute(t, "ensure-accounts", owner)
	require.NoError(t, err)
	assert.Contains(t, out, a+": "+owner+"/"+a)
	assert.Contains(t, out, b+": "+owner+"/"+b)

	env.ledger.FailResolve(owner, b, errors.New("rpc down"))
	out, err = execute(t, "ensure-accounts", owner, "--mints", b)
	require.Error(t, err)
	assert.Contains(t, out, b+": error: rpc down")
	assert.Contains(t, err.Error(), "1 of 1")
}

func TestEnsureAccounts_InvalidOwner(t *testing.T) {
	stubFaucet(t, true)
	_, err := execute(t, "ensure-accounts", "nope", "--mints", newAddress(t))
	assert.ErrorIs(t, err, distribution.ErrInvalidRecipient)
}

func TestEligibilityCommands(t *testing.T) {
	env := stubFaucet(t, false)
	wallet := newAddress(t)

	out, err := execute(t, "check", wallet)
	require.NoError(t, err)
	assert.Equal(t, wallet+" is eligible now\n", out)

	out, err = execute(t, "records")
	require.NoError(t, err)
	assert.Equal(t, "No distributions recorded\n", out)

	require.NoError(t, env.tracker.RecordDistribution(t.Context(), wallet))

	out, err = execute(t, "check", wallet)
	require.NoError(t, err)
	assert.Equal(t, wallet+" is eligible in 24h 0m\n", out)

	out, err = execute(t, "records")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, wallet+"  last="), out)
	assert.Contains(t, out, "next=24h 0m")

	out, err = execute(t, "reset", wallet)
	require.NoError(t, err)
	assert.Equal(t, "Cooldown of "+wallet+" cleared\n", out)

	_, err = execute(t, "reset", wallet)
	assert.ErrorContains(t, err, "no distribution recorded")

	_, err = execute(t, "check", "bad")
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	env := stubFaucet(t, false)
	wallet, other := newAddress(t), newAddress(t)
	mintA, mintB := newAddress(t), newAddress(t)
	at := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, env.transfers.InsertBulk(t.Context(), []*domain.TransferRecord{
		{DistributionID: "d1", Recipient: wallet, TokenType: mintA, Status: domain.OutcomeSuccess,
			Signature: "sig-1", Stage: domain.StageSucceeded, Amount: 1_500_000_000_000, CreatedAt: at.UnixMilli()},
		{DistributionID: "d1", Recipient: wallet, TokenType: mintB, Status: domain.OutcomeFailure,
			Reason: "insufficient funds", Stage: domain.StageSubmitting, CreatedAt: at.UnixMilli()},
	}))
	require.NoError(t, env.transfers.InsertBulk(t.Context(), []*domain.TransferRecord{
		{DistributionID: "d2", Recipient: other, TokenType: mintA, Status: domain.OutcomeSuccess,
			Signature: "sig-2", Stage: domain.StageSucceeded, Amount: 1_000_000_000_000, CreatedAt: at.UnixMilli()},
	}))

	out, err := execute(t, "history", wallet)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2, out)
	stamp := at.UTC().Format(time.RFC3339)
	assert.Contains(t, out, stamp+"  d1  "+mintA+"  success  amount=1.5  signature=sig-1\n")
	assert.Contains(t, out, stamp+"  d1  "+mintB+"  failure  stage=SUBMITTING  reason=insufficient funds\n")
	assert.NotContains(t, out, "sig-2")

	out, err = execute(t, "history", "--distribution", "d2")
	require.NoError(t, err)
	assert.Equal(t, stamp+"  d2  "+mintA+"  success  amount=1000  signature=sig-2\n", out)

	out, err = execute(t, "history", other, "--distribution", "d1")
	require.NoError(t, err)
	assert.Equal(t, "No transfers recorded\n", out)

	out, err = execute(t, "history", newAddress(t))
	require.NoError(t, err)
	assert.Equal(t, "No transfers recorded\n", out)
}

func TestHistory_Errors(t *testing.T) {
	stubFaucet(t, false)

	_, err := execute(t, "history")
	assert.ErrorContains(t, err, "--distribution is required")

	_, err = execute(t, "history", "not-an-address")
	assert.Error(t, err)
}
