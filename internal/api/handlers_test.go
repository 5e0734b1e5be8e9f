package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-faucet/internal/distribution"
	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/eligibility"
	ledgerstub "solana-token-faucet/internal/ledger/stub"
	"solana-token-faucet/internal/solana"
	"solana-token-faucet/internal/storage/memory"
)

const testSecret = "admin-s3cret"

type testEnv struct {
	handler   http.Handler
	ledger    *ledgerstub.Client
	tracker   *eligibility.Tracker
	transfers *memory.TransferLogStore
	sender    *solana.Keypair
	now       time.Time
	mints     []string
}

func newAddress(t *testing.T) string {
	t.Helper()
	kp, err := solana.NewKeypair()
	require.NoError(t, err)
	return kp.Address()
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil, mutate...)
}

// newTestEnvWith lets wrap replace the eligibility tracker seen by the handlers.
func newTestEnvWith(t *testing.T, wrap func(Eligibility) Eligibility, mutate ...func(*Config)) *testEnv {
	t.Helper()

	sender, err := solana.NewKeypair()
	require.NoError(t, err)

	env := &testEnv{
		ledger:    ledgerstub.New(),
		sender:    sender,
		now:       time.UnixMilli(1_700_000_000_000),
		mints:     []string{newAddress(t), newAddress(t)},
		transfers: memory.NewTransferLogStore(),
	}
	env.tracker = eligibility.NewTracker(memory.NewEligibilityStore(), eligibility.WithClock(func() time.Time { return env.now }))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := distribution.New(distribution.Options{
		Ledger:     env.ledger,
		Sender:     sender,
		BatchDelay: -1,
		Logger:     logger,
		Recorder:   distribution.NewTransferLogRecorder(env.transfers, distribution.DefaultAmount),
	})
	cfg := Config{
		Network:      "devnet",
		AdminSecret:  testSecret,
		DefaultMints: env.mints,
		Decimals:     9,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	var elig Eligibility = env.tracker
	if wrap != nil {
		elig = wrap(elig)
	}

	srv := NewServer(logger)
	routes := NewFaucetRoutes(engine, elig, distribution.NewRefiller(env.ledger, sender, logger), cfg)
	srv.RegisterRouter(routes.WithTransferHistory(env.transfers))
	env.handler = srv.Handler()
	return env
}

func (env *testEnv) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestDistribute_Success(t *testing.T) {
	env := newTestEnv(t)
	recipient := newAddress(t)

	body := `{"recipient":"` + recipient + `","tokenTypes":["` + env.mints[0] + `","bogus","` + env.mints[1] + `"]}`
	rec := env.do(http.MethodPost, "/distribute", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[domain.DistributionResult](t, rec)
	assert.True(t, result.OverallSuccess)
	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, env.mints[0], result.Outcomes[0].TokenType)
	assert.Equal(t, domain.OutcomeSuccess, result.Outcomes[0].Status)

	// Recorded: second request is rate limited
	rec = env.do(http.MethodPost, "/distribute", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	limited := decode[rateLimitedResponse](t, rec)
	assert.Equal(t, "24h 0m", limited.TimeRemaining)
	assert.Equal(t, (24 * time.Hour).Milliseconds(), limited.TimeRemainingMs)
}

func TestDistribute_DefaultMints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/distribute", `{"recipient":"`+newAddress(t)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[domain.DistributionResult](t, rec)
	assert.Len(t, result.Outcomes, len(env.mints))
}

func TestDistribute_MaxTokenTypes(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.MaxTokenTypes = 1 })

	body := `{"recipient":"` + newAddress(t) + `","tokenTypes":["` + env.mints[0] + `","` + env.mints[1] + `"]}`
	rec := env.do(http.MethodPost, "/distribute", body)
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[domain.DistributionResult](t, rec)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, env.mints[0], result.Outcomes[0].TokenType)
}

func TestDistribute_BadRequests(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.DefaultMints = nil })
	recipient := newAddress(t)

	tests := map[string]string{
		"malformed json":      `{"recipient":`,
		"invalid recipient":   `{"recipient":"nope","tokenTypes":["` + env.mints[0] + `"]}`,
		"missing token types": `{"recipient":"` + recipient + `"}`,
		"no valid types":      `{"recipient":"` + recipient + `","tokenTypes":["bad","worse"]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/distribute", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
	assert.Empty(t, env.ledger.Calls())

	// Rejected requests do not consume the cooldown
	eligible, err := env.tracker.IsEligible(t.Context(), recipient)
	require.NoError(t, err)
	assert.True(t, eligible)
}

func TestDistribute_AllTransfersFailKeepsEligibility(t *testing.T) {
	env := newTestEnv(t)
	recipient := newAddress(t)
	for _, m := range env.mints {
		env.ledger.FailSubmit(m, errors.New("insufficient funds"))
	}

	rec := env.do(http.MethodPost, "/distribute", `{"recipient":"`+recipient+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[domain.DistributionResult](t, rec)
	assert.Zero(t, result.SuccessCount())

	eligible, err := env.tracker.IsEligible(t.Context(), recipient)
	require.NoError(t, err)
	assert.True(t, eligible, "no tokens received, wallet may retry")
}

// failingRecorder accepts every check but cannot persist a distribution.
type failingRecorder struct {
	Eligibility
}

func (failingRecorder) RecordDistribution(context.Context, string) error {
	return errors.New("disk full")
}

// captureDefaultLog routes the default slog logger into a buffer for the test.
func captureDefaultLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestDistribute_PersistFailureStillSucceeds(t *testing.T) {
	logs := captureDefaultLog(t)
	env := newTestEnvWith(t, func(e Eligibility) Eligibility { return failingRecorder{Eligibility: e} })
	recipient := newAddress(t)

	rec := env.do(http.MethodPost, "/distribute", `{"recipient":"`+recipient+`"}`, echo.HeaderXRequestID, "req-42")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[domain.DistributionResult](t, rec)
	assert.Equal(t, len(env.mints), result.SuccessCount())

	var entry map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var e map[string]any
		require.NoError(t, json.Unmarshal(line, &e), string(line))
		if e["msg"] == "failed to persist eligibility; wallet may receive again before cooldown" {
			entry = e
		}
	}
	require.NotNil(t, entry, logs.String())
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "disk full", entry["error"])
	assert.Equal(t, recipient, entry["recipient"])
	assert.Equal(t, "req-42", entry["request_id"])

	eligible, err := env.tracker.IsEligible(t.Context(), recipient)
	require.NoError(t, err)
	assert.True(t, eligible, "nothing was persisted")
}

func TestLegacyAirdrop(t *testing.T) {
	env := newTestEnv(t)

	body := `{"pubkey":"` + newAddress(t) + `","pubkeys":["` + env.mints[1] + `"]}`
	rec := env.do(http.MethodPost, "/airdrop", body)
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[domain.DistributionResult](t, rec)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, env.mints[1], result.Outcomes[0].TokenType)
}

func TestCheck(t *testing.T) {
	env := newTestEnv(t)
	wallet := newAddress(t)

	rec := env.do(http.MethodGet, "/distribute/check/"+wallet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[checkResponse](t, rec)
	assert.True(t, got.Eligible)
	assert.Equal(t, "eligible now", got.TimeRemaining)

	require.NoError(t, env.tracker.RecordDistribution(t.Context(), wallet))
	env.now = env.now.Add(90 * time.Minute)

	rec = env.do(http.MethodGet, "/distribute/check/"+wallet, "")
	got = decode[checkResponse](t, rec)
	assert.False(t, got.Eligible)
	assert.Equal(t, "22h 30m", got.TimeRemaining)

	rec = env.do(http.MethodGet, "/distribute/check/not-a-wallet", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	wallet := newAddress(t)
	require.NoError(t, env.tracker.RecordDistribution(t.Context(), wallet))

	rec := env.do(http.MethodGet, "/reset/"+wallet, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/reset/"+wallet, "", AdminSecretHeader, testSecret+" ")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "secret must match exactly")

	rec = env.do(http.MethodGet, "/reset/"+wallet, "", AdminSecretHeader, testSecret)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/reset/"+wallet, "", AdminSecretHeader, testSecret)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminDisabledWithoutSecret(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.AdminSecret = "" })

	rec := env.do(http.MethodPost, "/admin/refill", `{}`, AdminSecretHeader, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminRefill(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/admin/refill", `{"amount":5}`, AdminSecretHeader, testSecret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[struct {
		Results []distribution.RefillResult `json:"results"`
	}](t, rec)
	require.Len(t, got.Results, 2)
	assert.Equal(t, uint64(5_000_000_000), got.Results[0].Amount)
	assert.Equal(t, uint64(5_000_000_000), env.ledger.TokenAccountBalance(env.sender.Address()+"/"+env.mints[0]))

	rec = env.do(http.MethodPost, "/admin/refill", `{"tokenTypes":["bad"]}`, AdminSecretHeader, testSecret)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/admin/refill", `{}`, AdminSecretHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminEnsureAccounts(t *testing.T) {
	env := newTestEnv(t)
	owner := newAddress(t)

	rec := env.do(http.MethodPost, "/admin/accounts", `{"owner":"`+owner+`"}`, AdminSecretHeader, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)

	report := decode[distribution.EnsureReport](t, rec)
	assert.Equal(t, owner, report.Owner)
	require.Len(t, report.Accounts, 2)
	assert.Equal(t, owner+"/"+env.mints[0], report.Accounts[0].Account)

	rec = env.do(http.MethodPost, "/admin/accounts", `{}`, AdminSecretHeader, testSecret)
	report = decode[distribution.EnsureReport](t, rec)
	assert.Equal(t, env.sender.Address(), report.Owner)
}

func TestAdminListEligibility(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.tracker.RecordDistribution(t.Context(), "w1"))

	rec := env.do(http.MethodGet, "/admin/eligibility", "", AdminSecretHeader, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int64{"w1": env.now.UnixMilli()}, decode[map[string]int64](t, rec))
}

type transfersResponse struct {
	Wallet         string         `json:"wallet"`
	DistributionID string         `json:"distributionId"`
	Transfers      []transferView `json:"transfers"`
}

func TestAdminTransferHistory(t *testing.T) {
	env := newTestEnv(t)
	recipient := newAddress(t)
	env.ledger.FailSubmit(env.mints[1], errors.New("insufficient funds"))

	rec := env.do(http.MethodPost, "/distribute", `{"recipient":"`+recipient+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[domain.DistributionResult](t, rec)

	rec = env.do(http.MethodGet, "/admin/transfers/"+recipient, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/admin/transfers/"+recipient, "", AdminSecretHeader, testSecret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	history := decode[transfersResponse](t, rec)
	assert.Equal(t, recipient, history.Wallet)
	require.Len(t, history.Transfers, 2)

	byToken := map[string]transferView{}
	for _, tr := range history.Transfers {
		assert.Equal(t, result.ID, tr.DistributionID)
		assert.Equal(t, recipient, tr.Recipient)
		byToken[tr.TokenType] = tr
	}
	assert.Equal(t, "success", byToken[env.mints[0]].Status)
	assert.NotEmpty(t, byToken[env.mints[0]].Signature)
	assert.Equal(t, "failure", byToken[env.mints[1]].Status)
	assert.Equal(t, domain.StageSubmitting.String(), byToken[env.mints[1]].Stage)
	assert.Contains(t, byToken[env.mints[1]].Reason, "insufficient funds")

	rec = env.do(http.MethodGet, "/admin/transfers/"+newAddress(t), "", AdminSecretHeader, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[transfersResponse](t, rec).Transfers)

	rec = env.do(http.MethodGet, "/admin/transfers/not-a-wallet", "", AdminSecretHeader, testSecret)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminDistributionLookup(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/distribute", `{"recipient":"`+newAddress(t)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[domain.DistributionResult](t, rec)

	rec = env.do(http.MethodGet, "/admin/distributions/"+result.ID, "", AdminSecretHeader, testSecret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	lookup := decode[transfersResponse](t, rec)
	assert.Equal(t, result.ID, lookup.DistributionID)
	require.Len(t, lookup.Transfers, 2)
	assert.ElementsMatch(t, env.mints, []string{lookup.Transfers[0].TokenType, lookup.Transfers[1].TokenType})

	rec = env.do(http.MethodGet, "/admin/distributions/unknown", "", AdminSecretHeader, testSecret)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminTransfersWithoutHistory(t *testing.T) {
	routes := NewFaucetRoutes(nil, nil, nil, Config{AdminSecret: testSecret})
	srv := NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv.RegisterRouter(routes)

	req := httptest.NewRequest(http.MethodGet, "/admin/transfers/"+newAddress(t), nil)
	req.Header.Set(AdminSecretHeader, testSecret)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthStatusAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[map[string]any](t, rec)
	assert.Equal(t, env.sender.Address(), status["distributor"])
	assert.Equal(t, "24h0m0s", status["cooldown"])

	rec = env.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "solana_token_faucet_")

	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
