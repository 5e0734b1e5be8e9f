package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"solana-token-faucet/internal/distribution"
	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/eligibility"
	"solana-token-faucet/internal/logging"
	"solana-token-faucet/internal/observability"
	"solana-token-faucet/internal/storage"
)

// AdminSecretHeader carries the shared admin secret.
const AdminSecretHeader = "X-Admin-Secret"

// DefaultRefillTokens is the whole-token amount minted per type when a refill names none.
const DefaultRefillTokens = 100_000

// Distributor runs distributions.
type Distributor interface {
	Distribute(ctx context.Context, recipient string, tokenTypes []string) (*domain.DistributionResult, error)
	EnsureAccountsExist(ctx context.Context, owner string, tokenTypes []string) (*distribution.EnsureReport, error)
	Sender() string
}

// Eligibility tracks per-wallet cooldowns.
type Eligibility interface {
	TimeRemaining(ctx context.Context, wallet string) (time.Duration, error)
	RecordDistribution(ctx context.Context, wallet string) error
	Reset(ctx context.Context, wallet string) error
	Records(ctx context.Context) ([]*domain.EligibilityRecord, error)
	Cooldown() time.Duration
}

// Refiller mints tokens into the distributor's accounts.
type Refiller interface {
	Refill(ctx context.Context, tokenTypes []string, amount uint64) ([]distribution.RefillResult, error)
}

// TransferHistory reads the transfer log.
type TransferHistory interface {
	GetByRecipient(ctx context.Context, recipient string) ([]*domain.TransferRecord, error)
	GetByDistributionID(ctx context.Context, distributionID string) ([]*domain.TransferRecord, error)
}

// Config holds request gateway settings.
type Config struct {
	Network       string
	AdminSecret   string // empty disables admin endpoints
	DefaultMints  []string
	MaxTokenTypes int
	Decimals      uint8
}

// FaucetRoutes serves the distribution and admin endpoints.
type FaucetRoutes struct {
	distributor Distributor
	eligibility Eligibility
	refiller    Refiller        // optional
	transfers   TransferHistory // optional
	cfg         Config
	started     time.Time
}

// NewFaucetRoutes constructs faucet routes.
func NewFaucetRoutes(d Distributor, e Eligibility, r Refiller, cfg Config) *FaucetRoutes {
	if cfg.MaxTokenTypes <= 0 {
		cfg.MaxTokenTypes = 20
	}
	return &FaucetRoutes{
		distributor: d,
		eligibility: e,
		refiller:    r,
		cfg:         cfg,
		started:     time.Now(),
	}
}

// WithTransferHistory enables the transfer log admin endpoints.
func (h *FaucetRoutes) WithTransferHistory(t TransferHistory) *FaucetRoutes {
	h.transfers = t
	return h
}

// RegisterRoutes registers faucet endpoints.
func (h *FaucetRoutes) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.handleHealth)
	e.GET("/status", h.handleStatus)

	e.POST("/distribute", h.handleDistribute)
	e.POST("/airdrop", h.handleLegacyAirdrop)
	e.GET("/distribute/check/:wallet", h.handleCheck)

	e.GET("/reset/:wallet", h.handleReset, h.requireAdmin)

	admin := e.Group("/admin", h.requireAdmin)
	admin.POST("/refill", h.handleRefill)
	admin.POST("/accounts", h.handleEnsureAccounts)
	admin.GET("/eligibility", h.handleListEligibility)
	admin.GET("/transfers/:wallet", h.handleTransfersByWallet)
	admin.GET("/distributions/:id", h.handleTransfersByDistribution)
}

type errorResponse struct {
	Error string `json:"error"`
}

type distributeRequest struct {
	Recipient  string   `json:"recipient"`
	TokenTypes []string `json:"tokenTypes"`
}

type legacyAirdropRequest struct {
	Pubkey  string   `json:"pubkey"`
	Pubkeys []string `json:"pubkeys"`
}

type distributeResponse struct {
	*domain.DistributionResult
	Error string `json:"error,omitempty"`
}

type rateLimitedResponse struct {
	Error           string `json:"error"`
	TimeRemaining   string `json:"timeRemaining"`
	TimeRemainingMs int64  `json:"timeRemainingMs"`
}

type checkResponse struct {
	Wallet          string `json:"wallet"`
	Eligible        bool   `json:"eligible"`
	TimeRemaining   string `json:"timeRemaining"`
	TimeRemainingMs int64  `json:"timeRemainingMs"`
}

func (h *FaucetRoutes) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *FaucetRoutes) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"network":       h.cfg.Network,
		"distributor":   h.distributor.Sender(),
		"cooldown":      h.eligibility.Cooldown().String(),
		"defaultMints":  h.cfg.DefaultMints,
		"maxTokenTypes": h.cfg.MaxTokenTypes,
		"uptime":        time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *FaucetRoutes) handleDistribute(c echo.Context) error {
	var req distributeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	return h.distribute(c, req.Recipient, req.TokenTypes)
}

// handleLegacyAirdrop accepts the {pubkey, pubkeys} request shape of earlier clients.
func (h *FaucetRoutes) handleLegacyAirdrop(c echo.Context) error {
	var req legacyAirdropRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	return h.distribute(c, req.Pubkey, req.Pubkeys)
}

func (h *FaucetRoutes) distribute(c echo.Context, recipient string, tokenTypes []string) error {
	ctx := logging.WithRecipient(requestContext(c), recipient)
	log := logging.FromContext(ctx)

	if err := domain.ValidateAddress(recipient); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid recipient address"})
	}

	if len(tokenTypes) == 0 {
		tokenTypes = h.cfg.DefaultMints
	}
	if len(tokenTypes) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "tokenTypes is required"})
	}
	if len(tokenTypes) > h.cfg.MaxTokenTypes {
		log.Warn("truncating token types", "requested", len(tokenTypes), "max", h.cfg.MaxTokenTypes)
		tokenTypes = tokenTypes[:h.cfg.MaxTokenTypes]
	}

	remaining, err := h.eligibility.TimeRemaining(ctx, recipient)
	if err != nil {
		log.Error("eligibility check failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "eligibility check failed"})
	}
	if remaining > 0 {
		observability.RecordRateLimited()
		return c.JSON(http.StatusTooManyRequests, rateLimitedResponse{
			Error:           "wallet already received tokens recently",
			TimeRemaining:   eligibility.FormatRemaining(remaining),
			TimeRemainingMs: remaining.Milliseconds(),
		})
	}

	// A started distribution runs to completion even if the client disconnects.
	result, err := h.distributor.Distribute(context.WithoutCancel(ctx), recipient, tokenTypes)
	if err != nil {
		status := http.StatusInternalServerError
		if distribution.IsValidation(err) {
			status = http.StatusBadRequest
		}
		return c.JSON(status, distributeResponse{DistributionResult: result, Error: err.Error()})
	}

	if result.SuccessCount() > 0 {
		if err := h.eligibility.RecordDistribution(context.WithoutCancel(ctx), recipient); err != nil {
			log.Error("failed to persist eligibility; wallet may receive again before cooldown", "error", err)
		}
	}

	return c.JSON(http.StatusOK, distributeResponse{DistributionResult: result})
}

func (h *FaucetRoutes) handleCheck(c echo.Context) error {
	wallet := c.Param("wallet")
	if err := domain.ValidateAddress(wallet); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid wallet address"})
	}

	ctx := requestContext(c)
	remaining, err := h.eligibility.TimeRemaining(ctx, wallet)
	if err != nil {
		logging.FromContext(ctx).Error("eligibility check failed", "wallet", wallet, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "eligibility check failed"})
	}

	return c.JSON(http.StatusOK, checkResponse{
		Wallet:          wallet,
		Eligible:        remaining == 0,
		TimeRemaining:   eligibility.FormatRemaining(remaining),
		TimeRemainingMs: remaining.Milliseconds(),
	})
}

func (h *FaucetRoutes) handleReset(c echo.Context) error {
	wallet := c.Param("wallet")

	ctx := requestContext(c)
	log := logging.FromContext(ctx)

	err := h.eligibility.Reset(ctx, wallet)
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "wallet not found"})
	}
	if err != nil {
		log.Error("reset failed", "wallet", wallet, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "reset failed"})
	}

	log.Info("eligibility reset", "wallet", wallet)
	return c.JSON(http.StatusOK, map[string]any{"wallet": wallet, "reset": true})
}

type refillRequest struct {
	TokenTypes []string `json:"tokenTypes"`
	Amount     uint64   `json:"amount"` // whole tokens
}

func (h *FaucetRoutes) handleRefill(c echo.Context) error {
	if h.refiller == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "refill not configured"})
	}

	var req refillRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if len(req.TokenTypes) == 0 {
		req.TokenTypes = h.cfg.DefaultMints
	}
	if req.Amount == 0 {
		req.Amount = DefaultRefillTokens
	}
	amount, err := distribution.Amount(req.Amount, h.cfg.Decimals)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	results, err := h.refiller.Refill(context.WithoutCancel(requestContext(c)), req.TokenTypes, amount)
	if err != nil {
		return c.JSON(statusFor(err), errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

type ensureAccountsRequest struct {
	Owner      string   `json:"owner"` // defaults to the distributor
	TokenTypes []string `json:"tokenTypes"`
}

func (h *FaucetRoutes) handleEnsureAccounts(c echo.Context) error {
	var req ensureAccountsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.Owner == "" {
		req.Owner = h.distributor.Sender()
	}
	if len(req.TokenTypes) == 0 {
		req.TokenTypes = h.cfg.DefaultMints
	}

	report, err := h.distributor.EnsureAccountsExist(context.WithoutCancel(requestContext(c)), req.Owner, req.TokenTypes)
	if err != nil {
		return c.JSON(statusFor(err), errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}

func (h *FaucetRoutes) handleListEligibility(c echo.Context) error {
	ctx := requestContext(c)
	records, err := h.eligibility.Records(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list eligibility failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "list failed"})
	}

	out := make(map[string]int64, len(records))
	for _, r := range records {
		out[r.Wallet] = r.LastDistributionMs
	}
	return c.JSON(http.StatusOK, out)
}

type transferView struct {
	DistributionID string `json:"distributionId"`
	Recipient      string `json:"recipient"`
	TokenType      string `json:"tokenType"`
	Status         string `json:"status"`
	Signature      string `json:"signature,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Stage          string `json:"stage,omitempty"`
	Amount         uint64 `json:"amount"`
	CreatedAt      int64  `json:"createdAt"` // Unix ms
}

func toTransferViews(records []*domain.TransferRecord) []transferView {
	out := make([]transferView, len(records))
	for i, r := range records {
		out[i] = transferView{
			DistributionID: r.DistributionID,
			Recipient:      r.Recipient,
			TokenType:      r.TokenType,
			Status:         r.Status.String(),
			Signature:      r.Signature,
			Reason:         r.Reason,
			Stage:          r.Stage.String(),
			Amount:         r.Amount,
			CreatedAt:      r.CreatedAt,
		}
	}
	return out
}

func (h *FaucetRoutes) handleTransfersByWallet(c echo.Context) error {
	if h.transfers == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "transfer log not configured"})
	}
	wallet := c.Param("wallet")
	if err := domain.ValidateAddress(wallet); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid wallet address"})
	}

	ctx := requestContext(c)
	records, err := h.transfers.GetByRecipient(ctx, wallet)
	if err != nil {
		logging.FromContext(ctx).Error("transfer history failed", "wallet", wallet, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "transfer history failed"})
	}
	return c.JSON(http.StatusOK, map[string]any{"wallet": wallet, "transfers": toTransferViews(records)})
}

func (h *FaucetRoutes) handleTransfersByDistribution(c echo.Context) error {
	if h.transfers == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "transfer log not configured"})
	}
	id := c.Param("id")

	ctx := requestContext(c)
	records, err := h.transfers.GetByDistributionID(ctx, id)
	if err != nil {
		logging.FromContext(ctx).Error("distribution lookup failed", "distribution_id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "distribution lookup failed"})
	}
	if len(records) == 0 {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "distribution not found"})
	}
	return c.JSON(http.StatusOK, map[string]any{"distributionId": id, "transfers": toTransferViews(records)})
}

// requireAdmin rejects requests whose admin secret does not match exactly.
func (h *FaucetRoutes) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.cfg.AdminSecret == "" {
			return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "admin endpoints disabled"})
		}
		given := c.Request().Header.Get(AdminSecretHeader)
		if subtle.ConstantTimeCompare([]byte(given), []byte(h.cfg.AdminSecret)) != 1 {
			logging.FromContext(requestContext(c)).Warn("admin secret mismatch", "path", c.Path(), "remote", c.RealIP())
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		}
		return next(c)
	}
}

func statusFor(err error) int {
	switch {
	case distribution.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, distribution.ErrMissingCredentials):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// requestContext returns the request context tagged with the request id.
func requestContext(c echo.Context) context.Context {
	return logging.WithRequestID(c.Request().Context(), requestID(c))
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
