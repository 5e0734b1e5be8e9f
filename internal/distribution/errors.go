package distribution

import (
	"errors"
	"fmt"

	"solana-token-faucet/internal/domain"
)

// Validation errors are rejected before any network call.
var (
	// ErrInvalidRecipient is returned when the recipient is not a valid address.
	ErrInvalidRecipient = errors.New("invalid recipient address")

	// ErrNoValidTargets is returned when no valid token types remain after filtering.
	ErrNoValidTargets = errors.New("no valid token types")
)

// ErrMissingCredentials is returned when the distributor keypair is not configured.
var ErrMissingCredentials = errors.New("distributor credentials not configured")

// Per-transfer error classes, matched by TransferError.Is.
var (
	ErrAccountResolution = errors.New("account resolution failed")
	ErrSubmission        = errors.New("submission failed")
)

// TransferError is a failure of a single (recipient, token type) transfer attempt.
type TransferError struct {
	TokenType string
	Stage     domain.TransferStage
	Err       error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.TokenType, e.Stage, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is classifies the error by the stage it originated in.
func (e *TransferError) Is(target error) bool {
	switch target {
	case ErrAccountResolution:
		return e.Stage == domain.StageResolvingSenderAccount || e.Stage == domain.StageResolvingRecipientAccount
	case ErrSubmission:
		return e.Stage == domain.StageSubmitting || e.Stage == domain.StageConfirming
	}
	return false
}

// FailureClass names the class of a transfer error for logs: "account_resolution",
// "submission" or "internal".
func FailureClass(err error) string {
	switch {
	case errors.Is(err, ErrAccountResolution):
		return "account_resolution"
	case errors.Is(err, ErrSubmission):
		return "submission"
	default:
		return "internal"
	}
}

// IsValidation reports whether err is a client input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRecipient) || errors.Is(err, ErrNoValidTargets)
}
