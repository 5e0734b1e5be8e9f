package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for ledger operations.
var (
	// ErrNoSigners is returned when an operation is submitted without a fee payer.
	ErrNoSigners = errors.New("no signers")

	// ErrTransactionFailed is returned when the chain reports an execution error.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrBlockhashExpired is returned when the blockhash expired before confirmation.
	ErrBlockhashExpired = errors.New("blockhash expired before confirmation")

	// ErrConfirmationTimeout is returned when confirmation was not observed in time.
	ErrConfirmationTimeout = errors.New("confirmation timed out")
)

// ConfirmError wraps failures observed after the node accepted a transaction.
type ConfirmError struct {
	Signature string
	Err       error
}

func (e *ConfirmError) Error() string {
	return fmt.Sprintf("confirm %s: %v", e.Signature, e.Err)
}

func (e *ConfirmError) Unwrap() error {
	return e.Err
}
