package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// AddressLength is the size of a decoded ed25519 public key.
const AddressLength = 32

// ErrInvalidAddress is returned when a wallet or mint address fails validation.
var ErrInvalidAddress = errors.New("invalid address")

// ValidateAddress checks that s is a base58 encoded 32-byte public key.
// Wallet addresses and token mints are validated the same way. Off-curve
// keys (program derived addresses) are accepted.
func ValidateAddress(s string) error {
	if s == "" || strings.TrimSpace(s) != s {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(decoded) != AddressLength {
		return fmt.Errorf("%w: %q: decoded length %d", ErrInvalidAddress, s, len(decoded))
	}
	return nil
}

// IsValidAddress reports whether s passes ValidateAddress.
func IsValidAddress(s string) bool {
	return ValidateAddress(s) == nil
}

// FilterValidTokenTypes splits token types into valid and rejected lists.
// Input order is preserved and duplicates are dropped from the valid list.
func FilterValidTokenTypes(tokenTypes []string) (valid, rejected []string) {
	seen := make(map[string]struct{}, len(tokenTypes))
	for _, t := range tokenTypes {
		if !IsValidAddress(t) {
			rejected = append(rejected, t)
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		valid = append(valid, t)
	}
	return valid, rejected
}
