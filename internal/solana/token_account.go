package solana

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// TokenAccountSize is the size of an SPL token account.
const TokenAccountSize = 165

// MintAccountSize is the size of an SPL mint account.
const MintAccountSize = 82

// ParseTokenAccountData parses base64 SPL token account data.
// Token account layout: mint(32) | owner(32) | amount(8) | ...
func ParseTokenAccountData(address, data string) (*TokenAccount, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode token account data: %w", err)
	}
	if len(decoded) < 72 {
		return nil, fmt.Errorf("token account data too short: %d", len(decoded))
	}
	return &TokenAccount{
		Address: address,
		Mint:    base58.Encode(decoded[0:32]),
		Owner:   base58.Encode(decoded[32:64]),
		Amount:  binary.LittleEndian.Uint64(decoded[64:72]),
	}, nil
}

// ParseMintDecimals returns the decimals of a base64 SPL mint account.
// Mint layout: mintAuthority option(36) | supply(8) | decimals(1) | ...
func ParseMintDecimals(data string) (uint8, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return 0, fmt.Errorf("decode mint data: %w", err)
	}
	if len(decoded) < MintAccountSize {
		return 0, fmt.Errorf("mint data too short: %d", len(decoded))
	}
	return decoded[44], nil
}
