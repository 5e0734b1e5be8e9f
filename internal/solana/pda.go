package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// MaxSeedLength is the maximum length of a single PDA seed.
const MaxSeedLength = 32

// ErrNoViableBump is returned when no bump seed yields an off-curve address.
var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// FindProgramAddress derives a Program Derived Address using the Solana algorithm:
// sha256(seeds || bump || programID || "ProgramDerivedAddress"), searching bumps
// from 255 down until the hash is off the ed25519 curve.
func FindProgramAddress(seeds [][]byte, programID []byte) ([]byte, uint8, error) {
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return nil, 0, fmt.Errorf("seed length %d exceeds %d", len(seed), MaxSeedLength)
		}
	}

	for bump := 255; bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !IsOnCurve(hash[:]) {
			return hash[:], uint8(bump), nil
		}
	}

	return nil, 0, ErrNoViableBump
}

// IsOnCurve reports whether the 32-byte point is a valid ed25519 curve point.
func IsOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// IsOnCurveAddress reports whether a base58 address is on the ed25519 curve,
// i.e. whether it can belong to a keypair rather than a program.
func IsOnCurveAddress(address string) bool {
	decoded, err := base58.Decode(address)
	if err != nil {
		return false
	}
	return IsOnCurve(decoded)
}

// FindAssociatedTokenAddress returns the associated token account address of owner for mint.
// Seeds: [owner, token_program_id, mint] under the associated token program.
func FindAssociatedTokenAddress(owner, mint string) (string, error) {
	ownerBytes, err := decodeKey(owner)
	if err != nil {
		return "", fmt.Errorf("owner: %w", err)
	}
	mintBytes, err := decodeKey(mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}
	tokenProgram, err := decodeKey(TokenProgramID)
	if err != nil {
		return "", err
	}
	ataProgram, err := decodeKey(AssociatedTokenProgramID)
	if err != nil {
		return "", err
	}

	pda, _, err := FindProgramAddress([][]byte{ownerBytes, tokenProgram, mintBytes}, ataProgram)
	if err != nil {
		return "", err
	}
	return base58.Encode(pda), nil
}

func decodeKey(s string) ([]byte, error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", s, err)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("decode %q: expected 32 bytes, got %d", s, len(decoded))
	}
	return decoded, nil
}
