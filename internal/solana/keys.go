package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	solanago "github.com/gagliardetto/solana-go"
)

// ErrInvalidSecretKey is returned when secret key material cannot be decoded.
var ErrInvalidSecretKey = errors.New("invalid secret key")

// Keypair is an ed25519 signing key with its public address.
type Keypair struct {
	key solanago.PrivateKey
}

// NewKeypair generates a new random keypair.
func NewKeypair() (*Keypair, error) {
	key, err := solanago.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{key: key}, nil
}

// KeypairFromBase64 decodes a base64 encoded 64-byte secret key (seed || public key).
func KeypairFromBase64(secret string) (*Keypair, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(secret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretKey, err)
	}
	return KeypairFromBytes(raw)
}

// KeypairFromBytes builds a keypair from a 64-byte secret key.
// The embedded public key must match the one derived from the seed.
func KeypairFromBytes(raw []byte) (*Keypair, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSecretKey, ed25519.PrivateKeySize, len(raw))
	}
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: public key does not match seed", ErrInvalidSecretKey)
	}
	key := make([]byte, len(raw))
	copy(key, raw)
	return &Keypair{key: solanago.PrivateKey(key)}, nil
}

// Address returns the base58 public key.
func (k *Keypair) Address() string {
	return k.key.PublicKey().String()
}

// PublicKey returns the typed public key.
func (k *Keypair) PublicKey() solanago.PublicKey {
	return k.key.PublicKey()
}

// PrivateKey returns the typed private key used for signing.
func (k *Keypair) PrivateKey() *solanago.PrivateKey {
	return &k.key
}

// SecretBase64 returns the 64-byte secret key encoded as base64.
func (k *Keypair) SecretBase64() string {
	return base64.StdEncoding.EncodeToString(k.key)
}

// KeyFile is the JSON layout written by the keygen command.
type KeyFile struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"` // base64
}

// WriteKeyFile writes the keypair to path with owner-only permissions.
func WriteKeyFile(path string, k *Keypair) error {
	data, err := json.MarshalIndent(KeyFile{PublicKey: k.Address(), PrivateKey: k.SecretBase64()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// ReadKeyFile loads a keypair written by WriteKeyFile.
func ReadKeyFile(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var kf KeyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	k, err := KeypairFromBase64(kf.PrivateKey)
	if err != nil {
		return nil, err
	}
	if kf.PublicKey != "" && kf.PublicKey != k.Address() {
		return nil, fmt.Errorf("%w: key file public key mismatch", ErrInvalidSecretKey)
	}
	return k, nil
}
