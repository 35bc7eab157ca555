/*
Package wallet provides signing credentials of the provider, an ed25519
keypair stored in the Solana keygen JSON format.
*/
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// KeyLen is the length of a serialized ed25519 private key (seed followed
// by the public key).
const KeyLen = 64

// ErrInvalidKey is returned when the key data doesn't contain a valid ed25519
// keypair.
var ErrInvalidKey = errors.New("invalid keypair")

// Wallet holds a single keypair used as a transaction fee payer and signer.
type Wallet struct {
	key  solana.PrivateKey
	path string
}

// NewWalletFromFile reads the keypair from the Solana keygen JSON file (an
// array of 64 numbers). A leading "~" in the path is expanded to the user's
// home directory, like Anchor does for ANCHOR_WALLET.
func NewWalletFromFile(path string) (*Wallet, error) {
	full, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(full)
	if err != nil {
		return nil, fmt.Errorf("can't read wallet %s: %w", full, err)
	}
	if err := checkKey(key); err != nil {
		return nil, fmt.Errorf("wallet %s: %w", full, err)
	}
	return &Wallet{key: key, path: full}, nil
}

// NewWalletFromBase58 creates a wallet from the base58-encoded 64-byte secret
// (the format Phantom and solana-keygen's "--outfile -" use).
func NewWalletFromBase58(secret string) (*Wallet, error) {
	raw, err := base58.Decode(strings.TrimSpace(secret))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	key := solana.PrivateKey(raw)
	if err := checkKey(key); err != nil {
		return nil, err
	}
	return &Wallet{key: key}, nil
}

// NewRandom creates a wallet with a freshly generated keypair.
func NewRandom() (*Wallet, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	return &Wallet{key: key}, nil
}

// ExpandPath expands "~" to the home directory of the current user.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("can't expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func checkKey(key solana.PrivateKey) error {
	if len(key) != KeyLen {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeyLen, len(key))
	}
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], key[ed25519.SeedSize:]) {
		return fmt.Errorf("%w: public key doesn't match the secret", ErrInvalidKey)
	}
	return nil
}

// PublicKey returns the wallet's public key (address).
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// PrivateKey returns the wallet's private key.
func (w *Wallet) PrivateKey() solana.PrivateKey {
	return w.key
}

// Path returns the file the wallet was loaded from, if any.
func (w *Wallet) Path() string {
	return w.path
}

// Base58 returns the base58-encoded secret.
func (w *Wallet) Base58() string {
	return base58.Encode(w.key)
}

// SignTransaction signs the transaction on behalf of the wallet and the
// extra signers given. Every signer required by the transaction message must
// be among them.
func (w *Wallet) SignTransaction(tx *solana.Transaction, extra ...solana.PrivateKey) error {
	keys := make(map[solana.PublicKey]solana.PrivateKey, len(extra)+1)
	keys[w.PublicKey()] = w.key
	for _, k := range extra {
		keys[k.PublicKey()] = k
	}
	_, err := tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if k, ok := keys[pub]; ok {
			return &k
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

// SaveKeygenFile writes the keypair to the given path in the Solana keygen
// JSON format.
func (w *Wallet) SaveKeygenFile(path string) error {
	ints := make([]int, len(w.key))
	for i, b := range w.key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	w.path = path
	return nil
}
