package wallet

import (
	"crypto/ed25519"
	"crypto/sha512"
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidMnemonic is returned for seed phrases of wrong length.
var ErrInvalidMnemonic = errors.New("invalid seed phrase")

// Seed returns BIP39 seed of the mnemonic and the passphrase.
func Seed(mnemonic, passphrase string) []byte {
	words := strings.Fields(norm.NFKD.String(mnemonic))
	salt := "mnemonic" + norm.NFKD.String(passphrase)
	return pbkdf2.Key([]byte(strings.Join(words, " ")), []byte(salt), 2048, 64, sha512.New)
}

// NewWalletFromMnemonic recovers the keypair from the BIP39 seed phrase the
// way "solana-keygen recover" does without a derivation path: the first 32
// bytes of the seed are the ed25519 private key seed. The word list checksum
// is not verified.
func NewWalletFromMnemonic(mnemonic, passphrase string) (*Wallet, error) {
	switch len(strings.Fields(mnemonic)) {
	case 12, 15, 18, 21, 24:
	default:
		return nil, ErrInvalidMnemonic
	}
	seed := Seed(mnemonic, passphrase)
	return &Wallet{key: solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize]))}, nil
}
