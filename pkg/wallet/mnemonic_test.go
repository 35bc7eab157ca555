package wallet

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestSeed(t *testing.T) {
	seed := Seed(testMnemonic, "TREZOR")
	require.Equal(t, "c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04",
		hex.EncodeToString(seed))
	// Extra whitespace doesn't matter.
	require.Equal(t, seed, Seed("  "+testMnemonic+"\n", "TREZOR"))
}

func TestNewWalletFromMnemonic(t *testing.T) {
	_, err := NewWalletFromMnemonic("abandon about", "")
	require.ErrorIs(t, err, ErrInvalidMnemonic)

	w, err := NewWalletFromMnemonic(testMnemonic, "TREZOR")
	require.NoError(t, err)
	require.Equal(t, "c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e5349553", hex.EncodeToString(w.PrivateKey()[:32]))
	require.Equal(t, w.PrivateKey().PublicKey(), w.PublicKey())

	other, err := NewWalletFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	require.NotEqual(t, w.PublicKey(), other.PublicKey())
}
