package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for in, expected := range map[string]Cluster{
		"localnet":     Localnet,
		"Localnet":     Localnet,
		"devnet":       Devnet,
		"testnet":      Testnet,
		"mainnet":      Mainnet,
		"mainnet-beta": Mainnet,
	} {
		c, err := Parse(in)
		require.NoError(t, err, in)
		require.Equal(t, expected, c, in)
	}
	_, err := Parse("moonnet")
	require.Error(t, err)
}

func TestFromURL(t *testing.T) {
	require.Equal(t, Localnet, FromURL("http://127.0.0.1:8899"))
	require.Equal(t, Devnet, FromURL("https://api.devnet.solana.com"))
	require.Equal(t, Mainnet, FromURL("https://api.mainnet-beta.solana.com"))
	require.Equal(t, Localnet, FromURL("http://validator.internal:8899"))
}

func TestWSURL(t *testing.T) {
	ws, err := WSURL("http://127.0.0.1:8899")
	require.NoError(t, err)
	require.Equal(t, "ws://127.0.0.1:8900", ws)

	ws, err = WSURL("https://api.devnet.solana.com")
	require.NoError(t, err)
	require.Equal(t, "wss://api.devnet.solana.com", ws)

	ws, err = WSURL("ws://localhost:8900")
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:8900", ws)

	_, err = WSURL("ftp://localhost")
	require.Error(t, err)
}
