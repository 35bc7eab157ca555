package provider

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/UXDProtocol/anchor-comp/pkg/config"
	"github.com/UXDProtocol/anchor-comp/pkg/config/cluster"
	"github.com/UXDProtocol/anchor-comp/pkg/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
)

type RPCClient struct {
	closed   bool
	closeErr error
}

func (r *RPCClient) GetLatestBlockhash(rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return nil, errors.New("not implemented")
}

func (r *RPCClient) SendTransaction(*solana.Transaction, rpc.TransactionOpts) (solana.Signature, error) {
	return solana.Signature{}, errors.New("not implemented")
}

func (r *RPCClient) Context() context.Context { return context.Background() }

func (r *RPCClient) GetBlockHeight(rpc.CommitmentType) (uint64, error) { return 0, nil }

func (r *RPCClient) GetSignatureStatuses(bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return &rpc.GetSignatureStatusesResult{}, nil
}

func (r *RPCClient) Close() error {
	r.closed = true
	return r.closeErr
}

func fakeDial(client *RPCClient, calls *int) DialFunc {
	return func(context.Context, string, Options) (RPC, error) {
		*calls++
		return client, nil
	}
}

func walletFile(t *testing.T) (string, *wallet.Wallet) {
	w, err := wallet.NewRandom()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, w.SaveKeygenFile(path))
	return path, w
}

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestEnv(t *testing.T) {
	path, w := walletFile(t)
	client := &RPCClient{}
	var calls int
	opts := Options{Dial: fakeDial(client, &calls)}

	t.Run("no URL", func(t *testing.T) {
		_, err := Env(context.Background(), env(map[string]string{EnvWallet: path}), opts)
		require.ErrorIs(t, err, ErrNoProviderURL)
	})
	t.Run("no wallet", func(t *testing.T) {
		_, err := Env(context.Background(), env(map[string]string{EnvProviderURL: "http://127.0.0.1:8899"}), opts)
		require.ErrorIs(t, err, ErrNoWallet)
	})
	t.Run("bad URL", func(t *testing.T) {
		for _, u := range []string{"127.0.0.1:8899", "ftp://host", "http://", "::"} {
			_, err := Env(context.Background(), env(map[string]string{EnvProviderURL: u, EnvWallet: path}), opts)
			require.ErrorIs(t, err, ErrBadProviderURL, u)
		}
	})
	t.Run("missing wallet file", func(t *testing.T) {
		_, err := Env(context.Background(), env(map[string]string{
			EnvProviderURL: "http://127.0.0.1:8899",
			EnvWallet:      filepath.Join(t.TempDir(), "nope.json"),
		}), opts)
		require.Error(t, err)
	})
	require.Equal(t, 0, calls)

	t.Run("good", func(t *testing.T) {
		p, err := Env(context.Background(), env(map[string]string{
			EnvProviderURL: "http://127.0.0.1:8899",
			EnvWallet:      path,
		}), opts)
		require.NoError(t, err)
		require.Equal(t, 1, calls)
		require.Equal(t, w.PublicKey(), p.Wallet.PublicKey())
		require.Equal(t, w.PublicKey(), p.Actor.Sender())
		require.Equal(t, w.PublicKey().String(), p.PublicKey())
		require.Equal(t, cluster.Localnet, p.Cluster)
		require.Equal(t, rpc.CommitmentConfirmed, p.Opts.Commitment)
		require.Equal(t, rpc.CommitmentProcessed, p.Opts.PreflightCommitment)
		require.NoError(t, p.Close())
		require.True(t, client.closed)
	})
}

func TestNew(t *testing.T) {
	_, w := walletFile(t)
	client := &RPCClient{closeErr: errors.New("boom")}
	var calls int

	_, err := New(context.Background(), "http://localhost:8899", nil, Options{Dial: fakeDial(client, &calls)})
	require.ErrorIs(t, err, ErrNoWallet)

	p, err := New(context.Background(), "https://api.devnet.solana.com", w, Options{
		Commitment: rpc.CommitmentFinalized,
		Dial:       fakeDial(client, &calls),
	})
	require.NoError(t, err)
	require.Equal(t, cluster.Devnet, p.Cluster)
	require.Equal(t, rpc.CommitmentFinalized, p.Opts.Commitment)
	require.ErrorContains(t, p.Close(), "boom")
}

func TestDialDefaultNoWS(t *testing.T) {
	c, err := DialDefault(context.Background(), "http://127.0.0.1:1", Options{DisableWS: true})
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default().ProviderConfiguration
	cfg.SkipPreflight = true
	cfg.WSEndpoint = "ws://localhost:8900"
	opts := OptionsFromConfig(cfg, nil)
	require.Equal(t, cfg.Commitment, opts.Commitment)
	require.True(t, opts.SkipPreflight)
	require.Equal(t, "ws://localhost:8900", opts.WSEndpoint)
}
