package anchortest

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/UXDProtocol/anchor-comp/pkg/program"
	"github.com/UXDProtocol/anchor-comp/pkg/provider"
	"github.com/UXDProtocol/anchor-comp/pkg/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
)

type RPCClient struct {
	sent int
}

func (r *RPCClient) GetLatestBlockhash(rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{3}}}, nil
}

func (r *RPCClient) SendTransaction(tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	r.sent++
	return tx.Signatures[0], nil
}

func (r *RPCClient) Context() context.Context { return context.Background() }

func (r *RPCClient) GetBlockHeight(rpc.CommitmentType) (uint64, error) { return 0, nil }

func (r *RPCClient) GetSignatureStatuses(bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return &rpc.GetSignatureStatusesResult{}, nil
}

func (r *RPCClient) Close() error { return nil }

// failRecorder records failures of the wrapped test instead of reporting
// them, FailNow stops the calling goroutine like testing.T does.
type failRecorder struct {
	testing.TB

	failed bool
	errors []string
}

func (r *failRecorder) Errorf(format string, args ...any) {
	r.failed = true
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *failRecorder) Fatalf(format string, args ...any) {
	r.Errorf(format, args...)
	r.FailNow()
}

func (r *failRecorder) Fail() { r.failed = true }

func (r *failRecorder) Failed() bool { return r.failed }

func (r *failRecorder) FailNow() {
	r.failed = true
	runtime.Goexit()
}

func runRecorded(t *testing.T, f func(testing.TB)) *failRecorder {
	r := &failRecorder{TB: t}
	done := make(chan struct{})
	go func() {
		defer close(done)
		f(r)
	}()
	<-done
	return r
}

func TestNewProviderNoEnvironment(t *testing.T) {
	t.Setenv(provider.EnvProviderURL, "")
	t.Setenv(provider.EnvWallet, "")

	var p *provider.Provider
	r := runRecorded(t, func(tb testing.TB) { p = NewProvider(tb) })
	require.True(t, r.failed)
	require.Nil(t, p)
	require.NotEmpty(t, r.errors)
	require.Contains(t, strings.Join(r.errors, "\n"), provider.ErrNoProviderURL.Error())
}

func TestNewProviderNoWallet(t *testing.T) {
	t.Setenv(provider.EnvProviderURL, "http://127.0.0.1:8899")
	t.Setenv(provider.EnvWallet, "")

	r := runRecorded(t, func(tb testing.TB) { NewProvider(tb) })
	require.True(t, r.failed)
	require.Contains(t, strings.Join(r.errors, "\n"), provider.ErrNoWallet.Error())
}

func TestInvoke(t *testing.T) {
	w, err := wallet.NewRandom()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, w.SaveKeygenFile(path))
	t.Setenv(provider.EnvProviderURL, "http://127.0.0.1:8899")
	t.Setenv(provider.EnvWallet, path)

	client := &RPCClient{}
	p := NewProvider(t, provider.Options{
		Dial: func(context.Context, string, provider.Options) (provider.RPC, error) {
			return client, nil
		},
	})
	ws := Workspace(t, "testdata")
	prog := Program(t, ws, p, "AnchorMangov3")
	sig := Invoke(t, prog, "initialize", nil, program.Context{SkipAwait: true})
	require.False(t, sig.IsZero())
	require.Equal(t, 1, client.sent)
}
