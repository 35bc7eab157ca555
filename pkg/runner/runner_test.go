package runner

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/UXDProtocol/anchor-comp/pkg/config"
	"github.com/UXDProtocol/anchor-comp/pkg/journal"
	"github.com/UXDProtocol/anchor-comp/pkg/provider"
	"github.com/UXDProtocol/anchor-comp/pkg/storage"
	"github.com/UXDProtocol/anchor-comp/pkg/wallet"
	"github.com/UXDProtocol/anchor-comp/pkg/workspace"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type RPCClient struct {
	lock    sync.Mutex
	sendErr error
	sent    []*solana.Transaction
	dialed  int
}

func (r *RPCClient) GetLatestBlockhash(rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{
		Blockhash:            solana.Hash{1},
		LastValidBlockHeight: 100,
	}}, nil
}

func (r *RPCClient) SendTransaction(tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.sent = append(r.sent, tx)
	if r.sendErr != nil {
		return solana.Signature{}, r.sendErr
	}
	return tx.Signatures[0], nil
}

func (r *RPCClient) Context() context.Context { return context.Background() }

func (r *RPCClient) GetBlockHeight(rpc.CommitmentType) (uint64, error) { return 1, nil }

func (r *RPCClient) GetSignatureStatuses(bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{{
		Slot:               2,
		ConfirmationStatus: rpc.ConfirmationStatusFinalized,
	}}}, nil
}

func (r *RPCClient) Close() error { return nil }

func (r *RPCClient) sentCount() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.sent)
}

func testEnv(t *testing.T) map[string]string {
	w, err := wallet.NewRandom()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, w.SaveKeygenFile(path))
	return map[string]string{
		provider.EnvProviderURL: "http://127.0.0.1:8899",
		provider.EnvWallet:      path,
	}
}

func testOptions(client *RPCClient, env map[string]string) Options {
	return Options{
		Getenv: func(k string) string { return env[k] },
		Provider: provider.Options{
			PollInterval: 5 * time.Millisecond,
			Dial: func(context.Context, string, provider.Options) (provider.RPC, error) {
				client.dialed++
				return client, nil
			},
		},
		WorkspaceDir: "testdata",
	}
}

func TestRun(t *testing.T) {
	client := &RPCClient{}
	core, logs := observer.New(zapcore.InfoLevel)
	j, err := journal.New(storage.NewMemoryStore())
	require.NoError(t, err)
	opts := testOptions(client, testEnv(t))
	opts.Journal = j

	res, err := New(zap.New(core), opts).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, client.sentCount())
	require.Equal(t, "AnchorMangov3", res.Program)
	require.Equal(t, "initialize", res.Method)
	require.Equal(t, solana.MustPublicKeyFromBase58("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"), res.ProgramID)
	require.False(t, res.Signature.IsZero())
	require.Equal(t, client.sent[0].Signatures[0], res.Signature)

	entries := logs.FilterMessage("Your transaction signature").All()
	require.Len(t, entries, 1)
	require.Equal(t, res.Signature.String(), entries[0].ContextMap()["signature"])

	recs, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, res.Signature.String(), recs[0].Signature)
	require.Equal(t, "localnet", recs[0].Cluster)
	require.Empty(t, recs[0].Error)
}

func TestRunBadEnvironment(t *testing.T) {
	for name, tc := range map[string]struct {
		unset  string
		set    map[string]string
		target error
	}{
		"no URL":    {unset: provider.EnvProviderURL, target: provider.ErrNoProviderURL},
		"no wallet": {unset: provider.EnvWallet, target: provider.ErrNoWallet},
		"bad URL":   {set: map[string]string{provider.EnvProviderURL: "localhost"}, target: provider.ErrBadProviderURL},
	} {
		t.Run(name, func(t *testing.T) {
			env := testEnv(t)
			delete(env, tc.unset)
			for k, v := range tc.set {
				env[k] = v
			}
			client := &RPCClient{}
			_, err := New(nil, testOptions(client, env)).Run(context.Background())
			require.ErrorIs(t, err, tc.target)
			require.Equal(t, 0, client.dialed)
			require.Equal(t, 0, client.sentCount())
		})
	}
}

func TestRunProgramNotFound(t *testing.T) {
	client := &RPCClient{}
	opts := testOptions(client, testEnv(t))
	opts.Program = "AnchorMangov4"
	_, err := New(nil, opts).Run(context.Background())
	require.ErrorIs(t, err, workspace.ErrProgramNotFound)
	require.Equal(t, 0, client.sentCount())
}

func TestRunSendError(t *testing.T) {
	sendErr := errors.New("connection refused")
	client := &RPCClient{sendErr: sendErr}
	core, logs := observer.New(zapcore.InfoLevel)
	j, err := journal.New(storage.NewMemoryStore())
	require.NoError(t, err)
	opts := testOptions(client, testEnv(t))
	opts.Journal = j

	res, err := New(zap.New(core), opts).Run(context.Background())
	require.ErrorIs(t, err, sendErr)
	require.Nil(t, res)
	require.Equal(t, 1, client.sentCount())
	require.Zero(t, logs.FilterMessage("Your transaction signature").Len())

	recs, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Empty(t, recs[0].Signature)
	require.Contains(t, recs[0].Error, "connection refused")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ProviderConfiguration.Await = false
	opts := OptionsFromConfig(cfg, nil)
	require.Equal(t, config.DefaultProgram, opts.Program)
	require.Equal(t, config.DefaultMethod, opts.Method)
	require.True(t, opts.Context.SkipAwait)
	require.Equal(t, cfg.ProviderConfiguration.Cluster, opts.Workspace.Cluster)
}
