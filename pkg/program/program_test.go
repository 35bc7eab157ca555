package program

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/UXDProtocol/anchor-comp/pkg/idl"
	"github.com/UXDProtocol/anchor-comp/pkg/rpcclient/actor"
	"github.com/UXDProtocol/anchor-comp/pkg/rpcclient/waiter"
	"github.com/UXDProtocol/anchor-comp/pkg/wallet"
	"github.com/UXDProtocol/anchor-comp/pkg/workspace"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
)

const testIDL = `{
  "version": "0.1.0",
  "name": "anchor_mangov3",
  "instructions": [
    {"name": "initialize", "accounts": [], "args": []},
    {
      "name": "deposit",
      "accounts": [
        {"name": "authority", "isMut": true, "isSigner": true},
        {"name": "vault", "isMut": true, "isSigner": false},
        {"name": "mango", "accounts": [
          {"name": "mangoGroup", "isMut": false, "isSigner": false}
        ]},
        {"name": "referrer", "isMut": false, "isSigner": false, "isOptional": true},
        {"name": "systemProgram", "isMut": false, "isSigner": false}
      ],
      "args": [{"name": "amount", "type": "u64"}]
    }
  ],
  "errors": [
    {"code": 300, "name": "WrongProgramId", "msg": "The provided program does not match the expected program ID for the cluster"}
  ]
}`

var programID = solana.MustPublicKeyFromBase58("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")

type RPCClient struct {
	sendErr error
	status  *rpc.SignatureStatusesResult
	sent    []*solana.Transaction
}

func (r *RPCClient) GetLatestBlockhash(rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{
		Blockhash:            solana.Hash{7},
		LastValidBlockHeight: 1000,
	}}, nil
}

func (r *RPCClient) SendTransaction(tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	r.sent = append(r.sent, tx)
	if r.sendErr != nil {
		return solana.Signature{}, r.sendErr
	}
	return tx.Signatures[0], nil
}

func (r *RPCClient) Context() context.Context { return context.Background() }

func (r *RPCClient) GetBlockHeight(rpc.CommitmentType) (uint64, error) { return 10, nil }

func (r *RPCClient) GetSignatureStatuses(bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{r.status}}, nil
}

func newTestProgram(t *testing.T, client *RPCClient) (*Program, *wallet.Wallet) {
	i, err := idl.Parse([]byte(testIDL))
	require.NoError(t, err)
	w, err := wallet.NewRandom()
	require.NoError(t, err)
	a, err := actor.New(client, w, actor.Options{
		WaiterConfig: waiter.Config{PollConfig: waiter.PollConfig{PollInterval: 5 * time.Millisecond}},
	})
	require.NoError(t, err)
	p, err := New(&workspace.Entry{Name: "AnchorMangov3", ID: programID, IDL: i}, a)
	require.NoError(t, err)
	return p, w
}

func confirmed(txErr any) *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{Slot: 5, ConfirmationStatus: rpc.ConfirmationStatusConfirmed, Err: txErr}
}

func TestNew(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
	_, err = New(&workspace.Entry{}, nil)
	require.Error(t, err)

	p, _ := newTestProgram(t, &RPCClient{})
	require.Equal(t, programID, p.ID())
	require.Equal(t, "AnchorMangov3", p.Name())
	require.Equal(t, "anchor_mangov3", p.IDL().Name)
	require.Equal(t, []string{"initialize", "deposit"}, p.Methods())
}

func TestInstruction(t *testing.T) {
	p, w := newTestProgram(t, &RPCClient{})

	t.Run("initialize", func(t *testing.T) {
		ix, err := p.Instruction("initialize", nil, Context{})
		require.NoError(t, err)
		require.Equal(t, programID, ix.ProgramID())
		require.Empty(t, ix.Accounts())
		data, err := ix.Data()
		require.NoError(t, err)
		require.Equal(t, idl.Discriminator("initialize"), data)
	})
	t.Run("unknown method", func(t *testing.T) {
		_, err := p.Instruction("withdraw", nil, Context{})
		require.ErrorIs(t, err, ErrUnknownMethod)
	})
	t.Run("bad args", func(t *testing.T) {
		_, err := p.Instruction("initialize", []any{1}, Context{})
		require.ErrorIs(t, err, idl.ErrArgs)
	})
	t.Run("missing account", func(t *testing.T) {
		_, err := p.Instruction("deposit", []any{5}, Context{})
		require.ErrorIs(t, err, ErrMissingAccount)
		require.ErrorContains(t, err, "vault")
	})
	t.Run("accounts", func(t *testing.T) {
		vault := solana.PublicKey{1}
		group := solana.PublicKey{2}
		extra := solana.NewAccountMeta(solana.PublicKey{3}, true, false)
		ix, err := p.Instruction("deposit", []any{5}, Context{
			Accounts: map[string]solana.PublicKey{
				"vault":            vault,
				"mango.mangoGroup": group,
			},
			RemainingAccounts: []*solana.AccountMeta{extra},
		})
		require.NoError(t, err)
		require.Equal(t, solana.AccountMetaSlice{
			solana.NewAccountMeta(w.PublicKey(), true, true),
			solana.NewAccountMeta(vault, true, false),
			solana.NewAccountMeta(group, false, false),
			solana.NewAccountMeta(programID, false, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
			extra,
		}, solana.AccountMetaSlice(ix.Accounts()))
		data, err := ix.Data()
		require.NoError(t, err)
		require.Equal(t, append(idl.Discriminator("deposit"), 5, 0, 0, 0, 0, 0, 0, 0), data)
	})
	t.Run("snake case names", func(t *testing.T) {
		authority := solana.PublicKey{9}
		ix, err := p.Instruction("deposit", []any{5}, Context{
			Accounts: map[string]solana.PublicKey{
				"authority":   authority,
				"vault":       {1},
				"mango_group": {2},
			},
		})
		require.NoError(t, err)
		require.Equal(t, authority, ix.Accounts()[0].PublicKey)
		require.Equal(t, solana.PublicKey{2}, ix.Accounts()[2].PublicKey)
	})
}

func TestRPC(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		client := &RPCClient{status: confirmed(nil)}
		p, w := newTestProgram(t, client)
		sig, err := p.RPC(context.Background(), "initialize", nil, Context{})
		require.NoError(t, err)
		require.Len(t, client.sent, 1)
		require.Equal(t, client.sent[0].Signatures[0], sig)
		require.Equal(t, w.PublicKey(), client.sent[0].Message.AccountKeys[0])
	})
	t.Run("skip await", func(t *testing.T) {
		client := &RPCClient{}
		p, _ := newTestProgram(t, client)
		sig, err := p.RPC(context.Background(), "initialize", nil, Context{SkipAwait: true})
		require.NoError(t, err)
		require.False(t, sig.IsZero())
		require.Len(t, client.sent, 1)
	})
	t.Run("not sent", func(t *testing.T) {
		client := &RPCClient{}
		p, _ := newTestProgram(t, client)
		_, err := p.RPC(context.Background(), "nope", nil, Context{})
		require.ErrorIs(t, err, ErrUnknownMethod)
		require.Empty(t, client.sent)
	})
	t.Run("send error", func(t *testing.T) {
		sendErr := errors.New("connection refused")
		client := &RPCClient{sendErr: sendErr}
		p, _ := newTestProgram(t, client)
		sig, err := p.RPC(context.Background(), "initialize", nil, Context{})
		require.ErrorIs(t, err, sendErr)
		require.True(t, sig.IsZero())
		require.Len(t, client.sent, 1)
	})
	t.Run("preflight program error", func(t *testing.T) {
		sendErr := errors.New("Transaction simulation failed: Error processing Instruction 0: custom program error: 0x12c")
		client := &RPCClient{sendErr: sendErr}
		p, _ := newTestProgram(t, client)
		_, err := p.RPC(context.Background(), "initialize", nil, Context{})
		var pe *ProgramError
		require.ErrorAs(t, err, &pe)
		require.Equal(t, uint32(300), pe.Code)
		require.Equal(t, "WrongProgramId", pe.Name)
		require.ErrorIs(t, err, sendErr)

		ec, ok := ErrorCode(err)
		require.True(t, ok)
		require.Equal(t, "WrongProgramId", ec.Name)
	})
	t.Run("on-chain program error", func(t *testing.T) {
		client := &RPCClient{status: confirmed(map[string]any{
			"InstructionError": []any{float64(0), map[string]any{"Custom": float64(100)}},
		})}
		p, _ := newTestProgram(t, client)
		sig, err := p.RPC(context.Background(), "initialize", nil, Context{})
		require.False(t, sig.IsZero())
		require.ErrorIs(t, err, waiter.ErrTxFailed)
		var pe *ProgramError
		require.ErrorAs(t, err, &pe)
		require.Equal(t, "InstructionMissing", pe.Name)
	})
	t.Run("unknown code", func(t *testing.T) {
		client := &RPCClient{sendErr: errors.New("custom program error: 0x1")}
		p, _ := newTestProgram(t, client)
		_, err := p.RPC(context.Background(), "initialize", nil, Context{})
		var pe *ProgramError
		require.ErrorAs(t, err, &pe)
		require.Equal(t, uint32(1), pe.Code)
		_, ok := ErrorCode(err)
		require.False(t, ok)
	})
	t.Run("context done", func(t *testing.T) {
		client := &RPCClient{}
		p, _ := newTestProgram(t, client)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sig, err := p.RPC(ctx, "initialize", nil, Context{})
		require.ErrorIs(t, err, waiter.ErrContextDone)
		require.False(t, sig.IsZero())
		require.Len(t, client.sent, 1)
	})
}
