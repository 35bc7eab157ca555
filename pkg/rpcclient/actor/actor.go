/*
Package actor provides a way to change chain state via RPC client.

This layer builds on top of the basic RPC client and the wallet, it
simplifies creating, signing and sending transactions to the network (since
that's the only way chain state is changed). It's generic enough to be used
for any program that you may want to invoke and program-specific code can
build on top of it.
*/
package actor

import (
	"context"
	"errors"
	"fmt"

	"github.com/UXDProtocol/anchor-comp/pkg/rpcclient/waiter"
	"github.com/UXDProtocol/anchor-comp/pkg/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrNoInstructions is returned on attempt to make a transaction without
// instructions.
var ErrNoInstructions = errors.New("no instructions to send")

// RPCActor is an interface required from the RPC client to successfully
// create and send transactions.
type RPCActor interface {
	GetLatestBlockhash(commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransaction(tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// Actor keeps a connection to the RPC endpoint and allows to perform
// state-changing actions (via transactions that can also be created without
// sending them to the network) on behalf of the wallet that pays fees and
// signs every transaction.
//
// "Make" prefix is used for methods that create transactions, while "Send"
// prefix is used by methods that directly transmit created transactions to
// the RPC server. Every Send* method sends the transaction exactly once, no
// retries are made neither by Actor nor by the node (unless MaxRetries is
// set).
//
// Actor also provides a Waiter interface to wait until transaction will be
// confirmed. Depending on the underlying RPCActor functionality, it can be
// performed via websocket signature subscription, via regular RPC requests
// or can not be performed at all (ErrAwaitingNotSupported is returned
// then).
type Actor struct {
	waiter.Waiter

	client RPCActor
	wallet *wallet.Wallet
	opts   Options
}

// Options are used to create Actor with non-default commitments and send
// options.
type Options struct {
	// Commitment is used for blockhash requests and awaiting, confirmed
	// by default.
	Commitment rpc.CommitmentType
	// PreflightCommitment is used for transaction simulation done by the
	// node before sending, processed by default.
	PreflightCommitment rpc.CommitmentType
	// SkipPreflight disables simulation.
	SkipPreflight bool
	// MaxRetries is the number of node-side rebroadcast attempts, zero
	// means the node never retries.
	MaxRetries uint
	// Waiter configuration, Commitment is used if not set there.
	WaiterConfig waiter.Config
}

// Sent is a transaction sent to the network.
type Sent struct {
	Signature solana.Signature
	// LastValidBlockHeight is the last block height the transaction can be
	// accepted at.
	LastValidBlockHeight uint64
}

// New creates an Actor instance using the specified RPC interface and the
// wallet paying for transactions.
func New(ra RPCActor, w *wallet.Wallet, opts Options) (*Actor, error) {
	if w == nil {
		return nil, errors.New("wallet is required")
	}
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.PreflightCommitment == "" {
		opts.PreflightCommitment = rpc.CommitmentProcessed
	}
	if opts.WaiterConfig.Commitment == "" {
		opts.WaiterConfig.Commitment = opts.Commitment
	}
	return &Actor{
		Waiter: waiter.New(ra, opts.WaiterConfig),
		client: ra,
		wallet: w,
		opts:   opts,
	}, nil
}

// Sender returns the fee payer of transactions created by Actor.
func (a *Actor) Sender() solana.PublicKey {
	return a.wallet.PublicKey()
}

// Wallet returns the wallet used by Actor.
func (a *Actor) Wallet() *wallet.Wallet {
	return a.wallet
}

// MakeUnsigned creates a transaction with the given instructions, fee payer
// set to the wallet and a fresh blockhash. It returns the transaction and the
// last block height it's valid for.
func (a *Actor) MakeUnsigned(ixs ...solana.Instruction) (*solana.Transaction, uint64, error) {
	if len(ixs) == 0 {
		return nil, 0, ErrNoInstructions
	}
	bh, err := a.client.GetLatestBlockhash(a.opts.Commitment)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(ixs, bh.Value.Blockhash, solana.TransactionPayer(a.Sender()))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, bh.Value.LastValidBlockHeight, nil
}

// MakeTx creates a transaction with the given instructions (see also
// MakeUnsigned) and signs it with the wallet and extra signers given.
func (a *Actor) MakeTx(ixs []solana.Instruction, signers ...solana.PrivateKey) (*solana.Transaction, uint64, error) {
	tx, lastValid, err := a.MakeUnsigned(ixs...)
	if err != nil {
		return nil, 0, err
	}
	if err := a.Sign(tx, signers...); err != nil {
		return nil, 0, err
	}
	return tx, lastValid, nil
}

// Sign adds signatures to arbitrary transaction using Actor's wallet and the
// extra signers given.
func (a *Actor) Sign(tx *solana.Transaction, signers ...solana.PrivateKey) error {
	return a.wallet.SignTransaction(tx, signers...)
}

// Send allows to send arbitrary prepared transaction to the network.
func (a *Actor) Send(tx *solana.Transaction) (solana.Signature, error) {
	maxRetries := a.opts.MaxRetries
	return a.client.SendTransaction(tx, rpc.TransactionOpts{
		SkipPreflight:       a.opts.SkipPreflight,
		PreflightCommitment: a.opts.PreflightCommitment,
		MaxRetries:          &maxRetries,
	})
}

// SendInstructions creates a transaction with the given instructions (see
// also MakeTx) and sends it to the network.
func (a *Actor) SendInstructions(ixs []solana.Instruction, signers ...solana.PrivateKey) (Sent, error) {
	tx, lastValid, err := a.MakeTx(ixs, signers...)
	if err != nil {
		return Sent{}, err
	}
	sig, err := a.Send(tx)
	if err != nil {
		return Sent{}, err
	}
	return Sent{Signature: sig, LastValidBlockHeight: lastValid}, nil
}

// SendAndAwait sends the instructions (see SendInstructions) and waits for
// the transaction to reach Actor's commitment. Signature is returned even
// if awaiting fails.
func (a *Actor) SendAndAwait(ctx context.Context, ixs []solana.Instruction, signers ...solana.PrivateKey) (solana.Signature, *waiter.Result, error) {
	sent, err := a.SendInstructions(ixs, signers...)
	if err != nil {
		return solana.Signature{}, nil, err
	}
	res, err := a.Wait(ctx, sent.Signature, sent.LastValidBlockHeight, nil)
	return sent.Signature, res, err
}
