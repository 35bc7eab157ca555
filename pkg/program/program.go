/*
Package program provides a client-side handle of an Anchor program. It builds
instructions from the program IDL and sends them via actor.Actor, program
errors are translated using the IDL and the Anchor framework error table.
*/
package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/UXDProtocol/anchor-comp/pkg/idl"
	"github.com/UXDProtocol/anchor-comp/pkg/rpcclient/actor"
	"github.com/UXDProtocol/anchor-comp/pkg/rpcclient/waiter"
	"github.com/UXDProtocol/anchor-comp/pkg/workspace"
	"github.com/gagliardetto/solana-go"
)

var (
	// ErrUnknownMethod is returned for methods not present in the IDL.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrMissingAccount is returned when a required instruction account is
	// not given and can't be derived.
	ErrMissingAccount = errors.New("missing account")
)

// walletAccounts are signer account names filled with the provider wallet
// when not given explicitly.
var walletAccounts = map[string]bool{
	"payer":     true,
	"authority": true,
	"owner":     true,
	"user":      true,
}

// wellKnownAccounts are program and sysvar accounts filled automatically.
var wellKnownAccounts = map[string]solana.PublicKey{
	"system_program":           solana.SystemProgramID,
	"token_program":            solana.TokenProgramID,
	"associated_token_program": solana.SPLAssociatedTokenAccountProgramID,
	"rent":                     solana.SysVarRentPubkey,
	"clock":                    solana.SysVarClockPubkey,
}

// Context is an additional instruction context, zero value is an empty one.
type Context struct {
	// Accounts maps IDL account names (camelCase, snake_case or dotted paths
	// for nested groups) to addresses.
	Accounts map[string]solana.PublicKey
	// RemainingAccounts are appended after the IDL accounts.
	RemainingAccounts []*solana.AccountMeta
	// Signers are extra transaction signers, the wallet always signs.
	Signers []solana.PrivateKey
	// SkipAwait returns right after sending without waiting for the
	// transaction to reach the provider commitment.
	SkipAwait bool
}

// Program is a handle of a deployed program.
type Program struct {
	entry *workspace.Entry
	actor *actor.Actor
}

// New creates a program handle for the workspace entry sending transactions
// via the given Actor.
func New(entry *workspace.Entry, act *actor.Actor) (*Program, error) {
	if entry == nil || entry.IDL == nil {
		return nil, errors.New("no program IDL")
	}
	if act == nil {
		return nil, errors.New("no actor")
	}
	return &Program{entry: entry, actor: act}, nil
}

// ID returns the program address.
func (p *Program) ID() solana.PublicKey {
	return p.entry.ID
}

// Name returns the workspace name of the program.
func (p *Program) Name() string {
	return p.entry.Name
}

// IDL returns the program IDL.
func (p *Program) IDL() *idl.IDL {
	return p.entry.IDL
}

// Methods returns camelCase names of program instructions in IDL order.
func (p *Program) Methods() []string {
	res := make([]string, 0, len(p.entry.IDL.Instructions))
	for _, ins := range p.entry.IDL.Instructions {
		res = append(res, idl.CamelCase(ins.Name))
	}
	return res
}

// Instruction builds the instruction invoking method with the given
// arguments (see idl.Instruction.EncodeArgs for accepted values).
func (p *Program) Instruction(method string, args []any, ctx Context) (solana.Instruction, error) {
	ins, ok := p.entry.IDL.Instruction(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	data, err := ins.EncodeArgs(args)
	if err != nil {
		return nil, err
	}
	accs, err := p.accounts(ins, ctx)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(p.entry.ID, accs, data), nil
}

func (p *Program) accounts(ins *idl.Instruction, ctx Context) (solana.AccountMetaSlice, error) {
	flat := ins.FlatAccounts()
	res := make(solana.AccountMetaSlice, 0, len(flat)+len(ctx.RemainingAccounts))
	for _, acc := range flat {
		pk, ok := lookupAccount(ctx.Accounts, acc)
		known, isKnown := wellKnownAccounts[idl.SnakeCase(acc.Name)]
		switch {
		case ok:
		case acc.IsSigner && walletAccounts[idl.SnakeCase(acc.Name)]:
			pk = p.actor.Sender()
		case isKnown && !acc.IsSigner && !acc.IsMut:
			pk = known
		case acc.IsOptional:
			// Missing optional accounts are passed as the program ID.
			res = append(res, solana.NewAccountMeta(p.entry.ID, false, false))
			continue
		default:
			return nil, fmt.Errorf("%w: %s", ErrMissingAccount, acc.Path)
		}
		res = append(res, solana.NewAccountMeta(pk, acc.IsMut, acc.IsSigner))
	}
	return append(res, ctx.RemainingAccounts...), nil
}

func lookupAccount(m map[string]solana.PublicKey, acc idl.Account) (solana.PublicKey, bool) {
	for _, k := range []string{acc.Path, acc.Name, idl.CamelCase(acc.Name), idl.SnakeCase(acc.Name)} {
		if pk, ok := m[k]; ok {
			return pk, true
		}
	}
	return solana.PublicKey{}, false
}

// RPC invokes method sending exactly one transaction. Unless ctx.SkipAwait is
// set, it then waits for the transaction to reach the provider commitment.
// The signature is returned whenever the transaction was sent, errors
// raised by the program are returned as *ProgramError.
func (p *Program) RPC(ctx context.Context, method string, args []any, ictx Context) (solana.Signature, error) {
	ix, err := p.Instruction(method, args, ictx)
	if err != nil {
		return solana.Signature{}, err
	}
	sent, err := p.actor.SendInstructions([]solana.Instruction{ix}, ictx.Signers...)
	if err != nil {
		return solana.Signature{}, p.translate(err, nil)
	}
	if ictx.SkipAwait {
		return sent.Signature, nil
	}
	res, err := p.actor.Wait(ctx, sent.Signature, sent.LastValidBlockHeight, nil)
	if err != nil {
		if errors.Is(err, waiter.ErrAwaitingNotSupported) {
			return sent.Signature, nil
		}
		var txErr any
		if res != nil {
			txErr = res.Err
		}
		return sent.Signature, p.translate(err, txErr)
	}
	return sent.Signature, nil
}
