/*
Package anchortest contains helpers to write Go tests against Anchor
workspaces in the same manner mocha tests generated by "anchor init" do:
provider from the environment, program from the workspace, method calls.
Every helper fails the test on error.
*/
package anchortest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/UXDProtocol/anchor-comp/pkg/program"
	"github.com/UXDProtocol/anchor-comp/pkg/provider"
	"github.com/UXDProtocol/anchor-comp/pkg/workspace"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// DefaultTimeout limits a single Invoke.
const DefaultTimeout = time.Minute

// NewProvider creates provider from ANCHOR_PROVIDER_URL and ANCHOR_WALLET, the
// test fails if they're missing or invalid. The provider is closed when the
// test ends.
func NewProvider(t testing.TB, opts ...provider.Options) *provider.Provider {
	var o provider.Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Logger == nil {
		o.Logger = zaptest.NewLogger(t)
	}
	p, err := provider.Env(context.Background(), os.Getenv, o)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	return p
}

// Workspace opens the workspace containing dir.
func Workspace(t testing.TB, dir string) *workspace.Workspace {
	ws, err := workspace.Find(dir, workspace.Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return ws
}

// Program resolves the program by its workspace name.
func Program(t testing.TB, ws *workspace.Workspace, p *provider.Provider, name string) *program.Program {
	entry, err := ws.Program(name)
	require.NoError(t, err)
	prog, err := program.New(entry, p.Actor)
	require.NoError(t, err)
	return prog
}

// Invoke calls the method once and returns the transaction signature.
func Invoke(t testing.TB, prog *program.Program, method string, args []any, ctx program.Context) solana.Signature {
	c, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	sig, err := prog.RPC(c, method, args, ctx)
	require.NoError(t, err)
	return sig
}
