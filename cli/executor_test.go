package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/UXDProtocol/anchor-comp/cli/app"
	"github.com/UXDProtocol/anchor-comp/pkg/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

const testWorkspace = "testdata/workspace"

// testSignature is returned by the fake node for every sent transaction.
var testSignature = solana.Signature{1, 2, 3, 4}

// executor represents context for a test instance.
// It can be safely used in multiple tests, but not in parallel.
type executor struct {
	// CLI is a cli application to test.
	CLI *cli.App
	// Node is a fake Solana JSON-RPC node (can be empty).
	Node *fakeNode
	// Out contains command output.
	Out *bytes.Buffer
	// Err contains command errors.
	Err *bytes.Buffer
}

// fakeNode serves the subset of Solana JSON-RPC used by the CLI.
type fakeNode struct {
	*httptest.Server

	lock  sync.Mutex
	calls map[string]int
	// sendErr is returned for sendTransaction if set.
	sendErr map[string]any
}

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []any           `json:"params"`
}

func newFakeNode(t *testing.T) *fakeNode {
	n := &fakeNode{calls: make(map[string]int)}
	n.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}

		n.lock.Lock()
		n.calls[req.Method]++
		sendErr := n.sendErr
		n.lock.Unlock()

		ctx := map[string]any{"slot": 10}
		switch req.Method {
		case "getLatestBlockhash":
			resp["result"] = map[string]any{"context": ctx, "value": map[string]any{
				"blockhash":            solana.Hash{5}.String(),
				"lastValidBlockHeight": 1000,
			}}
		case "sendTransaction":
			if sendErr != nil {
				resp["error"] = sendErr
			} else {
				resp["result"] = testSignature.String()
			}
		case "getSignatureStatuses":
			resp["result"] = map[string]any{"context": ctx, "value": []any{map[string]any{
				"slot":               10,
				"confirmations":      nil,
				"err":                nil,
				"confirmationStatus": "finalized",
			}}}
		case "getBlockHeight":
			resp["result"] = 10
		default:
			resp["error"] = map[string]any{"code": -32601, "message": "Method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(n.Server.Close)
	return n
}

func (n *fakeNode) Calls(method string) int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.calls[method]
}

func newExecutor(t *testing.T, needNode bool) *executor {
	e := &executor{
		CLI: app.New(),
		Out: bytes.NewBuffer(nil),
		Err: bytes.NewBuffer(nil),
	}
	e.CLI.Writer = e.Out
	e.CLI.ErrWriter = e.Err
	if needNode {
		e.Node = newFakeNode(t)
	}
	return e
}

// newWalletFile creates a keygen file in a temporary directory.
func newWalletFile(t *testing.T) (string, *wallet.Wallet) {
	w, err := wallet.NewRandom()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, w.SaveKeygenFile(path))
	return path, w
}

func (e *executor) getNextLine(t *testing.T) string {
	line, err := e.Out.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(line, "\n")
}

func (e *executor) checkNextLine(t *testing.T, expected string) {
	line := e.getNextLine(t)
	e.checkLine(t, line, expected)
}

func (e *executor) checkLine(t *testing.T, line, expected string) {
	require.Regexp(t, expected, line)
}

func (e *executor) checkEOF(t *testing.T) {
	_, err := e.Out.ReadString('\n')
	require.True(t, errors.Is(err, io.EOF))
}

func setExitFunc() <-chan int {
	ch := make(chan int, 1)
	cli.OsExiter = func(code int) {
		ch <- code
	}
	return ch
}

func checkExit(t *testing.T, ch <-chan int, code int) {
	select {
	case c := <-ch:
		require.Equal(t, code, c)
	default:
		if code != 0 {
			require.Fail(t, "no exit was called")
		}
	}
}

// RunWithError runs command and checks that is exits with error.
func (e *executor) RunWithError(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.Error(t, e.run(args...))
	checkExit(t, ch, 1)
}

// Run runs command and checks that there were no errors.
func (e *executor) Run(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.NoError(t, e.run(args...))
	checkExit(t, ch, 0)
}

func (e *executor) run(args ...string) error {
	e.Out.Reset()
	e.Err.Reset()
	return e.CLI.Run(args)
}
