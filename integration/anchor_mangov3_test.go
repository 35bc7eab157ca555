//go:build integration

package integration

import (
	"testing"

	"github.com/UXDProtocol/anchor-comp/pkg/anchortest"
	"github.com/UXDProtocol/anchor-comp/pkg/program"
)

// Run with "anchor test" or with ANCHOR_PROVIDER_URL and ANCHOR_WALLET set
// and the program deployed:
//
//	go test -tags integration ./integration/...
func TestAnchorMangov3(t *testing.T) {
	provider := anchortest.NewProvider(t)
	ws := anchortest.Workspace(t, "..")
	prog := anchortest.Program(t, ws, provider, "AnchorMangov3")

	t.Run("is initialized", func(t *testing.T) {
		tx := anchortest.Invoke(t, prog, "initialize", nil, program.Context{})
		t.Log("Your transaction signature", tx)
	})
}
