//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/UXDProtocol/anchor-comp/pkg/anchortest"
	"github.com/UXDProtocol/anchor-comp/pkg/provider"
	"github.com/UXDProtocol/anchor-comp/pkg/runner"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRunner(t *testing.T) {
	// Fails early with a clear message when the environment is not set.
	anchortest.NewProvider(t, provider.Options{DisableWS: true})

	ctx, cancel := context.WithTimeout(context.Background(), anchortest.DefaultTimeout)
	defer cancel()
	res, err := runner.New(zaptest.NewLogger(t), runner.Options{WorkspaceDir: ".."}).Run(ctx)
	require.NoError(t, err)
	require.False(t, res.Signature.IsZero())
}
