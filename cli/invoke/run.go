package invoke

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"

	"github.com/UXDProtocol/anchor-comp/cli/options"
	"github.com/UXDProtocol/anchor-comp/pkg/provider"
	"github.com/UXDProtocol/anchor-comp/pkg/wallet"
	"github.com/UXDProtocol/anchor-comp/pkg/workspace"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// NewRunCommand returns 'run' command executing Anchor.toml scripts.
func NewRunCommand() cli.Command {
	flags := append([]cli.Flag{
		options.Debug,
		options.Workspace,
		options.Cluster,
		options.Wallet,
	}, options.ConfigFlags...)
	flags = append(flags, options.RPC...)
	return cli.Command{
		Name:      "run",
		Usage:     "Run a script from Anchor.toml [scripts] table",
		UsageText: "anchor-comp run [--workspace <dir>] [-r <endpoint>] [-w <wallet>] <script> [-- <args>...]",
		Description: `Runs the script in the workspace root with ANCHOR_PROVIDER_URL and
   ANCHOR_WALLET set the same way 'anchor run' does. The endpoint defaults to
   the workspace cluster RPC and the wallet to the [provider] wallet.
   Remaining arguments are appended to the script command line. With no
   script name the list of scripts is printed.
`,
		Action: runScript,
		Flags:  flags,
	}
}

func runScript(ctx *cli.Context) error {
	cfg, log, teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	ws, err := workspace.Find(cfg.ApplicationConfiguration.Workspace.Path, workspace.Options{
		Cluster: cfg.ProviderConfiguration.Cluster,
		IDLPath: cfg.ApplicationConfiguration.Workspace.IDLPath,
		Logger:  log,
	})
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if !ctx.Args().Present() {
		for _, name := range ws.Scripts() {
			fmt.Fprintln(ctx.App.Writer, name)
		}
		return nil
	}
	args, err := ws.Script(ctx.Args().First())
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	args = append(args, ctx.Args().Tail()...)

	endpoint := ctx.String(options.RPCEndpointFlag)
	if endpoint == "" {
		endpoint = ws.Cluster().RPCURL()
	}
	walletPath := ctx.String("wallet")
	if walletPath == "" {
		walletPath = ws.Manifest().Provider.Wallet
	}
	if walletPath != "" {
		walletPath, err = wallet.ExpandPath(walletPath)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
	}

	gctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	cmd := exec.CommandContext(gctx, args[0], args[1:]...)
	cmd.Dir = ws.Dir()
	cmd.Env = append(os.Environ(),
		provider.EnvProviderURL+"="+endpoint,
		provider.EnvWallet+"="+walletPath,
	)
	cmd.Stdin = os.Stdin
	cmd.Stdout = ctx.App.Writer
	cmd.Stderr = ctx.App.ErrWriter
	log.Debug("running script", zap.Strings("args", args), zap.String("endpoint", endpoint))
	if err := cmd.Run(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && ee.ExitCode() > 0 {
			return cli.NewExitError(fmt.Errorf("script %s failed: %w", ctx.Args().First(), err), ee.ExitCode())
		}
		return cli.NewExitError(err, 1)
	}
	return nil
}
