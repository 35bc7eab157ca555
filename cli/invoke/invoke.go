/*
Package invoke contains commands sending program transactions.
*/
package invoke

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/UXDProtocol/anchor-comp/cli/options"
	"github.com/UXDProtocol/anchor-comp/pkg/config"
	"github.com/UXDProtocol/anchor-comp/pkg/idl"
	"github.com/UXDProtocol/anchor-comp/pkg/journal"
	"github.com/UXDProtocol/anchor-comp/pkg/program"
	"github.com/UXDProtocol/anchor-comp/pkg/provider"
	"github.com/UXDProtocol/anchor-comp/pkg/runner"
	"github.com/UXDProtocol/anchor-comp/pkg/services/metrics"
	"github.com/UXDProtocol/anchor-comp/pkg/wallet"
	"github.com/UXDProtocol/anchor-comp/pkg/workspace"
	"github.com/gagliardetto/solana-go"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// signatureMessage is the log message carrying the transaction signature.
const signatureMessage = "Your transaction signature"

var errNoProgram = errors.New("program and method names are required")

// NewCommands returns 'test' and 'call' commands.
func NewCommands() []cli.Command {
	testFlags := append([]cli.Flag{
		options.Debug,
		options.Workspace,
		options.Cluster,
		options.Wallet,
		options.Await,
		cli.BoolFlag{
			Name:  "quiet, q",
			Usage: "log warnings, errors and the transaction signature only",
		},
	}, options.ConfigFlags...)
	testFlags = append(testFlags, options.RPC...)

	callFlags := append([]cli.Flag{
		options.Debug,
		options.Workspace,
		options.Cluster,
		options.Wallet,
		options.Await,
		cli.StringFlag{
			Name:  "args, a",
			Usage: "JSON array of instruction arguments",
		},
		cli.StringSliceFlag{
			Name:  "account",
			Usage: "instruction account as name=address, can be repeated",
		},
		cli.StringSliceFlag{
			Name:  "signer",
			Usage: "Solana keygen file of an additional signer, can be repeated",
		},
	}, options.ConfigFlags...)
	callFlags = append(callFlags, options.RPC...)

	return []cli.Command{{
		Name:  "test",
		Usage: "Run the workspace integration scenario",
		UsageText: "anchor-comp test [--workspace <dir>] [-r <endpoint>] [-w <wallet>] [--await] [-q]\n" +
			"   [--config-path <dir> | --config-file <file>] [--relative-path <path>] [-d]",
		Description: `Connects to the cluster at ANCHOR_PROVIDER_URL (or --rpc-endpoint) using
   the key from ANCHOR_WALLET (or --wallet), resolves the configured workspace
   program (AnchorMangov3 by default) and invokes its configured method
   (initialize by default) exactly once with no arguments and no accounts.
   The transaction signature is printed on success.
`,
		Action: runTest,
		Flags:  testFlags,
	}, {
		Name:      "call",
		Usage:     "Invoke a workspace program method",
		UsageText: "anchor-comp call [--args <json>] [--account name=address ...] [--signer <file> ...] <program> <method>",
		Description: `Invokes the method of the workspace program sending exactly one
   transaction. Arguments are given as a JSON array in IDL order, for example
   --args '["Bid", 100, {"reduceOnly": false, "limit": 5}]'. Accounts not given
   explicitly are filled with the wallet (for payer/authority/owner/user
   signers) or with well-known program IDs where possible.
`,
		Action: runCall,
		Flags:  callFlags,
	}}
}

func setup(ctx *cli.Context) (config.Config, *zap.Logger, func(), error) {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cfg, nil, nil, cli.NewExitError(err, 1)
	}
	if err := options.ApplyFlags(ctx, &cfg); err != nil {
		return cfg, nil, nil, cli.NewExitError(err, 1)
	}
	log, _, logCloser, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return cfg, nil, nil, cli.NewExitError(err, 1)
	}
	if ctx.Bool("quiet") {
		log = log.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return options.NewFilteringCore(c, options.Quiet(signatureMessage))
		}))
	}
	prometheus := metrics.NewPrometheusService(cfg.ApplicationConfiguration.Prometheus, log)
	pprof := metrics.NewPprofService(cfg.ApplicationConfiguration.Pprof, log)
	for _, s := range []*metrics.Service{prometheus, pprof} {
		if err := s.Start(); err != nil {
			log.Error("failed to start service", zap.String("service", s.Name()), zap.Error(err))
		}
	}
	return cfg, log, func() {
		for _, s := range []*metrics.Service{prometheus, pprof} {
			if err := s.ShutDown(); err != nil {
				log.Warn("failed to shut down service", zap.String("service", s.Name()), zap.Error(err))
			}
		}
		_ = logCloser()
	}, nil
}

func openJournal(cfg config.Config, log *zap.Logger) (*journal.Journal, func()) {
	j, closer, err := options.GetJournal(cfg.ApplicationConfiguration)
	if err != nil {
		log.Warn("journal is not available", zap.Error(err))
		return nil, func() {}
	}
	return j, func() {
		if err := closer(); err != nil {
			log.Warn("failed to close journal", zap.Error(err))
		}
	}
}

func runTest(ctx *cli.Context) error {
	if ctx.NArg() != 0 {
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %s", strings.Join(ctx.Args(), " ")), 1)
	}
	cfg, log, teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()
	j, closeJournal := openJournal(cfg, log)
	defer closeJournal()

	opts := runner.OptionsFromConfig(cfg, log)
	opts.Journal = j
	opts.Getenv = func(k string) string {
		switch k {
		case provider.EnvProviderURL:
			return ctx.String(options.RPCEndpointFlag)
		case provider.EnvWallet:
			return ctx.String("wallet")
		}
		return os.Getenv(k)
	}
	if ctx.IsSet("timeout") {
		opts.Provider.RequestTimeout = ctx.Duration("timeout")
	}
	gctx, cancel := options.GetTimeoutContext(ctx, cfg.ProviderConfiguration.Await)
	defer cancel()

	res, err := runner.New(log, opts).Run(gctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, signatureMessage, res.Signature)
	return nil
}

func runCall(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.NewExitError(errNoProgram, 1)
	}
	var (
		progName = ctx.Args().Get(0)
		method   = ctx.Args().Get(1)
	)
	var args []any
	if a := ctx.String("args"); a != "" {
		var err error
		args, err = idl.ParseArgs([]byte(a))
		if err != nil {
			return cli.NewExitError(err, 1)
		}
	}
	ictx, err := parseContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	cfg, log, teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()
	ictx.SkipAwait = !cfg.ProviderConfiguration.Await

	gctx, cancel := options.GetTimeoutContext(ctx, cfg.ProviderConfiguration.Await)
	defer cancel()
	p, ec := options.GetProvider(gctx, ctx, cfg.ProviderConfiguration, log)
	if ec != nil {
		return ec
	}
	defer func() { _ = p.Close() }()

	ws, err := workspace.Find(cfg.ApplicationConfiguration.Workspace.Path, workspace.Options{
		Cluster: cfg.ProviderConfiguration.Cluster,
		IDLPath: cfg.ApplicationConfiguration.Workspace.IDLPath,
		Logger:  log,
	})
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	entry, err := ws.Program(progName)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	prog, err := program.New(entry, p.Actor)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	j, closeJournal := openJournal(cfg, log)
	defer closeJournal()
	sig, err := prog.RPC(gctx, method, args, ictx)
	if j != nil {
		rec := journal.RecordFor(ws.Cluster().String(), p.Endpoint, prog.Name(), prog.ID().String(), method, sig, err)
		if _, jerr := j.Add(rec); jerr != nil {
			log.Warn("failed to save journal record", zap.Error(jerr))
		}
	}
	if err != nil {
		if !sig.IsZero() {
			fmt.Fprintln(ctx.App.Writer, "Transaction:", sig)
		}
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, signatureMessage, sig)
	return nil
}

func parseContext(ctx *cli.Context) (program.Context, error) {
	var ictx program.Context
	for _, a := range ctx.StringSlice("account") {
		name, addr, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return ictx, fmt.Errorf("bad account %q, name=address expected", a)
		}
		pk, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return ictx, fmt.Errorf("bad account %s address: %w", name, err)
		}
		if ictx.Accounts == nil {
			ictx.Accounts = make(map[string]solana.PublicKey)
		}
		ictx.Accounts[name] = pk
	}
	for _, path := range ctx.StringSlice("signer") {
		w, err := wallet.NewWalletFromFile(path)
		if err != nil {
			return ictx, fmt.Errorf("signer %s: %w", path, err)
		}
		ictx.Signers = append(ictx.Signers, w.PrivateKey())
	}
	return ictx, nil
}
