/*
Package runner implements the integration scenario of the workspace: it
connects to the cluster using Anchor environment settings, resolves the
program by its workspace name and invokes one of its methods exactly once.
*/
package runner

import (
	"context"
	"os"

	"github.com/UXDProtocol/anchor-comp/pkg/config"
	"github.com/UXDProtocol/anchor-comp/pkg/config/cluster"
	"github.com/UXDProtocol/anchor-comp/pkg/journal"
	"github.com/UXDProtocol/anchor-comp/pkg/program"
	"github.com/UXDProtocol/anchor-comp/pkg/provider"
	"github.com/UXDProtocol/anchor-comp/pkg/workspace"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Options are runner settings, zero values mean defaults.
type Options struct {
	// Getenv is used to read provider settings, os.Getenv by default.
	Getenv   func(string) string
	Provider provider.Options
	// WorkspaceDir is searched for Anchor.toml (parents included), current
	// directory by default.
	WorkspaceDir string
	Workspace    workspace.Options
	// Program is the workspace name of the invoked program, AnchorMangov3
	// by default.
	Program string
	// Method is the invoked instruction, initialize by default.
	Method  string
	Args    []any
	Context program.Context
	// Journal records the invocation if set.
	Journal *journal.Journal
}

// Result is a successful invocation.
type Result struct {
	Program   string
	ProgramID solana.PublicKey
	Method    string
	Signature solana.Signature
}

// Runner runs the scenario.
type Runner struct {
	log  *zap.Logger
	opts Options
}

// OptionsFromConfig creates runner options from the configuration, Journal
// is to be set by the caller.
func OptionsFromConfig(cfg config.Config, log *zap.Logger) Options {
	ws := cfg.ApplicationConfiguration.Workspace
	pc := cfg.ProviderConfiguration
	return Options{
		Provider:     provider.OptionsFromConfig(pc, log),
		WorkspaceDir: ws.Path,
		Workspace: workspace.Options{
			Cluster: pc.Cluster,
			IDLPath: ws.IDLPath,
			Logger:  log,
		},
		Program: ws.Program,
		Method:  ws.Method,
		Context: program.Context{SkipAwait: !pc.Await},
	}
}

// New creates a Runner, nil logger disables logging.
func New(log *zap.Logger, opts Options) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.Provider.Logger == nil {
		opts.Provider.Logger = log
	}
	if opts.Workspace.Logger == nil {
		opts.Workspace.Logger = log
	}
	if opts.WorkspaceDir == "" {
		opts.WorkspaceDir = "."
	}
	if opts.Program == "" {
		opts.Program = config.DefaultProgram
	}
	if opts.Method == "" {
		opts.Method = config.DefaultMethod
	}
	return &Runner{log: log, opts: opts}
}

// Run executes the scenario. Configuration and workspace errors are returned
// before anything is sent to the network, the method is invoked at most
// once and its errors are returned as is.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	p, err := provider.Env(ctx, r.opts.Getenv, r.opts.Provider)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := p.Close(); err != nil {
			r.log.Warn("failed to close provider", zap.Error(err))
		}
	}()

	ws, err := workspace.Find(r.opts.WorkspaceDir, r.opts.Workspace)
	if err != nil {
		return nil, err
	}
	entry, err := ws.Program(r.opts.Program)
	if err != nil {
		return nil, err
	}
	prog, err := program.New(entry, p.Actor)
	if err != nil {
		return nil, err
	}
	r.log.Info("invoking program",
		zap.String("program", prog.Name()),
		zap.Stringer("id", prog.ID()),
		zap.String("method", r.opts.Method),
		zap.String("endpoint", p.Endpoint),
		zap.Stringer("wallet", p.Wallet.PublicKey()))

	sig, err := prog.RPC(ctx, r.opts.Method, r.opts.Args, r.opts.Context)
	r.record(p, ws.Cluster(), prog, sig, err)
	if err != nil {
		return nil, err
	}
	r.log.Info("Your transaction signature", zap.Stringer("signature", sig))
	return &Result{
		Program:   prog.Name(),
		ProgramID: prog.ID(),
		Method:    r.opts.Method,
		Signature: sig,
	}, nil
}

func (r *Runner) record(p *provider.Provider, c cluster.Cluster, prog *program.Program, sig solana.Signature, err error) {
	if r.opts.Journal == nil {
		return
	}
	rec := journal.RecordFor(c.String(), p.Endpoint, prog.Name(), prog.ID().String(), r.opts.Method, sig, err)
	if _, jerr := r.opts.Journal.Add(rec); jerr != nil {
		r.log.Warn("failed to save journal record", zap.Error(jerr))
	}
}
