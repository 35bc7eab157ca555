/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/UXDProtocol/anchor-comp/cli/input"
	"github.com/UXDProtocol/anchor-comp/pkg/config"
	"github.com/UXDProtocol/anchor-comp/pkg/config/cluster"
	"github.com/UXDProtocol/anchor-comp/pkg/journal"
	"github.com/UXDProtocol/anchor-comp/pkg/provider"
	"github.com/UXDProtocol/anchor-comp/pkg/storage"
	"github.com/UXDProtocol/anchor-comp/pkg/wallet"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultTimeout is the default timeout used for commands not awaiting
	// transactions.
	DefaultTimeout = 10 * time.Second
	// DefaultAwaitableTimeout is the default timeout used for commands that
	// require transaction awaiting. It's enough for a transaction to be
	// finalized on a healthy cluster.
	DefaultAwaitableTimeout = time.Minute
)

// RPCEndpointFlag is a long flag name for an RPC endpoint. It can be used to
// check for flag presence in the context.
const RPCEndpointFlag = "rpc-endpoint"

// PromptWallet is the wallet path making the seed phrase to be requested.
const PromptWallet = "prompt:"

// Wallet is a flag used to specify the Solana keygen file.
var Wallet = cli.StringFlag{
	Name:   "wallet, w",
	Usage:  "Solana keygen file with the key paying for transactions, '" + PromptWallet + "' to enter the seed phrase",
	EnvVar: provider.EnvWallet,
}

// Cluster is a flag overriding the workspace cluster.
var Cluster = cli.StringFlag{
	Name:  "cluster, c",
	Usage: "cluster to use (localnet, devnet, testnet, mainnet), overrides configuration and Anchor.toml",
}

// RPC is a set of flags used for RPC connections (endpoint and timeout).
var RPC = []cli.Flag{
	cli.StringFlag{
		Name:   RPCEndpointFlag + ", r",
		Usage:  "RPC node address",
		EnvVar: provider.EnvProviderURL,
	},
	cli.DurationFlag{
		Name:  "timeout, s",
		Value: DefaultTimeout,
		Usage: "Timeout for the operation",
	},
}

// Await is a flag for commands sending transactions.
var Await = cli.BoolFlag{
	Name:  "await",
	Usage: "wait for the transaction to reach the configured commitment",
}

// Workspace is a flag pointing to the Anchor workspace.
var Workspace = cli.StringFlag{
	Name:  "workspace",
	Usage: "directory with Anchor.toml (parent directories are also searched), overrides configuration",
}

// Config is a flag for commands that use configuration.
var Config = cli.StringFlag{
	Name:  "config-path",
	Usage: "path to directory with " + config.DefaultConfigFile + " (may be overridden by --config-file option for the configuration file)",
}

// ConfigFile is a flag for commands that use configuration and provide path
// to the specific config file instead of config path.
var ConfigFile = cli.StringFlag{
	Name:  "config-file",
	Usage: "path to the configuration file (overrides --config-path option)",
}

// RelativePath is a flag for commands that use configuration and provide a
// prefix to all relative paths in config files.
var RelativePath = cli.StringFlag{
	Name:  "relative-path",
	Usage: "a prefix to all relative paths in the configuration file",
}

// Debug is a flag for commands that allow debug logging.
var Debug = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug logging (LOTS of output, overrides configuration)",
}

// ConfigFlags is the set of flags loading the configuration.
var ConfigFlags = []cli.Flag{Config, ConfigFile, RelativePath}

var errNoEndpoint = errors.New("no RPC endpoint specified, use option '--" + RPCEndpointFlag + "' or '-r' or set " + provider.EnvProviderURL)
var errNoWallet = errors.New("no wallet parameter found, specify it with the '--wallet' or '-w' flag or set " + provider.EnvWallet)

// GetTimeoutContext returns a context.Context with the default or a user-set
// timeout. await is the resolved awaiting setting (configuration with flags
// applied), the longer default is used for awaited commands.
func GetTimeoutContext(ctx *cli.Context, await bool) (context.Context, func()) {
	dur := ctx.Duration("timeout")
	if dur == 0 {
		dur = DefaultTimeout
	}
	if !ctx.IsSet("timeout") && await {
		dur = DefaultAwaitableTimeout
	}
	return context.WithTimeout(context.Background(), dur)
}

// GetConfigFromContext looks at the path flags in the given context and
// returns an appropriate config. Defaults are returned if no config file is
// given and the default one doesn't exist.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	var (
		configFile   = ctx.String("config-file")
		relativePath = ctx.String("relative-path")
	)
	if len(configFile) != 0 {
		return config.LoadFile(configFile, relativePath)
	}
	var configPath = "./config"
	if argCp := ctx.String("config-path"); argCp != "" {
		configPath = argCp
	} else if _, err := os.Stat(filepath.Join(configPath, config.DefaultConfigFile)); err != nil {
		return config.Default(), nil
	}
	return config.Load(configPath, relativePath)
}

// ApplyFlags overrides configuration with the values of the common flags
// given.
func ApplyFlags(ctx *cli.Context, cfg *config.Config) error {
	if c := ctx.String("cluster"); c != "" {
		cl, err := cluster.Parse(c)
		if err != nil {
			return err
		}
		cfg.ProviderConfiguration.Cluster = cl
	}
	if ws := ctx.String("workspace"); ws != "" {
		cfg.ApplicationConfiguration.Workspace.Path = ws
	}
	if ctx.IsSet("await") {
		cfg.ProviderConfiguration.Await = ctx.Bool("await")
	}
	return nil
}

// GetProvider creates provider for the endpoint and wallet given via flags
// (or their environment variables).
func GetProvider(gctx context.Context, ctx *cli.Context, cfg config.ProviderConfiguration, log *zap.Logger) (*provider.Provider, cli.ExitCoder) {
	endpoint := ctx.String(RPCEndpointFlag)
	if len(endpoint) == 0 {
		return nil, cli.NewExitError(errNoEndpoint, 1)
	}
	wPath := ctx.String("wallet")
	if len(wPath) == 0 {
		return nil, cli.NewExitError(errNoWallet, 1)
	}
	w, err := GetWallet(ctx.App.Writer, wPath)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	opts := provider.OptionsFromConfig(cfg, log)
	if ctx.IsSet("timeout") {
		opts.RequestTimeout = ctx.Duration("timeout")
	}
	p, err := provider.New(gctx, endpoint, w, opts)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	return p, nil
}

// GetWallet loads the wallet from the keygen file or, for "prompt:" paths,
// recovers it from the seed phrase read from the terminal.
func GetWallet(w io.Writer, path string) (*wallet.Wallet, error) {
	if !strings.HasPrefix(path, PromptWallet) {
		return wallet.NewWalletFromFile(path)
	}
	phrase, err := input.ReadPassword(w, "Enter seed phrase > ")
	if err != nil {
		return nil, fmt.Errorf("failed to read seed phrase: %w", err)
	}
	pass, err := input.ReadPassword(w, "Enter passphrase (empty for none) > ")
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return wallet.NewWalletFromMnemonic(phrase, pass)
}

// GetJournal opens the journal configured, the closer returned releases the
// underlying store.
func GetJournal(cfg config.ApplicationConfiguration) (*journal.Journal, func() error, error) {
	store, err := storage.NewStore(cfg.Journal)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}
	j, err := journal.New(store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return j, j.Close, nil
}

// HandleLoggingParams reads logging parameters.
// If a user selected debug level -- function enables it.
// If logPath is configured -- function creates a dir and a file for logging,
// the file is rotated by size.
// The closer returned flushes the logger and closes the log file.
func HandleLoggingParams(debug bool, cfg config.ApplicationConfiguration) (*zap.Logger, *zap.AtomicLevel, func() error, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(cfg.LogLevel) > 0 {
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeDuration = zapcore.StringDurationEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var (
		sink   zapcore.WriteSyncer
		closer func() error
	)
	if logPath := cfg.LogPath; logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("could not create dir for logger: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			Compress:   true,
		}
		sink = zapcore.AddSync(lj)
		closer = lj.Close
	} else {
		sink = zapcore.Lock(os.Stderr)
		if term.IsTerminal(int(os.Stderr.Fd())) {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}

	var enc zapcore.Encoder
	if cfg.LogEncoding == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	lvl := zap.NewAtomicLevelAt(level)
	log := zap.New(zapcore.NewCore(enc, sink, lvl))
	return log, &lvl, func() error {
		_ = log.Sync()
		if closer != nil {
			return closer()
		}
		return nil
	}, nil
}
