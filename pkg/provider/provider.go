/*
Package provider implements the connection context used to talk to a
Solana cluster on behalf of a wallet, the Go counterpart of Anchor's
Provider. It's normally created from ANCHOR_PROVIDER_URL and ANCHOR_WALLET
environment variables set by "anchor test".
*/
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/UXDProtocol/anchor-comp/pkg/config"
	"github.com/UXDProtocol/anchor-comp/pkg/config/cluster"
	"github.com/UXDProtocol/anchor-comp/pkg/rpcclient"
	"github.com/UXDProtocol/anchor-comp/pkg/rpcclient/actor"
	"github.com/UXDProtocol/anchor-comp/pkg/rpcclient/waiter"
	"github.com/UXDProtocol/anchor-comp/pkg/wallet"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Environment variables Anchor uses to pass provider settings.
const (
	EnvProviderURL = "ANCHOR_PROVIDER_URL"
	EnvWallet      = "ANCHOR_WALLET"
)

var (
	// ErrNoProviderURL is returned when ANCHOR_PROVIDER_URL is not set.
	ErrNoProviderURL = errors.New(EnvProviderURL + " is not set")
	// ErrNoWallet is returned when ANCHOR_WALLET is not set.
	ErrNoWallet = errors.New(EnvWallet + " is not set")
	// ErrBadProviderURL is returned for endpoints that are not http(s) URLs.
	ErrBadProviderURL = errors.New("bad provider URL")
)

// RPC is the set of node methods provider users need.
type RPC interface {
	actor.RPCActor
	waiter.RPCPollingBased
	Close() error
}

// DialFunc creates RPC client for the given endpoint.
type DialFunc func(ctx context.Context, endpoint string, opts Options) (RPC, error)

// Options are provider settings, zero values mean defaults.
type Options struct {
	Commitment          rpc.CommitmentType
	PreflightCommitment rpc.CommitmentType
	SkipPreflight       bool
	MaxRetries          uint
	RequestTimeout      time.Duration
	PollInterval        time.Duration
	// WSEndpoint overrides the PubSub endpoint derived from the RPC one.
	WSEndpoint string
	// DisableWS makes provider use plain HTTP client.
	DisableWS bool
	Headers   map[string]string
	Logger    *zap.Logger
	// Dial is used to create RPC client, DialDefault is used if not set.
	Dial DialFunc
}

// Provider is a connection to the cluster and the wallet paying for
// transactions. It's immutable after creation.
type Provider struct {
	Client   RPC
	Wallet   *wallet.Wallet
	Actor    *actor.Actor
	Endpoint string
	Cluster  cluster.Cluster
	Opts     Options
}

// OptionsFromConfig converts provider configuration into Options.
func OptionsFromConfig(cfg config.ProviderConfiguration, log *zap.Logger) Options {
	return Options{
		Commitment:          cfg.Commitment,
		PreflightCommitment: cfg.PreflightCommitment,
		SkipPreflight:       cfg.SkipPreflight,
		MaxRetries:          cfg.MaxRetries,
		RequestTimeout:      cfg.RequestTimeout,
		PollInterval:        cfg.PollInterval,
		WSEndpoint:          cfg.WSEndpoint,
		DisableWS:           cfg.DisableWS,
		Logger:              log,
	}
}

// Env creates a provider from ANCHOR_PROVIDER_URL and ANCHOR_WALLET read via
// getenv (os.Getenv is used if nil). Nothing is sent to the network, so
// missing or malformed settings are reported before any remote call.
func Env(ctx context.Context, getenv func(string) string, opts Options) (*Provider, error) {
	if getenv == nil {
		return nil, errors.New("no environment getter")
	}
	endpoint := getenv(EnvProviderURL)
	if endpoint == "" {
		return nil, ErrNoProviderURL
	}
	walletPath := getenv(EnvWallet)
	if walletPath == "" {
		return nil, ErrNoWallet
	}
	if err := CheckEndpoint(endpoint); err != nil {
		return nil, err
	}
	w, err := wallet.NewWalletFromFile(walletPath)
	if err != nil {
		return nil, err
	}
	return New(ctx, endpoint, w, opts)
}

// CheckEndpoint returns ErrBadProviderURL if endpoint is not an http(s) URL
// with a host.
func CheckEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadProviderURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrBadProviderURL, endpoint)
	}
	return nil
}

// New creates a provider for the given endpoint and wallet.
func New(ctx context.Context, endpoint string, w *wallet.Wallet, opts Options) (*Provider, error) {
	if err := CheckEndpoint(endpoint); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrNoWallet
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.PreflightCommitment == "" {
		opts.PreflightCommitment = rpc.CommitmentProcessed
	}
	dial := opts.Dial
	if dial == nil {
		dial = DialDefault
	}
	client, err := dial(ctx, endpoint, opts)
	if err != nil {
		return nil, err
	}
	act, err := actor.New(client, w, actor.Options{
		Commitment:          opts.Commitment,
		PreflightCommitment: opts.PreflightCommitment,
		SkipPreflight:       opts.SkipPreflight,
		MaxRetries:          opts.MaxRetries,
		WaiterConfig: waiter.Config{
			PollConfig: waiter.PollConfig{PollInterval: opts.PollInterval},
			Commitment: opts.Commitment,
		},
	})
	if err != nil {
		return nil, errors.Join(err, client.Close())
	}
	opts.Logger.Debug("provider created",
		zap.String("endpoint", endpoint),
		zap.Stringer("wallet", w.PublicKey()),
		zap.String("commitment", string(opts.Commitment)))
	return &Provider{
		Client:   client,
		Wallet:   w,
		Actor:    act,
		Endpoint: endpoint,
		Cluster:  cluster.FromURL(endpoint),
		Opts:     opts,
	}, nil
}

// DialDefault creates websocket-enabled client falling back to the HTTP one
// if PubSub endpoint is not reachable (or DisableWS is set).
func DialDefault(ctx context.Context, endpoint string, opts Options) (RPC, error) {
	base := rpcclient.Options{RequestTimeout: opts.RequestTimeout, Headers: opts.Headers}
	if !opts.DisableWS {
		ws, err := rpcclient.NewWS(ctx, endpoint, rpcclient.WSOptions{Options: base, Endpoint: opts.WSEndpoint})
		if err == nil {
			return ws, nil
		}
		if opts.Logger != nil {
			opts.Logger.Warn("websocket is not available, falling back to polling", zap.Error(err))
		}
	}
	return rpcclient.New(ctx, endpoint, base)
}

// PublicKey returns the wallet address.
func (p *Provider) PublicKey() string {
	return p.Wallet.PublicKey().String()
}

// Close releases network connections.
func (p *Provider) Close() error {
	var errs *multierror.Error
	if p.Client != nil {
		if err := p.Client.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("RPC client: %w", err))
		}
	}
	return errs.ErrorOrNil()
}
