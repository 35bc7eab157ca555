/*
Package rpcclient implements a Solana JSON-RPC client used to build, send
and confirm Anchor program transactions.

Client wraps the solana-go RPC client adding per-request timeouts, cached node
information and Prometheus metrics for every call made. WSClient adds
websocket subscriptions on top of it.
*/
package rpcclient

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const defaultRequestTimeout = 10 * time.Second

// Client represents the middleman for executing JSON-RPC calls to a remote
// Solana node. Client is thread-safe and can be used from multiple
// goroutines.
type Client struct {
	rpc      *rpc.Client
	endpoint *url.URL
	ctx      context.Context
	opts     Options

	cacheLock sync.RWMutex
	// cache stores node information, it's filled in during Init().
	cache cache
}

// Options defines options for the RPC client. All values are optional.
type Options struct {
	// RequestTimeout limits every single request, 10 seconds are used by
	// default.
	RequestTimeout time.Duration
	// Headers are added to every HTTP request (API keys of RPC providers).
	Headers map[string]string
}

type cache struct {
	initDone bool
	version  string
}

// New returns a new Client ready to use. ctx is used as a parent for every
// request and is returned from Context, so cancelling it aborts everything
// in progress.
func New(ctx context.Context, endpoint string, opts Options) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	var cl *rpc.Client
	if len(opts.Headers) != 0 {
		cl = rpc.NewWithHeaders(endpoint, opts.Headers)
	} else {
		cl = rpc.New(endpoint)
	}
	return &Client{
		rpc:      cl,
		endpoint: u,
		ctx:      ctx,
		opts:     opts,
	}, nil
}

// Init checks node health and caches its version. It's not required for
// other methods to work, but it's a cheap way to check the node is reachable
// before sending anything.
func (c *Client) Init() error {
	if _, err := c.GetHealth(); err != nil {
		return fmt.Errorf("node is not healthy: %w", err)
	}
	v, err := c.GetVersion()
	if err != nil {
		return fmt.Errorf("failed to get node version: %w", err)
	}
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()
	c.cache.version = v.SolanaCore
	c.cache.initDone = true
	return nil
}

// Version returns the node version cached by Init.
func (c *Client) Version() (string, error) {
	c.cacheLock.RLock()
	defer c.cacheLock.RUnlock()
	if !c.cache.initDone {
		return "", errNetworkNotInitialized
	}
	return c.cache.version, nil
}

// Context returns the client's context.
func (c *Client) Context() context.Context {
	return c.ctx
}

// Endpoint returns the client's endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Close closes unused underlying network connections.
func (c *Client) Close() error {
	return c.rpc.Close()
}

func (c *Client) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, c.opts.RequestTimeout)
}

// GetHealth returns "ok" for a healthy node.
func (c *Client) GetHealth() (string, error) {
	ctx, cancel := c.requestContext()
	defer cancel()
	defer observe("getHealth", time.Now())
	return c.rpc.GetHealth(ctx)
}

// GetVersion returns the node software version.
func (c *Client) GetVersion() (*rpc.GetVersionResult, error) {
	ctx, cancel := c.requestContext()
	defer cancel()
	defer observe("getVersion", time.Now())
	return c.rpc.GetVersion(ctx)
}

// GetLatestBlockhash returns the most recent blockhash and the last block
// height at which transactions referencing it are still valid.
func (c *Client) GetLatestBlockhash(commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	ctx, cancel := c.requestContext()
	defer cancel()
	defer observe("getLatestBlockhash", time.Now())
	return c.rpc.GetLatestBlockhash(ctx, commitment)
}

// GetBlockHeight returns the current block height of the node.
func (c *Client) GetBlockHeight(commitment rpc.CommitmentType) (uint64, error) {
	ctx, cancel := c.requestContext()
	defer cancel()
	defer observe("getBlockHeight", time.Now())
	return c.rpc.GetBlockHeight(ctx, commitment)
}

// GetSignatureStatuses returns statuses of the given transaction signatures,
// unknown ones have nil entries.
func (c *Client) GetSignatureStatuses(searchHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	ctx, cancel := c.requestContext()
	defer cancel()
	defer observe("getSignatureStatuses", time.Now())
	return c.rpc.GetSignatureStatuses(ctx, searchHistory, sigs...)
}

// GetAccountInfo returns account data, rpc.ErrNotFound is returned for
// missing accounts.
func (c *Client) GetAccountInfo(account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	ctx, cancel := c.requestContext()
	defer cancel()
	defer observe("getAccountInfo", time.Now())
	return c.rpc.GetAccountInfo(ctx, account)
}

// GetBalance returns account balance in lamports.
func (c *Client) GetBalance(account solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	ctx, cancel := c.requestContext()
	defer cancel()
	defer observe("getBalance", time.Now())
	res, err := c.rpc.GetBalance(ctx, account, commitment)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// RequestAirdrop asks localnet/devnet/testnet faucet for lamports.
func (c *Client) RequestAirdrop(account solana.PublicKey, lamports uint64, commitment rpc.CommitmentType) (solana.Signature, error) {
	ctx, cancel := c.requestContext()
	defer cancel()
	defer observe("requestAirdrop", time.Now())
	return c.rpc.RequestAirdrop(ctx, account, lamports, commitment)
}

// SendTransaction broadcasts signed transaction to the network. It's sent
// exactly once, the node is told not to retry unless opts say otherwise.
func (c *Client) SendTransaction(tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	ctx, cancel := c.requestContext()
	defer cancel()
	defer observe("sendTransaction", time.Now())
	return c.rpc.SendTransactionWithOpts(ctx, tx, opts)
}
