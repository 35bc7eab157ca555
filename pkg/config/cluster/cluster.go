/*
Package cluster defines Solana clusters known to Anchor workspaces.
*/
package cluster

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// Localnet is a local test validator (solana-test-validator).
	Localnet Cluster = "localnet"
	// Devnet is the public development cluster.
	Devnet Cluster = "devnet"
	// Testnet is the public test cluster.
	Testnet Cluster = "testnet"
	// Mainnet is the main Solana cluster (mainnet-beta).
	Mainnet Cluster = "mainnet"
)

// Cluster is an Anchor cluster name as used in Anchor.toml.
type Cluster string

// Parse converts the given cluster name (or cluster RPC URL) into Cluster.
// Anchor accepts "mainnet-beta" and "mainnet" interchangeably, as well as
// plain RPC URLs of well-known clusters.
func Parse(s string) (Cluster, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "localnet", "localhost", rpc.LocalNet_RPC:
		return Localnet, nil
	case "devnet", rpc.DevNet_RPC:
		return Devnet, nil
	case "testnet", rpc.TestNet_RPC:
		return Testnet, nil
	case "mainnet", "mainnet-beta", rpc.MainNetBeta_RPC:
		return Mainnet, nil
	}
	return "", fmt.Errorf("unknown cluster %q", s)
}

// FromURL guesses the cluster from the RPC endpoint. Loopback endpoints are
// considered to be Localnet, public endpoints are matched by their host.
// Unknown endpoints are reported as Localnet, custom validators mostly are.
func FromURL(endpoint string) Cluster {
	u, err := url.Parse(endpoint)
	if err != nil {
		return Localnet
	}
	host := u.Hostname()
	switch {
	case strings.Contains(host, "devnet"):
		return Devnet
	case strings.Contains(host, "testnet"):
		return Testnet
	case strings.Contains(host, "mainnet"):
		return Mainnet
	}
	return Localnet
}

// String implements the fmt.Stringer interface.
func (c Cluster) String() string {
	return string(c)
}

// RPCURL returns the default HTTP JSON-RPC endpoint of the cluster.
func (c Cluster) RPCURL() string {
	switch c {
	case Devnet:
		return rpc.DevNet_RPC
	case Testnet:
		return rpc.TestNet_RPC
	case Mainnet:
		return rpc.MainNetBeta_RPC
	default:
		return rpc.LocalNet_RPC
	}
}

// WSURL derives the websocket (PubSub) endpoint from an HTTP JSON-RPC one.
// Solana validators serve PubSub on the RPC port + 1 unless a proxy hides
// the port, so explicit ports are incremented and implicit ones are kept.
func WSURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if port := u.Port(); port != "" {
		p, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return "", fmt.Errorf("bad port %q: %w", port, err)
		}
		u.Host = net.JoinHostPort(u.Hostname(), strconv.FormatUint(p+1, 10))
	}
	return u.String(), nil
}
