package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/UXDProtocol/anchor-comp/pkg/config/cluster"
	"github.com/gagliardetto/solana-go/rpc"
)

// ProviderConfiguration holds transaction sending parameters of the
// provider. The endpoint and the wallet are never stored here, they come
// from ANCHOR_PROVIDER_URL and ANCHOR_WALLET.
type ProviderConfiguration struct {
	Cluster             cluster.Cluster    `yaml:"Cluster"`
	Commitment          rpc.CommitmentType `yaml:"Commitment"`
	PreflightCommitment rpc.CommitmentType `yaml:"PreflightCommitment"`
	SkipPreflight       bool               `yaml:"SkipPreflight"`
	// MaxRetries is passed to the node, it's the number of times the node
	// rebroadcasts the transaction. Zero means node default.
	MaxRetries     uint          `yaml:"MaxRetries"`
	RequestTimeout time.Duration `yaml:"RequestTimeout"`
	// Await makes every sent transaction to be awaited up to Commitment.
	Await        bool          `yaml:"Await"`
	PollInterval time.Duration `yaml:"PollInterval"`
	// WSEndpoint overrides the PubSub endpoint derived from the RPC one.
	WSEndpoint string `yaml:"WSEndpoint"`
	// DisableWS forces poll-based transaction awaiting.
	DisableWS bool `yaml:"DisableWS"`
}

// Validate checks ProviderConfiguration for consistency.
func (p ProviderConfiguration) Validate() error {
	if p.Cluster != "" {
		if _, err := cluster.Parse(string(p.Cluster)); err != nil {
			return err
		}
	}
	for _, c := range []rpc.CommitmentType{p.Commitment, p.PreflightCommitment} {
		switch c {
		case "", rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		default:
			return fmt.Errorf("unknown commitment %q", c)
		}
	}
	if p.RequestTimeout < 0 {
		return errors.New("negative RequestTimeout")
	}
	if p.PollInterval < 0 {
		return errors.New("negative PollInterval")
	}
	return nil
}
