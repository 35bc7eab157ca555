package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/UXDProtocol/anchor-comp/pkg/config/cluster"
	"github.com/UXDProtocol/anchor-comp/pkg/storage/dbconfig"
	"github.com/gagliardetto/solana-go/rpc"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the name of the configuration file looked up in
	// the config directory.
	DefaultConfigFile = "anchor-comp.yml"
	// DefaultRequestTimeout is the default timeout for a single RPC request.
	DefaultRequestTimeout = 10 * time.Second
	// DefaultPollInterval is the default interval between signature status
	// polls, it's a bit longer than a Solana slot.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultProgram is the workspace program invoked by the integration
	// runner when nothing else is configured.
	DefaultProgram = "AnchorMangov3"
	// DefaultMethod is the instruction invoked by the integration runner.
	DefaultMethod = "initialize"
)

// Version is the version of the tool, set at build time.
var Version string

// Config top level struct representing the config for the client and
// integration runner.
type Config struct {
	ProviderConfiguration    ProviderConfiguration    `yaml:"ProviderConfiguration"`
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ProviderConfiguration: ProviderConfiguration{
			Cluster:             cluster.Localnet,
			Commitment:          rpc.CommitmentConfirmed,
			PreflightCommitment: rpc.CommitmentProcessed,
			RequestTimeout:      DefaultRequestTimeout,
			PollInterval:        DefaultPollInterval,
			Await:               true,
		},
		ApplicationConfiguration: ApplicationConfiguration{
			LogLevel: "info",
			Journal: dbconfig.DBConfiguration{
				Type: dbconfig.InMemoryDB,
			},
			Workspace: WorkspaceConfiguration{
				Path:    ".",
				IDLPath: filepath.Join("target", "idl"),
				Program: DefaultProgram,
				Method:  DefaultMethod,
			},
		},
	}
}

// Load attempts to load the config from the given directory, the file name
// is DefaultConfigFile. Relative paths inside the file are resolved against
// relativePath if it's not empty.
func Load(path string, relativePath ...string) (Config, error) {
	return LoadFile(filepath.Join(path, DefaultConfigFile), relativePath...)
}

// LoadFile loads config from the provided path. Unknown fields are not
// allowed.
func LoadFile(configPath string, relativePath ...string) (Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config '%s' doesn't exist", configPath)
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	return Parse(configData, relativePath...)
}

// Parse decodes YAML configuration on top of defaults and validates it.
func Parse(configData []byte, relativePath ...string) (Config, error) {
	config := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(configData))
	decoder.KnownFields(true)
	err := decoder.Decode(&config)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if len(relativePath) == 1 && relativePath[0] != "" {
		updateRelativePaths(relativePath[0], &config)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

// updateRelativePaths updates relative paths in the config structure based on
// the provided relative path.
func updateRelativePaths(relativePath string, config *Config) {
	updatePath := func(path *string) {
		if *path != "" && !filepath.IsAbs(*path) {
			*path = filepath.Join(relativePath, *path)
		}
	}

	updatePath(&config.ApplicationConfiguration.LogPath)
	updatePath(&config.ApplicationConfiguration.Journal.BoltDBOptions.FilePath)
	updatePath(&config.ApplicationConfiguration.Journal.LevelDBOptions.DataDirectoryPath)
	updatePath(&config.ApplicationConfiguration.Workspace.Path)
}

// Validate checks configuration consistency.
func (c Config) Validate() error {
	if err := c.ProviderConfiguration.Validate(); err != nil {
		return fmt.Errorf("invalid ProviderConfiguration: %w", err)
	}
	if err := c.ApplicationConfiguration.Validate(); err != nil {
		return fmt.Errorf("invalid ApplicationConfiguration: %w", err)
	}
	return nil
}
