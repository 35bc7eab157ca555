package config

import (
	"errors"
	"fmt"

	"github.com/UXDProtocol/anchor-comp/pkg/storage/dbconfig"
	"go.uber.org/zap/zapcore"
)

// ApplicationConfiguration config specific to the tool itself.
type ApplicationConfiguration struct {
	LogLevel string `yaml:"LogLevel"`
	LogPath  string `yaml:"LogPath"`
	// LogEncoding is either "console" (default) or "json".
	LogEncoding string                   `yaml:"LogEncoding"`
	Prometheus  BasicService             `yaml:"Prometheus"`
	Pprof       BasicService             `yaml:"Pprof"`
	Journal     dbconfig.DBConfiguration `yaml:"Journal"`
	Workspace   WorkspaceConfiguration   `yaml:"Workspace"`
}

// WorkspaceConfiguration points to the Anchor workspace and the program
// invoked by the integration runner.
type WorkspaceConfiguration struct {
	// Path is the directory containing Anchor.toml.
	Path string `yaml:"Path"`
	// IDLPath is the IDL directory relative to Path.
	IDLPath string `yaml:"IDLPath"`
	Program string `yaml:"Program"`
	Method  string `yaml:"Method"`
}

// Validate checks ApplicationConfiguration for internal consistency and returns
// an error if any invalid settings are found.
func (a *ApplicationConfiguration) Validate() error {
	if a.LogLevel != "" {
		if _, err := zapcore.ParseLevel(a.LogLevel); err != nil {
			return fmt.Errorf("invalid LogLevel: %w", err)
		}
	}
	switch a.LogEncoding {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid LogEncoding %q", a.LogEncoding)
	}
	switch a.Journal.Type {
	case "", dbconfig.InMemoryDB:
	case dbconfig.BoltDB:
		if a.Journal.BoltDBOptions.FilePath == "" {
			return errors.New("empty Journal.BoltDBOptions.FilePath")
		}
	case dbconfig.LevelDB:
		if a.Journal.LevelDBOptions.DataDirectoryPath == "" {
			return errors.New("empty Journal.LevelDBOptions.DataDirectoryPath")
		}
	default:
		return fmt.Errorf("unknown Journal.Type %q", a.Journal.Type)
	}
	if a.Prometheus.Enabled && len(a.Prometheus.Addresses) == 0 {
		return errors.New("Prometheus is enabled, but no Addresses given")
	}
	if a.Pprof.Enabled && len(a.Pprof.Addresses) == 0 {
		return errors.New("Pprof is enabled, but no Addresses given")
	}
	return nil
}
