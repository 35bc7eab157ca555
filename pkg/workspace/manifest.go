package workspace

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// ManifestFile is the name of Anchor workspace manifest.
const ManifestFile = "Anchor.toml"

// Manifest is a parsed Anchor.toml.
type Manifest struct {
	Provider  ProviderSection           `toml:"provider"`
	Programs  map[string]map[string]any `toml:"programs"`
	Registry  RegistrySection           `toml:"registry"`
	Workspace MembersSection            `toml:"workspace"`
	Scripts   map[string]string         `toml:"scripts"`
	Features  map[string]any            `toml:"features"`
}

// ProviderSection is the [provider] table.
type ProviderSection struct {
	// Cluster is a cluster name or an RPC URL.
	Cluster string `toml:"cluster"`
	Wallet  string `toml:"wallet"`
}

// RegistrySection is the [registry] table.
type RegistrySection struct {
	URL string `toml:"url"`
}

// MembersSection is the [workspace] table.
type MembersSection struct {
	Members []string `toml:"members"`
	Exclude []string `toml:"exclude"`
}

// ProgramDecl is a program declared in [programs.<cluster>]. Programs are
// declared either as `name = "address"` or `name = { address = "...",
// idl = "path" }`.
type ProgramDecl struct {
	Name    string
	Address string
	IDL     string
}

// ParseManifest decodes Anchor.toml contents.
func ParseManifest(data []byte) (*Manifest, error) {
	m := new(Manifest)
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadManifest, err)
	}
	return m, nil
}

// LoadManifest reads Anchor.toml from the given file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ProgramDecls returns programs declared for the given cluster section,
// sorted by name.
func (m *Manifest) ProgramDecls(section string) ([]ProgramDecl, error) {
	progs := m.Programs[section]
	res := make([]ProgramDecl, 0, len(progs))
	for name, v := range progs {
		d := ProgramDecl{Name: name}
		switch val := v.(type) {
		case string:
			d.Address = val
		case map[string]any:
			addr, ok := val["address"].(string)
			if !ok {
				return nil, fmt.Errorf("%w: program %s has no address", ErrBadManifest, name)
			}
			d.Address = addr
			d.IDL, _ = val["idl"].(string)
		default:
			return nil, fmt.Errorf("%w: program %s has unexpected %T value", ErrBadManifest, name, v)
		}
		res = append(res, d)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}
