/*
Package workspace implements Anchor workspace registry: programs declared in
Anchor.toml and their IDLs built into target/idl, resolvable by name the way
anchor.workspace does it.
*/
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/UXDProtocol/anchor-comp/pkg/config/cluster"
	"github.com/UXDProtocol/anchor-comp/pkg/idl"
	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// DefaultIDLPath is the IDL directory relative to the workspace root.
const DefaultIDLPath = "target/idl"

const defaultCacheSize = 16

var (
	// ErrProgramNotFound is returned when there is no program with the given
	// name in the workspace.
	ErrProgramNotFound = errors.New("program not found in workspace")
	// ErrNoAddress is returned for programs that have no address for the
	// current cluster neither in Anchor.toml nor in IDL metadata.
	ErrNoAddress = errors.New("program address is not known")
	// ErrWrongProgramID is returned when an external program is configured
	// with an ID that doesn't match the one expected for the cluster.
	ErrWrongProgramID = errors.New("the provided program does not match the expected program ID for the cluster")
	// ErrBadManifest is returned for Anchor.toml that can't be parsed.
	ErrBadManifest = errors.New("bad Anchor.toml")
)

// Workspace is a set of programs of the Anchor project. It's safe for
// concurrent use.
type Workspace struct {
	dir      string
	idlDir   string
	cluster  cluster.Cluster
	manifest *Manifest
	cache    *lru.Cache
	log      *zap.Logger
}

// Options are workspace settings, all of them are optional.
type Options struct {
	// Cluster overrides [provider] cluster from Anchor.toml.
	Cluster cluster.Cluster
	// IDLPath is the IDL directory, relative paths are resolved against the
	// workspace root. target/idl is used by default.
	IDLPath string
	// CacheSize is the number of parsed IDLs kept in memory.
	CacheSize int
	Logger    *zap.Logger
}

// Entry is a resolved workspace program.
type Entry struct {
	// Name is the workspace name of the program (PascalCase).
	Name string
	ID   solana.PublicKey
	IDL  *idl.IDL
}

// Open opens the workspace rooted at dir (the directory containing
// Anchor.toml).
func Open(dir string, opts Options) (*Workspace, error) {
	m, err := LoadManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	return newWorkspace(dir, m, opts)
}

// Find opens the workspace containing dir looking for Anchor.toml in dir and
// its parents like anchor CLI does.
func Find(dir string, opts Options) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(abs, ManifestFile)); err == nil {
			return Open(abs, opts)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return nil, fmt.Errorf("%s not found in %s or its parents: %w", ManifestFile, dir, os.ErrNotExist)
		}
		abs = parent
	}
}

func newWorkspace(dir string, m *Manifest, opts Options) (*Workspace, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.IDLPath == "" {
		opts.IDLPath = DefaultIDLPath
	}
	if !filepath.IsAbs(opts.IDLPath) {
		opts.IDLPath = filepath.Join(dir, opts.IDLPath)
	}
	c := opts.Cluster
	if c == "" {
		var err error
		c, err = ManifestCluster(m)
		if err != nil {
			return nil, err
		}
	}
	cache, err := lru.New(opts.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Workspace{
		dir:      dir,
		idlDir:   opts.IDLPath,
		cluster:  c,
		manifest: m,
		cache:    cache,
		log:      opts.Logger,
	}, nil
}

// ManifestCluster returns the cluster of [provider] section. Custom RPC URLs
// are matched against well-known cluster hosts, localnet is used if nothing
// is set.
func ManifestCluster(m *Manifest) (cluster.Cluster, error) {
	if m.Provider.Cluster == "" {
		return cluster.Localnet, nil
	}
	c, err := cluster.Parse(m.Provider.Cluster)
	if err == nil {
		return c, nil
	}
	if strings.Contains(m.Provider.Cluster, "://") {
		return cluster.FromURL(m.Provider.Cluster), nil
	}
	return "", fmt.Errorf("%w: %w", ErrBadManifest, err)
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string {
	return w.dir
}

// Cluster returns the cluster the workspace resolves addresses for.
func (w *Workspace) Cluster() cluster.Cluster {
	return w.cluster
}

// Manifest returns parsed Anchor.toml.
func (w *Workspace) Manifest() *Manifest {
	return w.manifest
}

// Names returns workspace names of all programs known for the cluster:
// declared in Anchor.toml or having an IDL built.
func (w *Workspace) Names() ([]string, error) {
	decls, err := w.manifest.ProgramDecls(w.cluster.String())
	if err != nil {
		return nil, err
	}
	seen := make(map[string]string)
	for _, d := range decls {
		seen[idl.Normalize(d.Name)] = idl.PascalCase(d.Name)
	}
	files, err := filepath.Glob(filepath.Join(w.idlDir, "*.json"))
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		n := strings.TrimSuffix(filepath.Base(f), ".json")
		if _, ok := seen[idl.Normalize(n)]; !ok {
			seen[idl.Normalize(n)] = idl.PascalCase(n)
		}
	}
	res := make([]string, 0, len(seen))
	for _, n := range seen {
		res = append(res, n)
	}
	sort.Strings(res)
	return res, nil
}

// Program resolves program by its workspace name. AnchorMangov3,
// anchorMangov3, anchor_mangov3 and anchor-mangov3 refer to the same
// program. Program address is taken from Anchor.toml for the cluster or
// from IDL metadata.
func (w *Workspace) Program(name string) (*Entry, error) {
	decls, err := w.manifest.ProgramDecls(w.cluster.String())
	if err != nil {
		return nil, err
	}
	norm := idl.Normalize(name)
	var decl *ProgramDecl
	for i := range decls {
		if idl.Normalize(decls[i].Name) == norm {
			decl = &decls[i]
			break
		}
	}
	idlPath := filepath.Join(w.idlDir, idl.SnakeCase(name)+".json")
	if decl != nil && decl.IDL != "" {
		idlPath = decl.IDL
		if !filepath.IsAbs(idlPath) {
			idlPath = filepath.Join(w.dir, idlPath)
		}
	}
	doc, err := w.loadIDL(idlPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if decl == nil {
				return nil, fmt.Errorf("%w: %s", ErrProgramNotFound, name)
			}
			return nil, fmt.Errorf("%w: %s has no IDL at %s, run anchor build", ErrProgramNotFound, name, idlPath)
		}
		return nil, err
	}

	addr := doc.Address()
	if decl != nil {
		addr = decl.Address
	}
	if addr == "" {
		return nil, fmt.Errorf("%w: %s on %s", ErrNoAddress, name, w.cluster)
	}
	id, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return nil, fmt.Errorf("bad %s address %q: %w", name, addr, err)
	}
	if err := CheckProgramID(name, w.cluster, id); err != nil {
		return nil, err
	}
	w.log.Debug("program resolved",
		zap.String("name", name),
		zap.Stringer("id", id),
		zap.Stringer("cluster", w.cluster))
	return &Entry{Name: idl.PascalCase(name), ID: id, IDL: doc}, nil
}

func (w *Workspace) loadIDL(path string) (*idl.IDL, error) {
	if v, ok := w.cache.Get(path); ok {
		return v.(*idl.IDL), nil
	}
	doc, err := idl.Load(path)
	if err != nil {
		return nil, err
	}
	w.cache.Add(path, doc)
	return doc, nil
}

// External returns the ID of a known external program for the workspace
// cluster, Anchor.toml declarations are checked against expected IDs.
func (w *Workspace) External(name string) (solana.PublicKey, error) {
	decls, err := w.manifest.ProgramDecls(w.cluster.String())
	if err != nil {
		return solana.PublicKey{}, err
	}
	for _, d := range decls {
		if idl.Normalize(d.Name) != idl.Normalize(name) {
			continue
		}
		id, err := solana.PublicKeyFromBase58(d.Address)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("bad %s address %q: %w", name, d.Address, err)
		}
		return id, CheckProgramID(name, w.cluster, id)
	}
	id, ok := ExpectedProgramID(name, w.cluster)
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", ErrProgramNotFound, name)
	}
	return id, nil
}
