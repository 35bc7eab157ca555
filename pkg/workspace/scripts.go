package workspace

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kballard/go-shellquote"
)

// ErrScriptNotFound is returned for scripts not declared in Anchor.toml.
var ErrScriptNotFound = errors.New("script not found in workspace")

// Scripts returns sorted names of [scripts] entries.
func (w *Workspace) Scripts() []string {
	names := make([]string, 0, len(w.manifest.Scripts))
	for name := range w.manifest.Scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Script returns the command line of the named script split into words the
// way a POSIX shell does it. Globs and variables are not expanded.
func (w *Workspace) Script(name string) ([]string, error) {
	line, ok := w.manifest.Scripts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}
	args, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("%w: script %s: %v", ErrBadManifest, name, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: script %s is empty", ErrBadManifest, name)
	}
	return args, nil
}
