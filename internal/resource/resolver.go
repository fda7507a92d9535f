// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
)

const (
	// DefinitionBaseName is the file name, without extension, every resource
	// definition uses.
	DefinitionBaseName = "srm_def"

	// KindShell is a POSIX shell definition.
	KindShell Kind = "sh"
	// KindGo is an interpreted Go definition.
	KindGo Kind = "go"
	// KindCUE is a declarative CUE definition.
	KindCUE Kind = "cue"
	// KindTOML is a declarative TOML definition.
	KindTOML Kind = "toml"
)

type (
	// Name identifies a resource, e.g. "gcc/7.2". It is used verbatim as a
	// path segment.
	Name string

	// Kind is the definition format, taken from the file extension.
	Kind string

	// DefinitionPath is the filesystem path of a resource definition.
	DefinitionPath string

	// Resolver finds definition files under a root directory.
	Resolver struct {
		root  string
		kinds []Kind
		// stat is swapped in tests.
		stat func(string) (fs.FileInfo, error)
	}
)

// Kinds returns the supported definition kinds in probe order.
func Kinds() []Kind {
	return []Kind{KindShell, KindGo, KindCUE, KindTOML}
}

// String returns the name as a string.
func (n Name) String() string { return string(n) }

// String returns the path as a string.
func (p DefinitionPath) String() string { return string(p) }

// Kind returns the definition kind derived from the extension.
func (p DefinitionPath) Kind() Kind {
	return Kind(strings.TrimPrefix(filepath.Ext(string(p)), "."))
}

// IsDeclarative reports whether definitions of this kind are data rather
// than executable code.
func (k Kind) IsDeclarative() bool {
	return k == KindCUE || k == KindTOML
}

// NewResolver creates a resolver rooted at the resource definitions directory.
func NewResolver(root string) *Resolver {
	return &Resolver{
		root:  root,
		kinds: Kinds(),
		stat:  os.Stat,
	}
}

// Root returns the resource definitions directory.
func (r *Resolver) Root() string { return r.root }

// Resolve returns the definition path for name. The boolean is false when no
// definition file exists; err is only set when the filesystem could not be
// inspected.
func (r *Resolver) Resolve(name Name) (DefinitionPath, bool, error) {
	for _, candidate := range r.candidates(name) {
		info, err := r.stat(candidate)
		if err != nil {
			if isAbsent(err) {
				continue
			}
			return "", false, fmt.Errorf("inspect definition %s: %w", candidate, err)
		}
		if info.IsDir() {
			continue
		}
		return DefinitionPath(candidate), true, nil
	}
	return "", false, nil
}

// Shadowed returns definition files for name that exist but lose to the
// resolved one because of probe order.
func (r *Resolver) Shadowed(name Name, resolved DefinitionPath) []DefinitionPath {
	var shadowed []DefinitionPath
	for _, candidate := range r.candidates(name) {
		if candidate == string(resolved) {
			continue
		}
		if info, err := r.stat(candidate); err == nil && !info.IsDir() {
			shadowed = append(shadowed, DefinitionPath(candidate))
		}
	}
	return shadowed
}

// List walks the root and returns every resource name that has a
// definition, sorted.
func (r *Resolver) List() ([]Name, error) {
	var names []Name
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		base := d.Name()
		ext := strings.TrimPrefix(filepath.Ext(base), ".")
		if strings.TrimSuffix(base, filepath.Ext(base)) != DefinitionBaseName || !slices.Contains(r.kinds, Kind(ext)) {
			return nil
		}
		rel, err := filepath.Rel(r.root, filepath.Dir(path))
		if err != nil || rel == "." {
			return nil //nolint:nilerr // a definition at the root has no name
		}
		name := Name(filepath.ToSlash(rel))
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list resources under %s: %w", r.root, err)
	}
	slices.Sort(names)
	return names, nil
}

// isAbsent reports whether a stat error only means the file is not there,
// e.g. a path segment of the name is a regular file or is too long.
func isAbsent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.ENOTDIR) ||
		errors.Is(err, syscall.ENAMETOOLONG)
}

func (r *Resolver) candidates(name Name) []string {
	dir := filepath.Join(r.root, string(name))
	result := make([]string, 0, len(r.kinds))
	for _, kind := range r.kinds {
		result = append(result, filepath.Join(dir, DefinitionBaseName+"."+string(kind)))
	}
	return result
}
