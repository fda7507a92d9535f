// SPDX-License-Identifier: MPL-2.0

package definition

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/smukherj1/srm/internal/resource"
)

type (
	// Cache loads each definition at most once per canonical path and hands
	// out the same Definition on every later request. Entries are never
	// evicted. A Cache is not safe for concurrent use.
	Cache struct {
		loaders map[resource.Kind]Loader
		entries map[string]Definition
		loads   int
		hits    int
	}

	// CacheOptions configures the loaders a Cache dispatches to.
	CacheOptions struct {
		// Stdout and Stderr receive output written by definition code.
		// Nil means os.Stdout and os.Stderr.
		Stdout io.Writer
		Stderr io.Writer
		// Loaders replaces the default loader for the given kinds.
		Loaders map[resource.Kind]Loader
	}
)

// NewCache creates a cache with a loader for every supported kind.
func NewCache(opts CacheOptions) *Cache {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	loaders := map[resource.Kind]Loader{
		resource.KindShell: NewShellLoader(stdout, stderr),
		resource.KindGo:    NewGoLoader(stdout, stderr),
		resource.KindCUE:   NewCUELoader(),
		resource.KindTOML:  NewTOMLLoader(),
	}
	for kind, l := range opts.Loaders {
		loaders[kind] = l
	}

	return &Cache{
		loaders: loaders,
		entries: make(map[string]Definition),
	}
}

// Load returns the definition at path, loading it on first use. Failures are
// returned as *LoadError and are not cached.
func (c *Cache) Load(ctx context.Context, path resource.DefinitionPath) (Definition, error) {
	key, err := canonicalPath(path)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}

	if def, ok := c.entries[key]; ok {
		c.hits++
		return def, nil
	}

	// The kind comes from the requested name; a symlinked definition may
	// point at a file with another extension.
	loader, ok := c.loaders[path.Kind()]
	if !ok {
		return nil, &LoadError{Path: path, Cause: fmt.Errorf("%w: %q", ErrUnsupportedKind, path.Kind())}
	}

	canonical := resource.DefinitionPath(key)

	c.loads++
	def, err := loader.Load(ctx, canonical)
	if err != nil {
		return nil, &LoadError{Path: canonical, Cause: err}
	}

	c.entries[key] = def
	return def, nil
}

// Stats returns how many loads ran and how many requests were served from
// the cache.
func (c *Cache) Stats() (loads, hits int) {
	return c.loads, c.hits
}

// Len returns the number of cached definitions.
func (c *Cache) Len() int { return len(c.entries) }

// canonicalPath makes two spellings of the same file produce the same key:
// absolute, cleaned and, when the file exists, with symlinks resolved.
func canonicalPath(path resource.DefinitionPath) (string, error) {
	abs, err := filepath.Abs(string(path))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return filepath.Clean(abs), nil
}
