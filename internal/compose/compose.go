// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/smukherj1/srm/internal/definition"
	"github.com/smukherj1/srm/internal/env"
	"github.com/smukherj1/srm/internal/issue"
	"github.com/smukherj1/srm/internal/resource"
)

// ErrNothingApplied is returned when none of the requested names resolved.
var ErrNothingApplied = errors.New("no resources were applied")

type (
	// Resolver maps names to definition files.
	Resolver interface {
		Resolve(name resource.Name) (resource.DefinitionPath, bool, error)
		Shadowed(name resource.Name, resolved resource.DefinitionPath) []resource.DefinitionPath
		Root() string
	}

	// Loader returns loaded definitions; *definition.Cache implements it.
	Loader interface {
		Load(ctx context.Context, path resource.DefinitionPath) (definition.Definition, error)
	}

	// Composer applies resources to a copy of a parent environment.
	Composer struct {
		resolver Resolver
		loader   Loader
		logger   *log.Logger
		environ  []string
	}

	// Result is the outcome of a successful composition.
	Result struct {
		// Env is the composed environment. It shares nothing with the parent.
		Env *env.Snapshot
		// Applied lists resources in the order they were applied.
		Applied []resource.Name
		// Missing lists requested names that had no definition.
		Missing []resource.Name
	}
)

// New creates a Composer. environ is the parent environment in os.Environ
// form; it is copied on every Compose call and never modified.
func New(resolver Resolver, loader Loader, logger *log.Logger, environ []string) *Composer {
	return &Composer{
		resolver: resolver,
		loader:   loader,
		logger:   logger,
		environ:  environ,
	}
}

// Compose applies names in order, after dropping repeats. Later resources see
// and may overwrite what earlier ones set.
func (c *Composer) Compose(ctx context.Context, names []resource.Name) (*Result, error) {
	res := &Result{Env: env.FromEnviron(c.environ)}

	for _, name := range Dedup(names) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("compose canceled: %w", err)
		}

		applied, err := c.apply(ctx, name, res.Env)
		if err != nil {
			return nil, err
		}
		if !applied {
			res.Missing = append(res.Missing, name)
			continue
		}
		res.Applied = append(res.Applied, name)
	}

	if len(res.Applied) == 0 {
		return nil, issue.NewErrorContext().
			WithOperation("compose environment").
			WithIssue(issue.NothingAppliedId).
			WithSuggestion("Run 'srm avail' to list resources under " + c.resolver.Root()).
			Wrap(ErrNothingApplied).
			BuildError()
	}

	return res, nil
}

// apply resolves, loads and runs one resource against snap. It reports false
// when the resource has no definition.
func (c *Composer) apply(ctx context.Context, name resource.Name, snap *env.Snapshot) (bool, error) {
	path, ok, err := c.resolver.Resolve(name)
	if err != nil {
		return false, issue.NewErrorContext().
			WithOperation("resolve resource").
			WithResource(string(name)).
			WithSuggestion("Check the permissions of " + c.resolver.Root()).
			Wrap(err).
			BuildError()
	}
	if !ok {
		c.logger.Warn("resource not found", "name", name)
		return false, nil
	}
	if shadowed := c.resolver.Shadowed(name, path); len(shadowed) > 0 {
		c.logger.Debug("definition shadows others", "name", name, "using", path, "ignored", shadowed)
	}

	def, err := c.loader.Load(ctx, path)
	if err != nil {
		return false, issue.NewErrorContext().
			WithOperation("load resource definition").
			WithResource(string(name)).
			WithIssue(issue.DefinitionLoadFailedId).
			WithSuggestion(fmt.Sprintf("Run 'srm info %s' to check the definition", name)).
			Wrap(err).
			BuildError()
	}

	debug := c.logger.GetLevel() <= log.DebugLevel
	var before *env.Snapshot
	if debug {
		before = snap.Clone()
	}

	svc := definition.NewServices(c.logger, c.resolver.Root(), name)
	if err := def.Get(ctx, svc, snap); err != nil {
		return false, issue.NewErrorContext().
			WithOperation("apply resource").
			WithResource(string(name)).
			WithIssue(issue.DefinitionGetFailedId).
			Wrap(err).
			BuildError()
	}

	if debug {
		changed, removed := snap.Diff(before)
		c.logger.Debug("applied resource", "name", name, "kind", def.Kind(), "changed", changed, "removed", removed)
	}
	return true, nil
}

// Dedup returns names without repeats, keeping the first occurrence of each.
func Dedup(names []resource.Name) []resource.Name {
	seen := make(map[resource.Name]struct{}, len(names))
	out := make([]resource.Name, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
