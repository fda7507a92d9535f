// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/smukherj1/srm/internal/catalog"
	"github.com/smukherj1/srm/internal/compose"
	"github.com/smukherj1/srm/internal/config"
	"github.com/smukherj1/srm/internal/definition"
	"github.com/smukherj1/srm/internal/env"
	"github.com/smukherj1/srm/internal/issue"
	"github.com/smukherj1/srm/internal/resource"
)

type (
	// Options configures a Session.
	Options struct {
		// Environ is the parent environment. Nil means os.Environ().
		Environ []string
		// Stdout and Stderr receive output from definition code.
		Stdout io.Writer
		Stderr io.Writer
	}

	// Session is the context of one srm invocation.
	Session struct {
		cfg      *config.Config
		logger   *log.Logger
		resolver *resource.Resolver
		cache    *definition.Cache
		parent   *env.Snapshot
	}

	// Inspection describes what srm knows about one resource name.
	Inspection struct {
		Name     resource.Name
		Found    bool
		Path     resource.DefinitionPath
		Kind     resource.Kind
		Shadowed []resource.DefinitionPath
		// LoadErr is set when the definition exists but does not load.
		LoadErr error
		// Delta is what a declarative definition changes. It is nil for
		// executable definitions and for definitions that do not load.
		Delta *definition.Delta
		// Record is the catalog entry, if the name was registered.
		Record *catalog.Record
	}
)

// New creates a session for cfg.
func New(cfg *config.Config, logger *log.Logger, opts Options) *Session {
	parent := env.FromProcess()
	if opts.Environ != nil {
		parent = env.FromEnviron(opts.Environ)
	}
	return &Session{
		cfg:      cfg,
		logger:   logger,
		resolver: resource.NewResolver(cfg.ResourceDefs),
		cache: definition.NewCache(definition.CacheOptions{
			Stdout: opts.Stdout,
			Stderr: opts.Stderr,
		}),
		parent: parent,
	}
}

func (s *Session) Config() *config.Config { return s.cfg }

func (s *Session) Logger() *log.Logger { return s.logger }

func (s *Session) Resolver() *resource.Resolver { return s.resolver }

func (s *Session) Cache() *definition.Cache { return s.cache }

// Parent returns a fresh snapshot of the parent environment.
func (s *Session) Parent() *env.Snapshot { return s.parent.Clone() }

// Compose builds the environment for names on top of the parent environment.
func (s *Session) Compose(ctx context.Context, names []resource.Name) (*compose.Result, error) {
	res, err := compose.New(s.resolver, s.cache, s.logger, s.parent.Environ()).Compose(ctx, names)
	loads, hits := s.cache.Stats()
	s.logger.Debug("definition cache", "loads", loads, "hits", hits)
	return res, err
}

// Available lists every resource with a definition under resource_defs.
func (s *Session) Available() ([]resource.Name, error) {
	names, err := s.resolver.List()
	if err != nil {
		return nil, issue.WrapWithContext(err, "list resources", s.resolver.Root())
	}
	return names, nil
}

// Inspect resolves and loads name without applying it. A definition that
// fails to load is reported in the result, not as an error. cat may be nil.
func (s *Session) Inspect(ctx context.Context, cat *catalog.Catalog, name resource.Name) (Inspection, error) {
	in := Inspection{Name: name}

	path, ok, err := s.resolver.Resolve(name)
	if err != nil {
		return in, issue.WrapWithContext(err, "resolve resource", string(name))
	}
	if ok {
		in.Found = true
		in.Path = path
		in.Kind = path.Kind()
		in.Shadowed = s.resolver.Shadowed(name, path)
		def, err := s.cache.Load(ctx, path)
		switch {
		case err != nil:
			in.LoadErr = err
		case in.Kind.IsDeclarative():
			if delta, ok := definition.DeltaOf(def); ok {
				in.Delta = &delta
			}
		}
	}

	if cat != nil {
		rec, found, err := cat.Lookup(ctx, name)
		if err != nil {
			return in, issue.WrapWithContext(err, "read resource catalog", cat.Path())
		}
		if found {
			in.Record = &rec
		}
	}
	return in, nil
}

// Register checks that each name resolves and loads, then records it in cat.
// The first failure stops registration; names before it stay registered.
func (s *Session) Register(ctx context.Context, cat *catalog.Catalog, names []resource.Name) ([]catalog.Record, error) {
	var records []catalog.Record
	for _, name := range compose.Dedup(names) {
		path, ok, err := s.resolver.Resolve(name)
		if err != nil {
			return records, issue.WrapWithContext(err, "resolve resource", string(name))
		}
		if !ok {
			return records, issue.NewErrorContext().
				WithOperation("register resource").
				WithResource(string(name)).
				WithIssue(issue.ResourceNotFoundId).
				Wrap(fmt.Errorf("no definition under %s", s.resolver.Root())).
				BuildError()
		}
		if _, err := s.cache.Load(ctx, path); err != nil {
			return records, issue.NewErrorContext().
				WithOperation("register resource").
				WithResource(string(name)).
				WithIssue(issue.DefinitionLoadFailedId).
				Wrap(err).
				BuildError()
		}

		rec, err := cat.Register(ctx, catalog.Record{Name: name, DefinitionPath: path, Kind: path.Kind()})
		if err != nil {
			return records, issue.WrapWithContext(err, "register resource", string(name))
		}
		s.logger.Debug("registered resource", "name", name, "path", path)
		records = append(records, rec)
	}
	return records, nil
}

// OpenCatalog opens the catalog at db_path.
func (s *Session) OpenCatalog(ctx context.Context) (*catalog.Catalog, error) {
	cat, err := catalog.Open(ctx, s.cfg.DBPath)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("open resource catalog").
			WithResource(s.cfg.DBPath).
			WithIssue(issue.CatalogUnavailableId).
			Wrap(err).
			BuildError()
	}
	return cat, nil
}
