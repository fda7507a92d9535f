// SPDX-License-Identifier: MPL-2.0

package definition

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/smukherj1/srm/internal/resource"
)

type (
	// Services is the utility handle passed to a definition's get entry
	// point. It is also the type Go definitions see as srm.Services.
	Services interface {
		// Name returns the resource being applied.
		Name() string
		// Root returns the resource definitions directory.
		Root() string
		Debug(msg string)
		Info(msg string)
		Warn(msg string)
		// PrependPath puts dir in front of the list-valued variable key.
		PrependPath(env map[string]string, key, dir string)
		// AppendPath puts dir after the existing value of key.
		AppendPath(env map[string]string, key, dir string)
	}

	logServices struct {
		name   resource.Name
		root   string
		logger *log.Logger
	}

	servicesKey struct{}
)

// NewServices returns a Services handle for one resource that logs through logger.
func NewServices(logger *log.Logger, root string, name resource.Name) Services {
	return &logServices{
		name:   name,
		root:   root,
		logger: logger.With("resource", string(name)),
	}
}

func (s *logServices) Name() string { return string(s.name) }

func (s *logServices) Root() string { return s.root }

func (s *logServices) Debug(msg string) { s.logger.Debug(msg) }

func (s *logServices) Info(msg string) { s.logger.Info(msg) }

func (s *logServices) Warn(msg string) { s.logger.Warn(msg) }

func (s *logServices) PrependPath(env map[string]string, key, dir string) {
	if cur := env[key]; cur != "" {
		env[key] = dir + string(os.PathListSeparator) + cur
		return
	}
	env[key] = dir
}

func (s *logServices) AppendPath(env map[string]string, key, dir string) {
	if cur := env[key]; cur != "" {
		env[key] = cur + string(os.PathListSeparator) + dir
		return
	}
	env[key] = dir
}

// WithServices attaches svc to ctx so that shell builtins invoked during
// load or get can reach it.
func WithServices(ctx context.Context, svc Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, svc)
}

func servicesFrom(ctx context.Context) Services {
	if svc, ok := ctx.Value(servicesKey{}).(Services); ok {
		return svc
	}
	return NewServices(log.Default(), "", "")
}
