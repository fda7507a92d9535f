// SPDX-License-Identifier: MPL-2.0

package definition

import (
	"context"
	"errors"
	"fmt"

	"github.com/smukherj1/srm/internal/env"
	"github.com/smukherj1/srm/internal/resource"
)

var (
	// ErrNoEntryPoint is returned when executable definition code loads but
	// does not provide the get entry point.
	ErrNoEntryPoint = errors.New("definition has no get entry point")
	// ErrUnsupportedKind is returned for a definition file with an unknown extension.
	ErrUnsupportedKind = errors.New("unsupported definition kind")
)

type (
	// Definition is a loaded resource definition. Get mutates snap in place.
	Definition interface {
		Kind() resource.Kind
		Path() resource.DefinitionPath
		Get(ctx context.Context, svc Services, snap *env.Snapshot) error
	}

	// Loader turns a definition file into a Definition. Loaders run the
	// definition's top-level code, if any.
	Loader interface {
		Load(ctx context.Context, path resource.DefinitionPath) (Definition, error)
	}

	// LoadError reports a definition that could not be read, parsed or run.
	LoadError struct {
		Path  resource.DefinitionPath
		Cause error
	}

	// InvokeError reports a failure inside a definition's get entry point.
	InvokeError struct {
		Path  resource.DefinitionPath
		Cause error
	}
)

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load definition %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error { return e.Cause }

// Error implements the error interface.
func (e *InvokeError) Error() string {
	return fmt.Sprintf("run get in %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *InvokeError) Unwrap() error { return e.Cause }
