// SPDX-License-Identifier: MPL-2.0

package definition

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"io"
	"os"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/smukherj1/srm/internal/env"
	"github.com/smukherj1/srm/internal/resource"
)

// goEntryPoint is the function a Go definition must declare.
const goEntryPoint = "Get"

// Symbols is the "srm" package visible to Go definitions.
var Symbols = interp.Exports{
	"srm/srm": {
		"Services": reflect.ValueOf((*Services)(nil)),
	},
}

type (
	// GoLoader loads srm_def.go files with the yaegi interpreter. Every
	// definition gets its own interpreter.
	GoLoader struct {
		stdout io.Writer
		stderr io.Writer
	}

	goDefinition struct {
		path resource.DefinitionPath
		get  reflect.Value
	}
)

var (
	servicesType = reflect.TypeOf((*Services)(nil)).Elem()
	envMapType   = reflect.TypeOf(map[string]string(nil))
)

// NewGoLoader creates a loader whose definitions write to stdout and stderr.
func NewGoLoader(stdout, stderr io.Writer) *GoLoader {
	return &GoLoader{stdout: stdout, stderr: stderr}
}

// Load evaluates the file, which runs its package-level initializers and
// init functions, and looks up Get.
func (l *GoLoader) Load(ctx context.Context, path resource.DefinitionPath) (Definition, error) {
	src, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	parsed, err := parser.ParseFile(token.NewFileSet(), string(path), src, parser.PackageClauseOnly)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	i := interp.New(interp.Options{Stdout: l.stdout, Stderr: l.stderr})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if err := i.Use(Symbols); err != nil {
		return nil, fmt.Errorf("load srm symbols: %w", err)
	}

	if _, err := i.EvalWithContext(ctx, string(src)); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	get, err := i.EvalWithContext(ctx, parsed.Name.Name+"."+goEntryPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: declare func %s(svc srm.Services, env map[string]string): %v", ErrNoEntryPoint, goEntryPoint, err)
	}
	if err := checkGoEntryPoint(get); err != nil {
		return nil, err
	}

	return &goDefinition{path: path, get: get}, nil
}

func checkGoEntryPoint(get reflect.Value) error {
	if get.Kind() != reflect.Func {
		return fmt.Errorf("%w: %s is a %s, not a function", ErrNoEntryPoint, goEntryPoint, get.Kind())
	}
	t := get.Type()
	if t.NumIn() != 2 || t.NumOut() != 0 || !servicesType.AssignableTo(t.In(0)) || t.In(1) != envMapType {
		return fmt.Errorf("%w: %s has signature %s, want func(srm.Services, map[string]string)", ErrNoEntryPoint, goEntryPoint, t)
	}
	return nil
}

func (d *goDefinition) Kind() resource.Kind { return resource.KindGo }

func (d *goDefinition) Path() resource.DefinitionPath { return d.path }

// Get calls the interpreted Get with a map copy of snap and writes the map
// back. A panic inside Get is reported as an error.
func (d *goDefinition) Get(_ context.Context, svc Services, snap *env.Snapshot) (err error) {
	vars := snap.Map()

	defer func() {
		if r := recover(); r != nil {
			err = &InvokeError{Path: d.path, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	d.get.Call([]reflect.Value{reflect.ValueOf(&svc).Elem(), reflect.ValueOf(vars)})

	snap.Replace(vars)
	return nil
}
