// SPDX-License-Identifier: MPL-2.0

package definition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/smukherj1/srm/internal/env"
	"github.com/smukherj1/srm/internal/resource"
)

const (
	// shellEntryPoint is the function a shell definition must define.
	shellEntryPoint = "get"
	// captureBuiltin records the exported variables after get returns.
	captureBuiltin = "__srm_capture"
)

type (
	// ShellLoader loads srm_def.sh files with the embedded POSIX interpreter.
	ShellLoader struct {
		stdout io.Writer
		stderr io.Writer
		// invoke calls get and records the resulting environment.
		invoke      *syntax.File
		captureOnly *syntax.File
	}

	shellDefinition struct {
		loader *ShellLoader
		path   resource.DefinitionPath
		// funcs are the functions declared by the top-level code.
		funcs map[string]*syntax.Stmt
		// globals are the unexported variables the top-level code left set.
		globals map[string]string
	}

	capture struct {
		done     bool
		exported map[string]string
		globals  map[string]string
	}

	captureKey struct{}
)

// shellSpecialVars are maintained by the interpreter itself and are never
// carried over from top-level code.
var shellSpecialVars = map[string]bool{
	"IFS": true, "OPTIND": true, "PWD": true, "OLDPWD": true, "HOME": true,
	"PPID": true, "RANDOM": true, "SECONDS": true, "UID": true, "EUID": true, "GID": true,
}

// interpreterOwned are read-only or computed by the interpreter.
var interpreterOwned = map[string]bool{
	"PPID": true, "RANDOM": true, "SECONDS": true, "UID": true, "EUID": true, "GID": true,
}

// NewShellLoader creates a loader whose definitions write to stdout and stderr.
func NewShellLoader(stdout, stderr io.Writer) *ShellLoader {
	return &ShellLoader{
		stdout:      stdout,
		stderr:      stderr,
		invoke:      mustParse(shellEntryPoint + "\n" + captureBuiltin + "\n"),
		captureOnly: mustParse(captureBuiltin + "\n"),
	}
}

func mustParse(src string) *syntax.File {
	f, err := syntax.NewParser().Parse(strings.NewReader(src), "srm")
	if err != nil {
		panic(fmt.Sprintf("parse %q: %v", src, err))
	}
	return f
}

// Load parses the file and runs its top-level code once. The functions and
// unexported variables it leaves behind are visible to later get calls.
func (l *ShellLoader) Load(ctx context.Context, path resource.DefinitionPath) (Definition, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	prog, err := syntax.NewParser().Parse(f, string(path))
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	runner, err := l.newRunner(os.Environ())
	if err != nil {
		return nil, err
	}
	var top capture
	ctx = context.WithValue(ctx, captureKey{}, &top)
	if err := runner.Run(ctx, prog); err != nil && !isSoftStatus(runner, err) {
		return nil, fmt.Errorf("top-level code: %w", err)
	}

	if _, ok := runner.Funcs[shellEntryPoint]; !ok {
		return nil, fmt.Errorf("%w: define a shell function named %q", ErrNoEntryPoint, shellEntryPoint)
	}

	if !runner.Exited() {
		if err := runner.Run(ctx, l.captureOnly); err != nil {
			return nil, fmt.Errorf("record top-level variables: %w", err)
		}
	}

	return &shellDefinition{
		loader:  l,
		path:    path,
		funcs:   maps.Clone(runner.Funcs),
		globals: top.globals,
	}, nil
}

func (d *shellDefinition) Kind() resource.Kind { return resource.KindShell }

func (d *shellDefinition) Path() resource.DefinitionPath { return d.path }

// Get runs the get function in a fresh interpreter seeded with snap and
// replaces snap with the exported variables visible when get returns.
func (d *shellDefinition) Get(ctx context.Context, svc Services, snap *env.Snapshot) error {
	seeded, passthrough := splitEnviron(snap)
	runner, err := d.loader.newRunner(passthrough)
	if err != nil {
		return &InvokeError{Path: d.path, Cause: err}
	}
	runner.Reset()
	if runner.Funcs == nil {
		runner.Funcs = make(map[string]*syntax.Stmt, len(d.funcs))
	}
	maps.Copy(runner.Funcs, d.funcs)

	ctx = WithServices(ctx, svc)
	if prelude := d.prelude(snap, seeded); prelude != nil {
		if err := runner.Run(ctx, prelude); err != nil && !isSoftStatus(runner, err) {
			return &InvokeError{Path: d.path, Cause: fmt.Errorf("restore top-level variables: %w", err)}
		}
	}

	var result capture
	ctx = context.WithValue(ctx, captureKey{}, &result)
	if err := runner.Run(ctx, d.loader.invoke); err != nil && !isSoftStatus(runner, err) {
		return &InvokeError{Path: d.path, Cause: err}
	}
	if !result.done {
		return &InvokeError{Path: d.path, Cause: errors.New("get exited before its environment could be captured")}
	}

	snap.Replace(result.exported)
	return nil
}

// prelude exports the seeded variables and assigns the top-level variables
// again. Globals whose names are present in snap are skipped so that a
// global never shadows an environment variable.
func (d *shellDefinition) prelude(snap *env.Snapshot, seeded []string) *syntax.File {
	var sb strings.Builder
	for _, name := range seeded {
		value, _ := snap.Get(name)
		quoted, err := syntax.Quote(value, syntax.LangBash)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "export %s=%s\n", name, quoted)
	}
	for _, name := range slices.Sorted(maps.Keys(d.globals)) {
		if _, ok := snap.Get(name); ok {
			continue
		}
		quoted, err := syntax.Quote(d.globals[name], syntax.LangBash)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "%s=%s\n", name, quoted)
	}
	if sb.Len() == 0 {
		return nil
	}
	f, err := syntax.NewParser().Parse(strings.NewReader(sb.String()), "srm-globals")
	if err != nil {
		return nil
	}
	return f
}

// splitEnviron separates the variables get may unset, which are assigned
// inside the interpreter, from those it cannot touch, which stay in the
// read-only base environment.
func splitEnviron(snap *env.Snapshot) (seeded, passthrough []string) {
	for _, name := range snap.Keys() {
		value, _ := snap.Get(name)
		_, quoteErr := syntax.Quote(value, syntax.LangBash)
		if !syntax.ValidName(name) || interpreterOwned[name] || quoteErr != nil {
			passthrough = append(passthrough, name+"="+value)
			continue
		}
		seeded = append(seeded, name)
	}
	return seeded, passthrough
}

func (l *ShellLoader) newRunner(environ []string) (*interp.Runner, error) {
	runner, err := interp.New(
		interp.Env(expand.ListEnviron(environ...)),
		interp.StdIO(nil, l.stdout, l.stderr),
		interp.ExecHandlers(builtins),
	)
	if err != nil {
		return nil, fmt.Errorf("create interpreter: %w", err)
	}
	return runner, nil
}

// isSoftStatus reports whether err is only the non-zero status of the last
// command. Such statuses are ignored; an explicit non-zero exit is not.
func isSoftStatus(runner *interp.Runner, err error) bool {
	var status interp.ExitStatus
	if !errors.As(err, &status) {
		return false
	}
	return !runner.Exited()
}

// builtins serves the srm_* commands that expose Services to shell code.
// Anything else falls through to the next handler.
func builtins(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		if len(args) == 0 {
			return next(ctx, args)
		}
		hc := interp.HandlerCtx(ctx)
		msg := strings.Join(args[1:], " ")

		switch args[0] {
		case "srm_debug":
			servicesFrom(ctx).Debug(msg)
		case "srm_info":
			servicesFrom(ctx).Info(msg)
		case "srm_warn":
			servicesFrom(ctx).Warn(msg)
		case "srm_name":
			fmt.Fprintln(hc.Stdout, servicesFrom(ctx).Name())
		case "srm_root":
			fmt.Fprintln(hc.Stdout, servicesFrom(ctx).Root())
		case captureBuiltin:
			dst, ok := ctx.Value(captureKey{}).(*capture)
			if !ok {
				return interp.NewExitStatus(1)
			}
			dst.record(hc.Env)
		default:
			return next(ctx, args)
		}
		return nil
	}
}

func (c *capture) record(environ expand.Environ) {
	c.done = true
	c.exported = make(map[string]string)
	c.globals = make(map[string]string)
	environ.Each(func(name string, vr expand.Variable) bool {
		if !vr.IsSet() {
			return true
		}
		switch {
		case vr.Exported:
			c.exported[name] = vr.String()
		case vr.Kind == expand.String && !vr.ReadOnly && !vr.Local && !shellSpecialVars[name] && syntax.ValidName(name):
			c.globals[name] = vr.Str
		}
		return true
	})
	// Each can yield a name from an outer scope before the unset that
	// hides it, so the final view decides.
	for name := range c.exported {
		if vr := environ.Get(name); !vr.IsSet() || !vr.Exported {
			delete(c.exported, name)
		}
	}
	for name := range c.globals {
		if !environ.Get(name).IsSet() {
			delete(c.globals, name)
		}
	}
}
