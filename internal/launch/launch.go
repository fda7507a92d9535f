// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/smukherj1/srm/internal/env"
	"github.com/smukherj1/srm/internal/issue"
	"github.com/smukherj1/srm/internal/resource"
)

const (
	// ResourcesVar lists, space separated, the resources the shell carries.
	ResourcesVar = "SRM_RESOURCES"
	// DepthVar counts nested srm shells.
	DepthVar = "SRM_DEPTH"
)

// ErrNoShell is returned when no shell candidate could be found.
var ErrNoShell = errors.New("no shell found")

// fallbackShells are tried in order when neither --shell nor SHELL is set.
var fallbackShells = []string{"bash", "sh"}

type (
	// Plan describes the shell to start.
	Plan struct {
		// Env is the composed environment.
		Env *env.Snapshot
		// Applied lists the resources in Env, in application order.
		Applied []resource.Name
		// DryRun reports the plan instead of starting the shell.
		DryRun bool
		// Shell overrides shell selection when set.
		Shell string
	}

	// Launcher starts a shell for a plan.
	Launcher interface {
		Launch(ctx context.Context, plan Plan) error
	}

	// ExecFunc replaces the current process; see unix.Exec.
	ExecFunc func(argv0 string, argv []string, envv []string) error

	// ExecLauncher starts the shell with an ExecFunc.
	ExecLauncher struct {
		logger   *log.Logger
		exec     ExecFunc
		lookPath func(string) (string, error)
	}

	// Error reports a shell that could not be started.
	Error struct {
		Shell string
		Cause error
	}
)

func (e *Error) Error() string {
	if e.Shell == "" {
		return fmt.Sprintf("start shell: %v", e.Cause)
	}
	return fmt.Sprintf("start shell %s: %v", e.Shell, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewExecLauncher returns a launcher that replaces the current process.
func NewExecLauncher(logger *log.Logger) *ExecLauncher {
	return &ExecLauncher{
		logger:   logger,
		exec:     execShell,
		lookPath: exec.LookPath,
	}
}

// WithExec returns a copy of l that calls fn instead of replacing the process.
func (l *ExecLauncher) WithExec(fn ExecFunc) *ExecLauncher {
	c := *l
	c.exec = fn
	return &c
}

// Launch selects a shell and starts it with the plan's environment. A dry run
// only logs what would start, and succeeds even when no shell is found.
func (l *ExecLauncher) Launch(ctx context.Context, plan Plan) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("launch canceled: %w", err)
	}

	shell, err := l.selectShell(plan)
	if err != nil && plan.DryRun {
		l.logger.Warn("dry run: no shell found", "error", err)
		l.logger.Info("dry run: environment composed", "resources", joinNames(plan.Applied), "shell", "none")
		return nil
	}
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("start shell").
			WithIssue(issue.ShellNotFoundId).
			WithSuggestion("Pass a shell with --shell").
			Wrap(&Error{Shell: plan.Shell, Cause: err}).
			BuildError()
	}

	if plan.DryRun {
		l.logger.Info("dry run: environment composed", "resources", joinNames(plan.Applied), "shell", shell)
		return nil
	}

	environ := Environ(plan)
	argv := []string{filepath.Base(shell)}
	l.logger.Debug("starting shell", "shell", shell, "argv", argv, "vars", len(environ))

	if err := l.exec(shell, argv, environ); err != nil {
		return issue.NewErrorContext().
			WithOperation("start shell").
			WithResource(shell).
			WithIssue(issue.LaunchFailedId).
			Wrap(&Error{Shell: shell, Cause: err}).
			BuildError()
	}
	return nil
}

// selectShell picks --shell, then SHELL from the composed environment, then
// the first fallback found on the composed PATH.
func (l *ExecLauncher) selectShell(plan Plan) (string, error) {
	pathList, _ := plan.Env.Get("PATH")
	if plan.Shell != "" {
		return l.find(plan.Shell, pathList)
	}
	if sh, ok := plan.Env.Get("SHELL"); ok && sh != "" {
		if found, err := l.find(sh, pathList); err == nil {
			return found, nil
		}
		l.logger.Warn("SHELL is not executable, falling back", "shell", sh)
	}
	for _, name := range fallbackShells {
		if found, err := l.find(name, pathList); err == nil {
			return found, nil
		}
	}
	return "", fmt.Errorf("%w: tried SHELL and %s", ErrNoShell, strings.Join(fallbackShells, ", "))
}

// find resolves name against pathList; names containing a separator are
// checked as given.
func (l *ExecLauncher) find(name, pathList string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) || pathList == "" {
		return l.lookPath(name)
	}
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			continue
		}
		if found, err := l.lookPath(filepath.Join(dir, name)); err == nil {
			return found, nil
		}
	}
	return "", fmt.Errorf("%w: %s not in PATH", ErrNoShell, name)
}

// Environ returns the plan's environment with the srm markers added:
// ResourcesVar extended with the applied names and DepthVar incremented.
func Environ(plan Plan) []string {
	snap := plan.Env.Clone()

	var carried []string
	if prev, ok := snap.Get(ResourcesVar); ok {
		carried = strings.Fields(prev)
	}
	for _, n := range plan.Applied {
		if !slices.Contains(carried, string(n)) {
			carried = append(carried, string(n))
		}
	}
	snap.Set(ResourcesVar, strings.Join(carried, " "))

	depth := 0
	if cur, ok := snap.Get(DepthVar); ok {
		if n, err := strconv.Atoi(cur); err == nil && n > 0 {
			depth = n
		}
	}
	snap.Set(DepthVar, strconv.Itoa(depth+1))

	return snap.Environ()
}

func joinNames(names []resource.Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, " ")
}
