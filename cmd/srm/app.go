// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/smukherj1/srm/internal/app/session"
	"github.com/smukherj1/srm/internal/catalog"
	"github.com/smukherj1/srm/internal/config"
	"github.com/smukherj1/srm/internal/env"
	"github.com/smukherj1/srm/internal/issue"
	"github.com/smukherj1/srm/internal/launch"
	"github.com/smukherj1/srm/pkg/types"
)

const logTimeFormat = "06/01/02 15:04:05"

var errInvalidLogLevel = errors.New("invalid log level")

type (
	// App wires the CLI to its dependencies. Command handlers receive an App
	// and build a per-invocation session through it.
	App struct {
		Config      config.Provider
		NewLauncher func(*log.Logger) launch.Launcher
		stdout      io.Writer
		stderr      io.Writer
		environ     []string
		homeDir     string
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config      config.Provider
		NewLauncher func(*log.Logger) launch.Launcher
		Stdout      io.Writer
		Stderr      io.Writer
		// Environ is the parent environment. Nil means os.Environ().
		Environ []string
		// HomeDir replaces os.UserHomeDir.
		HomeDir string
	}

	// rootOptions holds the persistent flags.
	rootOptions struct {
		logLevel   string
		configPath string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.NewLauncher == nil {
		deps.NewLauncher = func(l *log.Logger) launch.Launcher { return launch.NewExecLauncher(l) }
	}
	if deps.Environ == nil {
		deps.Environ = os.Environ()
	}

	return &App{
		Config:      deps.Config,
		NewLauncher: deps.NewLauncher,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
		environ:     deps.Environ,
		homeDir:     deps.HomeDir,
	}
}

// newLogger builds the logger for one invocation. Only debug and info are
// accepted, matching the --log flag.
func (a *App) newLogger(level string) (*log.Logger, error) {
	var lvl log.Level
	switch level {
	case "debug":
		lvl = log.DebugLevel
	case "info", "":
		lvl = log.InfoLevel
	default:
		return nil, fmt.Errorf("%w %q: use debug or info", errInvalidLogLevel, level)
	}
	return log.NewWithOptions(a.stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      logTimeFormat,
		Prefix:          config.AppName,
		Level:           lvl,
	}), nil
}

// openSession loads the configuration and creates the invocation session.
func (a *App) openSession(ctx context.Context, opts *rootOptions) (*session.Session, error) {
	logger, err := a.newLogger(opts.logLevel)
	if err != nil {
		return nil, err
	}

	parent := env.FromEnviron(a.environ)
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: opts.configPath,
		HomeDir:        a.homeDir,
		Getenv: func(key string) string {
			v, _ := parent.Get(key)
			return v
		},
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded", "resource_defs", cfg.ResourceDefs, "db_path", cfg.DBPath)

	return session.New(cfg, logger, session.Options{
		Environ: a.environ,
		Stdout:  a.stdout,
		Stderr:  a.stderr,
	}), nil
}

// openExistingCatalog opens the catalog at db_path only if the database
// already exists, so read-only commands never create it. A nil catalog and
// nil error mean there is nothing registered yet.
func (a *App) openExistingCatalog(ctx context.Context, s *session.Session) (*catalog.Catalog, error) {
	path := s.Config().DBPath
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.Logger().Warn("resource catalog not readable", "path", path, "error", err)
		}
		return nil, nil
	}
	return s.OpenCatalog(ctx)
}

// fail reports err on stderr and converts it to an ExitError so that
// Execute exits non-zero without cobra printing it again. Debug logging adds
// the error chain and the catalog guidance.
func (a *App) fail(cmd *cobra.Command, opts *rootOptions, err error) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	verbose := opts.logLevel == "debug"
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	var ae *issue.ActionableError
	if verbose && errors.As(err, &ae) {
		if guidance := ae.Guidance(); guidance != nil {
			if rendered, renderErr := guidance.Render("dark"); renderErr == nil {
				fmt.Fprint(a.stderr, rendered)
			}
		}
	}

	return &ExitError{Code: types.ExitFailure, Err: err}
}

// formatErrorForDisplay uses ActionableError formatting when available.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
