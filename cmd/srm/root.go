// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/smukherj1/srm/internal/config"
	"github.com/smukherj1/srm/pkg/types"
)

// errMissingCommand is a usage error: srm always needs a command.
var errMissingCommand = errors.New("missing command")

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand creates the srm command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "srm",
		Short: "Software Resource Manager",
		Long: TitleStyle.Render("srm") + SubtitleStyle.Render(" - Software Resource Manager") + `

srm composes a shell environment from named resource definitions and
starts an interactive shell with it. Definitions live under the
resource_defs directory of the configuration file (default ~/.srm.json),
one directory per resource:

  <resource_defs>/<name>/srm_def.{sh,go,cue,toml}

Examples:
  srm get gcc/7.2 python/3.12
  srm get --dry-run gcc/7.2
  srm info gcc/7.2`,
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			return fmt.Errorf("%w: run 'srm list' to see the commands", errMissingCommand)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.logLevel, "log", "l", "info", "log level (debug or info)")
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default is $HOME/"+config.DefaultFileName+")")

	rootCmd.AddCommand(
		newGetCommand(app, opts),
		newInfoCommand(app, opts),
		newRegisterCommand(app, opts),
		newAvailCommand(app, opts),
		newListCommand(),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the resulting code.
func Execute() {
	app := NewApp(Dependencies{})
	err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	)
	if code := exitCode(err); !code.IsSuccess() {
		os.Exit(int(code))
	}
}

// handleError prints errors that RunE handlers did not already report.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// exitCode maps a command error to the process exit status. Errors that are
// not ExitError come from cobra itself, i.e. bad flags or arguments.
func exitCode(err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code.Validate() != nil {
			return types.ExitFailure
		}
		return exitErr.Code
	}
	return types.ExitUsage
}
