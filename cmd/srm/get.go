// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smukherj1/srm/internal/compose"
	"github.com/smukherj1/srm/internal/env"
	"github.com/smukherj1/srm/internal/issue"
	"github.com/smukherj1/srm/internal/launch"
	"github.com/smukherj1/srm/internal/resource"
)

var errEmptyName = errors.New("resource name must not be empty")

type getOptions struct {
	dryRun bool
	shell  string
}

func newGetCommand(app *App, root *rootOptions) *cobra.Command {
	opts := &getOptions{}

	cmd := &cobra.Command{
		Use:   "get <name>...",
		Short: "Start a shell with the named resources applied",
		Long: `Apply each named resource, in order, to a copy of the current environment
and replace srm with an interactive shell running in the result.

Later resources see and override what earlier ones set. A name without a
definition is skipped with a warning; a definition that fails to load stops
srm before any shell starts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, app, root, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "compose the environment and print it instead of starting a shell")
	cmd.Flags().StringVar(&opts.shell, "shell", "", "shell to start (default is $SHELL, then bash, then sh)")

	return cmd
}

func runGet(cmd *cobra.Command, app *App, root *rootOptions, opts *getOptions, args []string) error {
	names, err := parseNames(args)
	if err != nil {
		return app.fail(cmd, root, err)
	}

	s, err := app.openSession(cmd.Context(), root)
	if err != nil {
		return app.fail(cmd, root, err)
	}

	res, err := s.Compose(cmd.Context(), names)
	if err != nil {
		return app.fail(cmd, root, err)
	}

	plan := launch.Plan{
		Env:     res.Env,
		Applied: res.Applied,
		DryRun:  opts.dryRun,
		Shell:   opts.shell,
	}
	if err := app.NewLauncher(s.Logger()).Launch(cmd.Context(), plan); err != nil {
		return app.fail(cmd, root, err)
	}

	if opts.dryRun {
		renderDryRun(app.stdout, s.Parent(), plan, res)
	}
	return nil
}

// parseNames converts arguments to resource names, rejecting blanks.
func parseNames(args []string) ([]resource.Name, error) {
	names := make([]resource.Name, 0, len(args))
	for i, arg := range args {
		if strings.TrimSpace(arg) == "" {
			return nil, issue.NewErrorContext().
				WithOperation("parse arguments").
				WithResource(fmt.Sprintf("argument %d", i+1)).
				WithSuggestion("Run 'srm avail' to list resource names").
				Wrap(errEmptyName).
				BuildError()
		}
		names = append(names, resource.Name(arg))
	}
	return names, nil
}

// renderDryRun prints the applied resources and how the shell environment
// would differ from the current one.
func renderDryRun(w io.Writer, parent *env.Snapshot, plan launch.Plan, res *compose.Result) {
	fmt.Fprintln(w, TitleStyle.Render("Dry Run"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Resources:"), joinResourceNames(res.Applied))
	if len(res.Missing) > 0 {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Skipped:"), WarningStyle.Render(joinResourceNames(res.Missing)))
	}

	final := env.FromEnviron(launch.Environ(plan))
	changed, removed := final.Diff(parent)
	slices.Sort(changed)
	slices.Sort(removed)

	if len(changed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SubtitleStyle.Render("  Set:"))
		for _, k := range changed {
			v, _ := final.Get(k)
			fmt.Fprintf(w, "    %s=%s\n", CmdStyle.Render(k), v)
		}
	}
	if len(removed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SubtitleStyle.Render("  Unset:"))
		for _, k := range removed {
			fmt.Fprintf(w, "    %s\n", CmdStyle.Render(k))
		}
	}

	fmt.Fprintln(w)
}

func joinResourceNames(names []resource.Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}
