// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smukherj1/srm/internal/app/session"
	"github.com/smukherj1/srm/internal/definition"
)

func newInfoCommand(app *App, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>...",
		Short: "Show where a resource is defined and whether it loads",
		Long: `Resolve each named resource without applying it and print its definition
path, kind, shadowed definitions, whether the definition loads, and its
catalog record if it was registered.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, app, root, args)
		},
	}
}

func runInfo(cmd *cobra.Command, app *App, root *rootOptions, args []string) error {
	names, err := parseNames(args)
	if err != nil {
		return app.fail(cmd, root, err)
	}

	s, err := app.openSession(cmd.Context(), root)
	if err != nil {
		return app.fail(cmd, root, err)
	}

	cat, err := app.openExistingCatalog(cmd.Context(), s)
	if err != nil {
		return app.fail(cmd, root, err)
	}
	if cat != nil {
		defer func() { _ = cat.Close() }()
	}

	for i, name := range names {
		in, err := s.Inspect(cmd.Context(), cat, name)
		if err != nil {
			return app.fail(cmd, root, err)
		}
		if i > 0 {
			fmt.Fprintln(app.stdout)
		}
		renderInspection(app.stdout, s.Resolver().Root(), in)
	}
	return nil
}

func renderInspection(w io.Writer, root string, in session.Inspection) {
	fmt.Fprintln(w, TitleStyle.Render(in.Name.String()))

	if !in.Found {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Path:"), WarningStyle.Render("no definition under "+root))
	} else {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Path:"), CmdStyle.Render(in.Path.String()))
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Kind:"), string(in.Kind))
		for _, p := range in.Shadowed {
			fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Shadowed:"), SubtitleStyle.Render(p.String()))
		}
		if in.LoadErr != nil {
			fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Loads:"), ErrorStyle.Render("no: "+in.LoadErr.Error()))
		} else {
			fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Loads:"), SuccessStyle.Render("yes"))
		}
		if in.Delta != nil {
			renderDelta(w, in.Delta)
		}
	}

	if in.Record != nil {
		fmt.Fprintf(w, "  %s %s (%s)\n", labelStyle.Render("Registered:"),
			in.Record.RegisteredAt.Format(time.RFC3339), in.Record.DefinitionPath)
	} else {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Registered:"), SubtitleStyle.Render("no"))
	}
}

// renderDelta lists the changes of a declarative definition in the order
// they are applied.
func renderDelta(w io.Writer, d *definition.Delta) {
	if d.IsEmpty() {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Changes:"), SubtitleStyle.Render("none"))
		return
	}
	fmt.Fprintf(w, "  %s\n", labelStyle.Render("Changes:"))
	for _, name := range d.Unset {
		fmt.Fprintf(w, "    unset   %s\n", CmdStyle.Render(name))
	}
	for _, name := range slices.Sorted(maps.Keys(d.Set)) {
		fmt.Fprintf(w, "    set     %s=%s\n", CmdStyle.Render(name), d.Set[name])
	}
	for _, name := range slices.Sorted(maps.Keys(d.Prepend)) {
		fmt.Fprintf(w, "    prepend %s %s\n", CmdStyle.Render(name), strings.Join(d.Prepend[name], string(os.PathListSeparator)))
	}
	for _, name := range slices.Sorted(maps.Keys(d.Append)) {
		fmt.Fprintf(w, "    append  %s %s\n", CmdStyle.Render(name), strings.Join(d.Append[name], string(os.PathListSeparator)))
	}
}
