// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smukherj1/srm/internal/issue"
)

func newRegisterCommand(app *App, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register <name>...",
		Short: "Validate resources and record them in the catalog",
		Long: `Check that each named resource has a definition that loads, then record
its name, definition path and kind in the resource catalog at db_path.
Registering a name again refreshes its record.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, app, root, args)
		},
	}
}

func runRegister(cmd *cobra.Command, app *App, root *rootOptions, args []string) (err error) {
	names, err := parseNames(args)
	if err != nil {
		return app.fail(cmd, root, err)
	}

	s, err := app.openSession(cmd.Context(), root)
	if err != nil {
		return app.fail(cmd, root, err)
	}

	cat, err := s.OpenCatalog(cmd.Context())
	if err != nil {
		return app.fail(cmd, root, err)
	}
	defer func() {
		if closeErr := cat.Close(); closeErr != nil && err == nil {
			err = app.fail(cmd, root, issue.WrapWithOperation(closeErr, "close resource catalog"))
		}
	}()

	records, regErr := s.Register(cmd.Context(), cat, names)
	for _, rec := range records {
		fmt.Fprintf(app.stdout, "%s %s %s\n", SuccessStyle.Render("registered"), TitleStyle.Render(rec.Name.String()), SubtitleStyle.Render(rec.DefinitionPath.String()))
	}
	if regErr != nil {
		return app.fail(cmd, root, regErr)
	}
	return nil
}
