// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smukherj1/srm/internal/resource"
)

func newAvailCommand(app *App, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "avail",
		Short: "List resources that have a definition",
		Long: `List every resource with a definition under resource_defs. Names recorded
in the resource catalog by 'srm register' are marked as registered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.openSession(cmd.Context(), root)
			if err != nil {
				return app.fail(cmd, root, err)
			}

			names, err := s.Available()
			if err != nil {
				return app.fail(cmd, root, err)
			}
			if len(names) == 0 {
				s.Logger().Warn("no resource definitions found", "resource_defs", s.Resolver().Root())
				return nil
			}

			registered := make(map[resource.Name]bool)
			cat, err := app.openExistingCatalog(cmd.Context(), s)
			if err != nil {
				return app.fail(cmd, root, err)
			}
			if cat != nil {
				defer func() { _ = cat.Close() }()
				records, err := cat.List(cmd.Context())
				if err != nil {
					return app.fail(cmd, root, err)
				}
				for _, rec := range records {
					registered[rec.Name] = true
				}
			}

			for _, n := range names {
				if registered[n] {
					fmt.Fprintf(app.stdout, "%s %s\n", n, SuccessStyle.Render("(registered)"))
					continue
				}
				fmt.Fprintln(app.stdout, n)
			}
			return nil
		},
	}
}
