// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List supported commands",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, TitleStyle.Render("Commands"))
			for _, c := range cmd.Root().Commands() {
				if !c.IsAvailableCommand() {
					continue
				}
				fmt.Fprintf(w, "  %s %s\n", CmdStyle.Width(12).Render(c.Name()), SubtitleStyle.Render(c.Short))
			}
			fmt.Fprintf(w, "  %s %s\n", CmdStyle.Width(12).Render("help"), SubtitleStyle.Render("Help about any command"))
		},
	}
}
