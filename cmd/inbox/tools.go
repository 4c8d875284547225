package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Protocol-Lattice/inbox-agent/src/tools"
)

func newToolsCommand(_ *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List or call the helper tools",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, t := range tools.DefaultCatalog(tools.NewCalendar()).Tools() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", t.Name(), mutedStyle.Render(t.Description()))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "run <name> [input]",
		Short: "Call a tool with the given input",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := tools.DefaultCatalog(tools.NewCalendar()).Run(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	})

	return cmd
}
