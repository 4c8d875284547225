package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

func newClassifyCommand(a *app) *cobra.Command {
	var sender string

	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Classify one email and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := a.classifier().Classify(strings.Join(args, " "), sender)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVarP(&sender, "sender", "s", "unknown@example.com", "sender address")
	return cmd
}
