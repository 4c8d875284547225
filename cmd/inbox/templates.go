package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Protocol-Lattice/inbox-agent/src/prompt"
	"github.com/Protocol-Lattice/inbox-agent/src/templates"
	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

func newTemplatesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect and edit the stored prompt templates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates with their revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			for _, t := range store.List() {
				fmt.Fprintf(out, "%-28s r%-3d %s\n", t.Category, t.Revision, mutedStyle.Render(firstLine(t.Body, 60)))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <category>",
		Short: "Print one template body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			t, ok := store.Lookup(category(args[0]))
			if !ok {
				return fmt.Errorf("no template for %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Body)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <category>",
		Short: "Restore the built-in template for a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			t, err := store.Reset(cmd.Context(), category(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s reset to r%d\n", t.Category, t.Revision)
			return nil
		},
	})

	cmd.AddCommand(newTemplatesSetCommand(a))
	return cmd
}

func newTemplatesSetCommand(a *app) *cobra.Command {
	var (
		file  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "set <category>",
		Short: "Replace a template body from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if file == "" || file == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("read template: %w", err)
			}
			body := strings.TrimSpace(string(raw))
			if body == "" {
				return fmt.Errorf("template body is empty")
			}

			c := category(args[0])
			if !force {
				if err := prompt.Validate(body, templates.Family(c), nil); err != nil {
					return err
				}
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			t, err := store.Put(cmd.Context(), c, body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated to r%d\n", t.Category, t.Revision)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "file holding the new body (default stdin)")
	cmd.Flags().BoolVar(&force, "force", false, "store the body even if it uses unknown placeholders")
	return cmd
}

// category accepts both canonical keys and legacy labels.
func category(arg string) triage.Category {
	if c, ok := triage.ParseCategory(arg); ok {
		return c
	}
	return triage.Category(strings.TrimSpace(arg))
}

func firstLine(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
