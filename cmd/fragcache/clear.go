package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [SUBPATH]",
		Short: "Remove every cached fragment in a namespace",
		Long: "clear empties the namespace. With SUBPATH only that directory below the\n" +
			"namespace is emptied (file backend only).",
		Example: "fragcache clear -n sidebar\nfragcache clear -n pages news/2024",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(cmd.Context()) }()

			ctx := cmd.Context()
			if len(args) == 1 && args[0] != "" {
				fs, ok := a.Files(c.namespace)
				if !ok {
					return fmt.Errorf("sub-path clear requires the file backend")
				}
				if err := fs.ClearPath(ctx, args[0]); err != nil {
					return fmt.Errorf("unable to clear %s/%s: %w", c.namespace, args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s/%s\n", c.namespace, args[0])
				return nil
			}

			f, _ := a.Fragment(c.namespace)
			if err := f.Clear(ctx); err != nil {
				return fmt.Errorf("unable to clear %s: %w", c.namespace, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", c.namespace)
			return nil
		},
	}
}
