package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (c *cli) newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat [SUBPATH]",
		Short: "Show disk usage of a file namespace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(cmd.Context()) }()

			fs, ok := a.Files(c.namespace)
			if !ok {
				return fmt.Errorf("stat requires the file backend")
			}

			var sub string
			if len(args) == 1 {
				sub = args[0]
			}
			st, err := fs.Stats(cmd.Context(), sub)
			if err != nil {
				return err
			}

			newest := "never"
			if !st.Newest.IsZero() {
				newest = humanize.Time(st.Newest)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "namespace\t%s\n", c.namespace)
			fmt.Fprintf(tw, "dir\t%s\n", fs.Dir())
			fmt.Fprintf(tw, "files\t%s\n", humanize.Comma(int64(st.Files)))
			fmt.Fprintf(tw, "dirs\t%s\n", humanize.Comma(int64(st.Dirs)))
			fmt.Fprintf(tw, "size\t%s\n", humanize.IBytes(uint64(st.Bytes)))
			fmt.Fprintf(tw, "newest\t%s\n", newest)
			return tw.Flush()
		},
	}
}
