package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolcall/catalog"
)

func newToolsCmd(g *globals) *cobra.Command {
	var (
		limit   int
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "tools [QUERY]",
		Short: "List or search the tool catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g.cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			if refresh {
				a.refreshRemotes(cmd.Context())
			}

			var entries []catalog.Entry
			if len(args) == 0 {
				entries = a.catalog.Tools()
			} else {
				hits, err := a.catalog.Search(args[0], limit)
				if err != nil {
					return err
				}
				for _, h := range hits {
					entries = append(entries, h.Entry)
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSOURCE\tDESCRIPTION")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.WireName, e.Source, firstLine(e.Description))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of search results")
	cmd.Flags().BoolVar(&refresh, "remote", false, "Include the tools of configured servers")
	return cmd
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
