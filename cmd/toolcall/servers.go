package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolcall/remote"
)

func newServersCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Inspect configured MCP servers",
	}
	cmd.AddCommand(newServersListCmd(g), newServersInspectCmd(g))
	return cmd
}

func newServersListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			descs, err := g.cfg.Descriptors()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAMESPACE\tTRANSPORT\tTARGET\tALLOWED")
			for _, ns := range g.cfg.ServerNames() {
				d := descs[ns]
				allowed := remote.Validate(d, g.cfg.Capabilities()) == nil
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", ns, d.Transport(), target(d), allowed)
			}
			return w.Flush()
		},
	}
}

func target(d remote.Descriptor) string {
	switch v := d.(type) {
	case remote.StdioDescriptor:
		return v.Command
	case remote.HTTPDescriptor:
		return v.URL
	default:
		return ""
	}
}

func newServersInspectCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect NAMESPACE",
		Short: "List the tools, resources and prompts of a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g.cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			d, ok := a.dispatcher.Servers().Get(args[0])
			if !ok {
				return fmt.Errorf("unknown server %q", args[0])
			}
			m, err := a.dispatcher.ListRemoteCapabilities(cmd.Context(), d)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), m)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
