package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolcall/toolname"
)

func newNameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "name",
		Short: "Encode and decode tool wire names",
	}
	cmd.AddCommand(newNameEncodeCmd(), newNameDecodeCmd())
	return cmd
}

func newNameEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode NAMESPACE OPERATION [VARIANT]",
		Short: "Print the wire name of an operation",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			variant := ""
			if len(args) == 3 {
				variant = args[2]
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), toolname.Encode(args[0], args[1], variant))
			return err
		},
	}
}

func newNameDecodeCmd() *cobra.Command {
	var manifest []string
	cmd := &cobra.Command{
		Use:   "decode NAME",
		Short: "Split a wire name and resolve a hashed operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts, ok := toolname.Parse(args[0])
			if !ok {
				return fmt.Errorf("%q is not a wire name", args[0])
			}
			op, resolved := toolname.Decode(parts.Operation, manifest)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "namespace: %s\n", parts.Namespace)
			fmt.Fprintf(w, "operation: %s\n", op)
			fmt.Fprintf(w, "variant:   %s\n", parts.Variant)
			if !resolved {
				fmt.Fprintf(w, "unresolved: no manifest entry hashes to %s\n",
					strings.TrimPrefix(parts.Operation, toolname.HashPrefix))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&manifest, "manifest", "m", nil, "Candidate operation names (comma separated)")
	return cmd
}
