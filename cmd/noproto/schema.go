package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noproto-io/noproto/schema"
)

func newSchemaCmd() *cobra.Command {
	var compiled bool
	cmd := &cobra.Command{
		Use:   "schema <file>",
		Short: "Print a schema tree's kinds, widths, and sortability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var tree *schema.Tree
			if compiled {
				tree, err = schema.Decompile(data)
			} else {
				tree, err = schema.Parse(data)
			}
			if err != nil {
				return err
			}
			printNode(cmd.OutOrStdout(), tree.Root, 0)
			if tree.HasAPI() {
				api := tree.API()
				if api.Version != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "api: %s %s\n", api.Name, api.Version)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "api: %s\n", api.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&compiled, "compiled", false, "read the compiled binary schema form instead of JSON")
	return cmd
}

func printNode(w io.Writer, n *schema.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	size := "var"
	if width, ok := n.FixedWidth(); ok {
		size = fmt.Sprintf("%dB", width)
	}
	sortable := ""
	if schema.IsSortableSubtree(n) {
		sortable = " sortable"
	}
	fmt.Fprintf(w, "%s%s (%s)%s\n", indent, n.Kind, size, sortable)
	for i, c := range n.Children {
		if n.Kind == schema.KindStruct {
			fmt.Fprintf(w, "%s  %s:\n", indent, n.FieldNames[i])
			printNode(w, c, depth+2)
			continue
		}
		printNode(w, c, depth+1)
	}
}
