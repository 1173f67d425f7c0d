// Command noproto inspects NoProto schemas and buffers from the shell:
// "schema" renders a schema tree's kinds, widths, and sortability;
// "inspect" reports a buffer's size and reclaimable dead space.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "noproto",
		Short:         "Inspect NoProto schemas and buffers",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newInspectCmd())
	return root
}
