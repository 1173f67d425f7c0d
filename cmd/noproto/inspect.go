package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/noproto-io/noproto"
	"github.com/noproto-io/noproto/schema"
)

func newInspectCmd() *cobra.Command {
	var schemaPath string
	cmd := &cobra.Command{
		Use:   "inspect <buffer-file>",
		Short: "Report a buffer's length, root pointer, and wasted bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaData, err := os.ReadFile(schemaPath)
			if err != nil {
				return err
			}
			tree, err := schema.Parse(schemaData)
			if err != nil {
				return err
			}
			bufData, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			factory := noproto.NewFactoryFromTree(tree)
			buf, err := factory.Open(bufData)
			if err != nil {
				return err
			}
			wasted, err := buf.WastedBytes()
			if err != nil {
				return err
			}
			// Open has already rejected buffers shorter than the 3-byte header.
			root := int(bufData[1])<<8 | int(bufData[2])
			fmt.Fprintf(cmd.OutOrStdout(), "length: %d bytes\nroot: %d\nwasted: %d bytes\n", len(bufData), root, wasted)
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the buffer's JSON schema")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}
