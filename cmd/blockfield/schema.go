package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/blockfield/internal/repository/schemafile"
)

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect block schema files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <globs...>",
		Short: "Validate schema files and report registration collisions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := schemafile.Files(args)
			if err != nil {
				return err
			}
			reg, err := schemafile.Load(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, b := range reg.Blocks() {
				fmt.Fprintf(out, "%s (%d attributes)\n", b.Name(), len(b.Attributes()))
			}
			fmt.Fprintf(out, "ok: %d blocks from %d files\n", reg.Len(), len(files))
			return nil
		},
	})
	return cmd
}
