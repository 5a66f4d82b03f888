package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func manifestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Print the handler manifest built from a sources file",
		Long: "Builds the schema from --sources and prints every keyed handler: type name, " +
			"identifier, codec and key columns. Registration diagnostics are logged to stderr.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptors, cleanup, err := a.loadDescriptors()
			if err != nil {
				return fmt.Errorf("manifest: %w", err)
			}
			defer cleanup()

			schema, err := a.buildSchema(descriptors)
			if err != nil {
				return fmt.Errorf("manifest: %w", err)
			}

			m := schema.Manifest()
			var out []byte
			switch format := a.v.GetString("format"); format {
			case "json":
				out, err = json.MarshalIndent(m, "", "  ")
				out = append(out, '\n')
			case "yaml", "":
				out, err = yaml.Marshal(m)
			default:
				return fmt.Errorf("manifest: unknown format %q", format)
			}
			if err != nil {
				return fmt.Errorf("manifest: marshaling: %w", err)
			}

			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().String("format", "yaml", "output format: yaml or json")
	return cmd
}
