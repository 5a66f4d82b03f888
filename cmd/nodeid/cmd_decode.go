package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/nodeid/handler"
	"github.com/zero-day-ai/nodeid/source"
)

type decodeOutput struct {
	Type       string         `json:"type"`
	Identifier string         `json:"identifier"`
	Keys       map[string]any `json:"keys"`
	Row        source.Row     `json:"row,omitempty"`
}

func decodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode ID",
		Short: "Print the type and key values a node identifier refers to",
		Long: "Decodes ID against the registered handlers. With --fetch the row is also " +
			"read from the configured Redis row store; this needs --sources.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, schema, cleanup, err := a.loadRegistry()
			if err != nil {
				return fmt.Errorf("decode: %w", err)
			}
			defer cleanup()

			id := args[0]
			h, spec, err := registry.Lookup(id)
			if err != nil {
				if errors.Is(err, handler.ErrNotFound) {
					return fmt.Errorf("decode: %q is not a known node identifier", id)
				}
				return fmt.Errorf("decode: %w", err)
			}

			out := decodeOutput{
				Type:       h.TypeName(),
				Identifier: h.Identifier(),
				Keys:       spec.Map(),
			}

			if a.v.GetBool("fetch") {
				if schema == nil {
					return errors.New("decode: --fetch needs --sources")
				}
				row, err := schema.ResolveByID(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("decode: %w", err)
				}
				out.Row = row
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().String("manifest", "", "read handlers from a manifest instead of --sources")
	cmd.Flags().Bool("fetch", false, "also fetch the row")
	return cmd
}
