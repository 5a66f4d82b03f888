package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/nodeid/source"
)

func encodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode TYPE KEY...",
		Short: "Print the node identifier for a type and its key values",
		Long: "Key values are given in key column order. Each value is read as a JSON literal " +
			"when it parses as one (42, true, \"42\") and as a plain string otherwise.",
		Example: "  nodeid encode --sources sources.yaml User 42\n" +
			"  nodeid encode --manifest manifest.yaml Membership 3 u9",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, schema, cleanup, err := a.loadRegistry()
			if err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			defer cleanup()

			typeName, values := args[0], args[1:]
			h, ok := registry.Handler(typeName)
			if !ok {
				return fmt.Errorf("encode: unknown type %q", typeName)
			}

			columns := h.KeyColumns()
			if len(values) != len(columns) {
				return fmt.Errorf("encode: %s needs %d key values %v, got %d", typeName, len(columns), columns, len(values))
			}

			row := make(source.Row, len(columns))
			for i, col := range columns {
				row[col] = parseKeyValue(values[i])
			}

			var id string
			if schema != nil {
				id, err = schema.NodeID(cmd.Context(), typeName, row)
			} else {
				id, err = registry.NodeID(typeName, row)
			}
			if err != nil {
				return fmt.Errorf("encode: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().String("manifest", "", "read handlers from a manifest instead of --sources")
	return cmd
}

// parseKeyValue reads s as a JSON scalar, falling back to the raw string.
func parseKeyValue(s string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	switch v.(type) {
	case map[string]any, []any, nil:
		return s
	}
	return v
}
