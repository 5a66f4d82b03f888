package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/nodeid/health"
)

func healthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the sources file, the schema, and the configured Redis and etcd",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.v.GetDuration("timeout"))
			defer cancel()

			checks := []health.Status{health.FileCheck(a.v.GetString("sources"))}

			store, err := a.openStore()
			switch {
			case err != nil:
				checks = append(checks, health.Unhealthy("redis row store is unreachable", map[string]any{"error": err.Error()}))
			case store != nil:
				checks = append(checks, health.RedisCheck(ctx, store.Client()))
			}

			if a.cfg.Etcd != nil {
				checks = append(checks, health.EtcdCheck(ctx, a.cfg.Etcd.Endpoints))
			}

			descriptors, err := a.readDescriptors(store)
			if err == nil {
				schema, buildErr := a.buildSchema(descriptors)
				if buildErr != nil {
					checks = append(checks, health.Unhealthy("schema build failed", map[string]any{"error": buildErr.Error()}))
				} else {
					checks = append(checks, health.SchemaCheck(schema))
				}
			}
			if store != nil {
				_ = store.Close()
			}

			overall := health.Combine(checks...)
			report := struct {
				health.Status
				Checks []health.Status `json:"checks"`
			}{overall, checks}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}

			if overall.IsUnhealthy() {
				return errors.New("health: " + overall.Message)
			}
			return nil
		},
	}

	cmd.Flags().Duration("timeout", 5*time.Second, "overall check timeout")
	return cmd
}
