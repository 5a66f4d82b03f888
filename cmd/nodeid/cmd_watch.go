package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/nodeid"
	"github.com/zero-day-ai/nodeid/config"
	"github.com/zero-day-ai/nodeid/rebuild"
	"github.com/zero-day-ai/nodeid/redissource"
)

func watchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the schema whenever a schema change is announced",
		Long: "Builds the schema from --sources, then rebuilds it on every change under the " +
			"configured etcd key, or on every message on the Redis schema channel when no etcd " +
			"section is configured. A failed rebuild keeps the previous schema.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openStore()
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			if store != nil {
				defer nodeid.CloseWithLog(store, a.logger, "redis client")
			}

			trigger, closeTrigger, err := a.newTrigger(store)
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			defer closeTrigger()

			build := func(context.Context) (*nodeid.Schema, error) {
				descriptors, err := a.readDescriptors(store)
				if err != nil {
					return nil, err
				}
				return a.buildSchema(descriptors)
			}

			holder := nodeid.NewHolder(nil)
			report := func(prev, next *nodeid.Schema) {
				fmt.Fprintf(cmd.OutOrStdout(), "schema ready: %d handlers\n", next.Registry().Len())
			}

			if err := rebuild.Once(ctx, rebuild.Event{Reason: "startup"}, holder, build,
				rebuild.WithLogger(a.logger), rebuild.WithOnSwap(report)); err != nil {
				return fmt.Errorf("watch: initial build: %w", err)
			}

			err = rebuild.Run(ctx, trigger, holder, build,
				rebuild.WithLogger(a.logger), rebuild.WithOnSwap(report))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	return cmd
}

// newTrigger prefers the etcd watch and falls back to the Redis schema channel.
func (a *app) newTrigger(store *redissource.Store) (rebuild.Trigger, func(), error) {
	if e := a.cfg.Etcd; e != nil {
		t, err := rebuild.NewEtcdTrigger(rebuild.EtcdOptions{
			Endpoints:   e.Endpoints,
			Key:         e.GetKey(),
			DialTimeout: e.GetDialTimeout(),
			TLS:         etcdTLS(e.TLS),
			Logger:      a.logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return t, func() { nodeid.CloseWithLog(t, a.logger, "etcd watch") }, nil
	}

	if store != nil {
		return rebuild.NewRedisTrigger(store.Client(), store.SchemaChannel()), func() {}, nil
	}

	return nil, nil, errors.New("watch needs an etcd or redis section in nodeid.yaml")
}

func etcdTLS(t *config.TLSConfig) *rebuild.TLSOptions {
	if t == nil {
		return nil
	}
	return &rebuild.TLSOptions{
		Enabled:  t.Enabled,
		CertFile: t.CertFile,
		KeyFile:  t.KeyFile,
		CAFile:   t.CAFile,
	}
}
