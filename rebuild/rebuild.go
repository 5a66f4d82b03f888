// Package rebuild keeps a nodeid.Holder current as the underlying database
// schema changes.
//
// A Trigger announces possible changes (an etcd watch, a Redis pub/sub
// channel, or a plain Go channel). For every event the loop builds a fresh
// Schema off to the side and swaps it into the holder only if the build
// succeeded; a failed rebuild leaves the previous schema in service.
//
//	trigger, err := rebuild.NewEtcdTrigger(rebuild.EtcdOptions{
//		Endpoints: []string{"localhost:2379"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer trigger.Close()
//
//	go rebuild.Run(ctx, trigger, holder, func(ctx context.Context) (*nodeid.Schema, error) {
//		return nodeid.Build(introspect(ctx))
//	}, rebuild.WithLogger(logger))
package rebuild

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zero-day-ai/nodeid"
)

// BuildFunc produces a new schema. It runs on the loop goroutine.
type BuildFunc func(ctx context.Context) (*nodeid.Schema, error)

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger  *slog.Logger
	onSwap  func(prev, next *nodeid.Schema)
	onError func(Event, error)
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithOnSwap registers a callback run after each successful swap. prev is nil
// when the holder was empty. Use it to release resources tied to the old
// schema once in-flight requests have drained.
func WithOnSwap(fn func(prev, next *nodeid.Schema)) Option {
	return func(c *runConfig) {
		c.onSwap = fn
	}
}

// WithOnError registers a callback run after each failed rebuild.
func WithOnError(fn func(Event, error)) Option {
	return func(c *runConfig) {
		c.onError = fn
	}
}

// Run rebuilds on every trigger event until ctx is cancelled or the trigger
// stops. It returns ctx.Err() on cancellation and nil when the trigger
// closes its channel.
func Run(ctx context.Context, trigger Trigger, holder *nodeid.Holder, build BuildFunc, opts ...Option) error {
	cfg := newRunConfig(opts)

	events, err := trigger.Events(ctx)
	if err != nil {
		return fmt.Errorf("failed to start rebuild trigger: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				cfg.logger.Info("rebuild trigger closed")
				return nil
			}
			_ = rebuildOnce(ctx, ev, holder, build, cfg)
		}
	}
}

// Once performs a single rebuild for ev and swaps the result into holder.
// On failure the holder is left untouched and the build error is returned.
func Once(ctx context.Context, ev Event, holder *nodeid.Holder, build BuildFunc, opts ...Option) error {
	return rebuildOnce(ctx, ev, holder, build, newRunConfig(opts))
}

func rebuildOnce(ctx context.Context, ev Event, holder *nodeid.Holder, build BuildFunc, cfg *runConfig) error {
	next, err := build(ctx)
	if err == nil && next == nil {
		err = errors.New("build returned no schema")
	}
	if err != nil {
		cfg.logger.Error("schema rebuild failed, keeping previous schema",
			"reason", ev.Reason,
			"revision", ev.Revision,
			"error", err)
		if cfg.onError != nil {
			cfg.onError(ev, err)
		}
		return err
	}

	prev := holder.Swap(next)
	cfg.logger.Info("schema rebuilt",
		"reason", ev.Reason,
		"revision", ev.Revision,
		"handlers", next.Registry().Len(),
		"diagnostics", len(next.Diagnostics()))

	if cfg.onSwap != nil {
		cfg.onSwap(prev, next)
	}
	return nil
}

func newRunConfig(opts []Option) *runConfig {
	cfg := &runConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}
