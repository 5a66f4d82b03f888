// Command nodeid builds node identifier manifests, encodes and decodes
// identifiers, and signs claims tokens from the command line.
//
// Sources are described by a static sources file (see config.SourcesFile).
// Settings come from nodeid.yaml, flags, and NODEID_* environment variables,
// e.g. NODEID_SOURCES, NODEID_MANIFEST or NODEID_JWT_SECRET.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/nodeid"
	"github.com/zero-day-ai/nodeid/codec"
	"github.com/zero-day-ai/nodeid/config"
	"github.com/zero-day-ai/nodeid/handler"
	"github.com/zero-day-ai/nodeid/redissource"
	"github.com/zero-day-ai/nodeid/source"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// app is the state shared by all subcommands of one invocation.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "nodeid",
		Short:         "Global object identifiers for table-backed graph APIs",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().String("config", "", "path to nodeid.yaml (default: search from the working directory)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "text", "log format: text or json")
	root.PersistentFlags().String("sources", "", "path to a sources file")

	root.AddCommand(
		manifestCmd(a),
		encodeCmd(a),
		decodeCmd(a),
		signCmd(a),
		watchCmd(a),
		healthCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix("NODEID")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	a.logger = newLogger(cmd.ErrOrStderr(), a.v.GetString("log-level"), a.v.GetString("log-format"))

	cfg, err := loadConfig(a.v.GetString("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	return nil
}

// loadConfig reads path, or searches upward from the working directory when
// path is empty. A missing file found by searching is not an error.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, err := config.LoadFromDir(".")
	if err != nil {
		if errors.Is(err, nodeid.ErrInvalidConfig) {
			return nil, err
		}
		return &config.Config{}, nil
	}
	return cfg, nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadDescriptors reads the sources file and gives every source a getter:
// Redis when configured, otherwise one that finds no rows.
func (a *app) loadDescriptors() ([]*source.Descriptor, func(), error) {
	store, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if store != nil {
			nodeid.CloseWithLog(store, a.logger, "redis client")
		}
	}

	descriptors, err := a.readDescriptors(store)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return descriptors, cleanup, nil
}

// openStore connects to the configured Redis row store. It returns nil
// without a redis section.
func (a *app) openStore() (*redissource.Store, error) {
	if a.cfg.Redis == nil {
		return nil, nil
	}
	return redissource.New(redissource.Options{
		URL:    a.cfg.Redis.GetURL(),
		Prefix: a.cfg.Redis.GetPrefix(),
	})
}

func (a *app) readDescriptors(store *redissource.Store) ([]*source.Descriptor, error) {
	path := a.v.GetString("sources")
	if path == "" {
		return nil, errors.New("a sources file is required (--sources or NODEID_SOURCES)")
	}

	descriptors, err := config.LoadSources(path)
	if err != nil {
		return nil, err
	}

	if store != nil {
		n := store.Bind(descriptors)
		a.logger.Debug("bound sources to redis", "count", n, "prefix", a.cfg.Redis.GetPrefix())
	}
	for _, d := range descriptors {
		if d.Getter == nil {
			d.Getter = noRows
		}
	}
	return descriptors, nil
}

var noRows = source.GetterFunc(func(context.Context, source.KeySpec) (source.Row, error) {
	return nil, source.ErrRowNotFound
})

func (a *app) buildSchema(descriptors []*source.Descriptor) (*nodeid.Schema, error) {
	opts := append(a.cfg.BuildOptions(), nodeid.WithLogger(a.logger))
	return nodeid.Build(descriptors, opts...)
}

// loadRegistry returns the handler registry from --manifest when set, or
// from a schema built from the sources file. schema is nil in manifest mode.
func (a *app) loadRegistry() (*handler.Registry, *nodeid.Schema, func(), error) {
	if path := a.v.GetString("manifest"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		var m handler.Manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to parse manifest: %w", err)
		}
		registry, err := handler.FromManifest(m, codec.DefaultSet(), nil)
		if err != nil {
			return nil, nil, nil, err
		}
		return registry, nil, func() {}, nil
	}

	descriptors, cleanup, err := a.loadDescriptors()
	if err != nil {
		return nil, nil, nil, err
	}
	schema, err := a.buildSchema(descriptors)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return schema.Registry(), schema, cleanup, nil
}
