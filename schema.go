package nodeid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/nodeid/codec"
	"github.com/zero-day-ai/nodeid/handler"
	"github.com/zero-day-ai/nodeid/inflect"
	"github.com/zero-day-ai/nodeid/source"
	"github.com/zero-day-ai/nodeid/tablenode"
)

// Schema is the result of one build: an immutable handler registry plus the
// diagnostics raised while building it. It is safe for concurrent use.
type Schema struct {
	registry    *handler.Registry
	diagnostics []tablenode.Diagnostic
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *schemaMetrics
}

// Build registers a node identifier handler for every eligible descriptor and
// returns the frozen schema.
//
// Collisions, duplicate type names and similar problems do not fail the build;
// they are logged at Warn and available from Schema.Diagnostics. Use
// WithStrict to turn them into ErrBuildFailed.
//
// Example:
//
//	schema, err := nodeid.Build(descriptors,
//	    nodeid.WithLogger(logger),
//	    nodeid.WithLegacyTableNameIdentifiers(false),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	id, err := schema.NodeID(ctx, "User", source.Row{"id": 42})
func Build(descriptors []*source.Descriptor, opts ...Option) (*Schema, error) {
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.tracer == nil {
		cfg.tracer = defaultTracer()
	}
	if cfg.meter == nil {
		cfg.meter = defaultMeter()
	}
	if cfg.codecs == nil {
		cfg.codecs = codec.DefaultSet()
	}
	if cfg.codecName == "" {
		cfg.codecName = codec.Base64JSONName
	}
	if cfg.inflector == nil {
		cfg.inflector = inflect.Default{}
	}

	if _, err := cfg.codecs.Get(cfg.codecName); err != nil {
		return nil, NewConfigurationError("Build", fmt.Errorf("%w: %v", ErrInvalidConfig, err))
	}

	if cfg.filterExpr != "" {
		f, err := source.CompileFilter(cfg.filterExpr)
		if err != nil {
			return nil, NewConfigurationError("Build", fmt.Errorf("%w: %v", ErrInvalidConfig, err))
		}
		cfg.filter = f
	}

	metrics, err := newSchemaMetrics(cfg.meter)
	if err != nil {
		return nil, NewInternalError("Build", err)
	}

	b := handler.NewBuilder(cfg.codecs)
	diags := tablenode.Register(b, descriptors, tablenode.Options{
		LegacyTableNameIdentifiers: cfg.legacy,
		CodecName:                  cfg.codecName,
		Inflector:                  cfg.inflector,
		Filter:                     cfg.filter,
		Logger:                     cfg.logger,
	})

	if cfg.strict && len(diags) > 0 {
		return nil, (&NodeIDError{
			Op:   "Build",
			Kind: KindValidation,
			Err:  fmt.Errorf("%w: %s", ErrBuildFailed, diags[0]),
		}).WithContext(map[string]any{"diagnostics": len(diags)})
	}

	reg := b.Registry()
	cfg.logger.Debug("node identifier schema built",
		"handlers", reg.Len(),
		"diagnostics", len(diags),
		"legacy_identifiers", cfg.legacy)

	return &Schema{
		registry:    reg,
		diagnostics: diags,
		logger:      cfg.logger,
		tracer:      cfg.tracer,
		metrics:     metrics,
	}, nil
}

// Registry returns the underlying handler registry.
func (s *Schema) Registry() *handler.Registry {
	return s.registry
}

// Diagnostics returns the problems reported while building the schema.
func (s *Schema) Diagnostics() []tablenode.Diagnostic {
	out := make([]tablenode.Diagnostic, len(s.diagnostics))
	copy(out, s.diagnostics)
	return out
}

// TypeNames returns the registered type names in registration order.
func (s *Schema) TypeNames() []string {
	handlers := s.registry.Handlers()
	names := make([]string, len(handlers))
	for i, h := range handlers {
		names[i] = h.TypeName()
	}
	return names
}

// Manifest exports the static handler manifest.
func (s *Schema) Manifest() handler.Manifest {
	return s.registry.Manifest()
}

// NodeID returns the opaque identifier for a row of typeName.
func (s *Schema) NodeID(ctx context.Context, typeName string, row source.Row) (string, error) {
	id, err := s.registry.NodeID(typeName, row)
	if err != nil {
		if errors.Is(err, handler.ErrUnknownType) {
			return "", NewNotFoundError("Schema.NodeID", err).WithContext(map[string]any{"type": typeName})
		}
		return "", NewValidationError("Schema.NodeID", err).WithContext(map[string]any{"type": typeName})
	}
	s.metrics.recordEncode(ctx, typeName)
	return id, nil
}

// Lookup returns the type name and key spec an identifier refers to,
// without fetching the row.
func (s *Schema) Lookup(id string) (string, source.KeySpec, error) {
	h, spec, err := s.registry.Lookup(id)
	if err != nil {
		return "", nil, NewNotFoundError("Schema.Lookup", err)
	}
	return h.TypeName(), spec, nil
}

// ResolveByID fetches the row an identifier refers to.
//
// Every identifier that cannot be resolved yields an error matching
// ErrNotFound; callers cannot tell a malformed identifier from a missing row.
// Errors from the getter itself are returned with KindFetch.
func (s *Schema) ResolveByID(ctx context.Context, id string) (source.Row, error) {
	ctx, span := s.tracer.Start(ctx, "nodeid.ResolveByID")
	defer span.End()

	row, h, err := s.registry.Resolve(ctx, id)

	var typeName string
	if h != nil {
		typeName = h.TypeName()
		span.SetAttributes(attribute.String("nodeid.type", typeName))
	}

	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
		s.metrics.recordResolve(ctx, outcomeFound, typeName)
		return row, nil

	case errors.Is(err, ErrNotFound):
		span.SetAttributes(attribute.Bool("nodeid.not_found", true))
		s.metrics.recordResolve(ctx, outcomeNotFound, typeName)
		return nil, NewNotFoundError("Schema.ResolveByID", err)

	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		s.metrics.recordResolve(ctx, outcomeError, typeName)
		s.logger.Error("failed to resolve node identifier",
			"type", typeName,
			"error", err)
		return nil, NewFetchError("Schema.ResolveByID", err).WithContext(map[string]any{"type": typeName})
	}
}
