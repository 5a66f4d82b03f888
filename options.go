package nodeid

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/nodeid/codec"
	"github.com/zero-day-ai/nodeid/inflect"
	"github.com/zero-day-ai/nodeid/source"
)

// Option configures a schema build.
type Option func(*buildConfig)

// buildConfig holds configuration for one Build call.
type buildConfig struct {
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	legacy     bool
	codecs     *codec.Set
	codecName  string
	inflector  inflect.Inflector
	filterExpr string
	filter     *source.Filter
	strict     bool
}

// WithLogger sets a custom logger for build diagnostics and resolution.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *buildConfig) {
		c.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer. ResolveByID records one span per call.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *buildConfig) {
		c.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter for the resolve and encode counters.
func WithMeter(meter metric.Meter) Option {
	return func(c *buildConfig) {
		c.meter = meter
	}
}

// WithLegacyTableNameIdentifiers switches identifiers to the pluralized
// original source name. Identifiers issued with and without this option are
// not interchangeable.
func WithLegacyTableNameIdentifiers(enabled bool) Option {
	return func(c *buildConfig) {
		c.legacy = enabled
	}
}

// WithCodecs replaces the available codec set. Defaults to codec.DefaultSet().
func WithCodecs(codecs *codec.Set) Option {
	return func(c *buildConfig) {
		c.codecs = codecs
	}
}

// WithCodecName selects the codec used for table handlers. Defaults to
// codec.Base64JSONName.
func WithCodecName(name string) Option {
	return func(c *buildConfig) {
		c.codecName = name
	}
}

// WithInflector sets the naming collaborator. Defaults to inflect.Default.
func WithInflector(inflector inflect.Inflector) Option {
	return func(c *buildConfig) {
		c.inflector = inflector
	}
}

// WithFilter restricts registration to sources matching a CEL expression.
// The expression is compiled by Build.
//
//	nodeid.WithFilter(`namespace == "app_public" && !("internal" in tags)`)
func WithFilter(expr string) Option {
	return func(c *buildConfig) {
		c.filterExpr = expr
	}
}

// WithStrict makes Build fail with ErrBuildFailed when registration reports
// any diagnostic, such as two sources sharing one shape.
func WithStrict(strict bool) Option {
	return func(c *buildConfig) {
		c.strict = strict
	}
}
