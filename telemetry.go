package nodeid

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/zero-day-ai/nodeid"

// Resolution outcomes recorded on nodeid.resolve.count.
const (
	outcomeFound    = "found"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// schemaMetrics holds the metric instruments for one schema.
// They are created once in Build and shared by every call.
type schemaMetrics struct {
	// resolveCounter increments once per ResolveByID call, by outcome
	resolveCounter metric.Int64Counter

	// encodeCounter increments once per identifier issued
	encodeCounter metric.Int64Counter
}

func defaultTracer() trace.Tracer {
	return tracenoop.NewTracerProvider().Tracer(instrumentationName)
}

func defaultMeter() metric.Meter {
	return metricnoop.NewMeterProvider().Meter(instrumentationName)
}

func newSchemaMetrics(meter metric.Meter) (*schemaMetrics, error) {
	m := &schemaMetrics{}
	var err error

	m.resolveCounter, err = meter.Int64Counter(
		"nodeid.resolve.count",
		metric.WithDescription("Number of node identifiers resolved, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create resolve counter: %w", err)
	}

	m.encodeCounter, err = meter.Int64Counter(
		"nodeid.encode.count",
		metric.WithDescription("Number of node identifiers issued"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create encode counter: %w", err)
	}

	return m, nil
}

func (m *schemaMetrics) recordResolve(ctx context.Context, outcome, typeName string) {
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if typeName != "" {
		attrs = append(attrs, attribute.String("type", typeName))
	}
	m.resolveCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *schemaMetrics) recordEncode(ctx context.Context, typeName string) {
	m.encodeCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("type", typeName)))
}
