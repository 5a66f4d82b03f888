// Package tablenode registers a node identifier handler for every table-like
// entity shape.
//
// Register walks the entity source descriptors once, in order, and:
//
//  1. keeps the sources that can be fetched by key (IsNodeCandidate plus the
//     optional filter)
//  2. groups them by *source.Shape
//  3. skips, with a diagnostic, every shape exposed by more than one source
//  4. skips shapes whose source has no primary key
//  5. registers a keyed handler under the shape's canonical type name
//
// Nothing here aborts a build: problems become Diagnostics and the affected
// shape simply has no handler.
package tablenode

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zero-day-ai/nodeid/codec"
	"github.com/zero-day-ai/nodeid/handler"
	"github.com/zero-day-ai/nodeid/inflect"
	"github.com/zero-day-ai/nodeid/source"
)

// DiagnosticKind classifies build diagnostics.
type DiagnosticKind string

const (
	// DiagnosticShapeCollision: several sources expose the same shape.
	DiagnosticShapeCollision DiagnosticKind = "shape_collision"

	// DiagnosticDuplicateType: two shapes inflect to the same type name.
	DiagnosticDuplicateType DiagnosticKind = "duplicate_type"

	// DiagnosticFilterError: the source filter failed to evaluate.
	DiagnosticFilterError DiagnosticKind = "filter_error"

	// DiagnosticRegisterFailed: the builder rejected the handler.
	DiagnosticRegisterFailed DiagnosticKind = "register_failed"
)

// Diagnostic is a non-fatal problem found during registration.
type Diagnostic struct {
	Kind     DiagnosticKind
	Shape    string
	TypeName string
	Sources  []string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// Options controls registration.
type Options struct {
	// LegacyTableNameIdentifiers derives identifiers from the pluralized
	// original source name instead of the type name. Switching it changes
	// every identifier issued by the schema.
	LegacyTableNameIdentifiers bool

	// CodecName selects the identifier codec. Defaults to base64JSON.
	CodecName string

	// Inflector names shapes. Defaults to inflect.Default.
	Inflector inflect.Inflector

	// Filter optionally narrows the eligible sources.
	Filter *source.Filter

	// Logger receives diagnostics at Warn. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.CodecName == "" {
		out.CodecName = codec.Base64JSONName
	}
	if out.Inflector == nil {
		out.Inflector = inflect.Default{}
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

type shapeGroup struct {
	shape   *source.Shape
	sources []*source.Descriptor
}

// Register adds one handler per eligible shape to b and returns the
// diagnostics raised along the way, in discovery order.
func Register(b *handler.Builder, descriptors []*source.Descriptor, opts Options) []Diagnostic {
	o := opts.withDefaults()
	var diags []Diagnostic

	report := func(d Diagnostic) {
		diags = append(diags, d)
		o.Logger.Warn("node identifier not registered",
			"kind", string(d.Kind),
			"shape", d.Shape,
			"type", d.TypeName,
			"sources", d.Sources,
			"reason", d.Message)
	}

	var groups []*shapeGroup
	byShape := make(map[*source.Shape]*shapeGroup)

	for _, d := range descriptors {
		if d == nil || !d.IsNodeCandidate() {
			continue
		}
		ok, err := o.Filter.Match(d)
		if err != nil {
			report(Diagnostic{
				Kind:    DiagnosticFilterError,
				Shape:   d.Shape.QualifiedName(),
				Sources: []string{d.Name},
				Message: err.Error(),
			})
			continue
		}
		if !ok {
			continue
		}

		g, exists := byShape[d.Shape]
		if !exists {
			g = &shapeGroup{shape: d.Shape}
			byShape[d.Shape] = g
			groups = append(groups, g)
		}
		g.sources = append(g.sources, d)
	}

	for _, g := range groups {
		typeName := o.Inflector.TableType(g.shape)

		if len(g.sources) != 1 {
			names := make([]string, len(g.sources))
			for i, s := range g.sources {
				names[i] = s.Name
			}
			report(Diagnostic{
				Kind:     DiagnosticShapeCollision,
				Shape:    g.shape.QualifiedName(),
				TypeName: typeName,
				Sources:  names,
				Message: fmt.Sprintf("found %d sources for shape %q; node identifiers need exactly one source per shape",
					len(g.sources), g.shape.QualifiedName()),
			})
			continue
		}

		src := g.sources[0]
		pk, ok := src.PrimaryKey()
		if !ok || len(pk.Columns) == 0 {
			continue
		}

		spec := handler.NewKeyedSpec(o.CodecName, identifierFor(o, src, typeName), pk.Columns, src.Getter)
		spec.DeprecationReason = deprecationReason(g)

		if err := b.Register(typeName, spec); err != nil {
			kind := DiagnosticRegisterFailed
			if errors.Is(err, handler.ErrDuplicateHandler) {
				kind = DiagnosticDuplicateType
			}
			report(Diagnostic{
				Kind:     kind,
				Shape:    g.shape.QualifiedName(),
				TypeName: typeName,
				Sources:  []string{src.Name},
				Message:  err.Error(),
			})
		}
	}

	return diags
}

func identifierFor(o Options, src *source.Descriptor, typeName string) string {
	if o.LegacyTableNameIdentifiers && src.Tags.OriginalName != "" {
		return o.Inflector.Pluralize(src.Tags.OriginalName)
	}
	return typeName
}

func deprecationReason(g *shapeGroup) string {
	if len(g.shape.Deprecation) > 0 {
		return source.JoinTag(g.shape.Deprecation)
	}
	for _, s := range g.sources {
		if !s.HasParameters {
			return source.JoinTag(s.Tags.Deprecated)
		}
	}
	return ""
}
