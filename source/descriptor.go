package source

import (
	"context"
	"errors"
	"strings"
)

// ErrRowNotFound is returned by getters when no row matches the key spec.
var ErrRowNotFound = errors.New("row not found")

// Row is one fetched entity instance keyed by column name.
type Row map[string]any

// Getter fetches a single row by its key spec.
//
// Implementations return ErrRowNotFound (possibly wrapped) when the key does not
// exist. Cancellation and retries are the getter's business; the caller only
// forwards its context.
type Getter interface {
	Get(ctx context.Context, spec KeySpec) (Row, error)
}

// GetterFunc adapts a function to the Getter interface.
type GetterFunc func(ctx context.Context, spec KeySpec) (Row, error)

// Get calls f(ctx, spec).
func (f GetterFunc) Get(ctx context.Context, spec KeySpec) (Row, error) {
	return f(ctx, spec)
}

// Shape is the structural output type produced by one or more sources.
// Sources are grouped by *Shape identity, not by name.
type Shape struct {
	// Namespace is the schema or namespace the shape lives in (e.g. "app_public").
	Namespace string

	// Name is the raw shape name as introspected (e.g. "users").
	Name string

	// Columns lists the attribute columns of the shape in declaration order.
	Columns []string

	// IsAnonymous marks shapes without a storable identity, such as the
	// record type returned by a function.
	IsAnonymous bool

	// Behaviors declared on the shape itself (for example BehaviorJWT).
	Behaviors BehaviorSet

	// Deprecation holds the shape-level deprecation tag, if any.
	Deprecation []string
}

// QualifiedName returns "namespace.name", or just the name without a namespace.
func (s *Shape) QualifiedName() string {
	if s.Namespace == "" {
		return s.Name
	}
	return s.Namespace + "." + s.Name
}

// Unique is a unique constraint over one or more columns.
type Unique struct {
	Columns   []string
	IsPrimary bool
}

// Tags carries free-form metadata attached to a source.
type Tags struct {
	// OriginalName is the name of the underlying relation before any renaming.
	// Only consulted by the legacy identifier option.
	OriginalName string

	// Deprecated holds the source-level deprecation tag, if any.
	Deprecated []string

	// Extra holds any other tags, exposed to filter expressions.
	Extra map[string]string
}

// Descriptor is the static metadata for one entity source.
type Descriptor struct {
	Name          string
	Shape         *Shape
	HasParameters bool
	Uniques       []Unique
	Behaviors     BehaviorSet
	Tags          Tags
	Getter        Getter
}

// PrimaryKey returns the first unique marked primary.
func (d *Descriptor) PrimaryKey() (Unique, bool) {
	for _, u := range d.Uniques {
		if u.IsPrimary {
			return u, true
		}
	}
	return Unique{}, false
}

// KeyColumns returns the primary key columns, or nil without a primary key.
func (d *Descriptor) KeyColumns() []string {
	pk, ok := d.PrimaryKey()
	if !ok {
		return nil
	}
	out := make([]string, len(pk.Columns))
	copy(out, pk.Columns)
	return out
}

// IsNodeCandidate reports whether the descriptor passes the static eligibility
// checks for node identification. Having a primary key is checked separately,
// after shape grouping.
func (d *Descriptor) IsNodeCandidate() bool {
	switch {
	case d.Shape == nil:
		return false
	case d.Shape.IsAnonymous:
		return false
	case len(d.Shape.Columns) == 0:
		return false
	case d.HasParameters:
		return false
	case len(d.Uniques) == 0:
		return false
	}
	return d.Behaviors.HasAll(BehaviorSelect, BehaviorNode)
}

// JoinTag renders a multi-valued tag the way it is shown in documentation.
func JoinTag(values []string) string {
	return strings.Join(values, "\n")
}
