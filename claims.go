package nodeid

import (
	"fmt"

	"github.com/zero-day-ai/nodeid/claims"
	"github.com/zero-day-ai/nodeid/source"
)

// NewClaimsSerializer builds the claims serializer for the token shape found
// among descriptors.
//
// When jwtType is set ("namespace.name", or just "name") it selects the shape
// by name. Otherwise the single shape carrying source.BehaviorJWT is used. The
// serializer signs with secret; a missing secret is only reported when a
// token is serialized.
func NewClaimsSerializer(descriptors []*source.Descriptor, jwtType string, secret []byte, opts ...claims.Option) (*claims.Serializer, error) {
	shape, err := findClaimsShape(descriptors, jwtType)
	if err != nil {
		return nil, err
	}
	return claims.NewSerializer(shape.Columns, secret, opts...), nil
}

func findClaimsShape(descriptors []*source.Descriptor, jwtType string) (*source.Shape, error) {
	var matches []*source.Shape
	seen := make(map[*source.Shape]bool)

	for _, d := range descriptors {
		if d == nil || d.Shape == nil || seen[d.Shape] {
			continue
		}
		seen[d.Shape] = true

		var ok bool
		if jwtType != "" {
			ok = d.Shape.QualifiedName() == jwtType || d.Shape.Name == jwtType
		} else {
			ok = d.Shape.Behaviors.Has(source.BehaviorJWT)
		}
		if ok {
			matches = append(matches, d.Shape)
		}
	}

	switch len(matches) {
	case 0:
		err := NewConfigurationError("NewClaimsSerializer", ErrNoClaimsShape)
		if jwtType != "" {
			return nil, err.WithContext(map[string]any{"jwt_type": jwtType})
		}
		return nil, err
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.QualifiedName()
		}
		return nil, NewConfigurationError("NewClaimsSerializer",
			fmt.Errorf("%w: %d shapes qualify as the claims type: %v", ErrInvalidConfig, len(matches), names))
	}
}
