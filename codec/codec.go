// Package codec converts node identifier tuples to and from their opaque
// external string form.
//
// A tuple is [identifier, key0, key1, ...]. The required codec is Base64JSON,
// which renders the tuple as a JSON array and base64 encodes it:
//
//	["User",42]  <->  WyJVc2VyIiw0Ml0=
//
// Codecs are pure and safe for concurrent use.
package codec

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors returned by codecs.
var (
	// ErrMalformed indicates that an external identifier could not be decoded
	// into a non-empty tuple.
	ErrMalformed = errors.New("malformed identifier")

	// ErrUnknownCodec indicates that no codec is registered under a name.
	ErrUnknownCodec = errors.New("unknown identifier codec")

	// ErrDuplicateCodec indicates that a codec name was registered twice.
	ErrDuplicateCodec = errors.New("duplicate identifier codec")
)

// Tuple is the semantic form of a node identifier.
type Tuple []any

// Head returns the first element, which identifies the handler.
func (t Tuple) Head() any {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// Codec is a bidirectional transform between tuples and external strings.
type Codec interface {
	// Name is the stable name handlers refer to (e.g. "base64JSON").
	Name() string

	// Encode renders a tuple as an opaque string.
	Encode(t Tuple) (string, error)

	// Decode parses an opaque string. Any failure wraps ErrMalformed.
	Decode(s string) (Tuple, error)
}

// Set is a name-indexed collection of codecs. It is immutable once built.
type Set struct {
	byName map[string]Codec
}

// NewSet creates a set from codecs, rejecting duplicate names.
func NewSet(codecs ...Codec) (*Set, error) {
	s := &Set{byName: make(map[string]Codec, len(codecs))}
	for _, c := range codecs {
		if _, exists := s.byName[c.Name()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCodec, c.Name())
		}
		s.byName[c.Name()] = c
	}
	return s, nil
}

// DefaultSet returns the built-in codecs.
func DefaultSet() *Set {
	s, _ := NewSet(Base64JSON{}, PipeString{})
	return s
}

// Get returns the codec registered under name.
func (s *Set) Get(name string) (Codec, error) {
	c, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
	return c, nil
}

// Names returns the registered codec names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
