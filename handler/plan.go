package handler

import (
	"fmt"
	"go/token"

	"github.com/zero-day-ai/nodeid/codec"
	"github.com/zero-day-ai/nodeid/source"
)

// IsSafeIdentifier reports whether name can be used verbatim as an identifier
// in generated code: a letter or underscore followed by letters, digits or
// underscores, and not a keyword.
func IsSafeIdentifier(name string) bool {
	return token.IsIdentifier(name)
}

type plan interface {
	encode(row source.Row) (codec.Tuple, error)
	decode(t codec.Tuple) (source.KeySpec, error)
}

type genericPlan struct {
	identifier string
	keys       []string
}

func (p genericPlan) encode(row source.Row) (codec.Tuple, error) {
	t := make(codec.Tuple, 1, len(p.keys)+1)
	t[0] = p.identifier
	for _, k := range p.keys {
		v, ok := row[k]
		if !ok || v == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingKeyValue, k)
		}
		t = append(t, v)
	}
	return t, nil
}

func (p genericPlan) decode(t codec.Tuple) (source.KeySpec, error) {
	if len(t) != len(p.keys)+1 {
		return nil, fmt.Errorf("%w: want %d values, got %d", ErrTupleArity, len(p.keys)+1, len(t))
	}
	spec := make(source.KeySpec, len(p.keys))
	for i, k := range p.keys {
		spec[i] = source.KeyValue{Column: k, Value: t[i+1]}
	}
	return spec, nil
}

// singleKeyPlan is the common case of a safe single-column primary key.
type singleKeyPlan struct {
	identifier string
	key        string
}

func (p singleKeyPlan) encode(row source.Row) (codec.Tuple, error) {
	v, ok := row[p.key]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingKeyValue, p.key)
	}
	return codec.Tuple{p.identifier, v}, nil
}

func (p singleKeyPlan) decode(t codec.Tuple) (source.KeySpec, error) {
	if len(t) != 2 {
		return nil, fmt.Errorf("%w: want 2 values, got %d", ErrTupleArity, len(t))
	}
	return source.KeySpec{{Column: p.key, Value: t[1]}}, nil
}
