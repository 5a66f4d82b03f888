package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/zero-day-ai/nodeid/codec"
	"github.com/zero-day-ai/nodeid/source"
)

// Builder collects handler registrations for a single schema build.
// It is not safe for concurrent use; registration is a single-threaded pass.
type Builder struct {
	codecs   *codec.Set
	handlers []*Handler
	byType   map[string]*Handler
	frozen   bool
}

// NewBuilder creates a builder resolving codec names against codecs.
// A nil set means codec.DefaultSet().
func NewBuilder(codecs *codec.Set) *Builder {
	if codecs == nil {
		codecs = codec.DefaultSet()
	}
	return &Builder{
		codecs: codecs,
		byType: make(map[string]*Handler),
	}
}

// Register adds a handler for typeName. Registering the same type name twice
// is rejected with ErrDuplicateHandler and the first registration is kept.
func (b *Builder) Register(typeName string, spec Spec) error {
	if b.frozen {
		return ErrFrozen
	}
	if typeName == "" {
		return fmt.Errorf("%w: type name is required", ErrInvalidSpec)
	}
	if _, exists := b.byType[typeName]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, typeName)
	}
	if err := spec.validate(); err != nil {
		return fmt.Errorf("handler %s: %w", typeName, err)
	}
	c, err := b.codecs.Get(spec.CodecName)
	if err != nil {
		return fmt.Errorf("handler %s: %w", typeName, err)
	}

	h := &Handler{typeName: typeName, codec: c, spec: spec}
	b.handlers = append(b.handlers, h)
	b.byType[typeName] = h
	return nil
}

// Registry freezes the builder and returns the immutable registry. Further
// Register calls fail with ErrFrozen.
func (b *Builder) Registry() *Registry {
	b.frozen = true

	var codecOrder []codec.Codec
	seen := make(map[string]bool)
	for _, h := range b.handlers {
		if !seen[h.codec.Name()] {
			seen[h.codec.Name()] = true
			codecOrder = append(codecOrder, h.codec)
		}
	}

	return &Registry{
		codecs:   b.codecs,
		handlers: b.handlers,
		byType:   b.byType,
		inUse:    codecOrder,
	}
}

// Registry is the immutable mapping from type name to handler for one schema
// build. It is safe for concurrent use.
type Registry struct {
	codecs   *codec.Set
	handlers []*Handler
	byType   map[string]*Handler
	inUse    []codec.Codec
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int { return len(r.handlers) }

// Handlers returns the handlers in registration order.
func (r *Registry) Handlers() []*Handler {
	out := make([]*Handler, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// Handler returns the handler registered for typeName.
func (r *Registry) Handler(typeName string) (*Handler, bool) {
	h, ok := r.byType[typeName]
	return h, ok
}

// Codecs returns the codec set the registry was built with.
func (r *Registry) Codecs() *codec.Set { return r.codecs }

// NodeID returns the opaque identifier for a row of typeName.
func (r *Registry) NodeID(typeName string, row source.Row) (string, error) {
	h, ok := r.byType[typeName]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	return h.NodeID(row)
}

// Lookup decodes id and finds the handler that claims it, without fetching the
// row. Every failure is ErrNotFound.
func (r *Registry) Lookup(id string) (*Handler, source.KeySpec, error) {
	decoded := make(map[string]codec.Tuple, len(r.inUse))
	for _, c := range r.inUse {
		t, err := c.Decode(id)
		if err != nil {
			continue
		}
		decoded[c.Name()] = t
	}
	if len(decoded) == 0 {
		return nil, nil, ErrNotFound
	}

	for _, h := range r.handlers {
		t, ok := decoded[h.codec.Name()]
		if !ok || !h.Match(t) {
			continue
		}
		spec, err := h.DecodeToSpec(t)
		if err != nil {
			return nil, nil, ErrNotFound
		}
		return h, spec, nil
	}
	return nil, nil, ErrNotFound
}

// Resolve dispatches id to its handler and fetches the row.
//
// Malformed identifiers, unclaimed identifiers and getters reporting
// source.ErrRowNotFound all yield ErrNotFound. Other getter errors are
// returned wrapped so that transient failures stay distinguishable.
func (r *Registry) Resolve(ctx context.Context, id string) (source.Row, *Handler, error) {
	h, spec, err := r.Lookup(id)
	if err != nil {
		return nil, nil, err
	}

	row, err := h.Get(ctx, spec)
	if err != nil {
		if errors.Is(err, source.ErrRowNotFound) {
			return nil, h, ErrNotFound
		}
		return nil, h, fmt.Errorf("failed to fetch %s: %w", h.typeName, err)
	}
	if row == nil {
		return nil, h, ErrNotFound
	}
	return row, h, nil
}
