package nodeid

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/zero-day-ai/nodeid/source"
)

// errNoSchema is wrapped into ErrNotFound when a Holder has nothing loaded.
var errNoSchema = errors.New("no schema loaded")

// Holder publishes the current Schema to concurrent readers. A rebuild
// produces a new Schema and swaps it in whole; requests already holding the
// previous Schema finish against it.
type Holder struct {
	current atomic.Pointer[Schema]
}

// NewHolder creates a holder publishing initial, which may be nil.
func NewHolder(initial *Schema) *Holder {
	h := &Holder{}
	if initial != nil {
		h.current.Store(initial)
	}
	return h
}

// Load returns the current schema, or nil if none was stored yet.
func (h *Holder) Load() *Schema {
	return h.current.Load()
}

// Swap publishes next and returns the schema it replaced.
func (h *Holder) Swap(next *Schema) *Schema {
	return h.current.Swap(next)
}

// ResolveByID resolves id against the current schema.
func (h *Holder) ResolveByID(ctx context.Context, id string) (source.Row, error) {
	s := h.current.Load()
	if s == nil {
		return nil, NewNotFoundError("Holder.ResolveByID", errors.Join(ErrNotFound, errNoSchema))
	}
	return s.ResolveByID(ctx, id)
}

// NodeID issues an identifier from the current schema.
func (h *Holder) NodeID(ctx context.Context, typeName string, row source.Row) (string, error) {
	s := h.current.Load()
	if s == nil {
		return "", NewNotFoundError("Holder.NodeID", errors.Join(ErrNotFound, errNoSchema))
	}
	return s.NodeID(ctx, typeName, row)
}
