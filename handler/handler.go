package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/zero-day-ai/nodeid/codec"
	"github.com/zero-day-ai/nodeid/source"
)

// Sentinel errors for handler and registry operations.
var (
	// ErrNotFound is the uniform resolution failure. It covers malformed
	// identifiers, identifiers that no handler matches and keys with no row.
	ErrNotFound = errors.New("node not found")

	// ErrDuplicateHandler indicates a type name was registered twice in one build.
	ErrDuplicateHandler = errors.New("duplicate node handler")

	// ErrInvalidSpec indicates a handler spec is missing a required operation.
	ErrInvalidSpec = errors.New("invalid node handler spec")

	// ErrFrozen indicates Register was called after the registry was built.
	ErrFrozen = errors.New("node handler registry is frozen")

	// ErrUnknownType indicates NodeID was asked for an unregistered type name.
	ErrUnknownType = errors.New("unknown node type")

	// ErrMissingKeyValue indicates a row lacks a value for a key column.
	ErrMissingKeyValue = errors.New("missing key value")

	// ErrTupleArity indicates a tuple does not carry one value per key column.
	ErrTupleArity = errors.New("identifier tuple has wrong arity")
)

// Spec is the registration payload for one handler.
//
// Encode, DecodeToSpec, Match and Get are required. Identifier, KeyColumns and
// Safe are descriptive metadata used for manifests; NewKeyedSpec fills them in.
type Spec struct {
	CodecName         string
	Encode            func(row source.Row) (codec.Tuple, error)
	DecodeToSpec      func(t codec.Tuple) (source.KeySpec, error)
	Match             func(t codec.Tuple) bool
	Get               source.Getter
	DeprecationReason string

	Identifier string
	KeyColumns []string
	Safe       bool
}

func (s Spec) validate() error {
	switch {
	case s.CodecName == "":
		return fmt.Errorf("%w: codec name is required", ErrInvalidSpec)
	case s.Encode == nil:
		return fmt.Errorf("%w: encode is required", ErrInvalidSpec)
	case s.DecodeToSpec == nil:
		return fmt.Errorf("%w: decodeToSpec is required", ErrInvalidSpec)
	case s.Match == nil:
		return fmt.Errorf("%w: match is required", ErrInvalidSpec)
	case s.Get == nil:
		return fmt.Errorf("%w: get is required", ErrInvalidSpec)
	}
	return nil
}

// NewKeyedSpec builds the spec for a handler whose identifier tuple is
// [identifier, key values in keyColumns order]. When the identifier and all
// key columns are safe identifiers and there is a single key column, the
// loop-free plan is used; both plans behave identically.
func NewKeyedSpec(codecName, identifier string, keyColumns []string, getter source.Getter) Spec {
	keys := make([]string, len(keyColumns))
	copy(keys, keyColumns)

	safe := IsSafeIdentifier(identifier)
	for _, k := range keys {
		safe = safe && IsSafeIdentifier(k)
	}

	var p plan
	if safe && len(keys) == 1 {
		p = singleKeyPlan{identifier: identifier, key: keys[0]}
	} else {
		p = genericPlan{identifier: identifier, keys: keys}
	}

	return Spec{
		CodecName:    codecName,
		Encode:       p.encode,
		DecodeToSpec: p.decode,
		Match:        MatchIdentifier(identifier),
		Get:          getter,
		Identifier:   identifier,
		KeyColumns:   keys,
		Safe:         safe,
	}
}

// MatchIdentifier returns a predicate accepting tuples whose first element is
// exactly identifier.
func MatchIdentifier(identifier string) func(codec.Tuple) bool {
	return func(t codec.Tuple) bool {
		head, ok := t.Head().(string)
		return ok && head == identifier
	}
}

// Handler is a registered node identifier handler. Handlers are immutable.
type Handler struct {
	typeName string
	codec    codec.Codec
	spec     Spec
}

// TypeName is the registry key of the handler.
func (h *Handler) TypeName() string { return h.typeName }

// CodecName is the name of the codec used for external identifiers.
func (h *Handler) CodecName() string { return h.spec.CodecName }

// Identifier is the token baked into every tuple, empty for custom specs.
func (h *Handler) Identifier() string { return h.spec.Identifier }

// KeyColumns returns a copy of the key columns, nil for custom specs.
func (h *Handler) KeyColumns() []string {
	if h.spec.KeyColumns == nil {
		return nil
	}
	out := make([]string, len(h.spec.KeyColumns))
	copy(out, h.spec.KeyColumns)
	return out
}

// Safe reports whether the identifier and key columns need no escaping.
func (h *Handler) Safe() bool { return h.spec.Safe }

// DeprecationReason is documentation metadata carried from the source.
func (h *Handler) DeprecationReason() string { return h.spec.DeprecationReason }

// Encode produces the identifier tuple for row.
func (h *Handler) Encode(row source.Row) (codec.Tuple, error) {
	return h.spec.Encode(row)
}

// DecodeToSpec maps a full tuple (identifier first) back to a key spec.
func (h *Handler) DecodeToSpec(t codec.Tuple) (source.KeySpec, error) {
	return h.spec.DecodeToSpec(t)
}

// Match reports whether t belongs to this handler.
func (h *Handler) Match(t codec.Tuple) bool {
	return h.spec.Match(t)
}

// Get fetches the row for spec.
func (h *Handler) Get(ctx context.Context, spec source.KeySpec) (source.Row, error) {
	return h.spec.Get.Get(ctx, spec)
}

// NodeID encodes row and renders it with the handler's codec.
func (h *Handler) NodeID(row source.Row) (string, error) {
	t, err := h.Encode(row)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", h.typeName, err)
	}
	return h.codec.Encode(t)
}
