package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/zero-day-ai/nodeid/codec"
	"github.com/zero-day-ai/nodeid/source"
)

// ManifestVersion is the current manifest format version.
const ManifestVersion = 1

// ErrManifestVersion indicates a manifest written by an incompatible version.
var ErrManifestVersion = errors.New("unsupported manifest version")

// ManifestEntry is the static description of one keyed handler.
type ManifestEntry struct {
	TypeName          string   `json:"type_name" yaml:"type_name"`
	Codec             string   `json:"codec" yaml:"codec"`
	Identifier        string   `json:"identifier" yaml:"identifier"`
	KeyColumns        []string `json:"key_columns" yaml:"key_columns"`
	Safe              bool     `json:"safe" yaml:"safe"`
	DeprecationReason string   `json:"deprecation_reason,omitempty" yaml:"deprecation_reason,omitempty"`
}

// Manifest lists every keyed handler of a registry in registration order.
// Encoding and decoding can be reproduced from a manifest alone.
type Manifest struct {
	Version  int             `json:"version" yaml:"version"`
	Handlers []ManifestEntry `json:"handlers" yaml:"handlers"`
}

// Manifest exports the keyed handlers. Handlers registered with custom
// operations and no key metadata are left out.
func (r *Registry) Manifest() Manifest {
	m := Manifest{Version: ManifestVersion, Handlers: make([]ManifestEntry, 0, len(r.handlers))}
	for _, h := range r.handlers {
		if h.spec.Identifier == "" || len(h.spec.KeyColumns) == 0 {
			continue
		}
		m.Handlers = append(m.Handlers, ManifestEntry{
			TypeName:          h.typeName,
			Codec:             h.spec.CodecName,
			Identifier:        h.spec.Identifier,
			KeyColumns:        h.KeyColumns(),
			Safe:              h.spec.Safe,
			DeprecationReason: h.spec.DeprecationReason,
		})
	}
	return m
}

// GetterLookup supplies the row getter for a type name when rebuilding from a
// manifest. Returning nil leaves the handler unable to fetch rows.
type GetterLookup func(typeName string) source.Getter

// FromManifest rebuilds a registry from a manifest. Handlers with no getter
// from lookup still encode, decode and match; their Get reports
// source.ErrRowNotFound.
func FromManifest(m Manifest, codecs *codec.Set, lookup GetterLookup) (*Registry, error) {
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("%w: %d", ErrManifestVersion, m.Version)
	}

	b := NewBuilder(codecs)
	for _, e := range m.Handlers {
		var getter source.Getter
		if lookup != nil {
			getter = lookup(e.TypeName)
		}
		if getter == nil {
			getter = noRows
		}

		spec := NewKeyedSpec(e.Codec, e.Identifier, e.KeyColumns, getter)
		spec.DeprecationReason = e.DeprecationReason
		if err := b.Register(e.TypeName, spec); err != nil {
			return nil, err
		}
	}
	return b.Registry(), nil
}

var noRows = source.GetterFunc(func(_ context.Context, _ source.KeySpec) (source.Row, error) {
	return nil, source.ErrRowNotFound
})
