// Package handler holds the node identifier handlers and the registry that
// dispatches identifiers back to them.
//
// A Handler bundles four operations for one entity shape:
//
//   - Encode: row -> [identifier, key0, key1, ...]
//   - DecodeToSpec: [identifier, key0, ...] -> named key spec
//   - Match: does this tuple belong to me? (tuple[0] == identifier)
//   - Get: fetch the row for a key spec
//
// Handlers are registered through a Builder, which is frozen into an immutable
// Registry once the schema build completes:
//
//	b := handler.NewBuilder(codec.DefaultSet())
//	err := b.Register("User", handler.NewKeyedSpec(codec.Base64JSONName, "User", []string{"id"}, usersGetter))
//	reg := b.Registry()
//
//	id, _ := reg.NodeID("User", source.Row{"id": 42})   // "WyJVc2VyIiw0Ml0="
//	row, h, err := reg.Resolve(ctx, id)
//
// Resolution scans handlers in registration order and picks the first whose
// Match accepts the decoded tuple. Malformed identifiers, identifiers no
// handler claims and keys with no row all fail with ErrNotFound, so callers
// cannot probe which type names exist.
//
// A Registry can also be exported as a Manifest, which carries everything
// needed to reproduce encoding and decoding from static metadata.
package handler
