// Package nodeid provides global object identification for a graph API backed
// by relational tables.
//
// Every entity that can be fetched by primary key gets a stable, opaque,
// globally unique identifier. The identifier encodes a type discriminator
// followed by the key values, so it can be decoded and dispatched back to the
// source that knows how to fetch the row.
//
// # Core Concepts
//
//   - Descriptors (package source): static metadata for one entity source,
//     its output shape, unique constraints, behaviors and getter.
//   - Codecs (package codec): reversible string encodings of identifier
//     tuples. The default is base64 over a JSON array.
//   - Handlers (package handler): per-type encode, decode, match and fetch
//     operations, collected into an immutable Registry.
//   - Registration (package tablenode): derives one handler per eligible
//     shape, skipping shapes that several sources expose.
//   - Claims (package claims): signs claims records into JSON Web Tokens.
//
// # Getting Started
//
// Build a schema from the descriptors produced by introspection:
//
//	schema, err := nodeid.Build(descriptors,
//		nodeid.WithLogger(logger),
//		nodeid.WithTracer(tracer),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	id, err := schema.NodeID(ctx, "User", source.Row{"id": 42})
//	// id == "WyJVc2VyIiw0Ml0="
//
//	row, err := schema.ResolveByID(ctx, id)
//	if errors.Is(err, nodeid.ErrNotFound) {
//		// malformed, unknown or missing: all look the same
//	}
//
// # Rebuilds
//
// A Schema never changes after Build. When the underlying database schema
// changes, build a new one and publish it through a Holder; package rebuild
// automates this from an etcd watch.
//
//	holder := nodeid.NewHolder(schema)
//	row, err := holder.ResolveByID(ctx, id)
//
// # Compatibility
//
// WithLegacyTableNameIdentifiers derives identifiers from the pluralized
// original table name instead of the type name. Identifiers issued under one
// setting do not resolve under the other, so the option must stay fixed for
// the lifetime of issued identifiers.
//
// # Observability
//
// ResolveByID records a "nodeid.ResolveByID" span and the
// "nodeid.resolve.count" counter (attribute outcome = found, not_found or
// error). NodeID records "nodeid.encode.count". Build diagnostics are logged
// through log/slog at Warn.
package nodeid
