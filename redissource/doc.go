// Package redissource provides a Redis-backed row store for node resolution.
//
// Rows are stored as JSON under a key derived from the source name and the
// primary key values, so a row written with Put can be fetched by the key spec
// decoded from a node identifier.
//
// # Redis Key Schema
//
//   - <prefix>:<source>:<json key values> - String holding the JSON row
//   - <prefix>:schema - Pub/Sub channel announcing schema changes
//
// The key values are rendered as a JSON array of their text forms, so 42,
// json.Number("42") and "42" share the key ["42"]. An identifier decoded by
// the pipeString codec, which yields only strings, still finds its row.
//
// # Usage
//
//	store, err := redissource.New(redissource.Options{
//		URL:    "redis://localhost:6379",
//		Prefix: "nodeid",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	store.Bind(descriptors)
//	schema, err := nodeid.Build(descriptors)
package redissource
