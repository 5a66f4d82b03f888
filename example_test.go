package nodeid_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/zero-day-ai/nodeid"
	"github.com/zero-day-ai/nodeid/source"
)

// Helper to build descriptors with an in-memory getter
func exampleDescriptors() []*source.Descriptor {
	users := map[string]source.Row{
		"42": {"id": 42, "name": "Ada"},
	}
	getter := source.GetterFunc(func(_ context.Context, spec source.KeySpec) (source.Row, error) {
		id, _ := spec.Value("id")
		row, ok := users[fmt.Sprint(id)]
		if !ok {
			return nil, source.ErrRowNotFound
		}
		return row, nil
	})

	return []*source.Descriptor{{
		Name:      "users",
		Shape:     &source.Shape{Namespace: "app_public", Name: "users", Columns: []string{"id", "name"}},
		Uniques:   []source.Unique{{Columns: []string{"id"}, IsPrimary: true}},
		Behaviors: source.NewBehaviorSet(source.BehaviorSelect, source.BehaviorNode),
		Getter:    getter,
	}}
}

// ExampleBuild demonstrates issuing and resolving a node identifier.
func ExampleBuild() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	schema, err := nodeid.Build(exampleDescriptors(), nodeid.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	id, err := schema.NodeID(ctx, "User", source.Row{"id": 42})
	if err != nil {
		log.Fatal(err)
	}

	row, err := schema.ResolveByID(ctx, id)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(id, row["name"])

	// Output: WyJVc2VyIiw0Ml0= Ada
}

// ExampleSchema_ResolveByID demonstrates the uniform not-found outcome.
func ExampleSchema_ResolveByID() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	schema, err := nodeid.Build(exampleDescriptors(), nodeid.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}

	for _, id := range []string{"not-an-id", "WyJQb3N0IiwxXQ==", "WyJVc2VyIiw3XQ=="} {
		_, err := schema.ResolveByID(context.Background(), id)
		fmt.Println(errors.Is(err, nodeid.ErrNotFound))
	}

	// Output:
	// true
	// true
	// true
}

// ExampleWithLegacyTableNameIdentifiers shows the identifier change made by
// the compatibility option.
func ExampleWithLegacyTableNameIdentifiers() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	descriptors := exampleDescriptors()
	descriptors[0].Tags.OriginalName = "user"

	schema, err := nodeid.Build(descriptors,
		nodeid.WithLogger(logger),
		nodeid.WithLegacyTableNameIdentifiers(true),
	)
	if err != nil {
		log.Fatal(err)
	}

	id, err := schema.NodeID(context.Background(), "User", source.Row{"id": 42})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(id)

	// Output: WyJ1c2VycyIsNDJd
}
