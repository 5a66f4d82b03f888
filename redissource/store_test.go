package redissource

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/nodeid"
	"github.com/zero-day-ai/nodeid/codec"
	"github.com/zero-day-ai/nodeid/source"
)

// setupTestStore creates a miniredis instance and returns a connected Store.
func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := New(Options{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		Prefix:         "test",
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store, mr
}

func TestNew(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)

		store, err := New(Options{URL: fmt.Sprintf("redis://%s", mr.Addr())})
		require.NoError(t, err)
		defer store.Close()

		assert.Equal(t, "nodeid:schema", store.SchemaChannel())
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := New(Options{URL: "://bad"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := New(Options{URL: fmt.Sprintf("redis://%s", addr), ConnectTimeout: 500 * time.Millisecond})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})
}

func TestKey(t *testing.T) {
	store, _ := setupTestStore(t)

	tests := []struct {
		name string
		spec source.KeySpec
		want string
	}{
		{"int", source.KeySpec{{Column: "id", Value: 42}}, `test:users:["42"]`},
		{"json number", source.KeySpec{{Column: "id", Value: json.Number("42")}}, `test:users:["42"]`},
		{"string", source.KeySpec{{Column: "id", Value: "42"}}, `test:users:["42"]`},
		{"float from plain json", source.KeySpec{{Column: "id", Value: float64(42)}}, `test:users:["42"]`},
		{"composite", source.KeySpec{{Column: "org", Value: 1}, {Column: "user", Value: "u"}}, `test:users:["1","u"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Key("users", tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPutGetDelete(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	row := source.Row{"id": 42, "email": "ada@example.com"}
	require.NoError(t, store.Put(ctx, "users", []string{"id"}, row))
	assert.True(t, mr.Exists(`test:users:["42"]`))

	spec := source.KeySpec{{Column: "id", Value: json.Number("42")}}
	got, err := store.Get(ctx, "users", spec)
	require.NoError(t, err)
	assert.Equal(t, source.Row{"id": json.Number("42"), "email": "ada@example.com"}, got)

	require.NoError(t, store.Delete(ctx, "users", spec))
	_, err = store.Get(ctx, "users", spec)
	require.ErrorIs(t, err, source.ErrRowNotFound)
}

func TestPutMissingKeyColumn(t *testing.T) {
	store, _ := setupTestStore(t)

	err := store.Put(context.Background(), "users", []string{"id"}, source.Row{"email": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"id"`)
}

func TestPutTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := New(Options{URL: fmt.Sprintf("redis://%s", mr.Addr()), TTL: time.Minute})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(context.Background(), "users", []string{"id"}, source.Row{"id": 1}))
	assert.Equal(t, time.Minute, mr.TTL(`nodeid:users:["1"]`))

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(context.Background(), "users", source.KeySpec{{Column: "id", Value: 1}})
	require.ErrorIs(t, err, source.ErrRowNotFound)
}

func TestGetCorruptRow(t *testing.T) {
	store, mr := setupTestStore(t)
	require.NoError(t, mr.Set(`test:users:["1"]`, "{not json"))

	_, err := store.Get(context.Background(), "users", source.KeySpec{{Column: "id", Value: 1}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, source.ErrRowNotFound)
}

func TestBind(t *testing.T) {
	store, _ := setupTestStore(t)

	custom := source.GetterFunc(func(context.Context, source.KeySpec) (source.Row, error) { return nil, nil })
	descriptors := []*source.Descriptor{
		{Name: "users"},
		{Name: "posts", Getter: custom},
		nil,
	}

	assert.Equal(t, 1, store.Bind(descriptors))
	assert.NotNil(t, descriptors[0].Getter)
	assert.NotNil(t, descriptors[1].Getter)
}

func TestResolveThroughSchema(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	descriptors := []*source.Descriptor{{
		Name:      "memberships",
		Shape:     &source.Shape{Name: "memberships", Columns: []string{"org_id", "user_id", "role"}},
		Uniques:   []source.Unique{{Columns: []string{"org_id", "user_id"}, IsPrimary: true}},
		Behaviors: source.NewBehaviorSet(source.BehaviorSelect, source.BehaviorNode),
	}}
	store.Bind(descriptors)

	row := source.Row{"org_id": 3, "user_id": "u9", "role": "owner"}
	require.NoError(t, store.Put(ctx, "memberships", []string{"org_id", "user_id"}, row))

	schema, err := nodeid.Build(descriptors)
	require.NoError(t, err)

	id, err := schema.NodeID(ctx, "Membership", row)
	require.NoError(t, err)

	got, err := schema.ResolveByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "owner", got["role"])

	missing, err := schema.NodeID(ctx, "Membership", source.Row{"org_id": 3, "user_id": "nobody"})
	require.NoError(t, err)
	_, err = schema.ResolveByID(ctx, missing)
	require.ErrorIs(t, err, nodeid.ErrNotFound)
}

func TestResolveIntegerKeyAcrossCodecs(t *testing.T) {
	ctx := context.Background()

	for _, codecName := range []string{codec.Base64JSONName, codec.PipeStringName} {
		t.Run(codecName, func(t *testing.T) {
			store, _ := setupTestStore(t)

			descriptors := []*source.Descriptor{{
				Name:      "users",
				Shape:     &source.Shape{Name: "users", Columns: []string{"id", "name"}},
				Uniques:   []source.Unique{{Columns: []string{"id"}, IsPrimary: true}},
				Behaviors: source.NewBehaviorSet(source.BehaviorSelect, source.BehaviorNode),
			}}
			store.Bind(descriptors)

			row := source.Row{"id": 42, "name": "ada"}
			require.NoError(t, store.Put(ctx, "users", []string{"id"}, row))

			schema, err := nodeid.Build(descriptors, nodeid.WithCodecName(codecName))
			require.NoError(t, err)

			id, err := schema.NodeID(ctx, "User", row)
			require.NoError(t, err)

			got, err := schema.ResolveByID(ctx, id)
			require.NoError(t, err, "identifier %q", id)
			assert.Equal(t, "ada", got["name"])
		})
	}
}

func TestPublishSchemaChange(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer sub.Close()
	pubsub := sub.Subscribe(ctx, store.SchemaChannel())
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, store.PublishSchemaChange(ctx, "migration 42"))

	msg, err := pubsub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test:schema", msg.Channel)
	assert.Equal(t, "migration 42", msg.Payload)
}
