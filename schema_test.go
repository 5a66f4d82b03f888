package nodeid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zero-day-ai/nodeid/codec"
	"github.com/zero-day-ai/nodeid/source"
	"github.com/zero-day-ai/nodeid/tablenode"
)

// memTable is an in-memory getter keyed by the fmt representation of the
// key values.
type memTable struct {
	rows map[string]source.Row
	err  error
}

func (m *memTable) Get(_ context.Context, spec source.KeySpec) (source.Row, error) {
	if m.err != nil {
		return nil, m.err
	}
	row, ok := m.rows[rowKey(spec.Values()...)]
	if !ok {
		return nil, source.ErrRowNotFound
	}
	return row, nil
}

func rowKey(vals ...any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return fmt.Sprint(parts)
}

func newDescriptor(name string, shape *source.Shape, getter source.Getter, pk ...string) *source.Descriptor {
	return &source.Descriptor{
		Name:      name,
		Shape:     shape,
		Uniques:   []source.Unique{{Columns: pk, IsPrimary: true}},
		Behaviors: source.NewBehaviorSet(source.BehaviorSelect, source.BehaviorNode),
		Getter:    getter,
	}
}

type fixture struct {
	users    *memTable
	posts    *memTable
	sessions *source.Shape
	all      []*source.Descriptor
}

func newFixture() *fixture {
	f := &fixture{
		users: &memTable{rows: map[string]source.Row{
			rowKey(1): {"id": 1, "email": "ada@example.com"},
		}},
		posts: &memTable{rows: map[string]source.Row{
			rowKey(7): {"id": 7, "title": "hello"},
		}},
		sessions: &source.Shape{
			Namespace: "app_public",
			Name:      "jwt_token",
			Columns:   []string{"role", "user_id", "exp"},
			Behaviors: source.NewBehaviorSet(source.BehaviorJWT),
		},
	}

	users := newDescriptor("users", &source.Shape{Namespace: "app_public", Name: "users", Columns: []string{"id", "email"}}, f.users, "id")
	users.Tags.OriginalName = "user"
	posts := newDescriptor("posts", &source.Shape{Namespace: "app_public", Name: "posts", Columns: []string{"id", "title"}}, f.posts, "id")
	token := &source.Descriptor{Name: "jwt_token", Shape: f.sessions, HasParameters: true}

	f.all = []*source.Descriptor{users, posts, token}
	return f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestBuild(t *testing.T) {
	f := newFixture()
	s, err := Build(f.all, WithLogger(discardLogger()))
	require.NoError(t, err)

	assert.Equal(t, []string{"User", "Post"}, s.TypeNames())
	assert.Empty(t, s.Diagnostics())
	assert.Len(t, s.Manifest().Handlers, 2)
}

func TestBuildInvalidConfig(t *testing.T) {
	f := newFixture()

	_, err := Build(f.all, WithCodecName("rot13"))
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorIs(t, err, &NodeIDError{Kind: KindConfiguration})

	_, err = Build(f.all, WithFilter(`name ==`))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuildCollisionIsDiagnostic(t *testing.T) {
	shared := &source.Shape{Namespace: "app_public", Name: "users", Columns: []string{"id"}}
	descriptors := []*source.Descriptor{
		newDescriptor("users", shared, &memTable{}, "id"),
		newDescriptor("active_users", shared, &memTable{}, "id"),
	}

	var logs bytes.Buffer
	s, err := Build(descriptors, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)
	assert.Empty(t, s.TypeNames())
	require.Len(t, s.Diagnostics(), 1)
	assert.Equal(t, tablenode.DiagnosticShapeCollision, s.Diagnostics()[0].Kind)
	assert.Contains(t, logs.String(), "node identifier not registered")

	_, err = Build(descriptors, WithLogger(discardLogger()), WithStrict(true))
	require.ErrorIs(t, err, ErrBuildFailed)
}

func TestSchemaRoundTrip(t *testing.T) {
	f := newFixture()
	s, err := Build(f.all, WithLogger(discardLogger()))
	require.NoError(t, err)
	ctx := context.Background()

	id, err := s.NodeID(ctx, "User", source.Row{"id": 1, "email": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "WyJVc2VyIiwxXQ==", id)

	typeName, spec, err := s.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, "User", typeName)
	assert.Equal(t, source.KeySpec{{Column: "id", Value: json.Number("1")}}, spec)

	row, err := s.ResolveByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", row["email"])
}

func TestSchemaTypeDiscrimination(t *testing.T) {
	f := newFixture()
	f.posts.rows[rowKey(1)] = source.Row{"id": 1, "title": "first"}
	s, err := Build(f.all, WithLogger(discardLogger()))
	require.NoError(t, err)
	ctx := context.Background()

	userID, err := s.NodeID(ctx, "User", source.Row{"id": 1})
	require.NoError(t, err)
	postID, err := s.NodeID(ctx, "Post", source.Row{"id": 1})
	require.NoError(t, err)
	assert.NotEqual(t, userID, postID)

	user, err := s.ResolveByID(ctx, userID)
	require.NoError(t, err)
	post, err := s.ResolveByID(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, "first", post["title"])
}

func TestSchemaResolveNotFound(t *testing.T) {
	f := newFixture()
	s, err := Build(f.all, WithLogger(discardLogger()))
	require.NoError(t, err)
	ctx := context.Background()

	missingRow, err := codec.Base64JSON{}.Encode(codec.Tuple{"User", 404})
	require.NoError(t, err)
	unknownType, err := codec.Base64JSON{}.Encode(codec.Tuple{"Comment", 1})
	require.NoError(t, err)
	wrongArity, err := codec.Base64JSON{}.Encode(codec.Tuple{"User", 1, 2})
	require.NoError(t, err)

	for _, id := range []string{"", "!!!", "bm90IGpzb24=", unknownType, wrongArity, missingRow} {
		_, err := s.ResolveByID(ctx, id)
		require.ErrorIs(t, err, ErrNotFound, "id %q", id)
		require.ErrorIs(t, err, &NodeIDError{Kind: KindNotFound}, "id %q", id)
	}
}

func TestSchemaResolveFetchError(t *testing.T) {
	f := newFixture()
	f.users.err = errors.New("connection refused")

	var logs bytes.Buffer
	s, err := Build(f.all, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)
	ctx := context.Background()

	id, err := s.NodeID(ctx, "User", source.Row{"id": 1})
	require.NoError(t, err)

	_, err = s.ResolveByID(ctx, id)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, err, &NodeIDError{Kind: KindFetch})
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, logs.String(), "failed to resolve node identifier")
}

func TestSchemaNodeIDErrors(t *testing.T) {
	f := newFixture()
	s, err := Build(f.all, WithLogger(discardLogger()))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.NodeID(ctx, "Comment", source.Row{"id": 1})
	require.ErrorIs(t, err, &NodeIDError{Kind: KindNotFound})

	_, err = s.NodeID(ctx, "User", source.Row{"email": "x"})
	require.ErrorIs(t, err, &NodeIDError{Kind: KindValidation})
}

func TestSchemaLegacyIdentifiers(t *testing.T) {
	f := newFixture()
	modern, err := Build(f.all, WithLogger(discardLogger()))
	require.NoError(t, err)
	legacy, err := Build(f.all, WithLogger(discardLogger()), WithLegacyTableNameIdentifiers(true))
	require.NoError(t, err)
	ctx := context.Background()

	legacyID, err := legacy.NodeID(ctx, "User", source.Row{"id": 1})
	require.NoError(t, err)
	tuple, err := codec.Base64JSON{}.Decode(legacyID)
	require.NoError(t, err)
	assert.Equal(t, "users", tuple.Head())

	_, err = modern.ResolveByID(ctx, legacyID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = legacy.ResolveByID(ctx, legacyID)
	require.NoError(t, err)
}

func TestSchemaFilterOption(t *testing.T) {
	f := newFixture()
	s, err := Build(f.all, WithLogger(discardLogger()), WithFilter(`shape != "posts"`))
	require.NoError(t, err)
	assert.Equal(t, []string{"User"}, s.TypeNames())
}

func TestSchemaTelemetry(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	ctx := context.Background()

	f := newFixture()
	s, err := Build(f.all,
		WithLogger(discardLogger()),
		WithTracer(tp.Tracer("test")),
		WithMeter(mp.Meter("test")),
	)
	require.NoError(t, err)

	id, err := s.NodeID(ctx, "User", source.Row{"id": 1})
	require.NoError(t, err)
	_, err = s.ResolveByID(ctx, id)
	require.NoError(t, err)
	_, err = s.ResolveByID(ctx, "garbage")
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "nodeid.ResolveByID", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("nodeid.type", "User"))
	assert.Contains(t, spans[1].Attributes(), attribute.Bool("nodeid.not_found", true))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	outcomes := map[string]int64{}
	var encoded int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, m.Name)
			for _, dp := range sum.DataPoints {
				switch m.Name {
				case "nodeid.resolve.count":
					outcome, _ := dp.Attributes.Value("outcome")
					outcomes[outcome.AsString()] += dp.Value
				case "nodeid.encode.count":
					encoded += dp.Value
				}
			}
		}
	}
	assert.Equal(t, map[string]int64{outcomeFound: 1, outcomeNotFound: 1}, outcomes)
	assert.Equal(t, int64(1), encoded)
}
