package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersDescriptor() *Descriptor {
	return &Descriptor{
		Name: "users",
		Shape: &Shape{
			Namespace: "app_public",
			Name:      "users",
			Columns:   []string{"id", "email"},
		},
		Uniques: []Unique{
			{Columns: []string{"email"}},
			{Columns: []string{"id"}, IsPrimary: true},
		},
		Behaviors: NewBehaviorSet(BehaviorSelect, BehaviorNode),
		Tags: Tags{
			OriginalName: "user",
			Extra:        map[string]string{"owner": "identity"},
		},
	}
}

func TestParseBehaviors(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []string
		wantErr bool
	}{
		{name: "empty", spec: "", want: []string{}},
		{name: "plain", spec: "select node", want: []string{"node", "select"}},
		{name: "plus prefix", spec: "+select +node", want: []string{"node", "select"}},
		{name: "later negation wins", spec: "select node -node", want: []string{"select"}},
		{name: "later enable wins", spec: "-update update", want: []string{"update"}},
		{name: "unknown", spec: "select teleport", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBehaviors(tt.spec)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownBehavior)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Enabled())
		})
	}
}

func TestBehaviorSetString(t *testing.T) {
	s, err := ParseBehaviors("select -update node")
	require.NoError(t, err)
	assert.Equal(t, "node select -update", s.String())

	parsed, err := ParseBehaviors(s.String())
	require.NoError(t, err)
	assert.Equal(t, s, parsed)
}

func TestBehaviorSetHas(t *testing.T) {
	var nilSet BehaviorSet
	assert.False(t, nilSet.Has(BehaviorNode))
	assert.True(t, nilSet.HasAll())

	s := BehaviorSet{BehaviorSelect: true, BehaviorNode: false}
	assert.True(t, s.Has(BehaviorSelect))
	assert.False(t, s.Has(BehaviorNode))
	assert.False(t, s.HasAll(BehaviorSelect, BehaviorNode))
}

func TestDescriptorIsNodeCandidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Descriptor)
		want   bool
	}{
		{name: "eligible", mutate: func(d *Descriptor) {}, want: true},
		{name: "nil shape", mutate: func(d *Descriptor) { d.Shape = nil }, want: false},
		{name: "anonymous", mutate: func(d *Descriptor) { d.Shape.IsAnonymous = true }, want: false},
		{name: "no columns", mutate: func(d *Descriptor) { d.Shape.Columns = nil }, want: false},
		{name: "parameters", mutate: func(d *Descriptor) { d.HasParameters = true }, want: false},
		{name: "no uniques", mutate: func(d *Descriptor) { d.Uniques = nil }, want: false},
		{name: "missing node", mutate: func(d *Descriptor) { d.Behaviors = NewBehaviorSet(BehaviorSelect) }, want: false},
		{name: "missing select", mutate: func(d *Descriptor) { d.Behaviors = NewBehaviorSet(BehaviorNode) }, want: false},
		{name: "node disabled", mutate: func(d *Descriptor) { d.Behaviors[BehaviorNode] = false }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := usersDescriptor()
			tt.mutate(d)
			assert.Equal(t, tt.want, d.IsNodeCandidate())
		})
	}
}

func TestDescriptorKeyColumns(t *testing.T) {
	d := usersDescriptor()
	assert.Equal(t, []string{"id"}, d.KeyColumns())

	cols := d.KeyColumns()
	cols[0] = "mutated"
	assert.Equal(t, []string{"id"}, d.KeyColumns(), "KeyColumns must return a copy")

	d.Uniques = []Unique{{Columns: []string{"email"}}}
	assert.Nil(t, d.KeyColumns())
	_, ok := d.PrimaryKey()
	assert.False(t, ok)
}

func TestShapeQualifiedName(t *testing.T) {
	assert.Equal(t, "app_public.users", (&Shape{Namespace: "app_public", Name: "users"}).QualifiedName())
	assert.Equal(t, "users", (&Shape{Name: "users"}).QualifiedName())
}

func TestKeySpec(t *testing.T) {
	spec := KeySpec{{Column: "org_id", Value: 7}, {Column: "id", Value: "a"}}

	v, ok := spec.Value("id")
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = spec.Value("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"org_id", "id"}, spec.Columns())
	assert.Equal(t, []any{7, "a"}, spec.Values())
	assert.Equal(t, map[string]any{"org_id": 7, "id": "a"}, spec.Map())
}

func TestGetterFunc(t *testing.T) {
	g := GetterFunc(func(ctx context.Context, spec KeySpec) (Row, error) {
		v, _ := spec.Value("id")
		return Row{"id": v}, nil
	})
	row, err := g.Get(context.Background(), KeySpec{{Column: "id", Value: 1}})
	require.NoError(t, err)
	assert.Equal(t, Row{"id": 1}, row)
}

func TestJoinTag(t *testing.T) {
	assert.Equal(t, "", JoinTag(nil))
	assert.Equal(t, "use accounts\nremoved in v6", JoinTag([]string{"use accounts", "removed in v6"}))
}

func TestCompileFilter(t *testing.T) {
	t.Run("empty expression accepts everything", func(t *testing.T) {
		f, err := CompileFilter("")
		require.NoError(t, err)
		assert.Nil(t, f)

		ok, err := f.Match(usersDescriptor())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := CompileFilter(`name ==`)
		require.ErrorIs(t, err, ErrInvalidFilter)
	})

	t.Run("non bool", func(t *testing.T) {
		_, err := CompileFilter(`name + "x"`)
		require.ErrorIs(t, err, ErrInvalidFilter)
	})

	t.Run("unknown variable", func(t *testing.T) {
		_, err := CompileFilter(`table == "users"`)
		require.ErrorIs(t, err, ErrInvalidFilter)
	})
}

func TestFilterMatch(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{name: "by name", expr: `name == "users"`, want: true},
		{name: "exclusion list", expr: `!(name in ["audit_log", "users"])`, want: false},
		{name: "by namespace", expr: `namespace == "app_private"`, want: false},
		{name: "by shape", expr: `shape.startsWith("user")`, want: true},
		{name: "by behavior", expr: `"node" in behaviors`, want: true},
		{name: "by tag", expr: `has(tags.owner) && tags.owner == "identity"`, want: true},
		{name: "by original name", expr: `original_name == "user"`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := CompileFilter(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, f.String())

			got, err := f.Match(usersDescriptor())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterMatchWithoutShapeOrTags(t *testing.T) {
	f, err := CompileFilter(`shape == "" && size(tags) == 0`)
	require.NoError(t, err)

	got, err := f.Match(&Descriptor{Name: "orphan"})
	require.NoError(t, err)
	assert.True(t, got)
}
