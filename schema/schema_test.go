package schema_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/schema"
)

func usersTable() *schema.Table {
	return schema.NewTable("users",
		schema.Integer("id").PrimaryKey(),
		schema.Text("name").NotNull(),
		schema.Integer("verified").NotNull().Default(0),
		schema.JSON("tags"),
		schema.UnixTime("created_at"),
	)
}

func TestNewTable(t *testing.T) {
	users := usersTable()
	assert.Equal(t, "users", users.Name())
	assert.Equal(t, "users", users.RefName())
	assert.Empty(t, users.Alias())

	cols := users.Columns()
	require.Len(t, cols, 5)
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
		assert.Same(t, users, c.Table())
	}
	assert.Equal(t, []string{"id", "name", "verified", "tags", "created_at"}, names)

	t.Run("Keys", func(t *testing.T) {
		assert.Equal(t, "createdAt", users.C("createdAt").Key)
		assert.Equal(t, "created_at", users.C("createdAt").Name)
		_, ok := users.Lookup("created_at")
		assert.False(t, ok)
		assert.Panics(t, func() { users.C("missing") })
	})

	t.Run("PrimaryKey", func(t *testing.T) {
		pk := users.PrimaryKey()
		require.Len(t, pk, 1)
		assert.Equal(t, "id", pk[0].Name)
		assert.False(t, pk[0].Nullable)
	})

	t.Run("Reuse", func(t *testing.T) {
		id := schema.Integer("id").PrimaryKey()
		a := schema.NewTable("a", id)
		b := schema.NewTable("b", id)
		assert.Equal(t, "a", a.C("id").TableName())
		assert.Equal(t, "b", b.C("id").TableName())
	})
}

func TestAlias(t *testing.T) {
	users := usersTable()
	parent := schema.Alias(users, "parent")
	assert.Equal(t, "users", parent.Name())
	assert.Equal(t, "parent", parent.RefName())
	assert.Equal(t, "parent", parent.C("id").TableName())
	assert.Equal(t, "users", users.C("id").TableName(), "original table is untouched")
}

func TestType(t *testing.T) {
	assert.Equal(t, "integer", schema.TypeInteger.String())
	assert.Equal(t, "json", schema.TypeJSON.String())
	assert.Equal(t, "invalid", schema.Type(200).String())
	assert.True(t, schema.TypeUUID.Valid())
	assert.False(t, schema.TypeInvalid.Valid())
	assert.True(t, schema.TypeUnixTime.Numeric())
	assert.False(t, schema.TypeText.Numeric())
}

func TestColumnEncode(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	tests := []struct {
		name string
		col  *schema.Column
		in   any
		want any
	}{
		{"nil", schema.JSON("j"), nil, nil},
		{"json slice", schema.JSON("j"), []string{"a", "b"}, `["a","b"]`},
		{"json raw", schema.JSON("j"), json.RawMessage(`{"a":1}`), `{"a":1}`},
		{"int boolean true", schema.IntBoolean("b"), true, int64(1)},
		{"int boolean false", schema.IntBoolean("b"), false, int64(0)},
		{"boolean", schema.Boolean("b"), true, true},
		{"unix time", schema.UnixTime("t"), ts, ts.Unix()},
		{"unix time milli", schema.UnixTimeMilli("t"), ts, ts.UnixMilli()},
		{"timestamp", schema.Timestamp("t"), ts, ts},
		{"uuid", schema.UUID("u"), id, id.String()},
		{"blob from string", schema.Blob("b"), "ab", []byte("ab")},
		{"text", schema.Text("s"), "x", "x"},
		{"integer passthrough", schema.Integer("i"), 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.col.Encode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := schema.JSON("j").Encode(func() {})
	assert.Error(t, err)
}

func TestColumnDecode(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	tests := []struct {
		name string
		col  *schema.Column
		raw  any
		want any
	}{
		{"nil", schema.Text("s"), nil, nil},
		{"integer", schema.Integer("i"), int64(7), int64(7)},
		{"integer from int32", schema.Integer("i"), int32(7), int64(7)},
		{"integer from text", schema.Integer("i"), []byte("42"), int64(42)},
		{"real", schema.Real("r"), int64(2), float64(2)},
		{"numeric", schema.Numeric("n"), []byte("1.50"), "1.50"},
		{"text bytes", schema.Text("s"), []byte("John"), "John"},
		{"boolean", schema.Boolean("b"), int64(1), true},
		{"int boolean", schema.IntBoolean("b"), int64(0), false},
		{"timestamp", schema.Timestamp("t"), "2024-01-02 03:04:05", ts},
		{"timestamp native", schema.Timestamp("t"), ts, ts},
		{"unix time", schema.UnixTime("t"), ts.Unix(), ts},
		{"unix time milli", schema.UnixTimeMilli("t"), ts.UnixMilli(), ts},
		{"json", schema.JSON("j"), `["a","b"]`, []any{"a", "b"}},
		{"json object", schema.JSON("j"), []byte(`{"a":1}`), map[string]any{"a": float64(1)}},
		{"json decoded by driver", schema.JSON("j"), map[string]any{"a": 1}, map[string]any{"a": 1}},
		{"blob", schema.Blob("b"), []byte{1, 2}, []byte{1, 2}},
		{"uuid text", schema.UUID("u"), id.String(), id},
		{"uuid bytes", schema.UUID("u"), id[:], id},
		{"uuid array", schema.UUID("u"), [16]byte(id), id},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.col.Decode(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumnDecodeError(t *testing.T) {
	users := schema.NewTable("users", schema.JSON("tags"), schema.Integer("age"))

	_, err := users.C("tags").Decode("{not json")
	require.Error(t, err)
	var de *sqlq.DecodingError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "users", de.Table)
	assert.Equal(t, "tags", de.Column)
	assert.Equal(t, "{not json", de.Value)

	_, err = users.C("age").Decode("abc")
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "age", de.Column)

	_, err = users.C("age").Decode(1.5)
	assert.True(t, sqlq.IsDecodingError(err))
}

func TestValidateTable(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		r := schema.ValidateTable(usersTable())
		assert.False(t, r.HasErrors())
		assert.False(t, r.HasWarnings())
		assert.NoError(t, r.Err())
		assert.Equal(t, "No issues found", r.String())
	})

	t.Run("Problems", func(t *testing.T) {
		tbl := schema.NewTable("t",
			schema.Text("name"),
			schema.Text("name").WithKey("other"),
			schema.Text("").NotNull().Default(nil),
		)
		r := schema.ValidateTable(tbl)
		assert.True(t, r.HasErrors())
		assert.True(t, r.HasWarnings())
		assert.Error(t, r.Err())
		assert.Contains(t, r.String(), "duplicate column name")
		assert.Contains(t, r.String(), "table has no primary key")
		assert.Contains(t, r.String(), "column has no name")
	})
}

func TestValidateSchema(t *testing.T) {
	users := usersTable()
	posts := schema.NewTable("posts",
		schema.Integer("id").PrimaryKey(),
		schema.Integer("author_id").References("users", "id"),
		schema.Integer("group_id").References("groups", "id"),
		schema.Integer("editor_id").References("users", "missing"),
	)
	r := schema.ValidateSchema([]*schema.Table{users, posts, usersTable()})
	require.Len(t, r.Errors, 3)
	assert.Equal(t, "users: duplicate table name", r.Errors[0].Error())
	assert.Contains(t, r.Errors[1].Error(), `non-existent table "groups"`)
	assert.Contains(t, r.Errors[2].Error(), `"users"."missing"`)
}
