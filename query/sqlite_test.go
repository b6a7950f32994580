package query_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/dialect"
	entsql "github.com/syssam/sqlq/dialect/sql"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/query"
	"github.com/syssam/sqlq/session"
)

var ddl = []string{
	`create table cities (id integer primary key, name text not null)`,
	`create table users (id integer primary key, name text not null, verified integer not null default 0, tags text, city_id integer references cities(id))`,
	`create table pets (id integer primary key, owner_id integer, name text)`,
}

func sqliteDB(t *testing.T) *query.DB {
	t.Helper()
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every connection of an in-memory database has its own schema.
	sqldb.SetMaxOpenConns(1)
	db, err := query.New(entsql.OpenDB(dialect.SQLite, sqldb))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for _, stmt := range ddl {
		_, err := db.Run(context.Background(), expr.Raw(stmt))
		require.NoError(t, err)
	}
	return db
}

func TestSQLiteInsertSelect(t *testing.T) {
	ctx := context.Background()
	db := sqliteDB(t)

	res, err := db.Insert(users).Values(map[string]any{"name": "John"}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.Equal(t, int64(1), res.LastInsertID)

	rows, err := db.Select().From(users).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []session.Row{{"id": int64(1), "name": "John", "verified": int64(0), "tags": nil, "cityId": nil}}, rows)

	values, err := db.Select(query.Field("id", users.C("id")), query.Field("name", users.C("name"))).From(users).Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1), "John"}}, values)
}

func TestSQLiteInsertReturning(t *testing.T) {
	ctx := context.Background()
	db := sqliteDB(t)

	rows, err := db.Insert(users).Values(
		map[string]any{"name": "A", "verified": 1},
		map[string]any{"name": "B"},
	).Returning(query.Field("name", users.C("name")), query.Field("verified", users.C("verified"))).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []session.Row{
		{"name": "A", "verified": int64(1)},
		{"name": "B", "verified": int64(0)},
	}, rows)
}

func TestSQLiteJSON(t *testing.T) {
	ctx := context.Background()
	db := sqliteDB(t)

	row, err := db.Insert(users).Values(map[string]any{"name": "J", "tags": []string{"a", "b"}}).Returning().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, row["tags"])

	row, err = db.Select().From(users).Where(expr.EQ(users.C("name"), "J")).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, row["tags"])
}

func TestSQLiteOnConflict(t *testing.T) {
	ctx := context.Background()
	db := sqliteDB(t)

	_, err := db.Insert(cities).Values(map[string]any{"id": 1, "name": "Paris"}).Run(ctx)
	require.NoError(t, err)

	res, err := db.Insert(cities).Values(map[string]any{"id": 1, "name": "Lyon"}).
		OnConflictDoNothing(query.ConflictConfig{Target: cities.PrimaryKey()}).
		Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.RowsAffected)
	row, err := db.Select().From(cities).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Row{"id": int64(1), "name": "Paris"}, row)

	_, err = db.Insert(cities).Values(map[string]any{"id": 1, "name": "Lyon"}).Run(ctx)
	require.Error(t, err)
	assert.True(t, sqlq.IsDriverError(err))
	assert.True(t, sqlq.IsUniqueConstraintError(err))

	row, err = db.Insert(cities).Values(map[string]any{"id": 1, "name": "Lyon"}).
		OnConflictDoUpdate(query.ConflictConfig{
			Target: cities.PrimaryKey(),
			Set:    map[string]any{"name": query.Excluded(cities.C("name"))},
		}).
		Returning().
		Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Row{"id": int64(1), "name": "Lyon"}, row)
}

func TestSQLiteJoin(t *testing.T) {
	ctx := context.Background()
	db := sqliteDB(t)

	_, err := db.Insert(cities).Values(map[string]any{"id": 1, "name": "Paris"}).Run(ctx)
	require.NoError(t, err)
	_, err = db.Insert(users).Values(
		map[string]any{"id": 1, "name": "John", "cityId": 1},
		map[string]any{"id": 2, "name": "Jane"},
	).Run(ctx)
	require.NoError(t, err)

	t.Run("InnerJoin", func(t *testing.T) {
		rows, err := db.Select().From(cities).
			InnerJoin(users, expr.EQ(users.C("cityId"), cities.C("id"))).
			All(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, session.Row{"id": int64(1), "name": "Paris"}, rows[0]["cities"])
		assert.Equal(t, "John", rows[0]["users"].(session.Row)["name"])
	})

	t.Run("LeftJoinWithoutMatch", func(t *testing.T) {
		rows, err := db.Select(
			query.Field("name", users.C("name")),
			query.Nest("city", query.Field("id", cities.C("id")), query.Field("name", cities.C("name"))),
		).From(users).
			LeftJoin(cities, expr.EQ(users.C("cityId"), cities.C("id"))).
			OrderBy(users.C("id")).
			All(ctx)
		require.NoError(t, err)
		assert.Equal(t, []session.Row{
			{"name": "John", "city": session.Row{"id": int64(1), "name": "Paris"}},
			{"name": "Jane", "city": nil},
		}, rows)
	})

	t.Run("Aggregate", func(t *testing.T) {
		row, err := db.Select(query.Field("count", expr.As(expr.Count(), "count"))).From(users).Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, session.Row{"count": int64(2)}, row)
	})

	t.Run("Subquery", func(t *testing.T) {
		sq := db.Select(query.Field("id", users.C("id")), query.Field("name", users.C("name"))).
			From(users).
			Where(expr.IsNull(users.C("cityId"))).
			As("homeless")
		rows, err := db.Select().From(sq).All(ctx)
		require.NoError(t, err)
		assert.Equal(t, []session.Row{{"id": int64(2), "name": "Jane"}}, rows)
	})
}

func TestSQLitePrepared(t *testing.T) {
	ctx := context.Background()
	db := sqliteDB(t)

	_, err := db.Insert(users).Values(map[string]any{"name": "John"}, map[string]any{"name": "Jane"}).Run(ctx)
	require.NoError(t, err)

	p, err := db.Select().From(users).Where(expr.EQ(users.C("id"), expr.P("id"))).Prepare("user_by_id")
	require.NoError(t, err)
	for id, name := range map[int]string{1: "John", 2: "Jane"} {
		row, err := p.Get(ctx, map[string]any{"id": id})
		require.NoError(t, err)
		assert.Equal(t, name, row["name"])
	}
	_, err = p.Get(ctx, map[string]any{"id": 3})
	assert.True(t, sqlq.IsNotFound(err))
	assert.EqualError(t, err, "sqlq: user_by_id not found")

	type user struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	rows, err := db.Select().From(users).OrderBy(expr.Desc(users.C("id"))).All(ctx)
	require.NoError(t, err)
	got, err := session.ScanAll[user](rows)
	require.NoError(t, err)
	assert.Equal(t, []user{{ID: 2, Name: "Jane"}, {ID: 1, Name: "John"}}, got)
}

func TestSQLiteUpdateDelete(t *testing.T) {
	ctx := context.Background()
	db := sqliteDB(t)

	_, err := db.Insert(users).Values(map[string]any{"name": "John"}, map[string]any{"name": "Jane"}).Run(ctx)
	require.NoError(t, err)

	rows, err := db.Update(users).Set(map[string]any{"verified": 1}).
		Where(expr.EQ(users.C("name"), "Jane")).
		Returning(query.Field("id", users.C("id"))).
		All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []session.Row{{"id": int64(2)}}, rows)

	res, err := db.Delete(users).Where(expr.EQ(users.C("verified"), 0)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)

	rows, err = db.Select(query.Field("name", users.C("name"))).From(users).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []session.Row{{"name": "Jane"}}, rows)

	_, err = db.Select().From(users).For(dialect.LockUpdate).All(ctx)
	assert.True(t, sqlq.IsNotImplemented(err))
}

func TestSQLiteTransaction(t *testing.T) {
	ctx := context.Background()
	db := sqliteDB(t)
	count := func() int64 {
		row, err := db.Select(query.Field("n", expr.As(expr.Count(), "n"))).From(cities).Get(ctx)
		require.NoError(t, err)
		return row["n"].(int64)
	}

	boom := errors.New("boom")
	err := db.Transaction(ctx, func(tx *query.DB) error {
		if _, err := tx.Insert(cities).Values(map[string]any{"name": "Paris"}).Run(ctx); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, count())

	err = db.Transaction(ctx, func(tx *query.DB) error {
		_, err := tx.Insert(cities).Values(map[string]any{"name": "Paris"}).Run(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count())
}
