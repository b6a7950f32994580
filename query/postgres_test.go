package query_test

import (
	"context"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/dialect"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/query"
	"github.com/syssam/sqlq/session"
)

func TestPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("sqlq"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := query.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, dialect.Postgres, db.Dialect().Name())

	for _, stmt := range []string{
		`create table cities (id serial primary key, name text not null)`,
		`create table users (id serial primary key, name text not null, verified integer not null default 0, tags jsonb, city_id integer references cities(id))`,
	} {
		_, err := db.Run(ctx, expr.Raw(stmt))
		require.NoError(t, err)
	}

	city, err := db.Insert(cities).Values(map[string]any{"name": "Paris"}).Returning().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Row{"id": int64(1), "name": "Paris"}, city)

	rows, err := db.Insert(users).Values(
		map[string]any{"name": "John", "tags": []string{"a", "b"}, "cityId": city["id"]},
		map[string]any{"name": "Jane"},
	).Returning(query.Field("id", users.C("id")), query.Field("tags", users.C("tags"))).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []session.Row{
		{"id": int64(1), "tags": []any{"a", "b"}},
		{"id": int64(2), "tags": nil},
	}, rows)

	rows, err = db.Select().From(users).
		LeftJoin(cities, expr.EQ(users.C("cityId"), cities.C("id"))).
		OrderBy(users.C("id")).
		All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, session.Row{"id": int64(1), "name": "Paris"}, rows[0]["cities"])
	assert.Nil(t, rows[1]["cities"])

	_, err = db.Insert(cities).Values(map[string]any{"id": 1, "name": "Lyon"}).Run(ctx)
	assert.True(t, sqlq.IsUniqueConstraintError(err))

	err = db.Transaction(ctx, func(tx *query.DB) error {
		row, err := tx.Select().From(users).
			Where(expr.EQ(users.C("id"), 2)).
			For(dialect.LockUpdate, query.LockConfig{NoWait: true}).
			Get(ctx)
		if err != nil {
			return err
		}
		_, err = tx.Update(users).Set(map[string]any{"verified": 1}).Where(expr.EQ(users.C("id"), row["id"])).Run(ctx)
		return err
	})
	require.NoError(t, err)
	row, err := db.Select(query.Field("verified", users.C("verified"))).From(users).Where(expr.EQ(users.C("id"), 2)).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), row["verified"])
}
