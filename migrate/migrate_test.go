package migrate_test

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/dialect"
	entsql "github.com/syssam/sqlq/dialect/sql"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/migrate"
	"github.com/syssam/sqlq/session"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return session.New(entsql.OpenDB(dialect.SQLite, db), dialect.MustLookup(dialect.SQLite))
}

func tables(t *testing.T, s *session.Session) []string {
	t.Helper()
	rows, err := s.All(context.Background(), expr.Raw(`select name from sqlite_master where type = 'table' order by name`))
	require.NoError(t, err)
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r["name"].(string)
	}
	return names
}

func TestParse(t *testing.T) {
	m := migrate.Parse("0000_init", "create table a (id integer);\n--> statement-breakpoint\n\ncreate table b (id integer);\n--> statement-breakpoint\n")
	assert.Equal(t, "0000_init", m.Name)
	assert.Equal(t, []string{"create table a (id integer);", "create table b (id integer);"}, m.Statements)
}

func TestHash(t *testing.T) {
	a := migrate.Migration{Name: "a", Statements: []string{"create table a (id integer)"}}
	b := migrate.Migration{Name: "b", Statements: []string{"create table a (id integer)"}}
	c := migrate.Migration{Name: "a", Statements: []string{"create table a", "(id integer)"}}
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Len(t, a.Hash(), 64)
}

func TestMigrateFailFast(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	err := migrate.Migrate(ctx, s, []migrate.Migration{
		{Name: "0000_users", Statements: []string{`create table users (id integer primary key, name text)`}},
		{Name: "0001_seed", Statements: []string{
			`insert into users (name) values ('John')`,
			`insert into missing (name) values ('Jane')`,
			`create table never (id integer)`,
		}},
		{Name: "0002_pets", Statements: []string{`create table pets (id integer)`}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate: 0001_seed: statement 1:")
	assert.True(t, sqlq.IsDriverError(err))

	// Statements before the failure stay applied.
	assert.Equal(t, []string{"users"}, tables(t, s))
	row, err := s.Get(ctx, expr.Raw(`select count(*) as n from users`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), row["n"])
}

func TestMigrateJournal(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	migrations := []migrate.Migration{
		{Name: "0000_users", Statements: []string{`create table users (id integer primary key)`}},
		{Name: "0001_pets", Statements: []string{`create table pets (id integer primary key)`}},
	}
	opts := []migrate.Option{migrate.WithJournal(migrate.DefaultJournal), migrate.WithLogger(logger)}

	require.NoError(t, migrate.Migrate(ctx, s, migrations, opts...))
	assert.Equal(t, []string{"__sqlq_migrations", "pets", "users"}, tables(t, s))
	assert.Contains(t, buf.String(), `msg="migration applied"`)

	// A second run skips recorded migrations: re-creating the tables would fail.
	buf.Reset()
	require.NoError(t, migrate.Migrate(ctx, s, migrations, opts...))
	assert.Contains(t, buf.String(), `msg="migration already applied"`)
	assert.NotContains(t, buf.String(), `msg="migration applied"`)

	migrations = append(migrations, migrate.Migration{Name: "0002_tags", Statements: []string{`create table tags (id integer primary key)`}})
	require.NoError(t, migrate.Migrate(ctx, s, migrations, opts...))
	assert.Equal(t, []string{"__sqlq_migrations", "pets", "tags", "users"}, tables(t, s))

	rows, err := s.All(ctx, expr.Raw(`select hash from __sqlq_migrations order by id`))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, m := range migrations {
		assert.Equal(t, m.Hash(), rows[i]["hash"])
	}
}

func TestMigrateWithoutJournal(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	migrations := []migrate.Migration{{Name: "0000_users", Statements: []string{`create table users (id integer primary key)`}}}
	require.NoError(t, migrate.Migrate(ctx, s, migrations))
	err := migrate.Migrate(ctx, s, migrations)
	require.Error(t, err, "statements run again without a journal")
	assert.Contains(t, err.Error(), "migrate: 0000_users: statement 0:")
}
