package session_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/dialect"
	entsql "github.com/syssam/sqlq/dialect/sql"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/schema"
	"github.com/syssam/sqlq/session"
)

var (
	users = schema.NewTable("users",
		schema.Integer("id").PrimaryKey(),
		schema.Text("name").NotNull(),
		schema.JSON("tags"),
	)
	pets = schema.NewTable("pets",
		schema.Integer("id").PrimaryKey(),
		schema.Integer("owner_id"),
		schema.Text("name"),
	)
)

func newSession(t *testing.T, opts ...session.Option) (*session.Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	drv := entsql.OpenDB(dialect.SQLite, db)
	return session.New(drv, dialect.MustLookup(dialect.SQLite), opts...), mock
}

func compile(t *testing.T, s *session.Session, e expr.Expr) dialect.Query {
	t.Helper()
	q, err := s.Dialect().Compile(e)
	require.NoError(t, err)
	return q
}

func TestPreparedQueryAll(t *testing.T) {
	s, mock := newSession(t)
	q := compile(t, s, expr.SQL(`select "id", "name", "tags" from "users" where ?`, expr.EQ(users.C("id"), expr.P("id"))))
	p := s.Prepare(q, dialect.TableFields(users), session.WithName("user"))
	assert.Equal(t, `select "id", "name", "tags" from "users" where "users"."id" = ?`, p.SQL())
	assert.Equal(t, "user", p.Name())

	mock.ExpectQuery(`select "id", "name", "tags" from "users"`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "tags"}).AddRow(int64(1), "John", `["a","b"]`))
	rows, err := p.All(context.Background(), map[string]any{"id": int64(1)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, session.Row{"id": int64(1), "name": "John", "tags": []any{"a", "b"}}, rows[0])

	// The same prepared query runs again with another binding.
	mock.ExpectQuery(`select`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "tags"}))
	_, err = p.Get(context.Background(), map[string]any{"id": int64(2)})
	require.Error(t, err)
	assert.True(t, sqlq.IsNotFound(err))
	assert.ErrorIs(t, err, sqlq.ErrNotFound)
	assert.EqualError(t, err, "sqlq: user not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPreparedQueryBindingError(t *testing.T) {
	s, mock := newSession(t)
	q := compile(t, s, expr.SQL(`select 1 from "users" where ? and ?`,
		expr.EQ(users.C("id"), expr.P("id")), expr.EQ(users.C("name"), expr.P("name"))))
	p := s.Prepare(q, dialect.TableFields(users)[:1])

	_, err := p.All(context.Background(), map[string]any{"id": 1})
	require.Error(t, err)
	var be *sqlq.BindingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "name", be.Name)

	_, err = p.Run(context.Background(), nil)
	assert.True(t, sqlq.IsBindingError(err))
	// Nothing reached the driver.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPreparedQueryBindEncodes(t *testing.T) {
	s, _ := newSession(t)
	q := compile(t, s, expr.SQL(`update "users" set "tags" = ?, "name" = ?`,
		expr.Placeholder{Name: "tags", Column: users.C("tags")}, expr.P("name")))
	args, err := s.Prepare(q, nil).Bind(map[string]any{"tags": []string{"x"}, "name": "n"})
	require.NoError(t, err)
	assert.Equal(t, []any{`["x"]`, "n"}, args)

	_, err = s.Prepare(q, nil).Bind(map[string]any{"tags": make(chan int), "name": "n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `binding placeholder "tags"`)
}

func TestPreparedQueryRunUsesExec(t *testing.T) {
	s, mock := newSession(t)
	q := compile(t, s, expr.SQL(`delete from "users" where ?`, expr.GT(users.C("id"), 10)))
	mock.ExpectExec(`delete from "users" where "users"."id" > \?`).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 3))
	res, err := s.Prepare(q, nil).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RowsAffected)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = s.Prepare(q, nil).All(context.Background(), nil)
	assert.True(t, sqlq.IsConfigurationError(err))
}

func TestPreparedQueryValues(t *testing.T) {
	s, mock := newSession(t)
	q := compile(t, s, expr.Raw(`select "id", "tags" from "users"`))
	mock.ExpectQuery("select").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tags"}).AddRow(int64(1), `[1]`).AddRow(int64(2), nil))
	values, err := s.Prepare(q, nil).Values(context.Background(), nil)
	require.NoError(t, err)
	// Positional driver values, no decoding.
	assert.Equal(t, [][]any{{int64(1), "[1]"}, {int64(2), nil}}, values)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPreparedQueryDriverError(t *testing.T) {
	s, mock := newSession(t)
	cause := errors.New("UNIQUE constraint failed: users.id")
	q := compile(t, s, expr.SQL(`insert into "users" ("id") values (?)`, 1))
	mock.ExpectExec("insert").WillReturnError(cause)

	_, err := s.Prepare(q, nil).Run(context.Background(), nil)
	require.Error(t, err)
	var de *sqlq.DriverError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, `insert into "users" ("id") values (?)`, de.SQL)
	assert.Equal(t, []any{1}, de.Params)
	assert.ErrorIs(t, err, cause)
	assert.True(t, sqlq.IsUniqueConstraintError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRaw(t *testing.T) {
	s, mock := newSession(t)
	mock.ExpectQuery("select count").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(4)))
	row, err := s.Get(context.Background(), expr.Raw(`select count(*) as n from "users"`))
	require.NoError(t, err)
	assert.Equal(t, session.Row{"n": int64(4)}, row)

	mock.ExpectQuery("select").WillReturnRows(sqlmock.NewRows([]string{"n"}))
	_, err = s.Get(context.Background(), expr.Raw(`select 1 as n where 0`))
	assert.True(t, sqlq.IsNotFound(err))

	mock.ExpectQuery("select").WillReturnRows(sqlmock.NewRows([]string{"a", "b"}).AddRow(int64(1), "x"))
	values, err := s.Values(context.Background(), expr.Raw(`select 1, 'x'`))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1), "x"}}, values)

	mock.ExpectExec("create table").WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = s.Run(context.Background(), expr.Raw(`create table "t" ("id" integer)`))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = s.Run(context.Background(), expr.Fail(sqlq.NewConfigurationError("raw", "bad")))
	assert.True(t, sqlq.IsConfigurationError(err))
}

func TestSessionLogger(t *testing.T) {
	var logged []string
	s, mock := newSession(t, session.WithLogger(session.LoggerFunc(func(_ context.Context, query string, params []any) {
		logged = append(logged, query)
	})))
	mock.ExpectExec("delete").WillReturnResult(sqlmock.NewResult(0, 0))
	_, err := s.Run(context.Background(), expr.Raw(`delete from "users"`))
	require.NoError(t, err)
	assert.Equal(t, []string{`delete from "users"`}, logged)

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, mock = newSession(t, session.WithLogger(session.NewSlogLogger(l)))
	mock.ExpectExec("delete").WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = s.Run(context.Background(), expr.SQL(`delete from "users" where "id" = ?`, 7))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), `query="delete from \"users\" where \"id\" = ?"`)
	assert.Contains(t, buf.String(), "params=[7]")
}

func TestSessionWithDriver(t *testing.T) {
	s, _ := newSession(t)
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	other := entsql.OpenDB(dialect.SQLite, db)
	c := s.WithDriver(other)
	assert.Same(t, other, c.Driver())
	assert.NotSame(t, s.Driver(), c.Driver())
	assert.Same(t, s.Dialect(), c.Dialect())
}
