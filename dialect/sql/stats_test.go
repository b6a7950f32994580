package sql

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlq/dialect"
)

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var slow []string
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db),
		WithSlowThreshold(0),
		WithSlowHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	assert.Zero(t, drv.SlowThreshold())

	ctx := context.Background()
	mock.ExpectQuery("select").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))
	mock.ExpectExec("delete").WillReturnError(fmt.Errorf("locked"))
	mock.ExpectBegin()
	mock.ExpectExec("insert").WillReturnResult(sqlmock.NewResult(1, 3))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = drv.Query(ctx, `select "id" from "users"`, nil)
	require.NoError(t, err)
	_, err = drv.Exec(ctx, `delete from "users"`, nil)
	require.Error(t, err)
	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `insert into "users" default values`, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	tx, err = drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.Stats()
	assert.Equal(t, int64(1), s.Queries)
	assert.Equal(t, int64(2), s.Execs)
	assert.Equal(t, int64(3), s.Statements())
	assert.Equal(t, int64(2), s.Rows)
	assert.Equal(t, int64(3), s.Affected)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(3), s.Slow)
	assert.Equal(t, int64(1), s.Commits)
	assert.Equal(t, int64(1), s.Aborts)
	assert.Equal(t, []string{`select "id" from "users"`, `delete from "users"`, `insert into "users" default values`}, slow)
	assert.Contains(t, s.String(), "queries=1 execs=2 rows=2 affected=3 errors=1 slow=3 commits=1 aborts=1")

	drv.SetSlowThreshold(time.Hour)
	drv.Reset()
	mock.ExpectQuery("select").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = drv.Query(ctx, `select "id" from "users"`, nil)
	require.NoError(t, err)
	s = drv.Stats()
	assert.Equal(t, int64(1), s.Queries)
	assert.Zero(t, s.Slow)
	assert.Zero(t, s.Commits)
	assert.Len(t, slow, 3)
}

func TestStatsAvg(t *testing.T) {
	assert.Zero(t, Stats{}.Avg())
	s := Stats{Queries: 2, Execs: 2, Duration: 8 * time.Millisecond}
	assert.Equal(t, 2*time.Millisecond, s.Avg())
}

func TestSlowQueryLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db), WithSlowThreshold(0), WithSlowQueryLog(logger))
	mock.ExpectExec("update").WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = drv.Exec(context.Background(), `update "users" set "name" = $1`, []any{"a"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="slow statement"`)
	assert.Contains(t, out, "args=1")
}

func TestStatsNestedTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.SQLite, db))
	ctx := context.Background()
	mock.ExpectBegin()
	mock.ExpectExec("insert").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	nested, err := tx.Tx(ctx)
	require.NoError(t, err)
	assert.Equal(t, dialect.SQLite, nested.Dialect())
	_, err = nested.Exec(ctx, `insert into "users" default values`, nil)
	require.NoError(t, err)
	require.NoError(t, nested.Commit(), "nested commit is a no-op")
	require.NoError(t, nested.Rollback(), "nested rollback is a no-op")
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.Stats()
	assert.Equal(t, int64(1), s.Execs)
	assert.Equal(t, int64(1), s.Commits)
	assert.Zero(t, s.Aborts)
}
