// Package pgx implements dialect.Driver on top of a pgx/v5 connection pool.
package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syssam/sqlq/dialect"
)

// execQuerier is the subset shared by *pgxpool.Pool and pgx.Tx.
type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type conn struct {
	ex execQuerier
}

// Exec implements the dialect.Exec method.
func (c conn) Exec(ctx context.Context, query string, args []any) (*dialect.Result, error) {
	tag, err := c.ex.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/pgx: exec: %w", err)
	}
	return &dialect.Result{RowsAffected: tag.RowsAffected()}, nil
}

// Query implements the dialect.Query method.
func (c conn) Query(ctx context.Context, query string, args []any) (*dialect.Result, error) {
	rows, err := c.ex.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/pgx: query: %w", err)
	}
	res, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("dialect/pgx: query: %w", err)
	}
	return res, nil
}

func scanRows(rows pgx.Rows) (*dialect.Result, error) {
	defer rows.Close()
	fields := rows.FieldDescriptions()
	res := &dialect.Result{Columns: make([]string, len(fields))}
	for i, f := range fields {
		res.Columns[i] = f.Name
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	res.RowsAffected = rows.CommandTag().RowsAffected()
	return res, nil
}

// Driver is a dialect.Driver backed by a *pgxpool.Pool.
type Driver struct {
	conn
	pool *pgxpool.Pool
}

// Option configures the pool created by Open.
type Option func(*pgxpool.Config)

// WithMaxConns sets the maximum size of the pool.
func WithMaxConns(n int32) Option {
	return func(c *pgxpool.Config) { c.MaxConns = n }
}

// WithMinConns sets the minimum size of the pool.
func WithMinConns(n int32) Option {
	return func(c *pgxpool.Config) { c.MinConns = n }
}

// Open creates a pool for dsn and checks that the database is reachable.
func Open(ctx context.Context, dsn string, opts ...Option) (*Driver, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("dialect/pgx: parse dsn: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dialect/pgx: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("dialect/pgx: ping: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Driver {
	return &Driver{conn: conn{pool}, pool: pool}
}

// Pool returns the underlying pool.
func (d *Driver) Pool() *pgxpool.Pool { return d.pool }

// Dialect implements the dialect.Driver method.
func (*Driver) Dialect() string { return dialect.Postgres }

// Close closes the pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

// Tx starts a transaction. The context is kept for Commit and Rollback.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, pgx.TxOptions{})
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts pgx.TxOptions) (dialect.Tx, error) {
	tx, err := d.pool.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("dialect/pgx: begin: %w", err)
	}
	return &Tx{conn: conn{tx}, tx: tx, ctx: ctx}, nil
}

// Tx implements dialect.Tx over pgx.Tx.
type Tx struct {
	conn
	tx  pgx.Tx
	ctx context.Context
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(t.ctx); err != nil {
		return fmt.Errorf("dialect/pgx: commit: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Rolling back a closed transaction is not an error.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(t.ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("dialect/pgx: rollback: %w", err)
	}
	return nil
}

// Tx returns the transaction itself with no-op Commit and Rollback.
func (t *Tx) Tx(context.Context) (dialect.Tx, error) { return dialect.NopTx(t), nil }

// Close is a no-op.
func (*Tx) Close() error { return nil }

// Dialect implements the dialect.Driver method.
func (*Tx) Dialect() string { return dialect.Postgres }

var (
	_ dialect.Driver = (*Driver)(nil)
	_ dialect.Tx     = (*Tx)(nil)
)
