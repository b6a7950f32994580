package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/dialect"
	entsql "github.com/syssam/sqlq/dialect/sql"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/schema"
	"github.com/syssam/sqlq/session"
)

// DB is the entry point of the query builders. It owns a session and hands
// it to every builder it creates.
type DB struct {
	session *session.Session
	inTx    bool
}

type options struct {
	logger  session.Logger
	dialect *dialect.Dialect
}

// Option configures a DB.
type Option func(*options)

// WithLogger sets the statement logger of the session.
func WithLogger(l session.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDialect overrides the compiler chosen from the driver dialect name.
func WithDialect(d *dialect.Dialect) Option {
	return func(o *options) {
		o.dialect = d
	}
}

// New returns a DB executing on drv. The compiler is looked up by the
// dialect name the driver reports.
func New(drv dialect.Driver, opts ...Option) (*DB, error) {
	if drv == nil {
		return nil, sqlq.NewConfigurationError("new", "nil driver")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.dialect == nil {
		d, err := dialect.Lookup(drv.Dialect())
		if err != nil {
			return nil, err
		}
		o.dialect = d
	}
	var sopts []session.Option
	if o.logger != nil {
		sopts = append(sopts, session.WithLogger(o.logger))
	}
	return &DB{session: session.New(drv, o.dialect, sopts...)}, nil
}

// Open opens a database/sql connection with the registered driver name and
// returns a DB on top of it.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	drv, err := entsql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db, err := New(drv, opts...)
	if err != nil {
		return nil, errors.Join(err, drv.Close())
	}
	return db, nil
}

// Session returns the session of the DB.
func (db *DB) Session() *session.Session { return db.session }

// Dialect returns the compiler of the DB.
func (db *DB) Dialect() *dialect.Dialect { return db.session.Dialect() }

// Driver returns the driver the DB executes on.
func (db *DB) Driver() dialect.Driver { return db.session.Driver() }

// Close closes the underlying driver.
func (db *DB) Close() error { return db.session.Driver().Close() }

// Select starts a select of the given projection. Without fields, every
// field of the source is selected.
func (db *DB) Select(fields ...Selection) *SelectBuilder {
	return &SelectBuilder{db: db, fields: fields}
}

// SelectDistinct is like Select but renders `select distinct`.
func (db *DB) SelectDistinct(fields ...Selection) *SelectBuilder {
	return &SelectBuilder{db: db, fields: fields, distinct: true}
}

// With starts a select preceded by common table expressions. The subqueries
// can be used as sources by their alias.
func (db *DB) With(subqueries ...*dialect.Subquery) *WithBuilder {
	return &WithBuilder{db: db, with: subqueries}
}

// Insert starts an insert into t.
func (db *DB) Insert(t *schema.Table) *InsertBuilder {
	return &InsertBuilder{db: db, table: t}
}

// Update starts an update of t.
func (db *DB) Update(t *schema.Table) *UpdateBuilder {
	return &UpdateBuilder{db: db, table: t}
}

// Delete returns a delete from t. Without Where, every row is deleted.
func (db *DB) Delete(t *schema.Table) *Delete {
	d := &Delete{cfg: dialect.DeleteConfig{Table: t}}
	d.executor = executor{db: db, stmt: d}
	if t == nil {
		d.AddError(sqlq.NewConfigurationError("delete", "no table"))
	}
	return d
}

// Run executes a raw statement.
func (db *DB) Run(ctx context.Context, e expr.Expr) (*dialect.Result, error) {
	return db.session.Run(ctx, e)
}

// All executes a raw query and returns its rows keyed by column name.
func (db *DB) All(ctx context.Context, e expr.Expr) ([]session.Row, error) {
	return db.session.All(ctx, e)
}

// Get executes a raw query and returns its first row.
func (db *DB) Get(ctx context.Context, e expr.Expr) (session.Row, error) {
	return db.session.Get(ctx, e)
}

// Values executes a raw query and returns its rows as positional tuples.
func (db *DB) Values(ctx context.Context, e expr.Expr) ([][]any, error) {
	return db.session.Values(ctx, e)
}

// Tx is a DB bound to a transaction.
type Tx struct {
	*DB
	tx dialect.Tx
}

// Tx starts a transaction. Builders created from the returned Tx execute
// inside it.
func (db *DB) Tx(ctx context.Context) (*Tx, error) {
	if db.inTx {
		return nil, sqlq.ErrTxStarted
	}
	tx, err := db.session.Driver().Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlq: starting a transaction: %w", err)
	}
	return &Tx{DB: &DB{session: db.session.WithDriver(tx), inTx: true}, tx: tx}, nil
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	if err := tx.tx.Commit(); err != nil {
		return fmt.Errorf("sqlq: committing transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error {
	return tx.tx.Rollback()
}

// Transaction runs fn in a transaction. The transaction is committed when fn
// returns nil and rolled back when it returns an error or panics. Within a
// transaction, Transaction runs fn in the enclosing one.
func (db *DB) Transaction(ctx context.Context, fn func(tx *DB) error) error {
	if db.inTx {
		return fn(db)
	}
	tx, err := db.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(tx.DB); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Join(err, &sqlq.RollbackError{Err: rerr})
		}
		return err
	}
	return tx.Commit()
}
