package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/sqlq/dialect"
)

// counters are shared by a StatsDriver and the transactions it starts.
type counters struct {
	queries, execs  atomic.Int64
	rows, affected  atomic.Int64
	errors, slow    atomic.Int64
	commits, aborts atomic.Int64
	elapsed         atomic.Int64
}

// Stats is a point-in-time copy of the counters of a StatsDriver.
type Stats struct {
	Queries int64
	Execs   int64
	// Rows is the number of rows read by queries.
	Rows int64
	// Affected is the sum of the rows affected by execs.
	Affected int64
	Errors   int64
	// Slow counts the statements that took longer than the slow threshold.
	Slow     int64
	Commits  int64
	Aborts   int64
	Duration time.Duration
}

// Statements returns the number of statements sent to the database.
func (s Stats) Statements() int64 { return s.Queries + s.Execs }

// Avg returns the mean statement duration.
func (s Stats) Avg() time.Duration {
	if n := s.Statements(); n > 0 {
		return s.Duration / time.Duration(n)
	}
	return 0
}

func (s Stats) String() string {
	return fmt.Sprintf("queries=%d execs=%d rows=%d affected=%d errors=%d slow=%d commits=%d aborts=%d avg=%s",
		s.Queries, s.Execs, s.Rows, s.Affected, s.Errors, s.Slow, s.Commits, s.Aborts, s.Avg())
}

// SlowHook is called with every statement slower than the threshold.
type SlowHook func(ctx context.Context, query string, args []any, took time.Duration)

// StatsDriver counts the statements of a dialect.Driver and reports the slow ones.
type StatsDriver struct {
	dialect.Driver
	c         *counters
	threshold atomic.Int64
	hook      SlowHook
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
)

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// Defaults to 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold.Store(int64(d))
	}
}

// WithSlowHook sets the function called for slow statements.
func WithSlowHook(hook SlowHook) StatsOption {
	return func(s *StatsDriver) {
		s.hook = hook
	}
}

// WithSlowQueryLog logs slow statements at warn level. A nil logger uses
// slog.Default.
func WithSlowQueryLog(loggers ...*slog.Logger) StatsOption {
	return WithSlowHook(func(ctx context.Context, query string, args []any, took time.Duration) {
		l := slog.Default()
		if len(loggers) > 0 && loggers[0] != nil {
			l = loggers[0]
		}
		l.WarnContext(ctx, "slow statement", "query", query, "args", len(args), "duration", took)
	})
}

// NewStatsDriver wraps drv with statement statistics.
//
//	drv := sql.NewStatsDriver(base,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(logger),
//	)
//	db, err := query.New(drv)
//	...
//	logger.Info("database", "stats", drv.Stats())
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, c: &counters{}}
	s.threshold.Store(int64(100 * time.Millisecond))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the current counters.
func (d *StatsDriver) Stats() Stats {
	c := d.c
	return Stats{
		Queries:  c.queries.Load(),
		Execs:    c.execs.Load(),
		Rows:     c.rows.Load(),
		Affected: c.affected.Load(),
		Errors:   c.errors.Load(),
		Slow:     c.slow.Load(),
		Commits:  c.commits.Load(),
		Aborts:   c.aborts.Load(),
		Duration: time.Duration(c.elapsed.Load()),
	}
}

// Reset zeroes the counters.
func (d *StatsDriver) Reset() {
	c := d.c
	for _, v := range []*atomic.Int64{&c.queries, &c.execs, &c.rows, &c.affected, &c.errors, &c.slow, &c.commits, &c.aborts, &c.elapsed} {
		v.Store(0)
	}
}

// SlowThreshold returns the slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// SetSlowThreshold changes the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(t time.Duration) {
	d.threshold.Store(int64(t))
}

// Query implements dialect.Driver.
func (d *StatsDriver) Query(ctx context.Context, query string, args []any) (*dialect.Result, error) {
	start := time.Now()
	res, err := d.Driver.Query(ctx, query, args)
	d.record(ctx, query, args, start, res, err, true)
	return res, err
}

// Exec implements dialect.Driver.
func (d *StatsDriver) Exec(ctx context.Context, query string, args []any) (*dialect.Result, error) {
	start := time.Now()
	res, err := d.Driver.Exec(ctx, query, args)
	d.record(ctx, query, args, start, res, err, false)
	return res, err
}

// Tx starts a transaction whose statements are counted by d.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		d.c.errors.Add(1)
		return nil, err
	}
	return &StatsTx{tx: tx, driver: d}, nil
}

func (d *StatsDriver) record(ctx context.Context, query string, args []any, start time.Time, res *dialect.Result, err error, isQuery bool) {
	took := time.Since(start)
	c := d.c
	c.elapsed.Add(int64(took))
	if isQuery {
		c.queries.Add(1)
	} else {
		c.execs.Add(1)
	}
	switch {
	case err != nil:
		c.errors.Add(1)
	case res != nil && isQuery:
		c.rows.Add(int64(len(res.Rows)))
	case res != nil:
		c.affected.Add(res.RowsAffected)
	}
	if took > d.SlowThreshold() {
		c.slow.Add(1)
		if d.hook != nil {
			d.hook(ctx, query, args, took)
		}
	}
}

// StatsTx is a transaction started by a StatsDriver.
type StatsTx struct {
	tx     dialect.Tx
	driver *StatsDriver
}

// Query implements dialect.Tx.
func (tx *StatsTx) Query(ctx context.Context, query string, args []any) (*dialect.Result, error) {
	start := time.Now()
	res, err := tx.tx.Query(ctx, query, args)
	tx.driver.record(ctx, query, args, start, res, err, true)
	return res, err
}

// Exec implements dialect.Tx.
func (tx *StatsTx) Exec(ctx context.Context, query string, args []any) (*dialect.Result, error) {
	start := time.Now()
	res, err := tx.tx.Exec(ctx, query, args)
	tx.driver.record(ctx, query, args, start, res, err, false)
	return res, err
}

// Commit implements dialect.Tx.
func (tx *StatsTx) Commit() error {
	if err := tx.tx.Commit(); err != nil {
		tx.driver.c.errors.Add(1)
		return err
	}
	tx.driver.c.commits.Add(1)
	return nil
}

// Rollback implements dialect.Tx.
func (tx *StatsTx) Rollback() error {
	tx.driver.c.aborts.Add(1)
	return tx.tx.Rollback()
}

// Tx returns tx with no-op Commit and Rollback. Statements of the nested
// transaction are still counted.
func (tx *StatsTx) Tx(context.Context) (dialect.Tx, error) { return dialect.NopTx(tx), nil }

// Close implements dialect.Driver.
func (tx *StatsTx) Close() error { return tx.tx.Close() }

// Dialect implements dialect.Driver.
func (tx *StatsTx) Dialect() string { return tx.tx.Dialect() }
