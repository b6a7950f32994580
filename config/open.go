package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlq/dialect"
	"github.com/syssam/sqlq/dialect/pgx"
	entsql "github.com/syssam/sqlq/dialect/sql"
	"github.com/syssam/sqlq/query"
	"github.com/syssam/sqlq/session"
)

// Open opens the configured driver, checks the connection and returns a DB
// on top of it.
func Open(ctx context.Context, cfg *Config) (*query.DB, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	drv, err := openDriver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts := []query.Option{query.WithDialect(dialect.MustLookup(cfg.Dialect))}
	var logger *slog.Logger
	if cfg.Logging.Enabled {
		if logger, err = cfg.Logging.logger(); err != nil {
			return nil, errors.Join(err, drv.Close())
		}
		opts = append(opts, query.WithLogger(session.NewSlogLogger(logger)))
	}
	if cfg.SlowThreshold > 0 {
		drv = entsql.NewStatsDriver(drv,
			entsql.WithSlowThreshold(cfg.SlowThreshold),
			entsql.WithSlowQueryLog(logger),
		)
	}
	db, err := query.New(drv, opts...)
	if err != nil {
		return nil, errors.Join(err, drv.Close())
	}
	return db, nil
}

func openDriver(ctx context.Context, cfg *Config) (dialect.Driver, error) {
	if cfg.Driver == "pgx" {
		var opts []pgx.Option
		if cfg.MaxOpenConns > 0 {
			opts = append(opts, pgx.WithMaxConns(int32(cfg.MaxOpenConns)))
		}
		drv, err := pgx.Open(ctx, cfg.DSN, opts...)
		if err != nil {
			return nil, err
		}
		return drv, nil
	}
	drv, err := entsql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("config: opening %s: %w", cfg.Driver, err)
	}
	db := drv.DB()
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("config: ping %s: %w", cfg.Driver, err), db.Close())
	}
	return drv, nil
}

// logger returns a text logger writing to stderr at the configured level.
func (l Logging) logger() (*slog.Logger, error) {
	level := slog.LevelDebug
	if l.Level == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return nil, fmt.Errorf("config: logging level: %w", err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}
