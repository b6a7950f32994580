// Package config loads the connection settings of sqlq from a YAML file,
// .env files and SQLQ_* environment variables, and opens a query.DB from
// them.
//
//	cfg, err := config.Load("sqlq.yaml")
//	if err != nil {
//	    return err
//	}
//	db, err := config.Open(ctx, cfg)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/syssam/sqlq/dialect"
)

// EnvPrefix prefixes the environment variables that override file values.
// Nested keys use underscores: SQLQ_LOGGING_LEVEL.
const EnvPrefix = "SQLQ"

// Config holds the settings of a database connection.
type Config struct {
	// Dialect is the SQL dialect: postgres, mysql or sqlite. Derived from
	// Driver when empty.
	Dialect string `mapstructure:"dialect"`
	// Driver is the database/sql driver name, or "pgx" for the pgx pool.
	// Derived from Dialect when empty.
	Driver string `mapstructure:"driver"`
	// DSN is the data source name passed to the driver.
	DSN string `mapstructure:"dsn"`
	// MaxOpenConns limits the connections of the pool when positive.
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// SlowThreshold enables query statistics and slow query logging when positive.
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	Logging       Logging       `mapstructure:"logging"`
}

// Logging configures statement logging.
type Logging struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"`
}

var defaults = map[string]any{
	"dialect":         "",
	"driver":          "",
	"dsn":             "",
	"max_open_conns":  0,
	"slow_threshold":  "0s",
	"logging.enabled": false,
	"logging.level":   "debug",
}

type options struct {
	envFiles []string
}

// Option configures Load.
type Option func(*options)

// WithEnvFiles sets the .env files loaded before reading the environment.
// Missing files are ignored. Defaults to ".env".
func WithEnvFiles(files ...string) Option {
	return func(o *options) {
		o.envFiles = files
	}
}

// Load reads the configuration file at path, if not empty, and applies the
// environment overrides. Variables already set in the environment take
// precedence over .env files.
func Load(path string, opts ...Option) (*Config, error) {
	o := &options{envFiles: []string{".env"}}
	for _, opt := range opts {
		opt(o)
	}
	for _, f := range o.envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}
	return decode(v)
}

// Watch loads the configuration file at path and calls fn with the new
// configuration each time the file changes. Environment overrides apply to
// every reload.
func Watch(path string, fn func(*Config, error)) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		fn(decode(v))
	})
	v.WatchConfig()
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize derives the missing dialect or driver name and validates the result.
func (c *Config) normalize() error {
	switch {
	case c.Dialect == "" && c.Driver == "":
		return errors.New("config: dialect or driver is required")
	case c.Driver == "":
		c.Driver = c.Dialect
	case c.Dialect == "" && c.Driver == "pgx":
		c.Dialect = dialect.Postgres
	case c.Dialect == "":
		c.Dialect = c.Driver
	}
	d, err := dialect.Lookup(c.Dialect)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Dialect = d.Name()
	if c.Driver == "pgx" && c.Dialect != dialect.Postgres {
		return fmt.Errorf("config: driver pgx requires the postgres dialect, got %q", c.Dialect)
	}
	if c.DSN == "" {
		return errors.New("config: dsn is required")
	}
	return nil
}
