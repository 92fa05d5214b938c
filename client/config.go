package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/sqlmap/dialect"
	"github.com/syssam/sqlmap/dialect/sql"
	"github.com/syssam/sqlmap/dialect/sql/sqlgraph"
)

// Config holds the connection settings of a client, usually read from a
// YAML file:
//
//	dialect: mysql
//	dsn: app:secret@tcp(localhost:3306)/app?parseTime=true
//	max_conns: 10
//	acquire_timeout: 5s
//	slow_threshold: 200ms
type Config struct {
	// Dialect names the SQL dialect. It defaults to the dialect spoken by
	// Driver.
	Dialect string `yaml:"dialect,omitempty"`
	// Driver is the database/sql driver name. It defaults to Dialect.
	Driver string `yaml:"driver,omitempty"`
	// DSN is the data source name passed to the driver.
	DSN string `yaml:"dsn"`
	// MaxConns bounds the connections in use at once. Zero is unbounded.
	MaxConns int `yaml:"max_conns,omitempty"`
	// AcquireTimeout bounds the wait for a connection when MaxConns is
	// set. Zero waits until the context is done.
	AcquireTimeout time.Duration `yaml:"acquire_timeout,omitempty"`
	// SlowThreshold enables statement statistics, logging statements
	// slower than the threshold.
	SlowThreshold time.Duration `yaml:"slow_threshold,omitempty"`
	// Debug logs every statement at debug level.
	Debug bool `yaml:"debug,omitempty"`
	// UTC converts times to UTC before formatting them as literals.
	UTC bool `yaml:"utc,omitempty"`
	// BatchRows overrides the maximum rows per INSERT statement.
	BatchRows int `yaml:"batch_rows,omitempty"`
}

// ErrNoDSN is returned when a configuration has no data source name.
var ErrNoDSN = errors.New("sqlmap/client: missing dsn")

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("sqlmap/client: parse %s: %w", path, err)
	}
	return &cfg, cfg.Validate()
}

// Validate checks that the configuration names a known dialect and a data
// source.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return ErrNoDSN
	}
	if c.Dialect == "" && c.Driver == "" {
		return errors.New("sqlmap/client: missing dialect")
	}
	_, err := dialect.Get(c.DialectName())
	return err
}

// DialectName returns the configured dialect, or the dialect spoken by the
// configured driver.
func (c *Config) DialectName() string {
	if c.Dialect != "" {
		return dialect.Normalize(c.Dialect)
	}
	return dialect.Normalize(c.Driver)
}

// DriverName returns the database/sql driver name.
func (c *Config) DriverName() string {
	if c.Driver != "" {
		return c.Driver
	}
	return c.Dialect
}

// dialectOptions returns the dialect options set by the configuration.
func (c *Config) dialectOptions() []dialect.Option {
	var opts []dialect.Option
	if c.UTC {
		opts = append(opts, dialect.WithUTC(true))
	}
	if c.BatchRows > 0 {
		opts = append(opts, dialect.WithMaxBatchRows(c.BatchRows))
	}
	return opts
}

// Open opens a database with the configuration and returns a client over
// it. The driver must have been registered with database/sql, usually by
// a blank import.
func Open(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	drv, err := sql.Open(cfg.DriverName(), cfg.DSN, sql.WithMaxConns(cfg.MaxConns))
	if err != nil {
		return nil, err
	}
	return New(cfg.driver(drv, opts), append([]Option{
		WithDialect(cfg.DialectName(), cfg.dialectOptions()...),
		WithAcquireTimeout(cfg.AcquireTimeout),
	}, opts...)...)
}

// driver wraps drv with the decorators enabled by the configuration.
func (c *Config) driver(drv *sql.Driver, opts []Option) dialect.Driver {
	logger := newConfig(opts).log
	switch {
	case c.SlowThreshold > 0:
		return sql.NewStatsDriver(drv,
			sql.WithSlowThreshold(c.SlowThreshold),
			sql.WithSlowLog(logger),
			sql.WithConstraintCheck(sqlgraph.IsConstraintError),
		)
	case c.Debug:
		return sql.NewDebugDriver(drv, logger)
	}
	return drv
}
