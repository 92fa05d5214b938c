package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect"
)

// Driver is a dialect.Driver implementation for SQL based databases.
type Driver struct {
	Conn
	dialect string
	sem     *semaphore.Weighted
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithMaxConns bounds the number of connections acquired at once with
// Acquire. It also caps the open connections of the underlying pool.
func WithMaxConns(n int) DriverOption {
	return func(d *Driver) {
		if n <= 0 {
			return
		}
		d.sem = semaphore.NewWeighted(int64(n))
		if db, ok := d.ExecQuerier.(*sql.DB); ok {
			db.SetMaxOpenConns(n)
		}
	}
}

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(dialect string, c Conn, opts ...DriverOption) *Driver {
	d := &Driver{dialect: dialect, Conn: c}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open wraps the database/sql.Open method and returns a dialect.Driver.
func Open(driverName, source string, opts ...DriverOption) (*Driver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(driverName, Conn{db, driverName}, opts...), nil
}

// OpenDB wraps the given database/sql.DB method with a Driver.
func OpenDB(dialect string, db *sql.DB, opts ...DriverOption) *Driver {
	return NewDriver(dialect, Conn{db, dialect}, opts...)
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect implements the dialect.Driver method. Driver names such as
// "sqlite3" or "pgx" are reported as the dialect they speak.
func (d Driver) Dialect() string {
	return dialect.Normalize(d.dialect)
}

// Acquire waits for a free connection slot for at most timeout, and
// returns the function releasing it. A zero timeout waits until ctx is
// done. Drivers opened without WithMaxConns are never exhausted.
func (d *Driver) Acquire(ctx context.Context, timeout time.Duration) (func(), error) {
	if d.sem == nil {
		return func() {}, nil
	}
	actx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.sem.Acquire(actx, 1); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, &sqlmap.TimeoutError{Op: "acquire connection", Timeout: timeout, Err: err}
		}
		return nil, err
	}
	return func() { d.sem.Release(1) }, nil
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{tx, d.dialect},
		Tx:   tx,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx implements dialect.Tx interface.
type Tx struct {
	Conn
	driver.Tx
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.ExecQuerier given ExecQuerier. Statement
// failures are returned as *sqlmap.ExecutionError carrying the SQL.
type Conn struct {
	ExecQuerier
	dialect string
}

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	switch v := v.(type) {
	case nil:
		if _, err := c.ExecContext(ctx, query, argv...); err != nil {
			return sqlmap.NewExecutionError(query, err)
		}
	case *sql.Result:
		res, err := c.ExecContext(ctx, query, argv...)
		if err != nil {
			return sqlmap.NewExecutionError(query, err)
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	return nil
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	rows, err := c.QueryContext(ctx, query, argv...)
	if err != nil {
		return sqlmap.NewExecutionError(query, err)
	}
	*vr = Rows{rows}
	return nil
}

var _ dialect.Driver = (*Driver)(nil)

type (
	// Rows wraps the sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}
