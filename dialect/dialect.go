package dialect

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
)

// Dialect names for external usage.
const (
	MySQL    = "mysql"
	MSSQL    = "sqlserver"
	SQLite   = "sqlite"
	Oracle   = "oracle"
	Access   = "access"
	Postgres = "postgres"
)

// Names lists the supported dialects.
var Names = []string{MySQL, MSSQL, SQLite, Oracle, Access, Postgres}

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for sqlmap clients.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	driver.Tx
}

// Paging is a strategy for rendering offset pagination.
type Paging uint8

// Paging strategies.
const (
	// PagingLimit renders LIMIT offset,count.
	PagingLimit Paging = iota + 1
	// PagingTop nests the query twice using TOP, ordering by the primary key.
	PagingTop
	// PagingFetch renders OFFSET n ROWS FETCH NEXT m ROWS ONLY.
	PagingFetch
	// PagingRownum nests the query twice filtering on ROWNUM.
	PagingRownum
	// PagingOffsetLimit renders LIMIT count OFFSET offset.
	PagingOffsetLimit
)

// String returns the strategy name.
func (p Paging) String() string {
	switch p {
	case PagingLimit:
		return "limit"
	case PagingTop:
		return "top"
	case PagingFetch:
		return "fetch"
	case PagingRownum:
		return "rownum"
	case PagingOffsetLimit:
		return "offset-limit"
	}
	return fmt.Sprintf("Paging(%d)", p)
}

// Dialect is the SQL generation capability of one backend.
type Dialect interface {
	// Name returns the dialect name.
	Name() string
	// QuoteIdent quotes a column name or a result label.
	QuoteIdent(string) string
	// QuoteTable quotes a possibly schema-qualified table name.
	QuoteTable(string) string
	// Literal formats a Go value as a SQL literal.
	Literal(any) (string, error)
	// Paging returns the pagination strategy.
	Paging() Paging
	// MaxBatchRows returns the maximum number of rows in one INSERT.
	MaxBatchRows() int
	// LastInsertIDQuery returns the statement reading back an
	// auto-increment value, or "" when the driver result reports it.
	LastInsertIDQuery() string
	// EnumAsString reports whether enums are stored by name.
	EnumAsString() bool
	// SelectUsingAs reports whether result columns are labelled with
	// their source table.
	SelectUsingAs() bool
	// EmptyStringIsNull reports whether the backend stores '' as NULL.
	EmptyStringIsNull() bool
	// UseUTC reports whether times are converted to UTC before formatting.
	UseUTC() bool
	// SupportsInsertAll reports whether multi-row inserts use the
	// INSERT ALL INTO ... SELECT 1 FROM DUAL form.
	SupportsInsertAll() bool
	// SupportsReturning reports whether INSERT accepts a RETURNING clause.
	SupportsReturning() bool
	// EqualFoldLike reports whether case-insensitive equality renders as
	// LIKE instead of =.
	EqualFoldLike() bool
	// ParenthesizeJoins reports whether each join of a chain must be
	// wrapped in parentheses.
	ParenthesizeJoins() bool
}

// Option configures a Dialect returned by Get.
type Option func(*config)

// WithPaging overrides the pagination strategy, e.g. PagingFetch for
// SQL Server 2012 and later.
func WithPaging(p Paging) Option {
	return func(c *config) {
		c.paging = p
	}
}

// WithMaxBatchRows overrides the maximum number of rows per INSERT.
func WithMaxBatchRows(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBatchRows = n
		}
	}
}

// WithEnumAsString sets whether enums are stored by name.
func WithEnumAsString(b bool) Option {
	return func(c *config) {
		c.enumAsString = b
	}
}

// WithSelectUsingAs sets whether result columns are labelled with their
// source table.
func WithSelectUsingAs(b bool) Option {
	return func(c *config) {
		c.selectUsingAs = b
	}
}

// WithUTC sets whether times are converted to UTC before formatting.
func WithUTC(b bool) Option {
	return func(c *config) {
		c.utc = b
	}
}

// config holds the tunable capabilities shared by all backends.
type config struct {
	paging        Paging
	maxBatchRows  int
	enumAsString  bool
	selectUsingAs bool
	utc           bool
}

// Paging implements the Dialect interface.
func (c config) Paging() Paging { return c.paging }

// MaxBatchRows implements the Dialect interface.
func (c config) MaxBatchRows() int { return c.maxBatchRows }

// EnumAsString implements the Dialect interface.
func (c config) EnumAsString() bool { return c.enumAsString }

// SelectUsingAs implements the Dialect interface.
func (c config) SelectUsingAs() bool { return c.selectUsingAs }

// UseUTC implements the Dialect interface.
func (c config) UseUTC() bool { return c.utc }

func (c *config) apply(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Get returns the dialect registered under name. Driver names carrying a
// known dialect as prefix, e.g. "sqlite3" or "mysql-debug", are accepted.
func Get(name string, opts ...Option) (Dialect, error) {
	switch Normalize(name) {
	case MySQL:
		return NewMySQL(opts...), nil
	case MSSQL:
		return NewMSSQL(opts...), nil
	case SQLite:
		return NewSQLite(opts...), nil
	case Oracle:
		return NewOracle(opts...), nil
	case Access:
		return NewAccess(opts...), nil
	case Postgres:
		return NewPostgres(opts...), nil
	}
	return nil, fmt.Errorf("dialect: unknown dialect %q", name)
}

// MustGet is like Get but panics on unknown names.
func MustGet(name string, opts ...Option) Dialect {
	d, err := Get(name, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Normalize maps a driver name to the dialect it speaks.
func Normalize(name string) string {
	n := strings.ToLower(name)
	switch {
	case n == "mssql" || strings.HasPrefix(n, MSSQL):
		return MSSQL
	case n == "pgx" || strings.HasPrefix(n, Postgres):
		return Postgres
	case n == "godror" || n == "oci8" || strings.HasPrefix(n, Oracle):
		return Oracle
	case strings.HasPrefix(n, Access):
		return Access
	}
	for _, d := range []string{MySQL, SQLite} {
		if strings.HasPrefix(n, d) {
			return d
		}
	}
	return name
}

var (
	_ Dialect = (*MySQLDialect)(nil)
	_ Dialect = (*MSSQLDialect)(nil)
	_ Dialect = (*SQLiteDialect)(nil)
	_ Dialect = (*OracleDialect)(nil)
	_ Dialect = (*AccessDialect)(nil)
	_ Dialect = (*PostgresDialect)(nil)
)
