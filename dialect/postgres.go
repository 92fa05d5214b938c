package dialect

import (
	"strings"
	"time"
)

// PostgresDialect generates SQL for PostgreSQL.
type PostgresDialect struct{ config }

// NewPostgres returns the PostgreSQL dialect.
func NewPostgres(opts ...Option) *PostgresDialect {
	d := &PostgresDialect{config{paging: PagingOffsetLimit, maxBatchRows: 1000}}
	d.apply(opts)
	return d
}

// Name implements the Dialect interface.
func (*PostgresDialect) Name() string { return Postgres }

// QuoteIdent implements the Dialect interface.
func (*PostgresDialect) QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteTable implements the Dialect interface.
func (d *PostgresDialect) QuoteTable(s string) string { return quoteQualified(s, d.QuoteIdent) }

// Literal implements the Dialect interface.
func (d *PostgresDialect) Literal(v any) (string, error) { return literal(d, d.config, v) }

// LastInsertIDQuery implements the Dialect interface. Generated keys are
// read with RETURNING instead.
func (*PostgresDialect) LastInsertIDQuery() string { return "" }

// EmptyStringIsNull implements the Dialect interface.
func (*PostgresDialect) EmptyStringIsNull() bool { return false }

// SupportsInsertAll implements the Dialect interface.
func (*PostgresDialect) SupportsInsertAll() bool { return false }

// SupportsReturning implements the Dialect interface.
func (*PostgresDialect) SupportsReturning() bool { return true }

// EqualFoldLike implements the Dialect interface.
func (*PostgresDialect) EqualFoldLike() bool { return false }

// ParenthesizeJoins implements the Dialect interface.
func (*PostgresDialect) ParenthesizeJoins() bool { return false }

func (*PostgresDialect) quoteString(s string) string { return quote(s) }

func (*PostgresDialect) formatTime(t time.Time) string {
	return quote(t.Format("2006-01-02 15:04:05.999999"))
}
