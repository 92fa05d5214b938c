package dialect

import (
	"strings"
	"time"
)

// SQLiteDialect generates SQL for SQLite.
type SQLiteDialect struct{ config }

// NewSQLite returns the SQLite dialect.
func NewSQLite(opts ...Option) *SQLiteDialect {
	d := &SQLiteDialect{config{paging: PagingLimit, maxBatchRows: 500}}
	d.apply(opts)
	return d
}

// Name implements the Dialect interface.
func (*SQLiteDialect) Name() string { return SQLite }

// QuoteIdent implements the Dialect interface.
func (*SQLiteDialect) QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteTable implements the Dialect interface.
func (d *SQLiteDialect) QuoteTable(s string) string { return quoteQualified(s, d.QuoteIdent) }

// Literal implements the Dialect interface.
func (d *SQLiteDialect) Literal(v any) (string, error) { return literal(d, d.config, v) }

// LastInsertIDQuery implements the Dialect interface.
func (*SQLiteDialect) LastInsertIDQuery() string { return "SELECT last_insert_rowid()" }

// EmptyStringIsNull implements the Dialect interface.
func (*SQLiteDialect) EmptyStringIsNull() bool { return false }

// SupportsInsertAll implements the Dialect interface.
func (*SQLiteDialect) SupportsInsertAll() bool { return false }

// SupportsReturning implements the Dialect interface.
func (*SQLiteDialect) SupportsReturning() bool { return false }

// EqualFoldLike implements the Dialect interface.
func (*SQLiteDialect) EqualFoldLike() bool { return false }

// ParenthesizeJoins implements the Dialect interface.
func (*SQLiteDialect) ParenthesizeJoins() bool { return false }

func (*SQLiteDialect) quoteString(s string) string { return quote(s) }

func (*SQLiteDialect) formatTime(t time.Time) string {
	return quote(t.Format("2006-01-02 15:04:05"))
}
