package dialect

import (
	"strings"
	"time"
)

// MySQLDialect generates SQL for MySQL and MariaDB.
type MySQLDialect struct{ config }

// NewMySQL returns the MySQL dialect.
func NewMySQL(opts ...Option) *MySQLDialect {
	d := &MySQLDialect{config{paging: PagingLimit, maxBatchRows: 1000}}
	d.apply(opts)
	return d
}

// Name implements the Dialect interface.
func (*MySQLDialect) Name() string { return MySQL }

// QuoteIdent implements the Dialect interface.
func (*MySQLDialect) QuoteIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// QuoteTable implements the Dialect interface.
func (d *MySQLDialect) QuoteTable(s string) string { return quoteQualified(s, d.QuoteIdent) }

// Literal implements the Dialect interface.
func (d *MySQLDialect) Literal(v any) (string, error) { return literal(d, d.config, v) }

// LastInsertIDQuery implements the Dialect interface.
func (*MySQLDialect) LastInsertIDQuery() string { return "SELECT LAST_INSERT_ID()" }

// EmptyStringIsNull implements the Dialect interface.
func (*MySQLDialect) EmptyStringIsNull() bool { return false }

// SupportsInsertAll implements the Dialect interface.
func (*MySQLDialect) SupportsInsertAll() bool { return false }

// SupportsReturning implements the Dialect interface.
func (*MySQLDialect) SupportsReturning() bool { return false }

// EqualFoldLike implements the Dialect interface.
func (*MySQLDialect) EqualFoldLike() bool { return false }

// ParenthesizeJoins implements the Dialect interface.
func (*MySQLDialect) ParenthesizeJoins() bool { return false }

// MySQL treats the backslash as an escape character inside strings.
func (*MySQLDialect) quoteString(s string) string {
	return quote(strings.ReplaceAll(s, `\`, `\\`))
}

func (*MySQLDialect) formatTime(t time.Time) string {
	return quote(t.Format("2006-01-02 15:04:05"))
}
