package dialect

import (
	"strings"
	"time"
)

// MSSQLDialect generates SQL for Microsoft SQL Server. Paging uses nested
// TOP queries unless PagingFetch is requested.
type MSSQLDialect struct{ config }

// NewMSSQL returns the SQL Server dialect.
func NewMSSQL(opts ...Option) *MSSQLDialect {
	d := &MSSQLDialect{config{paging: PagingTop, maxBatchRows: 1000}}
	d.apply(opts)
	return d
}

// Name implements the Dialect interface.
func (*MSSQLDialect) Name() string { return MSSQL }

// QuoteIdent implements the Dialect interface.
func (*MSSQLDialect) QuoteIdent(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

// QuoteTable implements the Dialect interface.
func (d *MSSQLDialect) QuoteTable(s string) string { return quoteQualified(s, d.QuoteIdent) }

// Literal implements the Dialect interface.
func (d *MSSQLDialect) Literal(v any) (string, error) { return literal(d, d.config, v) }

// LastInsertIDQuery implements the Dialect interface.
func (*MSSQLDialect) LastInsertIDQuery() string { return "SELECT @@IDENTITY" }

// EmptyStringIsNull implements the Dialect interface.
func (*MSSQLDialect) EmptyStringIsNull() bool { return false }

// SupportsInsertAll implements the Dialect interface.
func (*MSSQLDialect) SupportsInsertAll() bool { return false }

// SupportsReturning implements the Dialect interface.
func (*MSSQLDialect) SupportsReturning() bool { return false }

// EqualFoldLike implements the Dialect interface.
func (*MSSQLDialect) EqualFoldLike() bool { return false }

// ParenthesizeJoins implements the Dialect interface.
func (*MSSQLDialect) ParenthesizeJoins() bool { return false }

func (*MSSQLDialect) quoteString(s string) string { return quote(s) }

func (*MSSQLDialect) formatTime(t time.Time) string {
	return quote(t.Format("2006-01-02T15:04:05"))
}
