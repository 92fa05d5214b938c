package dialect

import (
	"strings"
	"time"
)

// AccessDialect generates SQL for Microsoft Access. Access inserts one row
// per statement and compares strings case-insensitively with LIKE.
type AccessDialect struct{ config }

// NewAccess returns the Access dialect.
func NewAccess(opts ...Option) *AccessDialect {
	d := &AccessDialect{config{paging: PagingTop, maxBatchRows: 1, enumAsString: true}}
	d.apply(opts)
	return d
}

// Name implements the Dialect interface.
func (*AccessDialect) Name() string { return Access }

// QuoteIdent implements the Dialect interface.
func (*AccessDialect) QuoteIdent(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

// QuoteTable implements the Dialect interface.
func (d *AccessDialect) QuoteTable(s string) string { return quoteQualified(s, d.QuoteIdent) }

// Literal implements the Dialect interface.
func (d *AccessDialect) Literal(v any) (string, error) { return literal(d, d.config, v) }

// LastInsertIDQuery implements the Dialect interface.
func (*AccessDialect) LastInsertIDQuery() string { return "SELECT @@IDENTITY" }

// EmptyStringIsNull implements the Dialect interface.
func (*AccessDialect) EmptyStringIsNull() bool { return false }

// SupportsInsertAll implements the Dialect interface.
func (*AccessDialect) SupportsInsertAll() bool { return false }

// SupportsReturning implements the Dialect interface.
func (*AccessDialect) SupportsReturning() bool { return false }

// EqualFoldLike implements the Dialect interface.
func (*AccessDialect) EqualFoldLike() bool { return true }

// ParenthesizeJoins implements the Dialect interface.
func (*AccessDialect) ParenthesizeJoins() bool { return true }

func (*AccessDialect) quoteString(s string) string { return quote(s) }

func (*AccessDialect) formatTime(t time.Time) string {
	return "#" + t.Format("2006-01-02 15:04:05") + "#"
}
