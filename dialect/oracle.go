package dialect

import (
	"strings"
	"time"
)

// OracleDialect generates SQL for Oracle. Oracle stores the empty string
// as NULL, and pages by nesting the query on ROWNUM.
type OracleDialect struct{ config }

// NewOracle returns the Oracle dialect.
func NewOracle(opts ...Option) *OracleDialect {
	d := &OracleDialect{config{paging: PagingRownum, maxBatchRows: 100, selectUsingAs: true}}
	d.apply(opts)
	return d
}

// Name implements the Dialect interface.
func (*OracleDialect) Name() string { return Oracle }

// QuoteIdent implements the Dialect interface.
func (*OracleDialect) QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteTable implements the Dialect interface.
func (d *OracleDialect) QuoteTable(s string) string { return quoteQualified(s, d.QuoteIdent) }

// Literal implements the Dialect interface.
func (d *OracleDialect) Literal(v any) (string, error) { return literal(d, d.config, v) }

// LastInsertIDQuery implements the Dialect interface. Oracle identity
// columns are read back by the driver result.
func (*OracleDialect) LastInsertIDQuery() string { return "" }

// EmptyStringIsNull implements the Dialect interface.
func (*OracleDialect) EmptyStringIsNull() bool { return true }

// SupportsInsertAll implements the Dialect interface.
func (*OracleDialect) SupportsInsertAll() bool { return true }

// SupportsReturning implements the Dialect interface.
func (*OracleDialect) SupportsReturning() bool { return false }

// EqualFoldLike implements the Dialect interface.
func (*OracleDialect) EqualFoldLike() bool { return false }

// ParenthesizeJoins implements the Dialect interface.
func (*OracleDialect) ParenthesizeJoins() bool { return false }

func (*OracleDialect) quoteString(s string) string { return quote(s) }

func (*OracleDialect) formatTime(t time.Time) string {
	return "TO_DATE(" + quote(t.Format("2006-01-02 15:04:05")) + ", 'YYYY-MM-DD HH24:MI:SS')"
}
