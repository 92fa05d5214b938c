package sqlgraph

import (
	"errors"
	"slices"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"

	"github.com/syssam/sqlmap"
)

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return sqlmap.IsConstraintError(err) ||
		IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// WrapConstraint returns err wrapped in a sqlmap.ConstraintError when it
// reports a constraint violation, and err unchanged otherwise.
func WrapConstraint(err error) error {
	if err == nil || sqlmap.IsConstraintError(err) || !IsConstraintError(err) {
		return err
	}
	return sqlmap.NewConstraintError(err.Error(), err)
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// SQLite extended result codes for constraint violations.
const (
	sqliteConstraintCheck      = 275
	sqliteConstraintForeignKey = 787
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// violation holds the codes identifying one kind of constraint violation
// for each driver, and the messages of drivers reporting no code.
type violation struct {
	pg       string
	mysql    []uint16
	sqlite   []int
	messages []string
}

var (
	unique = violation{
		pg:     pgUniqueViolation,
		mysql:  []uint16{mysqlDuplicateEntry},
		sqlite: []int{sqliteConstraintUnique, sqliteConstraintPrimaryKey},
		messages: []string{
			"Error 1062",                 // MySQL
			"violates unique constraint", // Postgres
			"UNIQUE constraint failed",   // SQLite
			"Violation of UNIQUE KEY",    // SQL Server
			"Violation of PRIMARY KEY",   // SQL Server
			"ORA-00001",                  // Oracle
		},
	}
	foreignKey = violation{
		pg:     pgForeignKeyViolation,
		mysql:  []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		sqlite: []int{sqliteConstraintForeignKey},
		messages: []string{
			"Error 1451",                      // MySQL (Cannot delete or update a parent row)
			"Error 1452",                      // MySQL (Cannot add or update a child row)
			"violates foreign key constraint", // Postgres
			"FOREIGN KEY constraint failed",   // SQLite
			"conflicted with the FOREIGN KEY", // SQL Server
			"ORA-02291",                       // Oracle (parent key not found)
			"ORA-02292",                       // Oracle (child record found)
		},
	}
	check = violation{
		pg:     pgCheckViolation,
		mysql:  []uint16{mysqlCheckConstraintViolate},
		sqlite: []int{sqliteConstraintCheck},
		messages: []string{
			"Error 3819",                // MySQL
			"violates check constraint", // Postgres
			"CHECK constraint failed",   // SQLite
			"conflicted with the CHECK", // SQL Server
			"ORA-02290",                 // Oracle
		},
	}
)

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	return unique.match(err)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return foreignKey.match(err)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
// e.g. a value does not satisfy a check condition.
func IsCheckConstraintError(err error) bool {
	return check.match(err)
}

func (v violation) match(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[*pq.Error](err); ok {
		return string(e.Code) == v.pg
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		for _, n := range v.mysql {
			if e.Number == n {
				return true
			}
		}
		return false
	}
	// SQLite connections without extended result codes report the primary
	// code only, leaving the message to tell the violations apart.
	if e, ok := asError[*sqlite.Error](err); ok && slices.Contains(v.sqlite, e.Code()) {
		return true
	}
	// Fallback to string matching for drivers without typed errors.
	return containsAny(err.Error(), v.messages...)
}

// asError attempts to extract an error of type T from the error chain.
func asError[T error](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
