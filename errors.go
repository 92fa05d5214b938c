package sqlmap

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("sqlmap: entity not found")

	// ErrNotSingular is returned when a query that expects exactly one result
	// returns multiple results.
	ErrNotSingular = errors.New("sqlmap: entity not singular")

	// ErrSchema is matched by every metadata error (SchemaError, RelationError).
	ErrSchema = errors.New("sqlmap: invalid schema")

	// ErrUnsupportedExpression is matched by UnsupportedExpressionError.
	ErrUnsupportedExpression = errors.New("sqlmap: unsupported expression")

	// ErrTimeout is matched by TimeoutError.
	ErrTimeout = errors.New("sqlmap: timeout")

	// ErrConsistency is matched by ConsistencyError.
	ErrConsistency = errors.New("sqlmap: consistency violation")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("sqlmap: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("sqlmap: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a query expects a singular result
// but receives multiple results.
type NotSingularError struct {
	label string
	count int // Number of results returned (-1 if unknown)
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	if e.count >= 0 {
		return fmt.Sprintf("sqlmap: %s not singular (got %d results, expected 1)", e.label, e.count)
	}
	return fmt.Sprintf("sqlmap: %s not singular", e.label)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// Count returns the number of results, or -1 if unknown.
func (e *NotSingularError) Count() int {
	return e.count
}

// NewNotSingularError returns a new NotSingularError with the result count.
func NewNotSingularError(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// SchemaError is returned when entity metadata cannot establish something a
// statement requires: a relation target, a primary key used for paging, or
// the source table of a result column.
type SchemaError struct {
	Type    string // Entity type name
	Field   string // Field name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("sqlmap: schema error")
	if e.Type != "" {
		b.WriteString(" on type ")
		b.WriteString(e.Type)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// NewSchemaError creates a new SchemaError.
func NewSchemaError(typeName, fieldName, message string) *SchemaError {
	return &SchemaError{Type: typeName, Field: fieldName, Message: message}
}

// RelationError is a SchemaError raised while deriving a relation: a missing
// reciprocal on a one-to-many target, or an associative entity that does not
// reference both sides of a many-to-many relation.
type RelationError struct {
	Type    string // Entity owning the relation
	Field   string // Relation field
	Target  string // Related entity
	Message string
}

// Error implements the error interface.
func (e *RelationError) Error() string {
	return fmt.Sprintf("sqlmap: relation %s.%s -> %s: %s", e.Type, e.Field, e.Target, e.Message)
}

// Is reports whether the target matches ErrSchema.
func (e *RelationError) Is(target error) bool {
	return target == ErrSchema
}

// IsSchemaError returns true if the error is a SchemaError or a RelationError.
func IsSchemaError(err error) bool {
	return err != nil && errors.Is(err, ErrSchema)
}

// UnsupportedExpressionError is returned when the translator meets an
// expression shape or literal type it has no SQL rendering for.
type UnsupportedExpressionError struct {
	Expr   string
	Reason string
}

// Error implements the error interface.
func (e *UnsupportedExpressionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("sqlmap: unsupported expression %s: %s", e.Expr, e.Reason)
	}
	return fmt.Sprintf("sqlmap: unsupported expression %s", e.Expr)
}

// Is reports whether the target matches ErrUnsupportedExpression.
func (e *UnsupportedExpressionError) Is(target error) bool {
	return target == ErrUnsupportedExpression
}

// NewUnsupportedExpressionError returns a new UnsupportedExpressionError.
func NewUnsupportedExpressionError(expr, reason string) *UnsupportedExpressionError {
	return &UnsupportedExpressionError{Expr: expr, Reason: reason}
}

// IsUnsupportedExpression returns true if the error is an UnsupportedExpressionError.
func IsUnsupportedExpression(err error) bool {
	return err != nil && errors.Is(err, ErrUnsupportedExpression)
}

// ExecutionError wraps a failed statement with the SQL text that was sent.
type ExecutionError struct {
	SQL string
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("sqlmap: executing %q: %v", e.SQL, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError wraps err with the statement text. A nil err returns nil,
// and an error that already carries SQL is returned unchanged.
func NewExecutionError(query string, err error) error {
	if err == nil {
		return nil
	}
	var e *ExecutionError
	if errors.As(err, &e) {
		return err
	}
	return &ExecutionError{SQL: query, Err: err}
}

// IsExecutionError returns true if the error is an ExecutionError.
func IsExecutionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ExecutionError
	return errors.As(err, &e)
}

// TimeoutError is returned when a connection could not be acquired from the
// pool within the configured bound.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("sqlmap: %s timed out after %s", e.Op, e.Timeout)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// IsTimeout returns true if the error is a TimeoutError.
func IsTimeout(err error) bool {
	return err != nil && errors.Is(err, ErrTimeout)
}

// ConsistencyError is returned when a statement would break referential
// consistency, e.g. a required foreign key set to a zero value, or a cycle
// between tables that must be ordered.
type ConsistencyError struct {
	Type    string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("sqlmap: consistency error on %s.%s: %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("sqlmap: consistency error on %s: %s", e.Type, e.Message)
}

// Is reports whether the target matches ErrConsistency.
func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistency
}

// IsConsistencyError returns true if the error is a ConsistencyError.
func IsConsistencyError(err error) bool {
	return err != nil && errors.Is(err, ErrConsistency)
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("sqlmap: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("sqlmap: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}
