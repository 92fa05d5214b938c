package sql

import (
	"context"
	"fmt"
	"reflect"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect"
	ql "github.com/syssam/sqlmap/querylanguage"
	"github.com/syssam/sqlmap/schema"
)

// Statement is one rendered data modification statement.
type Statement struct {
	Query string
	// Entities lists the entities written by the statement, in order.
	Entities []any
	// Returning is set when the statement returns the generated keys of
	// Entities as rows.
	Returning bool
}

// Querier wraps the Query method implemented by every builder.
type Querier interface {
	// Query returns the statement text.
	Query() (string, error)
}

var (
	_ Querier = (*Selector)(nil)
	_ Querier = (*DeleteBuilder)(nil)
)

// entities validates that values hold entities of one type and returns
// their descriptor.
func entities(values []any) (*schema.Descriptor, error) {
	if len(values) == 0 {
		return nil, &sqlmap.SchemaError{Message: "no entity given"}
	}
	desc, err := schema.Of(values[0])
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if _, err := desc.Value(v); err != nil {
			return nil, &sqlmap.SchemaError{Type: desc.Name, Message: err.Error()}
		}
	}
	return desc, nil
}

// writable reports whether c is written by insert and update statements.
func writable(c *schema.Column) bool {
	return c.Stored && !c.Is(schema.FlagAutoIncrement) && !c.Is(schema.FlagReadOnly)
}

// named reports whether c is bound to one of the Go field or relation
// names.
func named(c *schema.Column, names []string) bool {
	for _, n := range names {
		if n == c.Field || c.Edge != nil && n == c.Edge.Name {
			return true
		}
	}
	return false
}

// valueLiteral renders the value of the column c read from entity.
func valueLiteral(d dialect.Dialect, c *schema.Column, entity any) (string, error) {
	v, err := c.Get(entity)
	if err != nil {
		return "", err
	}
	if v == nil {
		if dv, ok := c.Default(); ok {
			v = dv
		}
	}
	if c.Is(schema.FlagForeignKey) && !c.Nullable && isZero(v) {
		return "", &sqlmap.ConsistencyError{Type: c.Entity.Name, Field: c.Field, Message: "required foreign key is empty"}
	}
	return (&Translator{dialect: d}).literal(c, v)
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}

// predicate renders p against the single entity desc, with unqualified
// columns.
func predicate(ctx context.Context, d dialect.Dialect, desc *schema.Descriptor, p ql.P) (string, error) {
	g, err := DeriveJoins(d, desc.Type)
	if err != nil {
		return "", err
	}
	return Translate(ctx, d, g, p, false)
}

// keyPredicate renders the primary key condition of entity.
func keyPredicate(d dialect.Dialect, desc *schema.Descriptor, key any) (string, error) {
	if desc.PrimaryKey == nil {
		return "", &sqlmap.SchemaError{Type: desc.Name, Message: "statement requires a primary key or a predicate"}
	}
	lit, err := (&Translator{dialect: d}).literal(desc.PrimaryKey, key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s", d.QuoteIdent(desc.PrimaryKey.Name), lit), nil
}
