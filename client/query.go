package client

import (
	"context"
	"fmt"
	"reflect"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect/sql"
	"github.com/syssam/sqlmap/dialect/sql/sqlgraph"
	ql "github.com/syssam/sqlmap/querylanguage"
	"github.com/syssam/sqlmap/schema"
)

// Select runs the selector and returns the root entities read, with the
// joined entities linked to them. A nil selector selects every row of T.
func Select[T any](ctx context.Context, c *Client, sel *sql.Selector) ([]*T, error) {
	if sel == nil {
		sel = sql.Select[T]()
	}
	plan, err := c.plan(ctx, sel)
	if err != nil {
		return nil, err
	}
	var out []*T
	err = c.query(ctx, plan.Query, func(rows sql.ColumnScanner) error {
		out, err = sqlgraph.Scan[T](ctx, rows, plan)
		return err
	})
	return out, err
}

// SelectAll returns every entity of T.
func SelectAll[T any](ctx context.Context, c *Client) ([]*T, error) {
	return Select[T](ctx, c, nil)
}

// SelectByID returns the entity of T with the given primary key. It fails
// with a NotFoundError when there is none.
func SelectByID[T any](ctx context.Context, c *Client, id any, joins ...any) (*T, error) {
	desc, err := schema.For[T]()
	if err != nil {
		return nil, err
	}
	if desc.PrimaryKey == nil {
		return nil, &sqlmap.SchemaError{Type: desc.Name, Message: "select by id requires a primary key"}
	}
	sel := sql.Select[T]().Join(joins...).Where(ql.EQ(ql.F(desc.PrimaryKey.Field), ql.V(id)))
	vs, err := Select[T](ctx, c, sel)
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return nil, sqlmap.NewNotFoundErrorWithID(desc.Name, id)
	}
	return vs[0], nil
}

// SingleOrDefault returns the only entity selected, or nil when the
// selector matches none. More than one entity fails with a
// NotSingularError.
func SingleOrDefault[T any](ctx context.Context, c *Client, sel *sql.Selector) (*T, error) {
	vs, err := Select[T](ctx, c, sel)
	if err != nil {
		return nil, err
	}
	switch len(vs) {
	case 0:
		return nil, nil
	case 1:
		return vs[0], nil
	}
	return nil, sqlmap.NewNotSingularError(reflect.TypeFor[T]().Name(), len(vs))
}

// Count returns the number of root entities matched by the selector.
func (c *Client) Count(ctx context.Context, sel *sql.Selector) (int, error) {
	vs, err := c.Values(ctx, sel.Clone().Count())
	if err != nil {
		return 0, err
	}
	if len(vs) != 1 || len(vs[0]) != 1 {
		return 0, fmt.Errorf("sqlmap/client: count returned %d rows", len(vs))
	}
	n, err := toInt(vs[0][0])
	if err != nil {
		return 0, fmt.Errorf("sqlmap/client: count: %w", err)
	}
	return n, nil
}

// Values runs the selector and returns its rows as driver values. It
// serves projections of computed columns, such as aggregates.
func (c *Client) Values(ctx context.Context, sel *sql.Selector) ([][]any, error) {
	plan, err := c.plan(ctx, sel)
	if err != nil {
		return nil, err
	}
	var out [][]any
	err = c.query(ctx, plan.Query, func(rows sql.ColumnScanner) error {
		out, err = sqlgraph.Values(ctx, rows)
		return sqlmap.NewExecutionError(plan.Query, err)
	})
	return out, err
}

// plan evaluates the query policy and plans the selector for the dialect
// of the client. Rules narrow a copy of the selector.
func (c *Client) plan(ctx context.Context, sel *sql.Selector) (*sql.Plan, error) {
	if c.policy != nil {
		sel = sel.Clone()
		if err := c.policy.EvalQuery(ctx, sel); err != nil {
			return nil, err
		}
	}
	return sel.Dialect(c.dialect).Plan(ctx)
}

func toInt(v any) (int, error) {
	switch v := v.(type) {
	case int64:
		return int(v), nil
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return int(v), nil
	case []byte:
		var n int
		_, err := fmt.Sscan(string(v), &n)
		return n, err
	case string:
		var n int
		_, err := fmt.Sscan(v, &n)
		return n, err
	}
	return 0, fmt.Errorf("unexpected value %v of type %T", v, v)
}
