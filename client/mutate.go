package client

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect"
	"github.com/syssam/sqlmap/dialect/sql"
	"github.com/syssam/sqlmap/dialect/sql/sqlgraph"
	"github.com/syssam/sqlmap/privacy"
	ql "github.com/syssam/sqlmap/querylanguage"
	"github.com/syssam/sqlmap/schema"
)

// Insert writes the given entities, all of the same type. Pass pointers to
// have generated keys assigned back.
//
// Statements holding more rows than the dialect allows are split. Outside
// of a transaction every statement commits on its own, so an error leaves
// the batches before it written. Relations between entities of the same
// insert are written by a final update once every key is known.
func (c *Client) Insert(ctx context.Context, values ...any) error {
	b := sql.Insert(values...).Dialect(c.dialect)
	stmts, err := b.Statements(ctx)
	if err != nil {
		return err
	}
	desc := b.Entity()
	if err := c.mutate(ctx, &mutation{op: sqlmap.OpInsert, desc: desc, ents: values}); err != nil {
		return err
	}
	pending, names := b.Pending()
	if c.tx != nil || len(stmts) == 1 {
		return c.write(ctx, func(conn dialect.ExecQuerier) error {
			for _, stmt := range stmts {
				if err := c.insert(ctx, conn, desc, stmt); err != nil {
					return err
				}
			}
			return c.resolve(ctx, conn, pending, names)
		})
	}
	for i, stmt := range stmts {
		err := c.write(ctx, func(conn dialect.ExecQuerier) error {
			return c.insert(ctx, conn, desc, stmt)
		})
		if err != nil {
			return err
		}
		c.log.DebugContext(ctx, "insert batch committed",
			"entity", desc.Name, "batch", i+1, "batches", len(stmts), "rows", len(stmt.Entities))
	}
	if len(pending) == 0 {
		return nil
	}
	return c.write(ctx, func(conn dialect.ExecQuerier) error {
		return c.resolve(ctx, conn, pending, names)
	})
}

// insert runs one INSERT statement and assigns the generated keys.
func (c *Client) insert(ctx context.Context, conn dialect.ExecQuerier, desc *schema.Descriptor, stmt sql.Statement) error {
	ai := desc.AutoIncrement
	if stmt.Returning {
		keys, err := values(ctx, conn, stmt.Query)
		if err != nil {
			return wrap(err)
		}
		if len(keys) != len(stmt.Entities) {
			return sqlmap.NewExecutionError(stmt.Query, fmt.Errorf("%d keys returned for %d rows", len(keys), len(stmt.Entities)))
		}
		for i, e := range stmt.Entities {
			if err := setKey(ai, e, keys[i][0]); err != nil {
				return sqlmap.NewExecutionError(stmt.Query, err)
			}
		}
		return nil
	}
	var res sql.Result
	if err := conn.Exec(ctx, stmt.Query, []any{}, &res); err != nil {
		return wrap(err)
	}
	if ai == nil || len(stmt.Entities) == 0 {
		return nil
	}
	id, ok, err := c.lastInsertID(ctx, conn, res)
	if err != nil {
		return err
	}
	if !ok {
		c.log.DebugContext(ctx, "generated keys not read back", "entity", desc.Name, "dialect", c.dialect.Name())
		return nil
	}
	// MySQL reports the key of the first row of a multi-row insert, the
	// other backends the key of the last one.
	first := id
	if c.dialect.Name() != dialect.MySQL {
		first = id - int64(len(stmt.Entities)) + 1
	}
	for i, e := range stmt.Entities {
		if err := setKey(ai, e, first+int64(i)); err != nil {
			return sqlmap.NewExecutionError(stmt.Query, err)
		}
	}
	return nil
}

// lastInsertID returns the last generated key, read from the driver result
// or by the dialect query. It reports false when neither is available.
func (c *Client) lastInsertID(ctx context.Context, conn dialect.ExecQuerier, res sql.Result) (int64, bool, error) {
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		return id, true, nil
	}
	q := c.dialect.LastInsertIDQuery()
	if q == "" {
		return 0, false, nil
	}
	vs, err := values(ctx, conn, q)
	if err != nil {
		return 0, false, err
	}
	if len(vs) != 1 || len(vs[0]) != 1 || vs[0][0] == nil {
		return 0, false, sqlmap.NewExecutionError(q, fmt.Errorf("no generated key returned"))
	}
	id, err := toInt(vs[0][0])
	if err != nil {
		return 0, false, sqlmap.NewExecutionError(q, err)
	}
	return int64(id), true, nil
}

// resolve writes the relations between entities of one insert.
func (c *Client) resolve(ctx context.Context, conn dialect.ExecQuerier, pending []any, names []string) error {
	if len(pending) == 0 {
		return nil
	}
	stmts, err := sql.Update(pending...).Dialect(c.dialect).Columns(names...).Statements(ctx)
	if err != nil {
		return err
	}
	_, err = exec(ctx, conn, stmts...)
	return err
}

// Update writes every column of the given entities, matching rows by
// primary key.
func (c *Client) Update(ctx context.Context, values ...any) error {
	_, err := c.UpdateWith(ctx, sql.Update(values...))
	return err
}

// UpdateWith runs the statements of the builder and returns the number of
// rows changed.
func (c *Client) UpdateWith(ctx context.Context, b *sql.UpdateBuilder) (int64, error) {
	stmts, err := b.Dialect(c.dialect).Statements(ctx)
	if err != nil {
		return 0, err
	}
	var ents []any
	for _, stmt := range stmts {
		ents = append(ents, stmt.Entities...)
	}
	if err := c.mutate(ctx, &mutation{op: sqlmap.OpUpdate, desc: b.Entity(), ents: ents}); err != nil {
		return 0, err
	}
	var n int64
	err = c.write(ctx, func(conn dialect.ExecQuerier) error {
		n, err = exec(ctx, conn, stmts...)
		return err
	})
	return n, err
}

// Delete runs the builder and returns the number of rows deleted.
func (c *Client) Delete(ctx context.Context, b *sql.DeleteBuilder) (int64, error) {
	if _, err := b.Dialect(c.dialect).QueryContext(ctx); err != nil {
		return 0, err
	}
	if err := c.mutate(ctx, deleteMutation{&mutation{op: sqlmap.OpDelete, desc: b.Entity()}, b}); err != nil {
		return 0, err
	}
	q, err := b.QueryContext(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	err = c.write(ctx, func(conn dialect.ExecQuerier) error {
		n, err = exec(ctx, conn, sql.Statement{Query: q})
		return err
	})
	return n, err
}

// DeleteByID deletes the entity of T with the given primary key and
// returns the number of rows deleted.
func DeleteByID[T any](ctx context.Context, c *Client, id any) (int64, error) {
	return c.Delete(ctx, sql.DeleteByID[T](id))
}

// Clear deletes every row of the tables of the given entities in one
// transaction. Referencing tables are emptied before the tables they
// reference.
func (c *Client) Clear(ctx context.Context, entities ...any) error {
	order, err := schema.DependencyOrder(entities...)
	if err != nil {
		return err
	}
	slices.Reverse(order)
	builders := make([]*sql.DeleteBuilder, len(order))
	for i, desc := range order {
		b := sql.DeleteFrom(desc, nil)
		if err := c.mutate(ctx, deleteMutation{&mutation{op: sqlmap.OpDelete, desc: desc}, b}); err != nil {
			return err
		}
		builders[i] = b
	}
	return c.write(ctx, func(conn dialect.ExecQuerier) error {
		for _, b := range builders {
			q, err := b.Dialect(c.dialect).QueryContext(ctx)
			if err != nil {
				return err
			}
			if _, err := exec(ctx, conn, sql.Statement{Query: q}); err != nil {
				return err
			}
		}
		return nil
	})
}

// exec runs the statements and returns the number of rows affected.
func exec(ctx context.Context, conn dialect.ExecQuerier, stmts ...sql.Statement) (int64, error) {
	var total int64
	for _, stmt := range stmts {
		var res sql.Result
		if err := conn.Exec(ctx, stmt.Query, []any{}, &res); err != nil {
			return total, wrap(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, sqlmap.NewExecutionError(stmt.Query, err)
		}
		total += n
	}
	return total, nil
}

// values runs a query and returns its rows as driver values.
func values(ctx context.Context, conn dialect.ExecQuerier, query string) ([][]any, error) {
	var rows sql.Rows
	if err := conn.Query(ctx, query, []any{}, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	vs, err := sqlgraph.Values(ctx, rows)
	return vs, sqlmap.NewExecutionError(query, err)
}

// setKey assigns a generated key to an entity passed by pointer.
func setKey(c *schema.Column, entity, key any) error {
	if c == nil || reflect.ValueOf(entity).Kind() != reflect.Ptr {
		return nil
	}
	return c.Set(entity, key)
}

// wrap classifies constraint violations reported by the database.
func wrap(err error) error {
	return sqlgraph.WrapConstraint(err)
}

// mutation describes a write to the privacy policy.
type mutation struct {
	op   sqlmap.Op
	desc *schema.Descriptor
	ents []any
}

func (m *mutation) Op() sqlmap.Op              { return m.op }
func (m *mutation) Entity() *schema.Descriptor { return m.desc }
func (m *mutation) Entities() []any            { return m.ents }

// deleteMutation is a delete whose rows can be narrowed by rules.
type deleteMutation struct {
	*mutation
	b *sql.DeleteBuilder
}

func (m deleteMutation) Filter() privacy.Filter { return m }

func (m deleteMutation) WhereP(ps ...ql.P) {
	for _, p := range ps {
		m.b.Where(p)
	}
}

var (
	_ privacy.Mutation   = (*mutation)(nil)
	_ privacy.Filterable = deleteMutation{}
)
