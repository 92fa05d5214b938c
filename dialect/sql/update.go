package sql

import (
	"context"
	"slices"
	"strings"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect"
	ql "github.com/syssam/sqlmap/querylanguage"
	"github.com/syssam/sqlmap/schema"
)

// UpdateBuilder is a builder for UPDATE statements. Entities passed to
// Update are written one statement per entity, matched by primary key or by
// the Where predicate. Without entities, the assignments added with Set are
// applied to the rows matching Where.
//
// The rendered statements are cached until the builder is mutated, so the
// entities are read once, at the first render.
type UpdateBuilder struct {
	dialect dialect.Dialect
	desc    *schema.Descriptor
	values  []any
	columns []string
	exclude []string
	set     []assignment
	where   ql.P
	err     error

	dirty   bool
	stmts   []Statement
	renders int
}

type assignment struct {
	field string
	value ql.Expr
}

// Update returns a builder writing the given entities, all of the same type.
func Update(values ...any) *UpdateBuilder {
	b := &UpdateBuilder{values: values, dirty: true}
	b.desc, b.err = entities(values)
	return b
}

// UpdateAll returns a builder assigning values to the rows of T matching
// the Where predicate.
func UpdateAll[T any]() *UpdateBuilder {
	b := &UpdateBuilder{dirty: true}
	b.desc, b.err = schema.For[T]()
	return b
}

// Dialect sets the dialect the statements are rendered for.
func (b *UpdateBuilder) Dialect(d dialect.Dialect) *UpdateBuilder {
	if b.dialect != d {
		b.dialect, b.dirty = d, true
	}
	return b
}

// Entity returns the descriptor of the updated entity.
func (b *UpdateBuilder) Entity() *schema.Descriptor {
	return b.desc
}

// Columns restricts the written columns to the given Go fields or
// relations.
func (b *UpdateBuilder) Columns(fields ...string) *UpdateBuilder {
	b.columns = append(b.columns, fields...)
	b.dirty = true
	return b
}

// Exclude leaves the given Go fields or relations unchanged.
func (b *UpdateBuilder) Exclude(fields ...string) *UpdateBuilder {
	b.exclude = append(b.exclude, fields...)
	b.dirty = true
	return b
}

// Set assigns the expression v to the field.
func (b *UpdateBuilder) Set(field string, v ql.Expr) *UpdateBuilder {
	b.set = append(b.set, assignment{field: field, value: v})
	b.dirty = true
	return b
}

// Where sets the predicate matching the updated rows. Repeated calls are
// joined with AND.
func (b *UpdateBuilder) Where(p ql.P) *UpdateBuilder {
	if b.where == nil {
		b.where = p
	} else {
		b.where = ql.And(b.where, p)
	}
	b.dirty = true
	return b
}

// Statements renders the statements.
func (b *UpdateBuilder) Statements(ctx context.Context) ([]Statement, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.dialect == nil {
		return nil, errNoDialect
	}
	if !b.dirty {
		return slices.Clone(b.stmts), nil
	}
	b.renders++
	stmts, err := b.render(ctx)
	if err != nil {
		return nil, err
	}
	b.stmts, b.dirty = stmts, false
	return slices.Clone(stmts), nil
}

func (b *UpdateBuilder) render(ctx context.Context) ([]Statement, error) {
	var where string
	if b.where != nil {
		w, err := predicate(ctx, b.dialect, b.desc, b.where)
		if err != nil {
			return nil, err
		}
		where = w
	}
	if len(b.values) == 0 {
		q, err := b.assign(ctx, where)
		if err != nil {
			return nil, err
		}
		return []Statement{{Query: q}}, nil
	}
	cols := b.targets()
	if len(cols) == 0 {
		return nil, &sqlmap.SchemaError{Type: b.desc.Name, Message: "no column to update"}
	}
	stmts := make([]Statement, 0, len(b.values))
	for _, e := range b.values {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cond := where
		if cond == "" {
			key, err := b.desc.Key(e)
			if err != nil {
				return nil, &sqlmap.SchemaError{Type: b.desc.Name, Message: "update requires a primary key or a predicate"}
			}
			if cond, err = keyPredicate(b.dialect, b.desc, key); err != nil {
				return nil, err
			}
		}
		sets := make([]string, len(cols))
		for i, c := range cols {
			v, err := valueLiteral(b.dialect, c, e)
			if err != nil {
				return nil, err
			}
			sets[i] = b.dialect.QuoteIdent(c.Name) + " = " + v
		}
		stmts = append(stmts, Statement{
			Query:    b.statement(sets, cond),
			Entities: []any{e},
		})
	}
	return stmts, nil
}

// targets returns the columns written for each entity.
func (b *UpdateBuilder) targets() []*schema.Column {
	var cs []*schema.Column
	for _, c := range b.desc.Columns {
		switch {
		case !writable(c), c.Is(schema.FlagPrimaryKey):
		case len(b.columns) > 0 && !named(c, b.columns):
		case named(c, b.exclude):
		default:
			cs = append(cs, c)
		}
	}
	return cs
}

func (b *UpdateBuilder) assign(ctx context.Context, where string) (string, error) {
	if len(b.set) == 0 {
		return "", &sqlmap.SchemaError{Type: b.desc.Name, Message: "no column to update"}
	}
	g, err := DeriveJoins(b.dialect, b.desc.Type)
	if err != nil {
		return "", err
	}
	tr := NewTranslator(ctx, b.dialect, g)
	sets := make([]string, len(b.set))
	for i, a := range b.set {
		_, c, err := tr.Resolve(ql.F(a.field))
		if err != nil {
			return "", err
		}
		if !writable(c) {
			return "", &sqlmap.SchemaError{Type: b.desc.Name, Field: a.field, Message: "column is not writable"}
		}
		v, err := tr.value(c, a.value)
		if err != nil {
			return "", err
		}
		sets[i] = b.dialect.QuoteIdent(c.Name) + " = " + v
	}
	return b.statement(sets, where), nil
}

func (b *UpdateBuilder) statement(sets []string, where string) string {
	q := "UPDATE " + b.dialect.QuoteTable(b.desc.Table) + " SET " + strings.Join(sets, ", ")
	if where != "" {
		q += " WHERE " + where
	}
	return q
}
